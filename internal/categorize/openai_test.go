package categorize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIClient(t *testing.T) {
	t.Run("default model", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key"})
		if client.model != "gpt-4o-mini" {
			t.Errorf("model = %q, want %q", client.model, "gpt-4o-mini")
		}
	})

	t.Run("custom model", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o"})
		if client.model != "gpt-4o" {
			t.Errorf("model = %q, want %q", client.model, "gpt-4o")
		}
	})
}

func TestCategorize(t *testing.T) {
	t.Run("parses plain json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices": [{"message": {"content":
				"{\"category\": \"tasks\", \"tags\": [\"dentist\"], \"confidence\": 0.9}"}}]}`))
		}))
		defer srv.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", APIURL: srv.URL})
		got, err := client.Categorize(context.Background(), "call the dentist tomorrow")
		if err != nil {
			t.Fatalf("Categorize() error = %v", err)
		}
		if got.Category != "tasks" {
			t.Errorf("category = %q, want %q", got.Category, "tasks")
		}
		if len(got.Tags) != 1 || got.Tags[0] != "dentist" {
			t.Errorf("tags = %v, want [dentist]", got.Tags)
		}
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices": [{"message": {"content":
				"` + "```json\\n{\\\"category\\\": \\\"ideas\\\", \\\"tags\\\": [], \\\"confidence\\\": 0.7}\\n```" + `"}}]}`))
		}))
		defer srv.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", APIURL: srv.URL})
		got, err := client.Categorize(context.Background(), "an app that waters plants")
		if err != nil {
			t.Fatalf("Categorize() error = %v", err)
		}
		if got.Category != "ideas" {
			t.Errorf("category = %q, want %q", got.Category, "ideas")
		}
	})

	t.Run("api error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", APIURL: srv.URL})
		if _, err := client.Categorize(context.Background(), "whatever"); err == nil {
			t.Error("Categorize() error = nil, want error on 429")
		}
	})
}

func TestSystemPromptShape(t *testing.T) {
	for _, category := range []string{"ideas", "tasks", "reminders", "notes", "journal"} {
		if !strings.Contains(SystemPrompt, category) {
			t.Errorf("SystemPrompt should name category %q", category)
		}
	}
	if !strings.Contains(SystemPrompt, "JSON") {
		t.Error("SystemPrompt should demand JSON output")
	}
}
