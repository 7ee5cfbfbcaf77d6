package app

import (
	"os"
	"testing"
	"time"

	"github.com/cathcr/cathcr/internal/transcription"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		defValue string
		want     string
	}{
		{
			name:     "env set",
			envKey:   "TEST_ENV_VAR",
			envValue: "custom_value",
			defValue: "default",
			want:     "custom_value",
		},
		{
			name:     "env not set",
			envKey:   "TEST_ENV_VAR_NOTSET",
			envValue: "",
			defValue: "default",
			want:     "default",
		},
		{
			name:     "empty default",
			envKey:   "TEST_ENV_VAR_EMPTY",
			envValue: "",
			defValue: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenv(tt.envKey, tt.defValue)
			if got != tt.want {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.envKey, tt.defValue, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		def      int
		want     int
	}{
		{
			name:     "value set",
			envKey:   "TEST_INT_NORMAL",
			envValue: "7",
			def:      5,
			want:     7,
		},
		{
			name:     "env not set - use default",
			envKey:   "TEST_INT_NOTSET",
			envValue: "",
			def:      5,
			want:     5,
		},
		{
			name:     "invalid value - use default",
			envKey:   "TEST_INT_INVALID",
			envValue: "not_a_number",
			def:      5,
			want:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenvInt(tt.envKey, tt.def)
			if got != tt.want {
				t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.envKey, tt.def, got, tt.want)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		def      time.Duration
		want     time.Duration
	}{
		{
			name:     "value set",
			envKey:   "TEST_DUR_NORMAL",
			envValue: "250ms",
			def:      time.Second,
			want:     250 * time.Millisecond,
		},
		{
			name:     "env not set - use default",
			envKey:   "TEST_DUR_NOTSET",
			envValue: "",
			def:      time.Second,
			want:     time.Second,
		},
		{
			name:     "invalid value - use default",
			envKey:   "TEST_DUR_INVALID",
			envValue: "soon",
			def:      time.Second,
			want:     time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.envKey, tt.envValue)
				defer os.Unsetenv(tt.envKey)
			}

			got := getenvDuration(tt.envKey, tt.def)
			if got != tt.want {
				t.Errorf("getenvDuration(%q, %v) = %v, want %v", tt.envKey, tt.def, got, tt.want)
			}
		})
	}
}

func TestParseFallbackChain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []transcription.Backend
	}{
		{
			name:  "default chain",
			input: "hosted_open_model,commercial_api",
			want:  []transcription.Backend{transcription.BackendHostedOpenModel, transcription.BackendCommercialAPI},
		},
		{
			name:  "reordered",
			input: "commercial_api,hosted_open_model",
			want:  []transcription.Backend{transcription.BackendCommercialAPI, transcription.BackendHostedOpenModel},
		},
		{
			name:  "whitespace tolerated",
			input: " hosted_open_model , commercial_api ",
			want:  []transcription.Backend{transcription.BackendHostedOpenModel, transcription.BackendCommercialAPI},
		},
		{
			name:  "unknown entries dropped",
			input: "hosted_open_model,deepgram,commercial_api",
			want:  []transcription.Backend{transcription.BackendHostedOpenModel, transcription.BackendCommercialAPI},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFallbackChain(tt.input)

			if len(got) != len(tt.want) {
				t.Fatalf("parseFallbackChain(%q) returned %d backends, want %d", tt.input, len(got), len(tt.want))
			}
			for i, b := range got {
				if b != tt.want[i] {
					t.Errorf("parseFallbackChain(%q)[%d] = %q, want %q", tt.input, i, b, tt.want[i])
				}
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	keysToClean := []string{
		"HTTP_ADDR", "DATABASE_URL", "LOG_LEVEL",
		"TRANSCRIPTION_FALLBACK_CHAIN", "BACKEND_TIMEOUT",
		"BATCH_GROUP_SIZE", "BATCH_GROUP_DELAY",
		"HEALTH_PROBE_INTERVAL", "HEALTH_PROBE_TIMEOUT",
		"CAPTURE_RETENTION",
	}
	for _, key := range keysToClean {
		os.Unsetenv(key)
	}

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}

	if len(cfg.FallbackChain) != 2 ||
		cfg.FallbackChain[0] != transcription.BackendHostedOpenModel ||
		cfg.FallbackChain[1] != transcription.BackendCommercialAPI {
		t.Errorf("FallbackChain = %v, want hosted then commercial", cfg.FallbackChain)
	}

	if cfg.BackendTimeout != 30*time.Second {
		t.Errorf("BackendTimeout = %v, want 30s", cfg.BackendTimeout)
	}

	if cfg.BatchGroupSize != transcription.DefaultGroupSize {
		t.Errorf("BatchGroupSize = %d, want %d", cfg.BatchGroupSize, transcription.DefaultGroupSize)
	}

	if cfg.BatchGroupDelay != transcription.DefaultGroupDelay {
		t.Errorf("BatchGroupDelay = %v, want %v", cfg.BatchGroupDelay, transcription.DefaultGroupDelay)
	}

	if cfg.RetentionWindow != 0 {
		t.Errorf("RetentionWindow = %v, want 0 (disabled)", cfg.RetentionWindow)
	}
}

func TestLoadConfigFromEnvCustomValues(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("TRANSCRIPTION_FALLBACK_CHAIN", "commercial_api")
	os.Setenv("BACKEND_TIMEOUT", "10s")
	os.Setenv("BATCH_GROUP_SIZE", "3")
	os.Setenv("BATCH_GROUP_DELAY", "50ms")
	os.Setenv("CAPTURE_RETENTION", "720h")
	os.Setenv("LOCAL_WHISPER_ENABLED", "true")

	defer func() {
		os.Unsetenv("HTTP_ADDR")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("TRANSCRIPTION_FALLBACK_CHAIN")
		os.Unsetenv("BACKEND_TIMEOUT")
		os.Unsetenv("BATCH_GROUP_SIZE")
		os.Unsetenv("BATCH_GROUP_DELAY")
		os.Unsetenv("CAPTURE_RETENTION")
		os.Unsetenv("LOCAL_WHISPER_ENABLED")
	}()

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}

	if len(cfg.FallbackChain) != 1 || cfg.FallbackChain[0] != transcription.BackendCommercialAPI {
		t.Errorf("FallbackChain = %v, want [commercial_api]", cfg.FallbackChain)
	}

	if cfg.BackendTimeout != 10*time.Second {
		t.Errorf("BackendTimeout = %v, want 10s", cfg.BackendTimeout)
	}

	if cfg.BatchGroupSize != 3 {
		t.Errorf("BatchGroupSize = %d, want 3", cfg.BatchGroupSize)
	}

	if cfg.BatchGroupDelay != 50*time.Millisecond {
		t.Errorf("BatchGroupDelay = %v, want 50ms", cfg.BatchGroupDelay)
	}

	if cfg.RetentionWindow != 720*time.Hour {
		t.Errorf("RetentionWindow = %v, want 720h", cfg.RetentionWindow)
	}

	if !cfg.LocalWhisperEnabled {
		t.Error("LocalWhisperEnabled = false, want true")
	}
}
