package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// Confidence used when the API returns no per-segment log probabilities.
const commercialAPIConfidence = 0.92

// OpenAIConfig holds configuration for the commercial API backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string // e.g. "whisper-1"
	BaseURL string // override for testing
}

// OpenAIClient transcribes audio via the OpenAI audio transcriptions
// API. It implements Recognizer as the commercial_api backend.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a commercial API recognizer.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAIClient) Name() Backend { return BackendCommercialAPI }

// transcriptionResponse is the verbose_json payload.
type transcriptionResponse struct {
	Text  string `json:"text"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
	Segments []struct {
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// Recognize uploads the audio as a multipart form and normalizes the
// verbose JSON response, deriving confidence from segment log
// probabilities when present.
func (c *OpenAIClient) Recognize(ctx context.Context, audio []byte, opts RecognizeOptions) (Result, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "capture.webm")
	if err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}
	_ = form.WriteField("model", c.model)
	_ = form.WriteField("response_format", "verbose_json")
	_ = form.WriteField("timestamp_granularities[]", "word")
	if opts.Language != "" {
		_ = form.WriteField("language", opts.Language)
	}
	if err := form.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("OpenAI API error: %s - %s", resp.Status, string(respBody))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	confidence := segmentConfidence(tr)
	result := Result{
		Text:       tr.Text,
		Confidence: confidence,
	}
	for _, w := range tr.Words {
		result.Words = append(result.Words, WordInfo{
			Word:       w.Word,
			Start:      w.Start,
			Confidence: confidence,
		})
	}
	return result, nil
}

// segmentConfidence converts the mean segment log probability into a
// [0,1] confidence; with no segments the fixed default applies.
func segmentConfidence(tr transcriptionResponse) float64 {
	if len(tr.Segments) == 0 {
		return commercialAPIConfidence
	}
	var sum float64
	for _, seg := range tr.Segments {
		sum += seg.AvgLogprob
	}
	return clampConfidence(math.Exp(sum / float64(len(tr.Segments))))
}

// Ping verifies API reachability and credentials against the models
// endpoint.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OpenAI API unreachable: %s", resp.Status)
	}
	return nil
}
