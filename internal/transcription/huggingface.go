package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultHuggingFaceURL = "https://api-inference.huggingface.co/models/openai/whisper-large-v3"

// The inference API does not report confidence; hosted Whisper output is
// reliable but unscored, so results carry this fixed value.
const hostedModelConfidence = 0.8

// HuggingFaceConfig holds configuration for the hosted open-model backend.
type HuggingFaceConfig struct {
	APIKey string
	URL    string // inference endpoint, defaults to whisper-large-v3
}

// HuggingFaceClient transcribes audio via the HuggingFace inference API.
// It implements Recognizer as the hosted_open_model backend.
type HuggingFaceClient struct {
	apiKey     string
	url        string
	httpClient *http.Client
}

// NewHuggingFaceClient creates a hosted open-model recognizer.
func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	url := cfg.URL
	if url == "" {
		url = defaultHuggingFaceURL
	}
	return &HuggingFaceClient{
		apiKey:     cfg.APIKey,
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HuggingFaceClient) Name() Backend { return BackendHostedOpenModel }

// huggingFaceResponse is the inference API payload for speech models.
type huggingFaceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Recognize posts the raw audio bytes to the inference endpoint.
func (c *HuggingFaceClient) Recognize(ctx context.Context, audio []byte, opts RecognizeOptions) (Result, error) {
	url := c.url
	if opts.Language != "" {
		url += "?language=" + opts.Language
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("HuggingFace API error: %s - %s", resp.Status, string(respBody))
	}

	var hfResp huggingFaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&hfResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if hfResp.Error != "" {
		return Result{}, fmt.Errorf("HuggingFace inference error: %s", hfResp.Error)
	}

	return Result{
		Text:       hfResp.Text,
		Confidence: hostedModelConfidence,
	}, nil
}

// Ping checks reachability of the inference endpoint. Any HTTP response
// below 500 that is not an auth rejection counts as reachable.
func (c *HuggingFaceClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("HuggingFace credentials rejected: %s", resp.Status)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("HuggingFace unavailable: %s", resp.Status)
	}
	return nil
}
