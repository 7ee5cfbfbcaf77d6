package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const defaultLocalWhisperURL = "http://127.0.0.1:8178"

// The local server runs a large accelerated model; its output is near
// commercial quality but unscored.
const localModelConfidence = 0.9

// LocalWhisperConfig holds configuration for the optional local backend.
type LocalWhisperConfig struct {
	URL string // base URL of the local whisper server
}

// LocalWhisperClient transcribes audio against a locally-run whisper.cpp
// style server. It implements Recognizer as the local_high_performance
// backend and is only constructed when explicitly enabled; the selector
// keeps it out of the primary chain and tries it as a last resort.
type LocalWhisperClient struct {
	url        string
	httpClient *http.Client
}

// NewLocalWhisperClient creates the local high-performance recognizer.
func NewLocalWhisperClient(cfg LocalWhisperConfig) *LocalWhisperClient {
	url := cfg.URL
	if url == "" {
		url = defaultLocalWhisperURL
	}
	return &LocalWhisperClient{
		url:        url,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *LocalWhisperClient) Name() Backend { return BackendLocalHighPerformance }

type localWhisperResponse struct {
	Text string `json:"text"`
}

// Recognize posts the audio to the local server's inference endpoint.
func (c *LocalWhisperClient) Recognize(ctx context.Context, audio []byte, opts RecognizeOptions) (Result, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "capture.webm")
	if err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}
	_ = form.WriteField("response_format", "json")
	if opts.Language != "" {
		_ = form.WriteField("language", opts.Language)
	}
	if err := form.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/inference", &body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("local whisper error: %s - %s", resp.Status, string(respBody))
	}

	var lwResp localWhisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&lwResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return Result{
		Text:       lwResp.Text,
		Confidence: localModelConfidence,
	}, nil
}

// Ping checks that the local server answers its health endpoint.
func (c *LocalWhisperClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("local whisper unavailable: %s", resp.Status)
	}
	return nil
}
