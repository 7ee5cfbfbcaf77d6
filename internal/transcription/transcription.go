// Package transcription resolves thought-capture events to transcripts.
// A capture may carry a real-time transcript produced by the browser's
// speech recognizer, raw audio, or both; this package decides which
// server-side backend to use, how to combine a real-time transcript with
// a server re-transcription, and how to degrade across a fallback chain
// when backends are unavailable.
package transcription

import (
	"context"
	"errors"
	"fmt"
)

// Backend identifies one concrete speech-to-text provider.
type Backend string

const (
	// BackendWebSpeech is the browser's built-in recognizer. It runs
	// client-side only; the server never calls it.
	BackendWebSpeech Backend = "web_speech"

	// BackendHostedOpenModel is a hosted open-weights speech model
	// (HuggingFace inference API running Whisper).
	BackendHostedOpenModel Backend = "hosted_open_model"

	// BackendCommercialAPI is a paid high-accuracy speech API
	// (OpenAI audio transcriptions).
	BackendCommercialAPI Backend = "commercial_api"

	// BackendLocalHighPerformance is a locally-run accelerated model.
	// It is the most expensive to invoke, so it is only ever tried as a
	// last resort and only when explicitly enabled.
	BackendLocalHighPerformance Backend = "local_high_performance"
)

// WebSpeechConfidence is the fixed confidence assigned to real-time
// transcripts. The browser recognizer does not report a usable score, so
// captures carry this constant unless a server pass overrides it.
const WebSpeechConfidence = 0.85

// Request is one capture event to resolve. Exactly one of Audio,
// AudioURL or RealtimeText must be present; Audio or AudioURL may
// additionally accompany RealtimeText to enable server enhancement.
type Request struct {
	Audio        []byte
	AudioURL     string
	RealtimeText string
	Language     string

	// SkipEnhancement suppresses the best-effort server pass that
	// normally runs when a real-time transcript arrives with audio.
	SkipEnhancement bool
}

// WordInfo is a word-level timestamp/confidence entry.
type WordInfo struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"` // seconds from utterance start
	Confidence float64 `json:"confidence"`
}

// Result is a resolved transcription. Results are immutable once
// returned; callers must not mutate them in place.
type Result struct {
	Text             string     `json:"text"`
	Confidence       float64    `json:"confidence"` // always in [0,1]
	Backend          Backend    `json:"backend"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	Words            []WordInfo `json:"words,omitempty"`
}

// RecognizeOptions carries per-request hints for a backend call.
type RecognizeOptions struct {
	Language string // BCP-47 hint, "" for auto-detect
}

// Recognizer is implemented by every server-side speech backend.
type Recognizer interface {
	Name() Backend

	// Recognize transcribes one audio payload. Implementations must
	// respect ctx cancellation and return an error on empty or invalid
	// provider responses.
	Recognize(ctx context.Context, audio []byte, opts RecognizeOptions) (Result, error)

	// Ping performs a lightweight reachability probe.
	Ping(ctx context.Context) error
}

// Transcriber resolves a single request. *Service implements it; tests
// and the batch transcriber depend on the interface.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}

var (
	// ErrNoInput signals a request with neither audio nor real-time text.
	ErrNoInput = errors.New("transcription: no audio or real-time text provided")

	// ErrNoBackend signals that no server-side backend is configured.
	ErrNoBackend = errors.New("transcription: no transcription backend available")

	// ErrAllBackendsFailed signals total exhaustion of the fallback
	// chain, including the last-resort local backend if present.
	ErrAllBackendsFailed = errors.New("transcription: all transcription backends failed")
)

// DownloadError reports a failed audio URL fetch. A bad URL is a client
// error, not a backend failure, so it never enters the fallback chain.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription: audio download failed for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("transcription: audio download failed for %s: status %d", e.URL, e.StatusCode)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
