package transcription

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultBackendTimeout = 30 * time.Second

// ServiceConfig holds tunables for the single-request transcriber.
type ServiceConfig struct {
	// BackendTimeout bounds each individual backend attempt so that a
	// hung backend cannot stall the whole fallback chain. Zero means the
	// 30s default.
	BackendTimeout time.Duration
}

// Service resolves exactly one Request to exactly one Result.
type Service struct {
	selector   *Selector
	logger     *log.Logger
	httpClient *http.Client
	timeout    time.Duration
}

// NewService creates a single-request transcriber over the given selector.
func NewService(selector *Selector, logger *log.Logger, cfg ServiceConfig) *Service {
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &Service{
		selector:   selector,
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

// Transcribe resolves one capture event.
//
// A request with a real-time transcript is answered from that transcript
// at the fixed web_speech confidence; if audio is also present and the
// request did not opt out, a server pass is attempted best-effort and
// reconciled against it. A request with only audio walks the fallback
// chain until one backend succeeds. ProcessingTimeMs on the returned
// result is wall-clock time for the whole resolution, failed attempts
// included.
func (s *Service) Transcribe(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if req.RealtimeText != "" {
		provisional := Result{
			Text:       req.RealtimeText,
			Confidence: WebSpeechConfidence,
			Backend:    BackendWebSpeech,
		}

		hasAudio := len(req.Audio) > 0 || req.AudioURL != ""
		if hasAudio && !req.SkipEnhancement {
			server, err := s.serverTranscribe(ctx, req)
			if err != nil {
				// Enhancement is best-effort: the error is deliberately
				// discarded and the real-time transcript stands.
				s.logger.Printf("transcription: server enhancement discarded: %v", err)
			} else {
				chosen := Reconcile(provisional, server)
				chosen.ProcessingTimeMs = time.Since(start).Milliseconds()
				return chosen, nil
			}
		}

		provisional.ProcessingTimeMs = time.Since(start).Milliseconds()
		return provisional, nil
	}

	if len(req.Audio) == 0 && req.AudioURL == "" {
		return Result{}, ErrNoInput
	}

	res, err := s.serverTranscribe(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	return res, nil
}

// serverTranscribe resolves audio bytes and walks the fallback chain.
// Download failures are hard errors; backend failures advance the chain.
func (s *Service) serverTranscribe(ctx context.Context, req Request) (Result, error) {
	audio := req.Audio
	if len(audio) == 0 {
		downloaded, err := s.downloadAudio(ctx, req.AudioURL)
		if err != nil {
			return Result{}, err
		}
		audio = downloaded
	}

	chain := s.selector.FallbackChain()
	local := s.selector.Local()
	if len(chain) == 0 && local == nil {
		return Result{}, ErrNoBackend
	}

	opts := RecognizeOptions{Language: req.Language}
	for _, rec := range chain {
		res, err := s.attempt(ctx, rec, audio, opts)
		if err != nil {
			s.logger.Printf("transcription: backend %s failed, trying next: %v", rec.Name(), err)
			continue
		}
		return res, nil
	}

	if local != nil {
		res, err := s.attempt(ctx, local, audio, opts)
		if err == nil {
			return res, nil
		}
		s.logger.Printf("transcription: last-resort backend %s failed: %v", local.Name(), err)
	}

	return Result{}, ErrAllBackendsFailed
}

// attempt runs one backend under the per-backend timeout and normalizes
// the result. An empty transcript counts as a backend failure.
func (s *Service) attempt(ctx context.Context, rec Recognizer, audio []byte, opts RecognizeOptions) (Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := rec.Recognize(attemptCtx, audio, opts)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return Result{}, fmt.Errorf("backend %s returned an empty transcript", rec.Name())
	}

	res.Backend = rec.Name()
	res.Confidence = clampConfidence(res.Confidence)
	return res, nil
}

func (s *Service) downloadAudio(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	return audio, nil
}
