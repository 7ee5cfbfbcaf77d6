package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cathcr/cathcr/internal/costs"
	"github.com/cathcr/cathcr/internal/eventlog"
	"github.com/cathcr/cathcr/internal/store"
	"github.com/cathcr/cathcr/internal/transcription"
)

// maxBatchRequests caps one batch call; larger backlogs should page.
const maxBatchRequests = 100

// captureRequest is the wire shape of one capture event.
type captureRequest struct {
	RealtimeText    string `json:"realtime_text,omitempty"`
	AudioBase64     string `json:"audio_base64,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	Language        string `json:"language,omitempty"`
	SkipEnhancement bool   `json:"skip_enhancement,omitempty"`
}

func (cr captureRequest) toTranscriptionRequest() (transcription.Request, error) {
	req := transcription.Request{
		AudioURL:        cr.AudioURL,
		RealtimeText:    cr.RealtimeText,
		Language:        cr.Language,
		SkipEnhancement: cr.SkipEnhancement,
	}
	if cr.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(cr.AudioBase64)
		if err != nil {
			return transcription.Request{}, errors.New("invalid audio_base64")
		}
		req.Audio = audio
	}
	return req, nil
}

type captureResponse struct {
	Capture       *store.Capture       `json:"capture,omitempty"`
	Transcription transcription.Result `json:"transcription"`
}

func (r *Router) handleCreateCapture(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)

	var body captureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	treq, err := body.toTranscriptionRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := r.svc.Transcribe(req.Context(), treq)
	if err != nil {
		r.respondTranscribeError(w, req, user.ID, err)
		return
	}

	capture := r.persistCapture(req.Context(), user.ID, treq, result)
	writeJSON(w, http.StatusCreated, captureResponse{Capture: capture, Transcription: result})
}

func (r *Router) handleBatchCaptures(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)

	var body struct {
		Requests []captureRequest `json:"requests"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "no requests supplied")
		return
	}
	if len(body.Requests) > maxBatchRequests {
		writeError(w, http.StatusBadRequest, "too many requests in one batch")
		return
	}

	treqs := make([]transcription.Request, len(body.Requests))
	for i, cr := range body.Requests {
		// A malformed item keeps its slot and surfaces as a sentinel.
		treq, err := cr.toTranscriptionRequest()
		if err != nil {
			continue
		}
		treqs[i] = treq
	}

	r.eventLog.LogAsync("", eventlog.EventBatchStarted, map[string]any{
		"user_id": user.ID,
		"count":   len(treqs),
	})

	results := r.batch.BatchTranscribe(req.Context(), treqs)

	responses := make([]captureResponse, len(results))
	failed := 0
	for i, result := range results {
		responses[i] = captureResponse{Transcription: result}
		if result.Text == "" && result.Confidence == 0 {
			failed++
			continue
		}
		responses[i].Capture = r.persistCapture(req.Context(), user.ID, treqs[i], result)
	}

	r.eventLog.LogAsync("", eventlog.EventBatchCompleted, map[string]any{
		"user_id": user.ID,
		"count":   len(results),
		"failed":  failed,
	})

	writeJSON(w, http.StatusOK, map[string]any{"results": responses})
}

func (r *Router) handleListCaptures(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))

	captures, err := r.store.ListCaptures(req.Context(), user.ID, limit, offset)
	if err != nil {
		r.logger.Printf("list captures failed: %v", err)
		captureError(req, err, "list captures")
		writeError(w, http.StatusInternalServerError, "failed to list captures")
		return
	}
	if captures == nil {
		captures = []store.Capture{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"captures": captures})
}

func (r *Router) handleGetCapture(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)
	id := req.PathValue("id")

	capture, err := r.store.GetCapture(req.Context(), user.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "capture not found")
		return
	}
	if err != nil {
		r.logger.Printf("get capture %s failed: %v", id, err)
		captureError(req, err, "get capture")
		writeError(w, http.StatusInternalServerError, "failed to load capture")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capture": capture})
}

func (r *Router) handleDeleteCapture(w http.ResponseWriter, req *http.Request) {
	user := userFrom(req)
	id := req.PathValue("id")

	err := r.store.DeleteCapture(req.Context(), user.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "capture not found")
		return
	}
	if err != nil {
		r.logger.Printf("delete capture %s failed: %v", id, err)
		captureError(req, err, "delete capture")
		writeError(w, http.StatusInternalServerError, "failed to delete capture")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondTranscribeError maps the transcription error taxonomy onto
// HTTP statuses: client mistakes are 400s, chain exhaustion is a 502.
func (r *Router) respondTranscribeError(w http.ResponseWriter, req *http.Request, userID string, err error) {
	var dlErr *transcription.DownloadError

	switch {
	case errors.Is(err, transcription.ErrNoInput):
		writeError(w, http.StatusBadRequest, "no audio or real-time text provided")
	case errors.As(err, &dlErr):
		writeError(w, http.StatusBadRequest, "audio download failed")
	case errors.Is(err, transcription.ErrNoBackend), errors.Is(err, transcription.ErrAllBackendsFailed):
		r.logger.Printf("capture failed for user %s: %v", userID, err)
		captureError(req, err, "transcription chain exhausted")
		if r.discord != nil && errors.Is(err, transcription.ErrAllBackendsFailed) {
			r.discord.NotifyAllBackendsFailed(context.WithoutCancel(req.Context()), userID)
		}
		r.eventLog.LogAsync("", eventlog.EventCaptureFailed, map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		writeError(w, http.StatusBadGateway, "transcription unavailable")
	default:
		r.logger.Printf("capture failed for user %s: %v", userID, err)
		captureError(req, err, "transcription failed")
		writeError(w, http.StatusInternalServerError, "transcription failed")
	}
}

// persistCapture categorizes best-effort, stores the capture and logs
// the lifecycle events. Persistence failures degrade to an unstored
// response rather than failing a successful transcription.
func (r *Router) persistCapture(ctx context.Context, userID string, treq transcription.Request, result transcription.Result) *store.Capture {
	capture := &store.Capture{
		UserID:           userID,
		Text:             result.Text,
		Confidence:       result.Confidence,
		Backend:          string(result.Backend),
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	if treq.Language != "" {
		capture.Language = &treq.Language
	}

	if r.cat != nil {
		catCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		cat, err := r.cat.Categorize(catCtx, result.Text)
		cancel()
		if err != nil {
			r.logger.Printf("categorization skipped: %v", err)
		} else {
			capture.Category = &cat.Category
			capture.Tags = cat.Tags
		}
	}

	if err := r.store.InsertCapture(ctx, capture); err != nil {
		r.logger.Printf("failed to store capture for user %s: %v", userID, err)
		return nil
	}

	cost := costs.EstimateCaptureCosts(costs.CaptureMetrics{
		AudioSeconds:          estimateAudioSeconds(treq),
		UsedCommercialBackend: result.Backend == transcription.BackendCommercialAPI,
	})
	r.eventLog.LogAsync(capture.ID, eventlog.EventCaptureTranscribed, map[string]any{
		"backend":            string(result.Backend),
		"confidence":         result.Confidence,
		"processing_time_ms": result.ProcessingTimeMs,
		"cost_cents":         cost.TotalCostCents,
	})
	if capture.Category != nil {
		r.eventLog.LogAsync(capture.ID, eventlog.EventCaptureCategorized, map[string]any{
			"category": *capture.Category,
			"tags":     capture.Tags,
		})
	}

	return capture
}

// estimateAudioSeconds derives a rough duration for cost estimation from
// the payload size, assuming Opus-compressed capture audio (~4KB/s).
func estimateAudioSeconds(req transcription.Request) int {
	if len(req.Audio) == 0 {
		return 0
	}
	return len(req.Audio) / 4096
}

// previewText shortens a transcript for notification bodies.
func previewText(text string) string {
	words := strings.Fields(text)
	if len(words) <= 12 {
		return text
	}
	return strings.Join(words[:12], " ") + "…"
}
