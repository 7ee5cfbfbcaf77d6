package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cathcr/cathcr/internal/categorize"
	"github.com/cathcr/cathcr/internal/eventlog"
	"github.com/cathcr/cathcr/internal/notifications"
	"github.com/cathcr/cathcr/internal/store"
	"github.com/cathcr/cathcr/internal/transcription"
)

type RouterConfig struct {
	// JWT Authentication (HS256 secret shared with the Supabase project)
	JWTSecret string
}

// Transcriber resolves a single capture event.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) (transcription.Result, error)
}

// BatchTranscriber resolves many capture events with bounded concurrency.
type BatchTranscriber interface {
	BatchTranscribe(ctx context.Context, reqs []transcription.Request) []transcription.Result
}

// HealthChecker probes the transcription subsystem.
type HealthChecker interface {
	Check(ctx context.Context) transcription.HealthReport
}

// CaptureStore is the persistence surface the handlers need.
type CaptureStore interface {
	InsertCapture(ctx context.Context, c *store.Capture) error
	ListCaptures(ctx context.Context, userID string, limit, offset int) ([]store.Capture, error)
	GetCapture(ctx context.Context, userID, id string) (*store.Capture, error)
	DeleteCapture(ctx context.Context, userID, id string) error
	RegisterPushToken(ctx context.Context, userID, token, platform string) error
	UnregisterPushToken(ctx context.Context, token string) error
	GetUserPushTokens(ctx context.Context, userID string) ([]store.DevicePushToken, error)
}

// Deps are the collaborators injected into the router. Categorize, APNs
// and Discord may be nil; the handlers skip them.
type Deps struct {
	Store       CaptureStore
	EventLog    *eventlog.Logger
	Transcriber Transcriber
	Batch       BatchTranscriber
	Health      HealthChecker
	Categorize  categorize.Client
	APNs        *notifications.APNsClient
	Discord     *notifications.Discord
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    CaptureStore
	eventLog *eventlog.Logger
	svc      Transcriber
	batch    BatchTranscriber
	health   HealthChecker
	cat      categorize.Client
	apns     *notifications.APNsClient
	discord  *notifications.Discord
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, deps Deps) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    deps.Store,
		eventLog: deps.EventLog,
		svc:      deps.Transcriber,
		batch:    deps.Batch,
		health:   deps.Health,
		cat:      deps.Categorize,
		apns:     deps.APNs,
		discord:  deps.Discord,
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Capture endpoints (protected)
	r.mux.HandleFunc("POST /api/captures", r.withAuth(r.handleCreateCapture))
	r.mux.HandleFunc("POST /api/captures/batch", r.withAuth(r.handleBatchCaptures))
	r.mux.HandleFunc("GET /api/captures", r.withAuth(r.handleListCaptures))
	r.mux.HandleFunc("GET /api/captures/{id}", r.withAuth(r.handleGetCapture))
	r.mux.HandleFunc("DELETE /api/captures/{id}", r.withAuth(r.handleDeleteCapture))

	// Push notifications (protected)
	r.mux.HandleFunc("POST /api/push/register", r.withAuth(r.handlePushRegister))
	r.mux.HandleFunc("POST /api/push/unregister", r.withAuth(r.handlePushUnregister))

	// Live capture websocket (token via query param)
	r.mux.HandleFunc("GET /ws/capture", r.withAuth(r.handleCaptureWS))
}

// handleHealthz surfaces the transcription health report. A report with
// no reachable server-side backend answers 503 so load balancers can
// route away from this instance.
func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	report := r.health.Check(req.Context())

	if report.Status == transcription.StatusUnhealthy && r.discord != nil {
		reachable := 0
		for name, ok := range report.Backends {
			if name != transcription.BackendWebSpeech && ok {
				reachable++
			}
		}
		r.discord.NotifyDegraded(context.WithoutCancel(req.Context()), string(report.Status), reachable)
	}

	status := http.StatusOK
	if report.Status == transcription.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
