package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of capture event
type EventType string

const (
	EventCaptureReceived      EventType = "capture_received"
	EventRealtimeReturned     EventType = "realtime_returned"
	EventEnhancementApplied   EventType = "enhancement_applied"
	EventEnhancementDiscarded EventType = "enhancement_discarded"
	EventBackendFailed        EventType = "backend_failed"
	EventCaptureTranscribed   EventType = "capture_transcribed"
	EventCaptureCategorized   EventType = "capture_categorized"
	EventCaptureFailed        EventType = "capture_failed"
	EventBatchStarted         EventType = "batch_started"
	EventBatchCompleted       EventType = "batch_completed"
)

// Logger provides async event logging to the database
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, captureID string, eventType EventType, data map[string]any) error {
	if l.db == nil {
		return nil // Silently skip if no DB
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	var id *string
	if captureID != "" {
		id = &captureID
	}
	_, err = l.db.Exec(ctx, `
		INSERT INTO capture_events (capture_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, id, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(captureID string, eventType EventType, data map[string]any) {
	if l.db == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, captureID, eventType, data)
	}()
}
