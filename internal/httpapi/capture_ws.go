package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cathcr/cathcr/internal/eventlog"
	"github.com/cathcr/cathcr/internal/notifications"
	"github.com/cathcr/cathcr/internal/store"
	"github.com/cathcr/cathcr/internal/transcription"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// captureWSMessage is a control frame from the capture client. Audio
// arrives separately as binary frames.
type captureWSMessage struct {
	Type            string `json:"type"` // "realtime", "finalize", "reset"
	Text            string `json:"text,omitempty"`
	Language        string `json:"language,omitempty"`
	SkipEnhancement bool   `json:"skip_enhancement,omitempty"`
}

type captureWSResult struct {
	Type          string               `json:"type"` // "result"
	Capture       *store.Capture       `json:"capture,omitempty"`
	Transcription transcription.Result `json:"transcription"`
}

type captureWSError struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// captureSession accumulates one dictation over a websocket: binary
// frames append audio, "realtime" frames update the client-side
// transcript, and "finalize" resolves the capture.
type captureSession struct {
	user   *AuthUser
	conn   *websocket.Conn
	connMu sync.Mutex

	router *Router

	audio        bytes.Buffer
	realtimeText string

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *Router) handleCaptureWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("capture_ws: upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())
	session := &captureSession{
		user:   userFrom(req),
		conn:   conn,
		router: r,
		ctx:    ctx,
		cancel: cancel,
	}

	r.logger.Printf("capture_ws: session started for user %s", session.user.ID)
	session.run()
}

func (s *captureSession) run() {
	defer s.cleanup()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.router.logger.Printf("capture_ws: connection closed for user %s", s.user.ID)
			} else {
				s.router.logger.Printf("capture_ws: read error for user %s: %v", s.user.ID, err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			s.audio.Write(msg)
			continue
		}

		var control captureWSMessage
		if err := json.Unmarshal(msg, &control); err != nil {
			s.router.logger.Printf("capture_ws: failed to parse message: %v", err)
			s.sendError("invalid message")
			continue
		}

		switch control.Type {
		case "realtime":
			s.realtimeText = control.Text

		case "finalize":
			s.finalize(control)

		case "reset":
			s.audio.Reset()
			s.realtimeText = ""

		default:
			s.sendError("unknown message type")
		}
	}
}

// finalize resolves the accumulated dictation and answers with a result
// frame. The session state is cleared afterwards so the client can start
// the next thought on the same connection.
func (s *captureSession) finalize(control captureWSMessage) {
	r := s.router

	treq := transcription.Request{
		Audio:           append([]byte(nil), s.audio.Bytes()...),
		RealtimeText:    s.realtimeText,
		Language:        control.Language,
		SkipEnhancement: control.SkipEnhancement,
	}
	s.audio.Reset()
	s.realtimeText = ""

	r.eventLog.LogAsync("", eventlog.EventCaptureReceived, map[string]any{
		"user_id":     s.user.ID,
		"audio_bytes": len(treq.Audio),
		"source":      "websocket",
	})

	result, err := r.svc.Transcribe(s.ctx, treq)
	if err != nil {
		r.logger.Printf("capture_ws: transcription failed for user %s: %v", s.user.ID, err)
		r.eventLog.LogAsync("", eventlog.EventCaptureFailed, map[string]any{
			"user_id": s.user.ID,
			"error":   err.Error(),
		})
		s.sendError("transcription failed")
		return
	}

	capture := r.persistCapture(s.ctx, s.user.ID, treq, result)
	s.sendJSON(captureWSResult{Type: "result", Capture: capture, Transcription: result})

	if capture != nil && r.apns != nil {
		go s.notifyDevices(capture)
	}
}

// notifyDevices pushes a "thought filed" notification to the user's
// registered devices. Best effort.
func (s *captureSession) notifyDevices(capture *store.Capture) {
	r := s.router

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := r.store.GetUserPushTokens(ctx, s.user.ID)
	if err != nil {
		r.logger.Printf("capture_ws: failed to load push tokens: %v", err)
		return
	}

	category := ""
	if capture.Category != nil {
		category = *capture.Category
	}
	notif := notifications.CaptureNotification{
		CaptureID: capture.ID,
		Preview:   previewText(capture.Text),
		Category:  category,
	}

	for _, t := range tokens {
		if err := r.apns.SendCaptureNotification(t.Token, notif); err != nil {
			r.logger.Printf("capture_ws: push to device failed: %v", err)
		}
	}
}

func (s *captureSession) sendJSON(v any) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		s.router.logger.Printf("capture_ws: write failed: %v", err)
	}
}

func (s *captureSession) sendError(msg string) {
	s.sendJSON(captureWSError{Type: "error", Error: msg})
}

func (s *captureSession) cleanup() {
	s.cancel()

	s.connMu.Lock()
	s.conn.Close()
	s.connMu.Unlock()

	s.router.logger.Printf("capture_ws: session cleaned up for user %s", s.user.ID)
}
