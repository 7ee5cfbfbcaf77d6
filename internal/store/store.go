package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row does not exist or belongs to
// another user.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Capture is a stored thought: the resolved transcript plus its
// categorization.
type Capture struct {
	ID               string    `json:"id,omitempty"`
	UserID           string    `json:"user_id"`
	Text             string    `json:"text"`
	Confidence       float64   `json:"confidence"`
	Backend          string    `json:"backend"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Language         *string   `json:"language,omitempty"`
	Category         *string   `json:"category,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// InsertCapture stores a capture and fills in its ID and creation time.
func (s *Store) InsertCapture(ctx context.Context, c *Capture) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO captures (user_id, text, confidence, backend, processing_time_ms, language, category, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, c.UserID, c.Text, c.Confidence, c.Backend, c.ProcessingTimeMs, c.Language, c.Category, c.Tags).
		Scan(&c.ID, &c.CreatedAt)
}

// ListCaptures returns a user's captures, newest first.
func (s *Store) ListCaptures(ctx context.Context, userID string, limit, offset int) ([]Capture, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, text, confidence, backend, processing_time_ms, language, category, tags, created_at
		FROM captures
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var c Capture
		if err := rows.Scan(&c.ID, &c.UserID, &c.Text, &c.Confidence, &c.Backend,
			&c.ProcessingTimeMs, &c.Language, &c.Category, &c.Tags, &c.CreatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// GetCapture returns one capture scoped to its owner.
func (s *Store) GetCapture(ctx context.Context, userID, id string) (*Capture, error) {
	var c Capture
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, text, confidence, backend, processing_time_ms, language, category, tags, created_at
		FROM captures
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Text, &c.Confidence, &c.Backend,
		&c.ProcessingTimeMs, &c.Language, &c.Category, &c.Tags, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCapture removes one capture scoped to its owner.
func (s *Store) DeleteCapture(ctx context.Context, userID, id string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM captures WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCapturesOlderThan removes captures past the retention window and
// reports how many rows went away.
func (s *Store) DeleteCapturesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM captures WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
