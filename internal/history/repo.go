// Package history persists a lightweight log of generation attempts so
// operators can see what the service produced. It is optional: without a
// database the repo degrades to a no-op.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/sqlinline"
)

// Record is one logged generation attempt. Image bytes are never stored.
type Record struct {
	ID        string           `json:"id"`
	Mode      domain.Mode      `json:"mode"`
	Emotion   domain.Emotion   `json:"emotion"`
	Style     domain.Style     `json:"style"`
	Status    string           `json:"status"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	ElapsedMS int64            `json:"elapsed_ms"`
	PollCount int              `json:"poll_count"`
	CreatedAt time.Time        `json:"created_at"`
}

// Repo writes and reads generation records. A nil pool makes every method
// a no-op so callers never need to branch on whether history is enabled.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Enabled() bool {
	return r != nil && r.pool != nil
}

// Record logs one attempt. Failures here must not affect the caller's
// response, so errors are returned for logging only.
func (r *Repo) Record(ctx context.Context, req domain.GenerationRequest, res domain.GenerationResult) error {
	if !r.Enabled() {
		return nil
	}
	status := "completed"
	if !res.Success {
		status = "failed"
	}
	row := r.pool.QueryRow(ctx, sqlinline.QInsertGeneration,
		uuid.NewString(),
		string(req.Mode),
		string(req.Emotion),
		string(req.Style),
		status,
		string(res.ErrorKind),
		res.Elapsed.Milliseconds(),
		res.PollAttempts,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("history: insert generation: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Record, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, sqlinline.QRecentGenerations, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list generations: %w", err)
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		var rec Record
		var mode, emotion, style, kind string
		if err := rows.Scan(&rec.ID, &mode, &emotion, &style, &rec.Status, &kind, &rec.ElapsedMS, &rec.PollCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan generation: %w", err)
		}
		rec.Mode = domain.Mode(mode)
		rec.Emotion = domain.Emotion(emotion)
		rec.Style = domain.Style(style)
		rec.ErrorKind = domain.ErrorKind(kind)
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate generations: %w", err)
	}
	return items, nil
}
