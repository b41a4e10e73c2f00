package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a generation id is not in the store.
var ErrNotFound = errors.New("not found")

// Generation is one recorded mashup.
type Generation struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// WriteGeneration inserts a generation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteGeneration(ctx context.Context, g Generation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, prompt, text, fallback, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		g.ID,
		g.Prompt,
		g.Text,
		g.Fallback,
		marshalTime(g.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("write generation: %w", err)
	}
	return nil
}

// ReadGeneration retrieves a single generation by ID.
// Returns ErrNotFound if there is no such id.
func (s *Store) ReadGeneration(ctx context.Context, id string) (Generation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, text, fallback, created_at
		FROM generations
		WHERE id = ?
	`, id)

	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, fmt.Errorf("read generation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Generation{}, fmt.Errorf("read generation %s: %w", id, err)
	}
	return g, nil
}

// ListGenerations returns up to limit generations, newest first.
// A limit of zero or less returns all of them.
func (s *Store) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, text, fallback, created_at
		FROM generations
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	out := []Generation{}
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("list generations: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row scanner) (Generation, error) {
	var (
		g       Generation
		created string
	)
	if err := row.Scan(&g.ID, &g.Prompt, &g.Text, &g.Fallback, &created); err != nil {
		return Generation{}, err
	}
	t, err := unmarshalTime(created)
	if err != nil {
		return Generation{}, err
	}
	g.CreatedAt = t
	return g, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}
