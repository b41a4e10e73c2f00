package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/mashup/internal/chain"
)

// SaveChain replaces the stored snapshot with c in a single transaction.
// Generation history is left untouched.
func (s *Store) SaveChain(ctx context.Context, c *chain.Chain) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("save chain: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save chain: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM entries", "DELETE FROM sources", "DELETE FROM words"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("save chain: clear: %w", err)
		}
	}

	if err := insertWords(ctx, tx, c.Words.Words()); err != nil {
		return fmt.Errorf("save chain: %w", err)
	}
	for i, src := range c.Sources {
		if err := insertSource(ctx, tx, i, src); err != nil {
			return fmt.Errorf("save chain: source %q: %w", src.Pattern, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save chain: commit: %w", err)
	}
	slog.Debug("chain saved", "words", c.Words.Len(), "sources", len(c.Sources), "entries", c.EntryCount())
	return nil
}

func insertWords(ctx context.Context, tx *sql.Tx, words []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO words (idx, word) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare words: %w", err)
	}
	defer stmt.Close()

	for i, w := range words {
		if _, err := stmt.ExecContext(ctx, i, w); err != nil {
			return fmt.Errorf("insert word %d: %w", i, err)
		}
	}
	return nil
}

func insertSource(ctx context.Context, tx *sql.Tx, ordinal int, src *chain.TextSource) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sources (pattern, ordinal) VALUES (?, ?)`, src.Pattern, ordinal)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("source id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (source_id, seq, prefix0, prefix1, suffix, year, day)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()

	for seq, e := range src.Entries {
		p0, p1 := e.Prefix.Packed()
		_, err := stmt.ExecContext(ctx, id, seq,
			int64(p0), int64(p1), int64(e.Suffix.Packed()),
			int64(e.Datestamp.Year), int64(e.Datestamp.Day),
		)
		if err != nil {
			return fmt.Errorf("insert entry %d: %w", seq, err)
		}
	}
	return nil
}

// LoadChain reads the full snapshot. An empty database yields an empty chain.
// The loaded chain is validated before it is returned.
func (s *Store) LoadChain(ctx context.Context) (*chain.Chain, error) {
	words, err := s.loadWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	vocab, err := chain.VocabularyFrom(words)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	c := &chain.Chain{Words: vocab}
	byID, err := s.loadSources(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	if err := s.loadEntries(ctx, byID); err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	slog.Debug("chain loaded", "words", vocab.Len(), "sources", len(c.Sources), "entries", c.EntryCount())
	return c, nil
}

func (s *Store) loadWords(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, word FROM words ORDER BY idx ASC`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var (
			idx  int
			word string
		)
		if err := rows.Scan(&idx, &word); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		if idx != len(words) {
			return nil, fmt.Errorf("word index gap: got %d, want %d", idx, len(words))
		}
		words = append(words, word)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return words, nil
}

func (s *Store) loadSources(ctx context.Context, c *chain.Chain) (map[int64]*chain.TextSource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, pattern FROM sources ORDER BY ordinal ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*chain.TextSource)
	for rows.Next() {
		var (
			id      int64
			pattern string
		)
		if err := rows.Scan(&id, &pattern); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src := &chain.TextSource{Pattern: pattern}
		c.Sources = append(c.Sources, src)
		byID[id] = src
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return byID, nil
}

func (s *Store) loadEntries(ctx context.Context, byID map[int64]*chain.TextSource) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, prefix0, prefix1, suffix, year, day
		FROM entries
		ORDER BY source_id ASC, seq ASC
	`)
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sourceID, p0, p1, suffix, year, day int64
		if err := rows.Scan(&sourceID, &p0, &p1, &suffix, &year, &day); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		src, ok := byID[sourceID]
		if !ok {
			return fmt.Errorf("entry references unknown source %d", sourceID)
		}
		src.Entries = append(src.Entries, chain.Entry{
			Prefix:    chain.PrefixFromPacked(uint32(p0), uint32(p1)),
			Suffix:    chain.SuffixFromPacked(uint32(suffix)),
			Datestamp: chain.Datestamp{Year: int16(year), Day: uint16(day)},
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entries: %w", err)
	}
	return nil
}
