package store

import (
	"context"
	"fmt"

	"github.com/roach88/mashup/internal/chain"
)

// SourceStat summarizes one stored source.
// First and Last are zero when the source has no entries.
type SourceStat struct {
	Pattern string          `json:"pattern"`
	Entries int             `json:"entries"`
	First   chain.Datestamp `json:"first"`
	Last    chain.Datestamp `json:"last"`
}

// SourceStats returns per-source entry counts and date bounds in source order.
func (s *Store) SourceStats(ctx context.Context) ([]SourceStat, error) {
	// year*1000+day orders datestamps since day < 1000.
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.pattern,
		       COUNT(e.seq),
		       COALESCE(MIN(e.year * 1000 + e.day), 0),
		       COALESCE(MAX(e.year * 1000 + e.day), 0)
		FROM sources s
		LEFT JOIN entries e ON e.source_id = s.id
		GROUP BY s.id
		ORDER BY s.ordinal ASC, s.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("source stats: %w", err)
	}
	defer rows.Close()

	out := []SourceStat{}
	for rows.Next() {
		var (
			st          SourceStat
			first, last int64
		)
		if err := rows.Scan(&st.Pattern, &st.Entries, &first, &last); err != nil {
			return nil, fmt.Errorf("source stats: scan: %w", err)
		}
		if st.Entries > 0 {
			st.First = unpackStamp(first)
			st.Last = unpackStamp(last)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source stats: %w", err)
	}
	return out, nil
}

func unpackStamp(v int64) chain.Datestamp {
	year := v / 1000
	day := v % 1000
	if day < 0 {
		year--
		day += 1000
	}
	return chain.Datestamp{Year: int16(year), Day: uint16(day)}
}
