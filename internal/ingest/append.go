// Package ingest turns raw text and exported chat histories into chain entries.
//
// Ingestion is an offline batch step. Unreadable input and malformed
// timestamps abort the batch; the only inputs dropped silently are messages
// from unmapped authors and messages with empty bodies.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/msgdump"
)

// TimestampLayout is the message timestamp format of chat exports.
const TimestampLayout = "2006.01.02 15:04:05"

// Stats summarises one ingestion batch.
type Stats struct {
	Messages int `json:"messages"`
	Skipped  int `json:"skipped"`
	Entries  int `json:"entries"`
}

// ParseTimestamp parses a message timestamp into its Datestamp.
func ParseTimestamp(s string) (chain.Datestamp, error) {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(s))
	if err != nil {
		return chain.Datestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return chain.FromTime(t), nil
}

// AppendText appends the contents of a plain text file to the source for
// pattern. Newlines are ordinary separators in bulk text.
func AppendText(c *chain.Chain, path, pattern string, ds chain.Datestamp) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read text: %w", err)
	}
	warnUnaddressable(pattern)

	n, err := PushText(c, pattern, string(data), ds, false)
	if err != nil {
		return Stats{}, fmt.Errorf("append text %s: %w", path, err)
	}
	slog.Debug("appended text", "path", path, "pattern", pattern, "entries", n)
	return Stats{Entries: n}, nil
}

// AppendMessageStream appends an exported chat history file. Authors are
// resolved through names (short name -> source pattern).
func AppendMessageStream(c *chain.Chain, path string, names map[string]string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read message stream: %w", err)
	}
	defer f.Close()

	stats, err := AppendMessages(c, f, names)
	if err != nil {
		return stats, fmt.Errorf("append messages %s: %w", path, err)
	}
	return stats, nil
}

type message struct {
	shortName string
	datestamp chain.Datestamp
	body      strings.Builder
}

// AppendMessages appends messages read from an HTML chat export.
// Only top-level messages are used; forwarded messages are ignored.
func AppendMessages(c *chain.Chain, r io.Reader, names map[string]string) (Stats, error) {
	for _, pattern := range names {
		warnUnaddressable(pattern)
	}

	var (
		stats Stats
		msg   *message
	)
	flush := func() error {
		if msg == nil {
			return nil
		}
		defer func() { msg = nil }()

		stats.Messages++
		pattern, ok := lookupPattern(names, msg.shortName)
		body := msg.body.String()
		if !ok || strings.TrimSpace(body) == "" {
			stats.Skipped++
			slog.Debug("skipped message", "short_name", msg.shortName, "mapped", ok)
			return nil
		}
		n, err := PushText(c, pattern, body, msg.datestamp, true)
		if err != nil {
			return err
		}
		stats.Entries += n
		return nil
	}

	err := msgdump.Read(r, func(ev msgdump.Event) error {
		// Forwarded messages are nested one level deeper; their text is not the author's.
		if ev.Depth != 0 {
			return nil
		}
		switch ev.Kind {
		case msgdump.MessageStart:
			msg = &message{}
		case msgdump.ShortName:
			msg.shortName = ev.Text
		case msgdump.Date:
			ds, err := ParseTimestamp(ev.Text)
			if err != nil {
				return err
			}
			msg.datestamp = ds
		case msgdump.BodyPart:
			msg.body.WriteString(ev.Text)
		case msgdump.MessageEnd:
			return flush()
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	slog.Debug("appended messages", "messages", stats.Messages, "skipped", stats.Skipped, "entries", stats.Entries)
	return stats, nil
}

// lookupPattern resolves a short name, falling back to its lower-case form.
// Config keys reach here lower-cased, export links keep their case.
func lookupPattern(names map[string]string, shortName string) (string, bool) {
	if pattern, ok := names[shortName]; ok {
		return pattern, true
	}
	pattern, ok := names[strings.ToLower(shortName)]
	return pattern, ok
}

// warnUnaddressable logs patterns that contain selector operators; no
// query can name such a source.
func warnUnaddressable(pattern string) {
	if strings.ContainsAny(pattern, "|&()") {
		slog.Warn("source pattern contains selector operators and cannot be queried", "pattern", pattern)
	}
	if strings.TrimSpace(pattern) != pattern {
		slog.Warn("source pattern has surrounding whitespace and cannot be queried", "pattern", pattern)
	}
}
