package chain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NGram is the prefix length of the chain: a bigram model.
const NGram = 2

const (
	flagBit   = uint32(1) << 31
	indexMask = flagBit - 1
)

// Datestamp is a day-resolution date: year plus 1-based day of year.
// Datestamps order lexicographically by (Year, Day).
type Datestamp struct {
	Year int16  `json:"year"`
	Day  uint16 `json:"day"`
}

// FromTime converts a timestamp to its Datestamp, dropping sub-day resolution.
func FromTime(t time.Time) Datestamp {
	return Datestamp{Year: int16(t.Year()), Day: uint16(t.YearDay())}
}

// ParseDatestamp parses "YYYY-DDD" (day of year) or "YYYY-MM-DD".
func ParseDatestamp(s string) (Datestamp, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	switch len(parts) {
	case 2:
		year, err := strconv.ParseInt(parts[0], 10, 16)
		if err != nil {
			return Datestamp{}, fmt.Errorf("parse datestamp %q: year: %w", s, err)
		}
		day, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return Datestamp{}, fmt.Errorf("parse datestamp %q: day: %w", s, err)
		}
		if day < 1 || day > 366 {
			return Datestamp{}, fmt.Errorf("parse datestamp %q: day %d out of range 1-366", s, day)
		}
		return Datestamp{Year: int16(year), Day: uint16(day)}, nil
	case 3:
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Datestamp{}, fmt.Errorf("parse datestamp %q: %w", s, err)
		}
		return FromTime(t), nil
	default:
		return Datestamp{}, fmt.Errorf("parse datestamp %q: expected YYYY-DDD or YYYY-MM-DD", s)
	}
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Datestamp) Compare(o Datestamp) int {
	switch {
	case d.Year < o.Year:
		return -1
	case d.Year > o.Year:
		return 1
	case d.Day < o.Day:
		return -1
	case d.Day > o.Day:
		return 1
	}
	return 0
}

// Before reports whether d is strictly earlier than o.
func (d Datestamp) Before(o Datestamp) bool {
	return d.Compare(o) < 0
}

func (d Datestamp) String() string {
	return fmt.Sprintf("%04d-%03d", d.Year, d.Day)
}

// DateRange is the half-open interval [Start, End).
type DateRange struct {
	Start Datestamp `json:"start"`
	End   Datestamp `json:"end"`
}

// Contains reports whether d falls in [Start, End).
func (r DateRange) Contains(d Datestamp) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Prefix is the bigram context of an entry. The first field carries the
// sentence-start flag in its top bit.
type Prefix struct {
	packed [NGram]uint32
}

// NewPrefix packs two word indices and the sentence-start flag.
// Indices must be below MaxWords; Vocabulary.Intern guarantees that.
func NewPrefix(w0, w1 uint32, starting bool) Prefix {
	p0 := w0 & indexMask
	if starting {
		p0 |= flagBit
	}
	return Prefix{packed: [NGram]uint32{p0, w1 & indexMask}}
}

// PrefixFromPacked restores a Prefix from its stored representation.
func PrefixFromPacked(p0, p1 uint32) Prefix {
	return Prefix{packed: [NGram]uint32{p0, p1}}
}

// Words returns the two word indices.
func (p Prefix) Words() [NGram]uint32 {
	return [NGram]uint32{p.packed[0] & indexMask, p.packed[1] & indexMask}
}

// IsStarting reports whether the prefix opens a sentence.
func (p Prefix) IsStarting() bool {
	return p.packed[0]&flagBit != 0
}

// Packed returns the stored representation.
func (p Prefix) Packed() (uint32, uint32) {
	return p.packed[0], p.packed[1]
}

func (p Prefix) String() string {
	w := p.Words()
	if p.IsStarting() {
		return fmt.Sprintf("Starting(%d, %d)", w[0], w[1])
	}
	return fmt.Sprintf("NonStarting(%d, %d)", w[0], w[1])
}

// Suffix is the word following a prefix, with the sentence-terminal flag in
// its top bit.
type Suffix struct {
	packed uint32
}

// NewSuffix packs a word index and the sentence-terminal flag.
func NewSuffix(w uint32, terminal bool) Suffix {
	s := w & indexMask
	if terminal {
		s |= flagBit
	}
	return Suffix{packed: s}
}

// SuffixFromPacked restores a Suffix from its stored representation.
func SuffixFromPacked(s uint32) Suffix {
	return Suffix{packed: s}
}

// Word returns the word index.
func (s Suffix) Word() uint32 {
	return s.packed & indexMask
}

// IsTerminal reports whether the word ends a sentence.
func (s Suffix) IsTerminal() bool {
	return s.packed&flagBit != 0
}

// Packed returns the stored representation.
func (s Suffix) Packed() uint32 {
	return s.packed
}

func (s Suffix) String() string {
	if s.IsTerminal() {
		return fmt.Sprintf("Terminal(%d)", s.Word())
	}
	return fmt.Sprintf("NonTerminal(%d)", s.Word())
}

// Entry is one observed transition.
type Entry struct {
	Prefix    Prefix
	Suffix    Suffix
	Datestamp Datestamp
}

// TextSource is an attribution pattern and the entries observed for it.
// Two sources are the same source iff their patterns are equal.
type TextSource struct {
	Pattern string
	Entries []Entry
}

// Filter returns the entries whose datestamp falls in r.
// The result is never nil.
func (s *TextSource) Filter(r DateRange) []Entry {
	out := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if r.Contains(e.Datestamp) {
			out = append(out, e)
		}
	}
	return out
}

// Chain is the unit of persistence: a vocabulary and its sources.
type Chain struct {
	Words   *Vocabulary
	Sources []*TextSource
}

// New creates an empty chain.
func New() *Chain {
	return &Chain{Words: NewVocabulary()}
}

// Source returns the source with the given pattern, or nil.
func (c *Chain) Source(pattern string) *TextSource {
	for _, s := range c.Sources {
		if s.Pattern == pattern {
			return s
		}
	}
	return nil
}

// SourceOrCreate returns the source with the given pattern, appending an
// empty one on first sight.
func (c *Chain) SourceOrCreate(pattern string) *TextSource {
	if s := c.Source(pattern); s != nil {
		return s
	}
	s := &TextSource{Pattern: pattern}
	c.Sources = append(c.Sources, s)
	return s
}

// Patterns returns the pattern literals of all sources in insertion order.
func (c *Chain) Patterns() []string {
	out := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		out[i] = s.Pattern
	}
	return out
}

// EntryCount returns the total number of entries across sources.
func (c *Chain) EntryCount() int {
	n := 0
	for _, s := range c.Sources {
		n += len(s.Entries)
	}
	return n
}

// Validate checks that source patterns are unique and that every entry
// references a word present in the vocabulary.
func (c *Chain) Validate() error {
	if c.Words == nil {
		return fmt.Errorf("chain has no vocabulary")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if _, dup := seen[s.Pattern]; dup {
			return fmt.Errorf("duplicate source %q", s.Pattern)
		}
		seen[s.Pattern] = struct{}{}

		for i, e := range s.Entries {
			w := e.Prefix.Words()
			for _, idx := range []uint32{w[0], w[1], e.Suffix.Word()} {
				if !c.Words.contains(idx) {
					return fmt.Errorf("source %q entry %d: %w: %d >= %d",
						s.Pattern, i, ErrIndexOutOfRange, idx, c.Words.Len())
				}
			}
		}
	}
	return nil
}
