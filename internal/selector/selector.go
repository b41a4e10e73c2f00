package selector

import (
	"github.com/roach88/mashup/internal/chain"
)

// Selector is a parsed, resolved query with its entry pool.
// A Selector is immutable and safe for concurrent readers.
type Selector struct {
	expr      Expr
	sources   []*chain.TextSource
	entries   []chain.Entry
	dateRange *chain.DateRange
}

// New parses query, resolves every name against c and builds the entry pool.
// When dr is non-nil, entries outside [dr.Start, dr.End) are dropped; a source
// left with no entries still counts as resolved.
//
// Syntax errors are returned before unknown names. Among unknown names the
// leftmost is reported.
func New(c *chain.Chain, query string, dr *chain.DateRange) (*Selector, error) {
	expr, err := Parse(query)
	if err != nil {
		return nil, err
	}

	known := make(map[string]*chain.TextSource, len(c.Sources))
	for _, s := range c.Sources {
		known[s.Pattern] = s
	}
	for _, n := range Names(expr) {
		if _, ok := known[n.Value]; !ok {
			return nil, &Error{Code: ErrCodeUnknownTerm, Location: n.Pos, Term: n.Value}
		}
	}

	sources := evaluate(expr, known)
	sel := &Selector{expr: expr, sources: sources}
	if dr != nil {
		r := *dr
		sel.dateRange = &r
	}
	sel.entries = sel.pool()
	return sel, nil
}

// evaluate merges the sources named by e, keeping first-seen order and
// dropping repeats.
func evaluate(e Expr, known map[string]*chain.TextSource) []*chain.TextSource {
	switch n := e.(type) {
	case Name:
		return []*chain.TextSource{known[n.Value]}
	case Or:
		return merge(evaluate(n.Left, known), evaluate(n.Right, known))
	case And:
		return merge(evaluate(n.Left, known), evaluate(n.Right, known))
	}
	return nil
}

func merge(left, right []*chain.TextSource) []*chain.TextSource {
	out := left
	for _, r := range right {
		dup := false
		for _, l := range left {
			if l == r {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func (s *Selector) pool() []chain.Entry {
	n := 0
	for _, src := range s.sources {
		n += len(src.Entries)
	}
	entries := make([]chain.Entry, 0, n)
	for _, src := range s.sources {
		if s.dateRange == nil {
			entries = append(entries, src.Entries...)
		} else {
			entries = append(entries, src.Filter(*s.dateRange)...)
		}
	}
	return entries
}

// Expr returns the parsed expression tree.
func (s *Selector) Expr() Expr {
	return s.expr
}

// Sources returns the distinct sources the query resolved to, in first-seen order.
func (s *Selector) Sources() []*chain.TextSource {
	return s.sources
}

// Entries returns the merged entry pool. It must not be modified.
func (s *Selector) Entries() []chain.Entry {
	return s.entries
}

// Range returns the date filter, if any.
func (s *Selector) Range() (chain.DateRange, bool) {
	if s.dateRange == nil {
		return chain.DateRange{}, false
	}
	return *s.dateRange, true
}
