// Package generate produces text by a weighted random walk over an entry pool.
//
// The pool is a flat multiset: every entry has weight one, so a context seen
// twice is twice as likely to be continued the same way. A walk seeds from a
// sentence-starting entry, emits both prefix words, then repeatedly follows
// entries whose prefix words equal the last two emitted words. It succeeds
// once the word count reaches the minimum on a terminal suffix. A walk with no
// continuation, or one that reaches the maximum without succeeding, is a dead
// end and the whole walk is retried from a fresh seed.
package generate

import (
	"log/slog"
	"strings"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/selector"
)

// DefaultMaxAttempts bounds the retries of a single generation.
const DefaultMaxAttempts = 100

// Rand is the random source used for every choice. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Options bounds a generation.
type Options struct {
	MinWords    int
	MaxWords    int
	MaxAttempts int // zero means DefaultMaxAttempts
}

func (o Options) attempts() int {
	if o.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return o.MaxAttempts
}

// Pool indexes entries by their context bigram.
// A Pool is immutable after NewPool and safe for concurrent walks.
type Pool struct {
	entries []chain.Entry
	starts  []int
	next    map[[chain.NGram]uint32][]int
}

// NewPool indexes entries. The slice is retained, not copied.
func NewPool(entries []chain.Entry) *Pool {
	p := &Pool{
		entries: entries,
		next:    make(map[[chain.NGram]uint32][]int),
	}
	for i, e := range entries {
		if e.Prefix.IsStarting() {
			p.starts = append(p.starts, i)
		}
		ctx := e.Prefix.Words()
		p.next[ctx] = append(p.next[ctx], i)
	}
	return p
}

// Len returns the number of entries in the pool.
func (p *Pool) Len() int { return len(p.entries) }

// Starts returns the number of sentence-starting entries.
func (p *Pool) Starts() int { return len(p.starts) }

// Walk performs one attempt and returns the emitted word indices.
// ok is false on a dead end or when the pool has no starting entry.
func (p *Pool) Walk(rng Rand, minWords, maxWords int) (words []uint32, ok bool) {
	if len(p.starts) == 0 {
		return nil, false
	}

	seed := p.entries[p.starts[rng.IntN(len(p.starts))]]
	ctx := seed.Prefix.Words()
	words = append(words, ctx[0], ctx[1])
	e := seed

	for {
		words = append(words, e.Suffix.Word())
		// The seed alone is NGram+1 words.
		if len(words) > maxWords {
			return nil, false
		}
		if e.Suffix.IsTerminal() && len(words) >= minWords {
			return words, true
		}
		if len(words) >= maxWords {
			return nil, false
		}

		ctx = [chain.NGram]uint32{ctx[1], e.Suffix.Word()}
		candidates := p.next[ctx]
		if len(candidates) == 0 {
			return nil, false
		}
		e = p.entries[candidates[rng.IntN(len(candidates))]]
	}
}

// Generate retries Walk up to opts.MaxAttempts times and renders the first
// success with vocab. Words are joined with single spaces as stored.
func (p *Pool) Generate(vocab *chain.Vocabulary, rng Rand, opts Options) (string, bool) {
	if len(p.starts) == 0 {
		slog.Debug("no starting entries", "pool", len(p.entries))
		return "", false
	}

	attempts := opts.attempts()
	for i := 0; i < attempts; i++ {
		idx, ok := p.Walk(rng, opts.MinWords, opts.MaxWords)
		if !ok {
			continue
		}
		text, err := render(vocab, idx)
		if err != nil {
			slog.Warn("render generated text", "error", err)
			return "", false
		}
		slog.Debug("generated", "attempt", i+1, "words", len(idx))
		return text, true
	}
	slog.Debug("generation exhausted", "attempts", attempts, "pool", len(p.entries))
	return "", false
}

func render(vocab *chain.Vocabulary, idx []uint32) (string, error) {
	words := make([]string, len(idx))
	for i, w := range idx {
		s, err := vocab.Lookup(w)
		if err != nil {
			return "", err
		}
		words[i] = s
	}
	return strings.Join(words, " "), nil
}

// Generate draws text from the pool sel resolved against c, using the
// default attempt bound. It returns false when no text could be produced.
func Generate(c *chain.Chain, sel *selector.Selector, rng Rand, minWords, maxWords int) (string, bool) {
	return NewPool(sel.Entries()).Generate(c.Words, rng, Options{
		MinWords: minWords,
		MaxWords: maxWords,
	})
}
