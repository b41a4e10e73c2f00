// Package mashup turns prompts into generated text.
//
// A Service owns a loaded chain and answers prompts of the form
// "<query> [<range>]": it resolves the optional named date range, prepares
// the selector and its entry pool (cached per query and range), runs the
// generator and substitutes the configured fallback when generation is
// exhausted. Results can be recorded in a history store and re-rolled by id.
package mashup

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/config"
	"github.com/roach88/mashup/internal/generate"
	"github.com/roach88/mashup/internal/selector"
	"github.com/roach88/mashup/internal/store"
)

// History records and retrieves generations. *store.Store implements it.
type History interface {
	WriteGeneration(ctx context.Context, g store.Generation) error
	ReadGeneration(ctx context.Context, id string) (store.Generation, error)
}

// Options are the generation settings of a Service.
type Options struct {
	MinWords    int
	MaxWords    int
	MaxAttempts int
	Fallback    string
	FoldCase    bool
	CacheTTL    time.Duration // zero keeps prepared queries forever
	Ranges      map[string]chain.DateRange
}

// OptionsFromConfig converts a validated config.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	ttl, err := cfg.TTL()
	if err != nil {
		return Options{}, err
	}
	ranges, err := cfg.DateRanges()
	if err != nil {
		return Options{}, err
	}
	return Options{
		MinWords:    cfg.MinWords,
		MaxWords:    cfg.MaxWords,
		MaxAttempts: cfg.MaxAttempts,
		Fallback:    cfg.Fallback,
		FoldCase:    cfg.FoldCase,
		CacheTTL:    ttl,
		Ranges:      ranges,
	}, nil
}

// Result is one answered prompt.
type Result struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
	Fallback  bool      `json:"fallback"`
	Sources   []string  `json:"sources"`
	Range     string    `json:"range,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// prepared is a cached selector and its indexed pool.
type prepared struct {
	sel  *selector.Selector
	pool *generate.Pool
}

// Service answers prompts against one immutable chain.
//
// Thread-safety: Mashup and Reroll are safe for concurrent use. The chain
// must not be mutated while the service is in use.
type Service struct {
	chain   *chain.Chain
	opts    Options
	history History
	ids     IDGenerator
	now     func() time.Time
	cache   *cache.Cache

	mu  sync.Mutex // guards rng
	rng generate.Rand
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHistory records every result in h and enables Reroll.
func WithHistory(h History) ServiceOption {
	return func(s *Service) { s.history = h }
}

// WithIDGenerator replaces the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) ServiceOption {
	return func(s *Service) { s.ids = g }
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithRand replaces the random source. It is only called under the
// service's lock.
func WithRand(r generate.Rand) ServiceOption {
	return func(s *Service) { s.rng = r }
}

// New creates a Service for c.
func New(c *chain.Chain, opts Options, options ...ServiceOption) *Service {
	expiry := cache.NoExpiration
	cleanup := time.Duration(0)
	if opts.CacheTTL > 0 {
		expiry = opts.CacheTTL
		cleanup = 2 * opts.CacheTTL
	}

	s := &Service{
		chain: c,
		opts:  opts,
		ids:   UUIDv7Generator{},
		now:   time.Now,
		cache: cache.New(expiry, cleanup),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Mashup answers a prompt. Query errors (*selector.Error,
// *UnknownRangeError, ErrLegacySyntax) are returned unwrapped. Exhausted
// generation is not an error: the result carries the fallback text.
//
// Selector error locations are offsets into Normalize(prompt).
func (s *Service) Mashup(ctx context.Context, prompt string) (Result, error) {
	p, err := ParsePrompt(s.Normalize(prompt))
	if err != nil {
		return Result{}, err
	}

	var dr *chain.DateRange
	if p.Range != "" {
		r, ok := s.opts.Ranges[p.Range]
		if !ok {
			return Result{}, &UnknownRangeError{Name: p.Range, Known: s.Ranges()}
		}
		dr = &r
	}

	prep, err := s.prepare(p, dr)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	text, ok := prep.pool.Generate(s.chain.Words, s.rng, generate.Options{
		MinWords:    s.opts.MinWords,
		MaxWords:    s.opts.MaxWords,
		MaxAttempts: s.opts.MaxAttempts,
	})
	s.mu.Unlock()
	if !ok {
		text = s.opts.Fallback
	}

	res := Result{
		ID:        s.ids.NewID(),
		Prompt:    prompt,
		Text:      text,
		Fallback:  !ok,
		Sources:   patterns(prep.sel.Sources()),
		Range:     p.Range,
		CreatedAt: s.now(),
	}
	slog.Debug("mashup", "id", res.ID, "prompt", prompt, "pool", prep.pool.Len(), "fallback", res.Fallback)

	if s.history != nil {
		err := s.history.WriteGeneration(ctx, store.Generation{
			ID:        res.ID,
			Prompt:    res.Prompt,
			Text:      res.Text,
			Fallback:  res.Fallback,
			CreatedAt: res.CreatedAt,
		})
		if err != nil {
			return Result{}, fmt.Errorf("record mashup: %w", err)
		}
	}
	return res, nil
}

// Normalize returns the prompt as it is parsed: lower-cased when fold_case
// is on, unchanged otherwise. Folding may change the rune count.
func (s *Service) Normalize(prompt string) string {
	if !s.opts.FoldCase {
		return prompt
	}
	// Casers are stateful, so one per call.
	return cases.Lower(language.Und).String(prompt)
}

// Reroll answers the prompt of a recorded generation again.
func (s *Service) Reroll(ctx context.Context, id string) (Result, error) {
	if s.history == nil {
		return Result{}, ErrNoHistory
	}
	g, err := s.history.ReadGeneration(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("reroll: %w", err)
	}
	return s.Mashup(ctx, g.Prompt)
}

func (s *Service) prepare(p Prompt, dr *chain.DateRange) (*prepared, error) {
	key := p.Query + "\x00" + p.Range
	if v, ok := s.cache.Get(key); ok {
		return v.(*prepared), nil
	}

	sel, err := selector.New(s.chain, p.Query, dr)
	if err != nil {
		return nil, err
	}
	prep := &prepared{sel: sel, pool: generate.NewPool(sel.Entries())}
	s.cache.Set(key, prep, cache.DefaultExpiration)
	return prep, nil
}

// Sources returns the known source patterns in insertion order.
func (s *Service) Sources() []string {
	return s.chain.Patterns()
}

// Ranges returns the configured range names, sorted.
func (s *Service) Ranges() []string {
	names := make([]string, 0, len(s.opts.Ranges))
	for name := range s.opts.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func patterns(srcs []*chain.TextSource) []string {
	out := make([]string, len(srcs))
	for i, src := range srcs {
		out[i] = src.Pattern
	}
	return out
}
