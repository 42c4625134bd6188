package rewrite

import (
	"context"
	"sort"
	"time"

	"mmnews/internal/cache"
	"mmnews/internal/logger"
	"mmnews/internal/metrics"
	"mmnews/internal/ratelimit"
)

// Generator is an optional external collaborator that proposes a neutral
// title. It may be entirely absent; any failure falls back to the rules path.
type Generator interface {
	NeutralTitle(ctx context.Context, originalTitle string) (string, error)
	Name() string
}

// Engine produces neutral titles. It never returns an error: every code path
// resolves to a usable result.
type Engine struct {
	gen      Generator
	limiter  *ratelimit.Limiter
	memo     *cache.Cache
	memoTTL  time.Duration
	maxRunes int
}

// Option configures an Engine.
type Option func(*Engine)

// WithGenerator enables the generated-rewrite path.
func WithGenerator(g Generator) Option {
	return func(e *Engine) { e.gen = g }
}

// WithLimiter caps how many generation calls the engine may spend.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithMemo caches results per original title so repeated ingest cycles do not
// re-spend generation budget.
func WithMemo(c *cache.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.memo = c
		e.memoTTL = ttl
	}
}

// WithTitleMaxRunes overrides the neutral title length cap.
func WithTitleMaxRunes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRunes = n
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxRunes: DefaultTitleMaxRunes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rewrite neutralizes one title. The generated path runs only when a
// generator is configured and budget remains; its output must pass the
// hallucination guard or the rules result is used instead.
func (e *Engine) Rewrite(ctx context.Context, originalTitle string) Result {
	if e.memo != nil {
		if v, ok := e.memo.Get(cache.GenerateKey(originalTitle)); ok {
			if res, ok := v.(Result); ok {
				return res
			}
		}
	}

	res := e.rewrite(ctx, originalTitle)

	if e.memo != nil {
		e.memo.Set(cache.GenerateKey(originalTitle), res, e.memoTTL)
	}
	return res
}

func (e *Engine) rewrite(ctx context.Context, originalTitle string) Result {
	if e.gen == nil || e.limiter != nil && !e.limiter.CanUse() {
		metrics.Global.IncrementRulesRewrites()
		return Rules(originalTitle, e.maxRunes)
	}

	if e.limiter != nil {
		if err := e.limiter.Use(); err != nil {
			metrics.Global.IncrementRulesRewrites()
			return Rules(originalTitle, e.maxRunes)
		}
	}

	raw, err := e.gen.NeutralTitle(ctx, originalTitle)
	if err != nil {
		logger.Warn("generation rewrite failed, using rules", "generator", e.gen.Name(), "error", err)
		metrics.Global.IncrementRulesRewrites()
		return Rules(originalTitle, e.maxRunes)
	}

	candidate := SanitizeGenerated(raw)
	if candidate == "" {
		ruled := Rules(originalTitle, e.maxRunes)
		metrics.Global.IncrementRulesRewrites()
		return withFlags(ruled, FlagEmptyFallback)
	}

	if !ValidateNoNewEntities(originalTitle, candidate) {
		logger.Debug("generated rewrite rejected by validator", "generator", e.gen.Name())
		metrics.Global.IncrementHallucinationRejections()
		metrics.Global.IncrementRulesRewrites()
		ruled := Rules(originalTitle, e.maxRunes)
		return withFlags(ruled, FlagPossibleHallucination)
	}

	metrics.Global.IncrementGeneratedRewrites()
	return Result{NeutralTitle: candidate, Mode: ModeGenerated, Flags: nil}
}

func withFlags(res Result, extra ...string) Result {
	fs := newFlagSet()
	for _, f := range res.Flags {
		fs.add(f)
	}
	for _, f := range extra {
		fs.add(f)
	}
	res.Flags = fs.list()
	return res
}

// flagSet collapses duplicate flags and yields them in a stable order.
type flagSet map[string]struct{}

func newFlagSet() flagSet { return flagSet{} }

func (s flagSet) add(f string) flagSet {
	s[f] = struct{}{}
	return s
}

func (s flagSet) list() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
