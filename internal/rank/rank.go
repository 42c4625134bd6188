// Package rank orders a candidate pool by freshness while bounding how often
// one source or category may repeat.
package rank

import (
	"math"
	"sort"
	"time"

	"mmnews/internal/model"
)

// Mode selects the ordering strategy.
type Mode string

const (
	ModeNewest   Mode = "newest"
	ModeBalanced Mode = "balanced"
)

// ParseMode maps request input to a Mode, defaulting to balanced.
func ParseMode(s string) Mode {
	if s == string(ModeNewest) {
		return ModeNewest
	}
	return ModeBalanced
}

// Config carries every tunable of the selector. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	HalfLifeMinutes float64 // freshness decay half-life
	BroadenBonus    float64 // flat score bonus in broaden mode

	Lookahead int // bounded greedy window over the remaining pool

	SourcePrev1Penalty   float64 // previous pick shares the source
	SourcePrev2Penalty   float64 // pick two back shares the source
	CategoryPrev1Penalty float64
	CategoryPrev2Penalty float64

	BroadenSourceWeight   float64 // per cumulative pick of the same source
	BroadenCategoryWeight float64 // per cumulative pick of the same category

	HardPenalty float64 // forbids a third consecutive same source/category
}

func DefaultConfig() Config {
	return Config{
		HalfLifeMinutes:       360,
		BroadenBonus:          0.05,
		Lookahead:             120,
		SourcePrev1Penalty:    1.5,
		SourcePrev2Penalty:    2.5,
		CategoryPrev1Penalty:  1.0,
		CategoryPrev2Penalty:  2.0,
		BroadenSourceWeight:   0.08,
		BroadenCategoryWeight: 0.06,
		HardPenalty:           999,
	}
}

// Baseline applies the deterministic pre-sort: publishedAt descending with
// nulls last, then fetchedAt descending. It makes tie-breaking independent of
// storage retrieval order and returns a new slice.
func Baseline(items []model.Headline) []model.Headline {
	out := make([]model.Headline, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.PublishedAt != nil && b.PublishedAt == nil:
			return true
		case a.PublishedAt == nil && b.PublishedAt != nil:
			return false
		case a.PublishedAt != nil && b.PublishedAt != nil:
			if !a.PublishedAt.Equal(*b.PublishedAt) {
				return a.PublishedAt.After(*b.PublishedAt)
			}
		}
		return a.FetchedAt.After(b.FetchedAt)
	})
	return out
}

func timeScore(h model.Headline, now time.Time, halfLifeMinutes float64) float64 {
	t := h.FetchedAt
	if h.PublishedAt != nil {
		t = *h.PublishedAt
	}
	ageMin := now.Sub(t).Minutes()
	return math.Exp(-ageMin / halfLifeMinutes)
}

type scored struct {
	h     model.Headline
	score float64
}

// Headlines ranks the pool. It is pure and safe for concurrent callers: all
// selection state lives in local accumulators.
func Headlines(pool []model.Headline, mode Mode, broaden bool, cfg Config) []model.Headline {
	now := time.Now()

	base := Baseline(pool)
	pending := make([]scored, len(base))
	for i, h := range base {
		s := timeScore(h, now, cfg.HalfLifeMinutes)
		if broaden {
			s += cfg.BroadenBonus
		}
		pending[i] = scored{h: h, score: s}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].score > pending[j].score
	})

	if mode == ModeNewest {
		out := make([]model.Headline, len(pending))
		for i, s := range pending {
			out[i] = s.h
		}
		return out
	}

	// Balanced: greedy pick with penalties for repeating source/category.
	// Intentionally approximate; the bounded lookahead also shapes
	// tie-breaking and must stay as-is.
	result := make([]model.Headline, 0, len(pending))
	sourceCount := map[string]int{}
	categoryCount := map[model.Category]int{}

	for len(pending) > 0 {
		var prev1, prev2 *model.Headline
		if n := len(result); n >= 1 {
			prev1 = &result[n-1]
		}
		if n := len(result); n >= 2 {
			prev2 = &result[n-2]
		}

		bestIdx := 0
		bestValue := math.Inf(-1)

		window := min(len(pending), cfg.Lookahead)
		for i := 0; i < window; i++ {
			cand := pending[i].h
			value := pending[i].score - softPenalty(cand, prev1, prev2, sourceCount, categoryCount, broaden, cfg)

			badSource := prev1 != nil && prev2 != nil &&
				prev1.SourceName == prev2.SourceName && cand.SourceName == prev1.SourceName
			badCategory := prev1 != nil && prev2 != nil &&
				prev1.Category == prev2.Category && cand.Category == prev1.Category
			if badSource || badCategory {
				value -= cfg.HardPenalty
			}

			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}

		picked := pending[bestIdx].h
		pending = append(pending[:bestIdx], pending[bestIdx+1:]...)
		result = append(result, picked)
		sourceCount[picked.SourceName]++
		categoryCount[picked.Category]++
	}

	return result
}

func softPenalty(h model.Headline, prev1, prev2 *model.Headline, sourceCount map[string]int, categoryCount map[model.Category]int, broaden bool, cfg Config) float64 {
	p := 0.0

	if prev1 != nil && prev1.SourceName == h.SourceName {
		p += cfg.SourcePrev1Penalty
	}
	if prev2 != nil && prev2.SourceName == h.SourceName {
		p += cfg.SourcePrev2Penalty
	}

	if prev1 != nil && prev1.Category == h.Category {
		p += cfg.CategoryPrev1Penalty
	}
	if prev2 != nil && prev2.Category == h.Category {
		p += cfg.CategoryPrev2Penalty
	}

	// Broaden also discourages overall concentration, not just local runs.
	if broaden {
		p += float64(sourceCount[h.SourceName]) * cfg.BroadenSourceWeight
		p += float64(categoryCount[h.Category]) * cfg.BroadenCategoryWeight
	}
	return p
}
