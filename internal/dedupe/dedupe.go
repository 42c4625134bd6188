// Package dedupe groups headlines that report the same story across sources.
// Matching is fuzzy: normalized titles are compared with a similarity ratio
// and joined into a cluster above a threshold.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"mmnews/internal/metrics"
	"mmnews/internal/model"
	"mmnews/internal/mytext"
)

// MakeKey derives the comparison key for a headline title: normalized,
// lowercased. Keys are stored so clustering never re-normalizes old rows.
func MakeKey(title string) string {
	return strings.ToLower(mytext.Normalize(title))
}

// Config bounds the clustering pass.
type Config struct {
	Threshold       int           // minimum similarity ratio (0-100) to join
	Lookback        time.Duration // how far back to pull candidates
	MaxCandidates   int           // cap on candidates compared per headline
	ClusterIDLength int           // hex chars of the founding headline id
}

func DefaultConfig() Config {
	return Config{
		Threshold:       92,
		Lookback:        72 * time.Hour,
		MaxCandidates:   4000,
		ClusterIDLength: 16,
	}
}

// CandidateStore is the slice of storage the engine needs.
type CandidateStore interface {
	// RecentClustered returns headlines fetched since the given time that
	// already carry a cluster id, newest first, up to limit.
	RecentClustered(ctx context.Context, since time.Time, limit int) ([]model.ClusterCandidate, error)
	SetClusterID(ctx context.Context, headlineID, clusterID string) error
}

type Engine struct {
	store CandidateStore
	cfg   Config
}

func NewEngine(store CandidateStore, cfg Config) *Engine {
	if cfg.Threshold <= 0 {
		cfg = DefaultConfig()
	}
	return &Engine{store: store, cfg: cfg}
}

// AssignCluster finds the best-matching existing cluster for the headline and
// joins it, or founds a new cluster named after the headline's own id. The
// headline row must already exist; only its cluster id is written.
//
// Two ingest runs racing on the same fresh story can each found a cluster
// before seeing the other. Accepted: the windows are short and the read path
// treats singleton clusters as unclustered.
func (e *Engine) AssignCluster(ctx context.Context, headlineID, dedupeKey string) (string, error) {
	since := time.Now().Add(-e.cfg.Lookback)
	candidates, err := e.store.RecentClustered(ctx, since, e.cfg.MaxCandidates)
	if err != nil {
		return "", fmt.Errorf("loading cluster candidates: %w", err)
	}

	bestRatio := 0
	bestCluster := ""
	for _, c := range candidates {
		if c.ID == headlineID || c.DedupeKey == "" {
			continue
		}
		r := fuzzy.Ratio(dedupeKey, c.DedupeKey)
		if r >= e.cfg.Threshold && r > bestRatio {
			bestRatio = r
			bestCluster = c.ClusterID
		}
	}

	clusterID := bestCluster
	if clusterID == "" {
		n := e.cfg.ClusterIDLength
		if n > len(headlineID) {
			n = len(headlineID)
		}
		clusterID = headlineID[:n]
	}

	if err := e.store.SetClusterID(ctx, headlineID, clusterID); err != nil {
		return "", fmt.Errorf("assigning cluster: %w", err)
	}

	if bestCluster != "" {
		metrics.Global.IncrementClustersJoined()
	} else {
		metrics.Global.IncrementClustersCreated()
	}
	return clusterID, nil
}
