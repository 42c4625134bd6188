// Package ingest runs the fetch-rewrite-store pipeline over the configured
// sources. Sources are visited one at a time with a politeness delay; one
// failing source never blocks the rest.
package ingest

import (
	"context"
	"time"

	"mmnews/internal/categorize"
	"mmnews/internal/dedupe"
	"mmnews/internal/logger"
	"mmnews/internal/metrics"
	"mmnews/internal/model"
	"mmnews/internal/rewrite"
	"mmnews/internal/storage"
)

type fetcher interface {
	Fetch(ctx context.Context, src model.Source, max int) ([]model.ParsedHeadline, error)
}

// Options bounds one ingest run.
type Options struct {
	Language       string
	PerSourceDelay time.Duration
	MaxPerSource   int
}

// Stats summarizes one completed run.
type Stats struct {
	Sources       int           `json:"sources"`
	SourcesFailed int           `json:"sources_failed"`
	Headlines     int           `json:"headlines"`
	Stored        int           `json:"stored"`
	Skipped       int           `json:"skipped"`
	Duration      time.Duration `json:"duration"`
}

type Runner struct {
	store   storage.Store
	fetch   fetcher
	rewrite *rewrite.Engine
	cluster *dedupe.Engine
	opts    Options
}

func NewRunner(store storage.Store, fetch fetcher, eng *rewrite.Engine, cluster *dedupe.Engine, opts Options) *Runner {
	if opts.Language == "" {
		opts.Language = "my"
	}
	return &Runner{
		store:   store,
		fetch:   fetch,
		rewrite: eng,
		cluster: cluster,
		opts:    opts,
	}
}

// SyncSources upserts the configured source list into storage so the run and
// the API see the same set.
func (r *Runner) SyncSources(ctx context.Context, sources []model.Source) error {
	for _, src := range sources {
		if err := r.store.UpsertSource(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

// Run processes every active source once and returns run statistics.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	sources, err := r.store.ListSources(ctx)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return stats, err
	}

	for i, src := range sources {
		if !src.IsActive {
			continue
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if i > 0 && r.opts.PerSourceDelay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(r.opts.PerSourceDelay):
			}
		}

		stats.Sources++
		if err := r.runSource(ctx, src, &stats); err != nil {
			stats.SourcesFailed++
			metrics.Global.IncrementSourceErrors()
			logger.Error("source ingest failed", "source", src.Name, "error", err)
			if markErr := r.store.MarkSourceFetched(ctx, src.Name, err.Error()); markErr != nil {
				logger.Error("could not record source error", "source", src.Name, "error", markErr)
			}
			continue
		}
		if err := r.store.MarkSourceFetched(ctx, src.Name, ""); err != nil {
			logger.Error("could not record source fetch", "source", src.Name, "error", err)
		}
	}

	stats.Duration = time.Since(start)
	metrics.Global.RecordIngestDuration(stats.Duration)
	metrics.Global.SetLastRun()
	logger.Info("ingest run complete",
		"sources", stats.Sources,
		"failed", stats.SourcesFailed,
		"headlines", stats.Headlines,
		"stored", stats.Stored,
		"skipped", stats.Skipped,
		"duration", stats.Duration)
	return stats, nil
}

func (r *Runner) runSource(ctx context.Context, src model.Source, stats *Stats) error {
	parsed, err := r.fetch.Fetch(ctx, src, r.opts.MaxPerSource)
	if err != nil {
		return err
	}

	for _, ph := range parsed {
		stats.Headlines++
		metrics.Global.IncrementHeadlinesProcessed()

		stored, err := r.processHeadline(ctx, src, ph)
		if err != nil {
			logger.Error("headline processing failed", "source", src.Name, "url", ph.ArticleURL, "error", err)
			continue
		}
		if stored {
			stats.Stored++
			metrics.Global.IncrementHeadlinesStored()
		} else {
			stats.Skipped++
		}
	}
	return nil
}

// processHeadline runs one title through rewrite, categorization and
// clustering. Returns false when the stored row is already current.
func (r *Runner) processHeadline(ctx context.Context, src model.Source, ph model.ParsedHeadline) (bool, error) {
	id := model.StableID(src.URL, ph.ArticleURL)

	existing, err := r.store.GetHeadline(ctx, id)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.OriginalTitle == ph.OriginalTitle {
		return false, nil
	}

	res := r.rewrite.Rewrite(ctx, ph.OriginalTitle)
	h := model.Headline{
		ID:            id,
		SourceName:    src.Name,
		SourceURL:     src.URL,
		ArticleURL:    ph.ArticleURL,
		OriginalTitle: ph.OriginalTitle,
		NeutralTitle:  res.NeutralTitle,
		RewriteMode:   res.Mode,
		RewriteFlags:  res.Flags,
		Category:      categorize.Title(res.NeutralTitle),
		DedupeKey:     dedupe.MakeKey(res.NeutralTitle),
		PublishedAt:   ph.PublishedAt,
		FetchedAt:     time.Now().UTC(),
		IsActive:      true,
		Language:      r.opts.Language,
	}

	if err := r.store.UpsertHeadline(ctx, h); err != nil {
		return false, err
	}

	// Clusters are assigned once; a retitled article keeps its cluster.
	if existing == nil || existing.ClusterID == "" {
		if _, err := r.cluster.AssignCluster(ctx, h.ID, h.DedupeKey); err != nil {
			logger.Error("cluster assignment failed", "headline", h.ID, "error", err)
		}
	}
	return true, nil
}
