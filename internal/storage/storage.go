// Package storage persists headlines and source state. Two implementations
// exist: PostgreSQL for deployments and an in-memory store with an optional
// JSON snapshot for development and tests.
package storage

import (
	"context"
	"time"

	"mmnews/internal/model"
)

// Query narrows an active-headline listing. Zero-value fields are ignored.
type Query struct {
	Language   string
	Category   string
	SourceName string
	Limit      int
}

// Store is everything the pipeline and the API need from persistence.
type Store interface {
	// GetHeadline returns the stored row or nil when the id is unknown.
	GetHeadline(ctx context.Context, id string) (*model.Headline, error)

	// UpsertHeadline inserts or replaces the row keyed by its id.
	// An existing cluster id is preserved unless the new row carries one.
	UpsertHeadline(ctx context.Context, h model.Headline) error

	// ActiveHeadlines lists active rows newest-fetched first.
	ActiveHeadlines(ctx context.Context, q Query) ([]model.Headline, error)

	// ClusterMates lists all rows belonging to any of the given clusters.
	ClusterMates(ctx context.Context, clusterIDs []string) ([]model.ClusterMate, error)

	// RecentClustered returns candidates for fuzzy matching: rows fetched
	// since the given time that already carry a cluster id, newest first.
	RecentClustered(ctx context.Context, since time.Time, limit int) ([]model.ClusterCandidate, error)

	SetClusterID(ctx context.Context, headlineID, clusterID string) error

	UpsertSource(ctx context.Context, s model.Source) error
	MarkSourceFetched(ctx context.Context, name, fetchErr string) error
	ListSources(ctx context.Context) ([]model.Source, error)

	Close() error
}
