package storage

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"mmnews/internal/logger"
	"mmnews/internal/model"
)

// MemoryStore is the Store used when no DATABASE_URL is configured, and by
// tests. With a snapshot path it persists its state as JSON on every write,
// best effort, so a dev instance survives restarts.
type MemoryStore struct {
	mu        sync.RWMutex
	headlines map[string]model.Headline
	sources   map[string]model.Source
	path      string
}

type memorySnapshot struct {
	Headlines []model.Headline `json:"headlines"`
	Sources   []model.Source   `json:"sources"`
}

// NewMemoryStore creates the store. An empty path disables snapshotting.
func NewMemoryStore(path string) *MemoryStore {
	s := &MemoryStore{
		headlines: make(map[string]model.Headline),
		sources:   make(map[string]model.Source),
		path:      path,
	}
	s.load()
	return s
}

func (s *MemoryStore) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read store snapshot", "path", s.path, "error", err)
		}
		return
	}

	var snap memorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("could not parse store snapshot, starting empty", "path", s.path, "error", err)
		return
	}
	for _, h := range snap.Headlines {
		s.headlines[h.ID] = h
	}
	for _, src := range snap.Sources {
		s.sources[src.Name] = src
	}
	logger.Info("store snapshot loaded", "headlines", len(s.headlines), "sources", len(s.sources))
}

// save must be called with the write lock held.
func (s *MemoryStore) save() {
	if s.path == "" {
		return
	}

	snap := memorySnapshot{
		Headlines: make([]model.Headline, 0, len(s.headlines)),
		Sources:   make([]model.Source, 0, len(s.sources)),
	}
	for _, h := range s.headlines {
		snap.Headlines = append(snap.Headlines, h)
	}
	for _, src := range s.sources {
		snap.Sources = append(snap.Sources, src)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logger.Warn("could not encode store snapshot", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		logger.Warn("could not write store snapshot", "path", s.path, "error", err)
	}
}

func (s *MemoryStore) GetHeadline(_ context.Context, id string) (*model.Headline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.headlines[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *MemoryStore) UpsertHeadline(_ context.Context, h model.Headline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.headlines[h.ID]; ok && h.ClusterID == "" {
		h.ClusterID = existing.ClusterID
	}
	s.headlines[h.ID] = h
	s.save()
	return nil
}

func (s *MemoryStore) ActiveHeadlines(_ context.Context, q Query) ([]model.Headline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []model.Headline
	for _, h := range s.headlines {
		if !h.IsActive {
			continue
		}
		if q.Language != "" && h.Language != q.Language {
			continue
		}
		if q.Category != "" && string(h.Category) != q.Category {
			continue
		}
		if q.SourceName != "" && h.SourceName != q.SourceName {
			continue
		}
		items = append(items, h)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].FetchedAt.After(items[j].FetchedAt)
	})
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (s *MemoryStore) ClusterMates(_ context.Context, clusterIDs []string) ([]model.ClusterMate, error) {
	if len(clusterIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(clusterIDs))
	for _, id := range clusterIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var mates []model.ClusterMate
	for _, h := range s.headlines {
		if !h.IsActive || h.ClusterID == "" || !wanted[h.ClusterID] {
			continue
		}
		mates = append(mates, model.ClusterMate{
			ClusterID:  h.ClusterID,
			SourceName: h.SourceName,
			ArticleURL: h.ArticleURL,
		})
	}
	return mates, nil
}

func (s *MemoryStore) RecentClustered(_ context.Context, since time.Time, limit int) ([]model.ClusterCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []model.Headline
	for _, h := range s.headlines {
		if h.ClusterID == "" || !h.FetchedAt.After(since) {
			continue
		}
		rows = append(rows, h)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].FetchedAt.After(rows[j].FetchedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	items := make([]model.ClusterCandidate, len(rows))
	for i, h := range rows {
		items[i] = model.ClusterCandidate{ID: h.ID, DedupeKey: h.DedupeKey, ClusterID: h.ClusterID}
	}
	return items, nil
}

func (s *MemoryStore) SetClusterID(_ context.Context, headlineID, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.headlines[headlineID]
	if !ok {
		return nil
	}
	h.ClusterID = clusterID
	s.headlines[headlineID] = h
	s.save()
	return nil
}

func (s *MemoryStore) UpsertSource(_ context.Context, src model.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sources[src.Name]; ok {
		src.LastFetchedAt = existing.LastFetchedAt
		src.LastError = existing.LastError
	}
	s.sources[src.Name] = src
	s.save()
	return nil
}

func (s *MemoryStore) MarkSourceFetched(_ context.Context, name, fetchErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[name]
	if !ok {
		return nil
	}
	now := time.Now()
	src.LastFetchedAt = &now
	src.LastError = fetchErr
	s.sources[name] = src
	s.save()
	return nil
}

func (s *MemoryStore) ListSources(_ context.Context) ([]model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Source, 0, len(s.sources))
	for _, src := range s.sources {
		items = append(items, src)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *MemoryStore) Close() error { return nil }
