package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	HeadlinesProcessed      int64
	HeadlinesStored         int64
	RulesRewrites           int64
	GeneratedRewrites       int64
	HallucinationRejections int64
	ClustersCreated         int64
	ClustersJoined          int64
	SourceErrors            int64

	// Timings
	LastIngestDuration    time.Duration
	TotalIngestDuration   time.Duration
	AverageIngestDuration time.Duration
	IngestCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementHeadlinesProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeadlinesProcessed++
}

func (m *Metrics) IncrementHeadlinesStored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HeadlinesStored++
}

func (m *Metrics) IncrementRulesRewrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RulesRewrites++
}

func (m *Metrics) IncrementGeneratedRewrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GeneratedRewrites++
}

func (m *Metrics) IncrementHallucinationRejections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HallucinationRejections++
}

func (m *Metrics) IncrementClustersCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClustersCreated++
}

func (m *Metrics) IncrementClustersJoined() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClustersJoined++
}

func (m *Metrics) IncrementSourceErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceErrors++
}

func (m *Metrics) RecordIngestDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastIngestDuration = duration
	m.TotalIngestDuration += duration
	m.IngestCount++

	if m.IngestCount > 0 {
		m.AverageIngestDuration = m.TotalIngestDuration / time.Duration(m.IngestCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"headlines_processed":        m.HeadlinesProcessed,
		"headlines_stored":           m.HeadlinesStored,
		"rules_rewrites":             m.RulesRewrites,
		"generated_rewrites":         m.GeneratedRewrites,
		"hallucination_rejections":   m.HallucinationRejections,
		"clusters_created":           m.ClustersCreated,
		"clusters_joined":            m.ClustersJoined,
		"source_errors":              m.SourceErrors,
		"last_ingest_duration_ms":    m.LastIngestDuration.Milliseconds(),
		"average_ingest_duration_ms": m.AverageIngestDuration.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
