package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmnews/internal/config"
	"mmnews/internal/model"
	"mmnews/internal/storage"
)

type headlinesResponse struct {
	Headlines []struct {
		ID                   string `json:"id"`
		SourceName           string `json:"sourceName"`
		ArticleURL           string `json:"articleUrl"`
		DisplayTitle         string `json:"displayTitle"`
		UsedOriginalFallback bool   `json:"usedOriginalFallback"`
		AlsoReportedBy       []struct {
			SourceName string `json:"sourceName"`
			ArticleURL string `json:"articleUrl"`
		} `json:"alsoReportedBy"`
	} `json:"headlines"`
	Count int `json:"count"`
}

func seedHeadline(t *testing.T, store storage.Store, id, source, neutral string, fetched time.Time) {
	t.Helper()
	require.NoError(t, store.UpsertHeadline(context.Background(), model.Headline{
		ID:            id,
		SourceName:    source,
		SourceURL:     "https://" + source + ".example",
		ArticleURL:    "https://" + source + ".example/" + id,
		OriginalTitle: "မူရင်း " + id,
		NeutralTitle:  neutral,
		RewriteMode:   "rules",
		Category:      model.CategoryOther,
		DedupeKey:     neutral,
		FetchedAt:     fetched,
		IsActive:      true,
		Language:      "my",
	}))
}

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	store := storage.NewMemoryStore("")
	return New(cfg, store, nil, nil), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHeadlinesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	seedHeadline(t, store, "h1", "srca", "သတင်း တစ်", now)
	seedHeadline(t, store, "h2", "srcb", "သတင်း နှစ်", now.Add(-time.Hour))

	w := get(t, s, "/api/headlines")
	require.Equal(t, http.StatusOK, w.Code)

	var body headlinesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Headlines, 2)
	assert.Equal(t, "သတင်း တစ်", body.Headlines[0].DisplayTitle)
	assert.False(t, body.Headlines[0].UsedOriginalFallback)
}

func TestHeadlinesLimitClamped(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	seedHeadline(t, store, "h1", "srca", "သတင်း တစ်", now)
	seedHeadline(t, store, "h2", "srcb", "သတင်း နှစ်", now.Add(-time.Minute))

	w := get(t, s, "/api/headlines?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body headlinesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	// An absurd limit is clamped, not an error.
	w = get(t, s, "/api/headlines?limit=99999")
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, s, "/api/headlines?limit=-3")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestHeadlinesNewestSort(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	seedHeadline(t, store, "older", "srca", "သတင်း တစ်", now.Add(-2*time.Hour))
	seedHeadline(t, store, "newest", "srcb", "သတင်း နှစ်", now)

	w := get(t, s, "/api/headlines?sort=newest")
	require.Equal(t, http.StatusOK, w.Code)

	var body headlinesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Headlines, 2)
	assert.Equal(t, "newest", body.Headlines[0].ID)
}

func TestHeadlinesOriginalFallback(t *testing.T) {
	s, store := newTestServer(t)
	seedHeadline(t, store, "h1", "srca", "", time.Now())

	w := get(t, s, "/api/headlines")
	require.Equal(t, http.StatusOK, w.Code)

	var body headlinesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Headlines, 1)
	assert.Equal(t, "မူရင်း h1", body.Headlines[0].DisplayTitle)
	assert.True(t, body.Headlines[0].UsedOriginalFallback)
}

func TestHeadlinesAlsoReportedByExcludesSelf(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()
	now := time.Now()
	seedHeadline(t, store, "h1", "srca", "သတင်း တစ်", now)
	seedHeadline(t, store, "h2", "srcb", "သတင်း တစ်", now.Add(-time.Minute))
	require.NoError(t, store.SetClusterID(ctx, "h1", "cluster-1"))
	require.NoError(t, store.SetClusterID(ctx, "h2", "cluster-1"))

	w := get(t, s, "/api/headlines")
	require.Equal(t, http.StatusOK, w.Code)

	var body headlinesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Headlines, 2)
	for _, h := range body.Headlines {
		require.Len(t, h.AlsoReportedBy, 1)
		assert.NotEqual(t, h.ArticleURL, h.AlsoReportedBy[0].ArticleURL)
		assert.NotEqual(t, h.SourceName, h.AlsoReportedBy[0].SourceName)
	}
}

func TestHeadlinesAllFilterMeansNoFilter(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	seedHeadline(t, store, "h1", "srca", "သတင်း တစ်", now)
	seedHeadline(t, store, "h2", "srcb", "သတင်း နှစ်", now.Add(-time.Minute))
	require.NoError(t, store.UpsertHeadline(context.Background(), model.Headline{
		ID:            "h3",
		SourceName:    "srcc",
		SourceURL:     "https://srcc.example",
		ArticleURL:    "https://srcc.example/h3",
		OriginalTitle: "မူရင်း h3",
		NeutralTitle:  "သတင်း သုံး",
		RewriteMode:   "rules",
		Category:      model.CategoryPoliticsConflict,
		DedupeKey:     "သတင်း သုံး",
		FetchedAt:     now.Add(-2 * time.Minute),
		IsActive:      true,
		Language:      "my",
	}))

	var body headlinesResponse
	for _, path := range []string{
		"/api/headlines?category=all",
		"/api/headlines?category=ALL",
		"/api/headlines?source=all&category=All",
	} {
		w := get(t, s, path)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 3, body.Count, "path %s", path)
	}

	// A concrete category still narrows.
	w := get(t, s, "/api/headlines?category=POLITICS_CONFLICT")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "h3", body.Headlines[0].ID)
}

func TestHeadlinesSeedParsedAsInteger(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	for i := 0; i < 20; i++ {
		seedHeadline(t, store, string(rune('a'+i)), "srca", "သတင်း အမှတ်", now.Add(-time.Duration(i)*time.Minute))
	}

	// Equal integers order identically regardless of textual form.
	first := get(t, s, "/api/headlines?shuffle=1&seed=42")
	second := get(t, s, "/api/headlines?shuffle=1&seed=042")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestHeadlinesShuffleDeterministicPerSeed(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	for i := 0; i < 20; i++ {
		seedHeadline(t, store, string(rune('a'+i)), "srca", "သတင်း အမှတ်", now.Add(-time.Duration(i)*time.Minute))
	}

	first := get(t, s, "/api/headlines?shuffle=1&seed=42")
	second := get(t, s, "/api/headlines?shuffle=1&seed=42")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestTickerEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	for i := 0; i < 30; i++ {
		src := "srca"
		if i%2 == 0 {
			src = "srcb"
		}
		seedHeadline(t, store, string(rune('a'+i)), src, "သတင်း အမှတ်", now.Add(-time.Duration(i)*time.Minute))
	}

	w := get(t, s, "/api/ticker")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []struct {
			SourceName   string `json:"sourceName"`
			DisplayTitle string `json:"displayTitle"`
		} `json:"items"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.LessOrEqual(t, body.Count, 20)

	perSource := map[string]int{}
	for _, item := range body.Items {
		perSource[item.SourceName]++
	}
	for src, n := range perSource {
		assert.LessOrEqual(t, n, 4, "source %s over cap", src)
	}
}

func TestSourcesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	require.NoError(t, store.UpsertSource(context.Background(), model.Source{
		Name: "BBC Burmese", URL: "https://www.bbc.com/burmese", IsActive: true,
	}))

	w := get(t, s, "/api/sources")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}

func TestRewriteSampleEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	now := time.Now()
	seedHeadline(t, store, "h1", "srca", "သတင်း တစ်", now)
	seedHeadline(t, store, "h2", "srcb", "", now.Add(-time.Minute))

	w := get(t, s, "/api/admin/rewrite-sample")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summary struct {
			Limit         int `json:"limit"`
			ChangedCount  int `json:"changedCount"`
			FallbackCount int `json:"fallbackCount"`
		} `json:"summary"`
		Items []struct {
			ID                   string `json:"id"`
			DisplayTitle         string `json:"displayTitle"`
			UsedOriginalFallback bool   `json:"usedOriginalFallback"`
			Changed              bool   `json:"changed"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 25, body.Summary.Limit)
	assert.Equal(t, 1, body.Summary.ChangedCount)
	assert.Equal(t, 1, body.Summary.FallbackCount)
	require.Len(t, body.Items, 2)
	for _, item := range body.Items {
		if item.ID == "h2" {
			assert.True(t, item.UsedOriginalFallback)
			assert.False(t, item.Changed)
			assert.Equal(t, "မူရင်း h2", item.DisplayTitle)
		} else {
			assert.False(t, item.UsedOriginalFallback)
			assert.True(t, item.Changed)
		}
	}

	w = get(t, s, "/api/admin/rewrite-sample?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Summary.Limit)
	assert.Len(t, body.Items, 1)
}

func TestRefreshWithoutRunner(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/health")
	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "headlines_processed")
}
