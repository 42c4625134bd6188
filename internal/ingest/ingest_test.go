package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmnews/internal/dedupe"
	"mmnews/internal/model"
	"mmnews/internal/rewrite"
	"mmnews/internal/storage"
)

type stubFetcher struct {
	headlines map[string][]model.ParsedHeadline
	errs      map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, src model.Source, _ int) ([]model.ParsedHeadline, error) {
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.headlines[src.Name], nil
}

func newTestRunner(t *testing.T, fetch *stubFetcher, sources ...model.Source) (*Runner, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore("")
	runner := NewRunner(store, fetch, rewrite.NewEngine(), dedupe.NewEngine(store, dedupe.DefaultConfig()), Options{
		Language:     "my",
		MaxPerSource: 50,
	})
	require.NoError(t, runner.SyncSources(context.Background(), sources))
	return runner, store
}

func TestRunStoresHeadlines(t *testing.T) {
	fetch := &stubFetcher{headlines: map[string][]model.ParsedHeadline{
		"Source A": {
			{ArticleURL: "https://a.example/1", OriginalTitle: "မြန်မာ သတင်း တစ်ပုဒ်"},
			{ArticleURL: "https://a.example/2", OriginalTitle: "ဈေးနှုန်း အခြေအနေ သတင်း"},
		},
	}}
	runner, store := newTestRunner(t, fetch, model.Source{Name: "Source A", URL: "https://a.example", IsActive: true})

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 0, stats.SourcesFailed)
	assert.Equal(t, 2, stats.Headlines)
	assert.Equal(t, 2, stats.Stored)

	stored, err := store.ActiveHeadlines(context.Background(), storage.Query{Language: "my"})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, h := range stored {
		assert.NotEmpty(t, h.NeutralTitle)
		assert.NotEmpty(t, h.DedupeKey)
		assert.NotEmpty(t, h.ClusterID)
		assert.Equal(t, "rules", h.RewriteMode)
		assert.Equal(t, "my", h.Language)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fetch := &stubFetcher{headlines: map[string][]model.ParsedHeadline{
		"Source A": {{ArticleURL: "https://a.example/1", OriginalTitle: "မြန်မာ သတင်း တစ်ပုဒ်"}},
	}}
	runner, _ := newTestRunner(t, fetch, model.Source{Name: "Source A", URL: "https://a.example", IsActive: true})

	first, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Stored)

	second, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 1, second.Skipped)
}

func TestRunRetitledArticleIsRestored(t *testing.T) {
	fetch := &stubFetcher{headlines: map[string][]model.ParsedHeadline{
		"Source A": {{ArticleURL: "https://a.example/1", OriginalTitle: "မြန်မာ သတင်း တစ်ပုဒ်"}},
	}}
	runner, store := newTestRunner(t, fetch, model.Source{Name: "Source A", URL: "https://a.example", IsActive: true})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	fetch.headlines["Source A"][0].OriginalTitle = "မြန်မာ သတင်း ပြင်ဆင်ချက်"
	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)

	id := model.StableID("https://a.example", "https://a.example/1")
	got, err := store.GetHeadline(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "မြန်မာ သတင်း ပြင်ဆင်ချက်", got.OriginalTitle)
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	fetch := &stubFetcher{
		headlines: map[string][]model.ParsedHeadline{
			"Good": {{ArticleURL: "https://good.example/1", OriginalTitle: "မြန်မာ သတင်း တစ်ပုဒ်"}},
		},
		errs: map[string]error{"Bad": errors.New("connection refused")},
	}
	runner, store := newTestRunner(t, fetch,
		model.Source{Name: "Bad", URL: "https://bad.example", IsActive: true},
		model.Source{Name: "Good", URL: "https://good.example", IsActive: true},
	)

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sources)
	assert.Equal(t, 1, stats.SourcesFailed)
	assert.Equal(t, 1, stats.Stored)

	sources, err := store.ListSources(context.Background())
	require.NoError(t, err)
	for _, src := range sources {
		switch src.Name {
		case "Bad":
			assert.Equal(t, "connection refused", src.LastError)
		case "Good":
			assert.Empty(t, src.LastError)
		}
		assert.NotNil(t, src.LastFetchedAt)
	}
}

func TestRunClustersSameStoryAcrossSources(t *testing.T) {
	title := "မြန်မာ နိုင်ငံ သတင်း ထုတ်ပြန်"
	fetch := &stubFetcher{headlines: map[string][]model.ParsedHeadline{
		"Source A": {{ArticleURL: "https://a.example/1", OriginalTitle: title}},
		"Source B": {{ArticleURL: "https://b.example/1", OriginalTitle: title}},
	}}
	runner, store := newTestRunner(t, fetch,
		model.Source{Name: "Source A", URL: "https://a.example", IsActive: true},
		model.Source{Name: "Source B", URL: "https://b.example", IsActive: true},
	)

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	idA := model.StableID("https://a.example", "https://a.example/1")
	idB := model.StableID("https://b.example", "https://b.example/1")

	a, err := store.GetHeadline(context.Background(), idA)
	require.NoError(t, err)
	b, err := store.GetHeadline(context.Background(), idB)
	require.NoError(t, err)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEmpty(t, a.ClusterID)
	assert.Equal(t, a.ClusterID, b.ClusterID)
}

func TestRunSkipsInactiveSources(t *testing.T) {
	fetch := &stubFetcher{headlines: map[string][]model.ParsedHeadline{
		"Off": {{ArticleURL: "https://off.example/1", OriginalTitle: "မြန်မာ သတင်း"}},
	}}
	runner, _ := newTestRunner(t, fetch, model.Source{Name: "Off", URL: "https://off.example", IsActive: false})

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sources)
	assert.Equal(t, 0, stats.Stored)
}
