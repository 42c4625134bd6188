package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHeadlinesFiltersAnchors(t *testing.T) {
	srv := serve(t, `<html><body>
		<a href="/news/1">မြန်မာ နိုင်ငံ သတင်း ထုတ်ပြန်ချက်</a>
		<a href="/news/2">short</a>
		<a href="/news/3">Latest English headline without Burmese text</a>
		<a href="/news/4#comments">မှတ်ချက် ကဏ္ဍ သတင်း အပြည့်အစုံ</a>
		<a href="/news/1">မြန်မာ နိုင်ငံ သတင်း ထုတ်ပြန်ချက်</a>
	</body></html>`)

	s := New(srv.Client(), "test-agent")
	items, err := s.Headlines(context.Background(), srv.URL, 50)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, srv.URL+"/news/1", items[0].ArticleURL)
	assert.Equal(t, "မြန်မာ နိုင်ငံ သတင်း ထုတ်ပြန်ချက်", items[0].OriginalTitle)
}

func TestHeadlinesRespectsMax(t *testing.T) {
	srv := serve(t, `<html><body>
		<a href="/news/1">မြန်မာ နိုင်ငံ သတင်း တစ်</a>
		<a href="/news/2">မြန်မာ နိုင်ငံ သတင်း နှစ်</a>
		<a href="/news/3">မြန်မာ နိုင်ငံ သတင်း သုံး</a>
	</body></html>`)

	s := New(srv.Client(), "")
	items, err := s.Headlines(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFeedLinkDiscovery(t *testing.T) {
	srv := serve(t, `<html><head>
		<link rel="alternate" type="application/rss+xml" href="/feed.xml">
	</head><body></body></html>`)

	s := New(srv.Client(), "")
	feed, err := s.FeedLink(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/feed.xml", feed)
}

func TestFeedLinkAbsent(t *testing.T) {
	srv := serve(t, `<html><head></head><body></body></html>`)

	s := New(srv.Client(), "")
	feed, err := s.FeedLink(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestHeadlinesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	s := New(srv.Client(), "")
	_, err := s.Headlines(context.Background(), srv.URL, 10)
	assert.Error(t, err)
}
