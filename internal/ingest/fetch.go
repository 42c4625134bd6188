package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"mmnews/internal/logger"
	"mmnews/internal/model"
	"mmnews/internal/scraper"
)

const defaultUserAgent = "mmnews/1.0 (+headline aggregator)"

// feedPaths are probed under the source URL before falling back to feed
// discovery and homepage scraping.
var feedPaths = []string{"feed", "rss", "rss.xml", "atom.xml"}

// Fetcher resolves a source into parsed headlines. Feeds are preferred; the
// scraper is the fallback for sources without one. Failed fetches are not
// retried, the next scheduled run covers them.
type Fetcher struct {
	parser  *gofeed.Parser
	scraper *scraper.Scraper
}

func NewFetcher(timeout time.Duration) *Fetcher {
	client := &http.Client{Timeout: timeout}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = defaultUserAgent

	return &Fetcher{
		parser:  parser,
		scraper: scraper.New(client, defaultUserAgent),
	}
}

// Fetch returns up to max headlines for the source.
func (f *Fetcher) Fetch(ctx context.Context, src model.Source, max int) ([]model.ParsedHeadline, error) {
	base := strings.TrimRight(src.URL, "/")

	for _, p := range feedPaths {
		feedURL := base + "/" + p
		items, err := f.parseFeed(ctx, feedURL, max)
		if err == nil && len(items) > 0 {
			logger.Debug("feed found by probing", "source", src.Name, "url", feedURL)
			return items, nil
		}
	}

	if feedURL, err := f.scraper.FeedLink(ctx, src.URL); err == nil && feedURL != "" {
		items, err := f.parseFeed(ctx, feedURL, max)
		if err == nil && len(items) > 0 {
			logger.Debug("feed found by discovery", "source", src.Name, "url", feedURL)
			return items, nil
		}
	}

	items, err := f.scraper.Headlines(ctx, src.URL, max)
	if err != nil {
		return nil, fmt.Errorf("no feed and scrape failed: %w", err)
	}
	logger.Debug("headlines scraped from homepage", "source", src.Name, "count", len(items))
	return items, nil
}

func (f *Fetcher) parseFeed(ctx context.Context, feedURL string, max int) ([]model.ParsedHeadline, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []model.ParsedHeadline
	for _, item := range feed.Items {
		if max > 0 && len(items) >= max {
			break
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			continue
		}

		var published *time.Time
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			published = &t
		}
		items = append(items, model.ParsedHeadline{
			ArticleURL:    link,
			OriginalTitle: title,
			PublishedAt:   published,
		})
	}
	return items, nil
}
