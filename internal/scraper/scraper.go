// Package scraper extracts headline links from source homepages when no
// usable feed exists. It also discovers advertised feed URLs from page heads.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"mmnews/internal/model"
	"mmnews/internal/mytext"
)

const (
	minTitleChars = 10
	maxTitleChars = 140
)

type Scraper struct {
	client    *http.Client
	userAgent string
}

func New(client *http.Client, userAgent string) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{client: client, userAgent: userAgent}
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return doc, nil
}

// FeedLink looks for an advertised RSS or Atom feed in the page head and
// returns its absolute URL, or "" when none is declared.
func (s *Scraper) FeedLink(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	href := ""
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		if typ != "application/rss+xml" && typ != "application/atom+xml" {
			return true
		}
		if v, ok := sel.Attr("href"); ok && v != "" {
			href = v
			return false
		}
		return true
	})
	if href == "" {
		return "", nil
	}
	return absolutize(pageURL, href), nil
}

// Headlines walks the page anchors and keeps those that look like Burmese
// article links. Best effort: layouts vary, so filters are heuristic.
func (s *Scraper) Headlines(ctx context.Context, pageURL string, max int) ([]model.ParsedHeadline, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var items []model.ParsedHeadline

	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if max > 0 && len(items) >= max {
			return false
		}

		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.Contains(href, "#") {
			return true
		}

		title := strings.Join(strings.Fields(sel.Text()), " ")
		n := utf8.RuneCountInString(title)
		if n < minTitleChars || n > maxTitleChars {
			return true
		}
		if !mytext.ContainsMyanmarScript(title) {
			return true
		}

		abs := absolutize(pageURL, href)
		if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
			return true
		}
		if seen[abs] {
			return true
		}
		seen[abs] = true

		items = append(items, model.ParsedHeadline{
			ArticleURL:    abs,
			OriginalTitle: title,
		})
		return true
	})

	return items, nil
}

func absolutize(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
