// Package model holds the shared domain types for the headline pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category is a fixed topical bucket assigned to every headline.
type Category string

const (
	CategoryPoliticsConflict Category = "POLITICS_CONFLICT"
	CategoryEconomyBusiness  Category = "ECONOMY_BUSINESS"
	CategorySociety          Category = "SOCIETY"
	CategoryHealth           Category = "HEALTH"
	CategoryEducation        Category = "EDUCATION"
	CategoryEnvironment      Category = "ENVIRONMENT"
	CategoryInternational    Category = "INTERNATIONAL"
	CategoryCrimeCourts      Category = "CRIME_COURTS"
	CategoryTech             Category = "TECH"
	CategoryCulture          Category = "CULTURE"
	CategoryOther            Category = "OTHER"
)

// Headline is the stored record for one article title from one source.
type Headline struct {
	ID            string     `json:"id"`
	SourceName    string     `json:"source_name"`
	SourceURL     string     `json:"source_url"`
	ArticleURL    string     `json:"article_url"`
	OriginalTitle string     `json:"original_title"`
	NeutralTitle  string     `json:"neutral_title"`
	RewriteMode   string     `json:"rewrite_mode"`
	RewriteFlags  []string   `json:"rewrite_flags"`
	Category      Category   `json:"category"`
	DedupeKey     string     `json:"dedupe_key"`
	ClusterID     string     `json:"cluster_id"` // empty until assigned, then never changed
	PublishedAt   *time.Time `json:"published_at"`
	FetchedAt     time.Time  `json:"fetched_at"`
	IsActive      bool       `json:"is_active"`
	Language      string     `json:"language"`
}

// DisplayTitle returns the title to show and whether the original was used
// because no neutral rewrite is stored.
func (h *Headline) DisplayTitle() (string, bool) {
	neutral := strings.TrimSpace(h.NeutralTitle)
	if neutral == "" {
		return h.OriginalTitle, true
	}
	return neutral, false
}

// Source is a configured news origin. Mutated only by ingestion.
type Source struct {
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
	LastError     string     `json:"last_error"`
	IsActive      bool       `json:"is_active"`
}

// ParsedHeadline is one raw title discovered at a source, before processing.
type ParsedHeadline struct {
	ArticleURL    string
	OriginalTitle string
	PublishedAt   *time.Time
}

// ClusterCandidate is the slim projection used for fuzzy cluster matching.
type ClusterCandidate struct {
	ID        string
	DedupeKey string
	ClusterID string
}

// ClusterMate is one other-source report of the same clustered event.
type ClusterMate struct {
	ClusterID  string `json:"-"`
	SourceName string `json:"sourceName"`
	ArticleURL string `json:"articleUrl"`
}

// StableIDLength is the hex length of a headline id.
const StableIDLength = 40

// StableID derives the headline id from its (source, article) pair, so
// re-ingesting the same article always hits the same record.
func StableID(sourceURL, articleURL string) string {
	sum := sha256.Sum256([]byte(sourceURL + "|" + articleURL))
	return hex.EncodeToString(sum[:])[:StableIDLength]
}
