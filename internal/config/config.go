// Package config loads all runtime settings from the environment with
// sensible defaults. Every tuning knob of the pipeline lives here so
// deployments can adjust behavior without a rebuild.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"mmnews/internal/dedupe"
	"mmnews/internal/rank"
)

type Config struct {
	// Storage
	DatabaseURL string // empty selects the in-memory store

	// HTTP API
	ListenAddr       string
	DefaultLimit     int
	MaxLimit         int
	DefaultWindow    int
	MinWindow        int
	MaxWindow        int
	PoolLimit        int // active headlines loaded per request
	TickerPoolLimit  int
	TickerPerSource  int
	TickerPerCat     int
	TickerItems      int

	// Ingestion
	SourcesConfigPath string
	IngestCron        string
	PerSourceDelay    time.Duration
	MaxPerSource      int
	FetchTimeout      time.Duration
	Language          string

	// Rewrite
	RewriteProvider       string // "" | "gemini" | "openai"
	GeminiAPIKey          string
	OpenAIAPIKey          string
	MaxGenerationRequests int // per day, 0 = unlimited
	RewriteCacheTTL       time.Duration
	TitleMaxRunes         int

	// Clustering
	SimilarityThreshold  int
	ClusterLookback      time.Duration
	ClusterMaxCandidates int
	ClusterIDLength      int

	// Ranking
	HalfLifeMinutes       float64
	BroadenBonus          float64
	Lookahead             int
	SourcePrev1Penalty    float64
	SourcePrev2Penalty    float64
	CategoryPrev1Penalty  float64
	CategoryPrev2Penalty  float64
	BroadenSourceWeight   float64
	BroadenCategoryWeight float64
	HardPenalty           float64

	// App
	Debug         bool
	RetryAttempts int
	RetryDelay    time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		ListenAddr:            ":8080",
		DefaultLimit:          50,
		MaxLimit:              200,
		DefaultWindow:         80,
		MinWindow:             10,
		MaxWindow:             200,
		PoolLimit:             1000,
		TickerPoolLimit:       1500,
		TickerPerSource:       4,
		TickerPerCat:          5,
		TickerItems:           20,
		SourcesConfigPath:     "configs/sources.yaml",
		IngestCron:            "*/30 * * * *",
		PerSourceDelay:        800 * time.Millisecond,
		MaxPerSource:          50,
		FetchTimeout:          15 * time.Second,
		Language:              "my",
		MaxGenerationRequests: 200,
		RewriteCacheTTL:       24 * time.Hour,
		TitleMaxRunes:         90,
		SimilarityThreshold:   92,
		ClusterLookback:       72 * time.Hour,
		ClusterMaxCandidates:  4000,
		ClusterIDLength:       16,
		HalfLifeMinutes:       360,
		BroadenBonus:          0.05,
		Lookahead:             120,
		SourcePrev1Penalty:    1.5,
		SourcePrev2Penalty:    2.5,
		CategoryPrev1Penalty:  1.0,
		CategoryPrev2Penalty:  2.0,
		BroadenSourceWeight:   0.08,
		BroadenCategoryWeight: 0.06,
		HardPenalty:           999,
		RetryAttempts:         3,
		RetryDelay:            5 * time.Second,
	}

	// Load from environment
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.RewriteProvider = os.Getenv("REWRITE_PROVIDER")

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.IngestCron = getEnvOrDefault("INGEST_CRON", cfg.IngestCron)
	cfg.Language = getEnvOrDefault("LANGUAGE", cfg.Language)

	cfg.DefaultLimit = getEnvIntOrDefault("DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.MaxLimit = getEnvIntOrDefault("MAX_LIMIT", cfg.MaxLimit)
	cfg.DefaultWindow = getEnvIntOrDefault("SHUFFLE_WINDOW", cfg.DefaultWindow)
	cfg.PoolLimit = getEnvIntOrDefault("POOL_LIMIT", cfg.PoolLimit)
	cfg.TickerPoolLimit = getEnvIntOrDefault("TICKER_POOL_LIMIT", cfg.TickerPoolLimit)
	cfg.MaxPerSource = getEnvIntOrDefault("MAX_PER_SOURCE", cfg.MaxPerSource)
	cfg.MaxGenerationRequests = getEnvIntOrDefault("MAX_GENERATION_REQUESTS", cfg.MaxGenerationRequests)
	cfg.TitleMaxRunes = getEnvIntOrDefault("TITLE_MAX_RUNES", cfg.TitleMaxRunes)
	cfg.SimilarityThreshold = getEnvIntOrDefault("SIMILARITY_THRESHOLD", cfg.SimilarityThreshold)
	cfg.ClusterMaxCandidates = getEnvIntOrDefault("CLUSTER_MAX_CANDIDATES", cfg.ClusterMaxCandidates)
	cfg.Lookahead = getEnvIntOrDefault("RANK_LOOKAHEAD", cfg.Lookahead)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("PER_SOURCE_DELAY_MS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.PerSourceDelay = time.Duration(val) * time.Millisecond
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("REWRITE_CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RewriteCacheTTL = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("CLUSTER_LOOKBACK_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.ClusterLookback = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("RANK_HALF_LIFE_MINUTES"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 {
			cfg.HalfLifeMinutes = val
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

// RankConfig projects the ranking knobs into the selector's config.
func (c *Config) RankConfig() rank.Config {
	return rank.Config{
		HalfLifeMinutes:       c.HalfLifeMinutes,
		BroadenBonus:          c.BroadenBonus,
		Lookahead:             c.Lookahead,
		SourcePrev1Penalty:    c.SourcePrev1Penalty,
		SourcePrev2Penalty:    c.SourcePrev2Penalty,
		CategoryPrev1Penalty:  c.CategoryPrev1Penalty,
		CategoryPrev2Penalty:  c.CategoryPrev2Penalty,
		BroadenSourceWeight:   c.BroadenSourceWeight,
		BroadenCategoryWeight: c.BroadenCategoryWeight,
		HardPenalty:           c.HardPenalty,
	}
}

// DedupeConfig projects the clustering knobs into the engine's config.
func (c *Config) DedupeConfig() dedupe.Config {
	return dedupe.Config{
		Threshold:       c.SimilarityThreshold,
		Lookback:        c.ClusterLookback,
		MaxCandidates:   c.ClusterMaxCandidates,
		ClusterIDLength: c.ClusterIDLength,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.RewriteProvider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("REWRITE_PROVIDER must be empty, 'gemini' or 'openai'")
	}
	if c.RewriteProvider == "gemini" && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when REWRITE_PROVIDER=gemini")
	}
	if c.RewriteProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when REWRITE_PROVIDER=openai")
	}
	if c.SimilarityThreshold < 1 || c.SimilarityThreshold > 100 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be between 1 and 100")
	}
	if c.ClusterIDLength < 8 || c.ClusterIDLength > 40 {
		return fmt.Errorf("cluster id length must be between 8 and 40")
	}
	if c.TitleMaxRunes < 10 {
		return fmt.Errorf("TITLE_MAX_RUNES must be at least 10")
	}
	return nil
}
