// Package server exposes the read API over HTTP. All ordering work happens
// per request on a bounded pool of active headlines.
package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"mmnews/internal/config"
	"mmnews/internal/ingest"
	"mmnews/internal/logger"
	"mmnews/internal/metrics"
	"mmnews/internal/model"
	"mmnews/internal/rank"
	"mmnews/internal/shuffle"
	"mmnews/internal/storage"
)

// StatsProvider reports generation budget usage on /metrics.
type StatsProvider interface {
	Stats() map[string]interface{}
}

type Server struct {
	engine    *gin.Engine
	store     storage.Store
	runner    *ingest.Runner
	cfg       *config.Config
	limiter   StatsProvider
	ingesting atomic.Bool
}

func New(cfg *config.Config, store storage.Store, runner *ingest.Runner, limiter StatsProvider) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:   store,
		runner:  runner,
		cfg:     cfg,
		limiter: limiter,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/headlines", s.handleHeadlines)
		api.GET("/ticker", s.handleTicker)
		api.GET("/sources", s.handleSources)
		api.POST("/admin/refresh", s.handleRefresh)
		api.GET("/admin/rewrite-sample", s.handleRewriteSample)
	}
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", s.handleMetrics)

	s.engine = router
	return s
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

type headlineItem struct {
	ID                   string              `json:"id"`
	SourceName           string              `json:"sourceName"`
	ArticleURL           string              `json:"articleUrl"`
	DisplayTitle         string              `json:"displayTitle"`
	UsedOriginalFallback bool                `json:"usedOriginalFallback"`
	Category             model.Category      `json:"category"`
	RewriteMode          string              `json:"rewriteMode"`
	PublishedAt          *time.Time          `json:"publishedAt"`
	FetchedAt            time.Time           `json:"fetchedAt"`
	AlsoReportedBy       []model.ClusterMate `json:"alsoReportedBy"`
}

type headlineParams struct {
	limit    int
	mode     rank.Mode
	broaden  bool
	shuffled bool
	seed     string
	window   int
	category string
	source   string
}

func (s *Server) parseHeadlineParams(c *gin.Context) headlineParams {
	p := headlineParams{
		limit:   s.cfg.DefaultLimit,
		mode:    rank.ParseMode(c.Query("sort")),
		window:  s.cfg.DefaultWindow,
		broaden: parseBool(c.Query("broaden")),
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.limit = clamp(n, 1, s.cfg.MaxLimit)
		}
	}
	if v := c.Query("window"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.window = clamp(n, s.cfg.MinWindow, s.cfg.MaxWindow)
		}
	}

	p.shuffled = parseBool(c.Query("shuffle"))

	// The seed must be a stable integer; anything else means a fresh
	// time-based order on every request.
	if n, err := strconv.ParseInt(c.Query("seed"), 10, 64); err == nil {
		p.seed = strconv.FormatInt(n, 10)
	} else {
		p.seed = strconv.FormatInt(time.Now().Unix(), 10)
	}

	p.category = filterValue(c.Query("category"))
	p.source = filterValue(c.Query("source"))
	return p
}

// filterValue maps the documented "all" default to no filter.
func filterValue(v string) string {
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

func (s *Server) handleHeadlines(c *gin.Context) {
	p := s.parseHeadlineParams(c)

	pool, err := s.store.ActiveHeadlines(c.Request.Context(), storage.Query{
		Language:   s.cfg.Language,
		Category:   p.category,
		SourceName: p.source,
		Limit:      s.cfg.PoolLimit,
	})
	if err != nil {
		logger.Error("headline listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}

	ranked := rank.Headlines(pool, p.mode, p.broaden, s.cfg.RankConfig())
	if len(ranked) > p.limit {
		ranked = ranked[:p.limit]
	}

	// Shuffling only makes sense over the balanced order; newest stays exact.
	if p.shuffled && p.mode == rank.ModeBalanced {
		ranked = shuffle.Window(ranked, p.window, p.seed)
	}

	items, err := s.decorate(c.Request.Context(), ranked)
	if err != nil {
		logger.Error("cluster lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"headlines": items,
		"count":     len(items),
	})
}

// decorate resolves display titles and cross-source cluster mates.
func (s *Server) decorate(ctx context.Context, ranked []model.Headline) ([]headlineItem, error) {
	clusterIDs := make([]string, 0, len(ranked))
	seen := make(map[string]bool)
	for _, h := range ranked {
		if h.ClusterID != "" && !seen[h.ClusterID] {
			seen[h.ClusterID] = true
			clusterIDs = append(clusterIDs, h.ClusterID)
		}
	}

	mates, err := s.store.ClusterMates(ctx, clusterIDs)
	if err != nil {
		return nil, err
	}
	byCluster := make(map[string][]model.ClusterMate)
	for _, m := range mates {
		byCluster[m.ClusterID] = append(byCluster[m.ClusterID], m)
	}

	items := make([]headlineItem, len(ranked))
	for i, h := range ranked {
		title, fallback := h.DisplayTitle()

		also := []model.ClusterMate{}
		for _, m := range byCluster[h.ClusterID] {
			if m.ArticleURL == h.ArticleURL {
				continue
			}
			also = append(also, m)
		}

		items[i] = headlineItem{
			ID:                   h.ID,
			SourceName:           h.SourceName,
			ArticleURL:           h.ArticleURL,
			DisplayTitle:         title,
			UsedOriginalFallback: fallback,
			Category:             h.Category,
			RewriteMode:          h.RewriteMode,
			PublishedAt:          h.PublishedAt,
			FetchedAt:            h.FetchedAt,
			AlsoReportedBy:       also,
		}
	}
	return items, nil
}

type tickerItem struct {
	SourceName   string         `json:"sourceName"`
	ArticleURL   string         `json:"articleUrl"`
	DisplayTitle string         `json:"displayTitle"`
	Category     model.Category `json:"category"`
}

func (s *Server) handleTicker(c *gin.Context) {
	pool, err := s.store.ActiveHeadlines(c.Request.Context(), storage.Query{
		Language: s.cfg.Language,
		Limit:    s.cfg.TickerPoolLimit,
	})
	if err != nil {
		logger.Error("ticker listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}

	ranked := rank.Headlines(pool, rank.ModeBalanced, true, s.cfg.RankConfig())

	perSource := make(map[string]int)
	perCategory := make(map[model.Category]int)
	items := []tickerItem{}
	for _, h := range ranked {
		if len(items) >= s.cfg.TickerItems {
			break
		}
		if perSource[h.SourceName] >= s.cfg.TickerPerSource {
			continue
		}
		if perCategory[h.Category] >= s.cfg.TickerPerCat {
			continue
		}
		perSource[h.SourceName]++
		perCategory[h.Category]++

		title, _ := h.DisplayTitle()
		items = append(items, tickerItem{
			SourceName:   h.SourceName,
			ArticleURL:   h.ArticleURL,
			DisplayTitle: title,
			Category:     h.Category,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleSources(c *gin.Context) {
	all, err := s.store.ListSources(c.Request.Context())
	if err != nil {
		logger.Error("source listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	sources := make([]model.Source, 0, len(all))
	for _, src := range all {
		if src.IsActive {
			sources = append(sources, src)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources)})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion not configured"})
		return
	}
	if !s.ingesting.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "ingest already running"})
		return
	}

	go func() {
		defer s.ingesting.Store(false)
		if _, err := s.runner.Run(context.Background()); err != nil {
			logger.Error("manual ingest failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "ingest started"})
}

type rewriteSampleItem struct {
	ID                   string         `json:"id"`
	SourceName           string         `json:"sourceName"`
	Category             model.Category `json:"category"`
	OriginalTitle        string         `json:"originalTitle"`
	NeutralTitle         string         `json:"neutralTitle"`
	DisplayTitle         string         `json:"displayTitle"`
	UsedOriginalFallback bool           `json:"usedOriginalFallback"`
	RewriteMode          string         `json:"rewriteMode"`
	RewriteFlags         []string       `json:"rewriteFlags"`
	Changed              bool           `json:"changed"`
	ArticleURL           string         `json:"articleUrl"`
	PublishedAt          *time.Time     `json:"publishedAt"`
	FetchedAt            time.Time      `json:"fetchedAt"`
}

// handleRewriteSample exposes recent rewrite outcomes for eyeballing rule
// quality: how many titles actually changed and how many fell back.
func (s *Server) handleRewriteSample(c *gin.Context) {
	limit := 25
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = clamp(n, 1, s.cfg.MaxLimit)
		}
	}

	rows, err := s.store.ActiveHeadlines(c.Request.Context(), storage.Query{
		Language: s.cfg.Language,
		Limit:    limit,
	})
	if err != nil {
		logger.Error("rewrite sample listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}

	changedCount := 0
	fallbackCount := 0
	items := make([]rewriteSampleItem, len(rows))
	for i, h := range rows {
		title, fallback := h.DisplayTitle()
		changed := !fallback && strings.TrimSpace(h.NeutralTitle) != strings.TrimSpace(h.OriginalTitle)
		if changed {
			changedCount++
		}
		if fallback {
			fallbackCount++
		}

		items[i] = rewriteSampleItem{
			ID:                   h.ID,
			SourceName:           h.SourceName,
			Category:             h.Category,
			OriginalTitle:        h.OriginalTitle,
			NeutralTitle:         h.NeutralTitle,
			DisplayTitle:         title,
			UsedOriginalFallback: fallback,
			RewriteMode:          h.RewriteMode,
			RewriteFlags:         h.RewriteFlags,
			Changed:              changed,
			ArticleURL:           h.ArticleURL,
			PublishedAt:          h.PublishedAt,
			FetchedAt:            h.FetchedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"limit":         limit,
			"changedCount":  changedCount,
			"fallbackCount": fallbackCount,
		},
		"items": items,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := metrics.Global.GetStats()
	status := "ok"
	code := http.StatusOK
	if healthy, ok := stats["is_healthy"].(bool); ok && !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"last_run": stats["last_run_time"],
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	out := metrics.Global.GetStats()
	if s.limiter != nil {
		for k, v := range s.limiter.Stats() {
			out[k] = v
		}
	}
	c.JSON(http.StatusOK, out)
}

func parseBool(v string) bool {
	return v == "1" || v == "true"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
