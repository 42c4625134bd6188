package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mmnews/internal/cache"
	"mmnews/internal/config"
	"mmnews/internal/dedupe"
	"mmnews/internal/gemini"
	"mmnews/internal/ingest"
	"mmnews/internal/logger"
	"mmnews/internal/openaigen"
	"mmnews/internal/ratelimit"
	"mmnews/internal/retry"
	"mmnews/internal/rewrite"
	"mmnews/internal/scheduler"
	"mmnews/internal/server"
	"mmnews/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("could not open storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	limiter := ratelimit.New(cfg.MaxGenerationRequests)

	engineOpts := []rewrite.Option{
		rewrite.WithLimiter(limiter),
		rewrite.WithMemo(cache.New(), cfg.RewriteCacheTTL),
		rewrite.WithTitleMaxRunes(cfg.TitleMaxRunes),
	}
	switch cfg.RewriteProvider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Error("could not create Gemini client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		engineOpts = append(engineOpts, rewrite.WithGenerator(client))
	case "openai":
		engineOpts = append(engineOpts, rewrite.WithGenerator(openaigen.NewClient(cfg.OpenAIAPIKey)))
	default:
		logger.Info("no rewrite provider configured, using rules only")
	}
	engine := rewrite.NewEngine(engineOpts...)

	clusterer := dedupe.NewEngine(store, cfg.DedupeConfig())
	fetcher := ingest.NewFetcher(cfg.FetchTimeout)
	runner := ingest.NewRunner(store, fetcher, engine, clusterer, ingest.Options{
		Language:       cfg.Language,
		PerSourceDelay: cfg.PerSourceDelay,
		MaxPerSource:   cfg.MaxPerSource,
	})

	sources, err := ingest.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		logger.Error("could not load sources config", "path", cfg.SourcesConfigPath, "error", err)
		os.Exit(1)
	}
	if err := runner.SyncSources(ctx, sources); err != nil {
		logger.Error("could not sync sources", "error", err)
		os.Exit(1)
	}
	logger.Info("sources configured", "count", len(sources))

	sched := scheduler.New()
	if err := sched.AddJob(cfg.IngestCron, func() {
		if _, err := runner.Run(context.Background()); err != nil {
			logger.Error("scheduled ingest failed", "error", err)
		}
	}); err != nil {
		logger.Error("could not schedule ingest", "cron", cfg.IngestCron, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// First run right away so the API has content before the first tick.
	go func() {
		if _, err := runner.Run(context.Background()); err != nil {
			logger.Error("initial ingest failed", "error", err)
		}
	}()

	srv := server.New(cfg, store, runner, limiter)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr)
		if err := srv.Run(cfg.ListenAddr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, using in-memory store")
		return storage.NewMemoryStore(os.Getenv("STORE_SNAPSHOT_PATH")), nil
	}

	var store *storage.PostgresStore
	err := retry.Do(ctx, cfg.RetryAttempts, cfg.RetryDelay, func() error {
		var err error
		store, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
