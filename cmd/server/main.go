// Package main provides the braindump HTTP server entry point.
//
// @title braindump API
// @version 1.0
// @description Capture freeform notes, organize them with a language model and find related thoughts.
// @BasePath /
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	_ "github.com/thebtf/braindump/docs"
	"github.com/thebtf/braindump/internal/activity"
	"github.com/thebtf/braindump/internal/clustering"
	"github.com/thebtf/braindump/internal/config"
	gormdb "github.com/thebtf/braindump/internal/db/gorm"
	"github.com/thebtf/braindump/internal/embedding"
	"github.com/thebtf/braindump/internal/llm"
	"github.com/thebtf/braindump/internal/notes"
	"github.com/thebtf/braindump/internal/search"
	"github.com/thebtf/braindump/internal/watcher"
	"github.com/thebtf/braindump/internal/worker"
	"github.com/thebtf/braindump/internal/worker/sse"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	pretty := flag.Bool("pretty", false, "Human-readable console logs")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := config.EnsureAll(); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	setLogLevel(cfg.LogLevel, *debug)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	gormLevel := logger.Silent
	if *debug {
		gormLevel = logger.Info
	}
	store, err := gormdb.NewStore(gormdb.Config{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		LogLevel: gormLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	noteStore := gormdb.NewNoteStore(store)
	activityStore := gormdb.NewActivityStore(store)

	embedder := newEmbedder(cfg)
	enricher := newEnricher(cfg)

	var clusterer notes.Clusterer
	if embedder != nil {
		clusterer = clustering.NewEngine(embedder, clustering.Params{
			MinClusterSize: cfg.ClusterMinSize,
			MinSamples:     cfg.ClusterMinSamples,
		})
	}

	tracker := activity.NewTracker(activityStore)
	events := sse.NewBroadcaster()

	noteSvc := notes.NewService(notes.Deps{
		Store:     noteStore,
		Embedder:  embedder,
		Enricher:  enricher,
		Clusterer: clusterer,
		Tracker:   tracker,
		Publisher: events,
	})

	svc := worker.NewService(worker.Options{
		Config:   cfg,
		DB:       store,
		Notes:    noteSvc,
		Related:  search.NewRetriever(noteStore, cfg.MatchCount, cfg.MatchThreshold),
		Activity: tracker,
		Events:   events,
		Version:  Version,
	})

	startConfigWatcher()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func setLogLevel(level string, debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newEmbedder returns nil when no embedding provider is configured.
func newEmbedder(cfg *config.Config) embedding.Embedder {
	if !cfg.EmbeddingEnabled() {
		log.Warn().Msg("No embedding provider configured, related notes and clustering disabled")
		return nil
	}

	client := embedding.NewOpenAIClient(embedding.Config{
		BaseURL:        cfg.EmbeddingBaseURL,
		APIKey:         cfg.EmbeddingAPIKey,
		Model:          cfg.EmbeddingModel,
		Dimensions:     cfg.EmbeddingDimensions,
		OmitDimensions: cfg.EmbeddingOmitDimensions,
		BatchSize:      cfg.EmbeddingBatchSize,
		Timeout:        cfg.ProviderTimeout,
	})
	if cfg.RedisURL == "" {
		return client
	}

	cache := embedding.NewRedisCache(cfg.RedisURL, cfg.EmbeddingCacheTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Embedding cache unreachable, embedding without cache")
		_ = cache.Close()
		return client
	}
	log.Info().Dur("ttl", cfg.EmbeddingCacheTTL).Msg("Embedding cache enabled")
	return embedding.NewCachedEmbedder(client, cache)
}

func newEnricher(cfg *config.Config) *llm.Enricher {
	if !cfg.LLMEnabled() {
		log.Warn().Msg("No language model configured, enrichment uses fallbacks")
		return llm.NewEnricher(nil)
	}
	return llm.NewEnricher(llm.NewOpenAIProvider(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		InputTokens: cfg.LLMTokenBudget,
		Timeout:     cfg.ProviderTimeout,
	}))
}

// startConfigWatcher exits the process when the settings file changes so a
// supervisor restarts it with the new values.
func startConfigWatcher() {
	configPath := config.SettingsPath()
	w, err := watcher.New(configPath, func(op fsnotify.Op) {
		log.Warn().Str("path", configPath).Str("op", op.String()).Msg("Config file changed, exiting for restart...")
		time.Sleep(100 * time.Millisecond)
		os.Exit(0)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
		return
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		return
	}
	log.Info().Str("path", configPath).Msg("Config file watcher started")
}
