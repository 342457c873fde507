package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/formpipe/formpipe/internal/cluster"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/confidence"
	"github.com/formpipe/formpipe/internal/export"
	"github.com/formpipe/formpipe/internal/extract"
	"github.com/formpipe/formpipe/internal/fingerprint"
	"github.com/formpipe/formpipe/internal/mapping"
	"github.com/formpipe/formpipe/internal/pipeline"
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/formpipe/formpipe/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using process environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("migrate schema failed", "error", err)
		os.Exit(1)
	}
	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database health OK")

	rules, err := mapping.LoadRuleDir(cfg.Mapping.PatternDir, logger)
	if err != nil {
		logger.Error("load pattern rules failed", "error", err)
		os.Exit(1)
	}

	mappingRepo := repository.NewMappingRepository(db, logger)
	cacheRepo := repository.NewCacheRepository(db, logger)

	mapper := mapping.NewMapper(rules, mappingRepo, mapping.HeuristicPolicy{}, logger)
	mapper.FuzzyThreshold = cfg.Mapping.FuzzyThreshold

	cache := fingerprint.NewCache(cacheRepo, cfg.Cache.TTL, logger)
	scorer := confidence.NewScorer(logger)
	clusterer := cluster.NewEngine(logger)
	clusterer.MinEpsilon = cfg.Clustering.MinEpsilon

	httpClient := &http.Client{Timeout: 60 * time.Second}
	partitioner := extract.NewPartitionClient(cfg.Extract.PartitionURL, cfg.Extract.APIKey, httpClient, logger)
	inferrer := extract.NewInferenceClient(cfg.Extract.InferenceURL, cfg.Extract.APIKey, httpClient, logger)
	var suggester extract.SuggestionGenerator
	if cfg.Extract.SuggestURL != "" {
		suggester = extract.NewSuggestClient(cfg.Extract.SuggestURL, cfg.Extract.APIKey, httpClient, logger)
	}

	processor := pipeline.NewProcessor(logger, pipeline.Config{
		ExtractAttempts:   cfg.Pipeline.ExtractAttempts,
		RetryDelay:        cfg.Pipeline.RetryDelay,
		FieldTimeout:      cfg.Extract.FieldTimeout,
		SuggestTimeout:    cfg.Extract.SuggestTimeout,
		PartitionStrategy: cfg.Extract.PartitionStrategy,
	}, cache, partitioner, inferrer, suggester, scorer, clusterer, mapper)

	exporter := export.NewService(mapper, logger)
	srv := server.NewServer(processor, mapper, exporter, db, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.SetupRouter(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
