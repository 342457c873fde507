// runpipeline processes one local file through the full pipeline and
// prints the processed result as JSON. Useful for smoke-testing a form
// family without the HTTP surface.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/formpipe/formpipe/internal/cluster"
	"github.com/formpipe/formpipe/internal/common"
	"github.com/formpipe/formpipe/internal/confidence"
	"github.com/formpipe/formpipe/internal/entity"
	"github.com/formpipe/formpipe/internal/export"
	"github.com/formpipe/formpipe/internal/extract"
	"github.com/formpipe/formpipe/internal/fingerprint"
	"github.com/formpipe/formpipe/internal/mapping"
	"github.com/formpipe/formpipe/internal/pipeline"
	"github.com/formpipe/formpipe/internal/repository"
)

func main() {
	var (
		path     = flag.String("file", "", "path to the document to process")
		formType = flag.String("form-type", "", "declared form type label")
		family   = flag.String("family", "", "form family for mapping resolution")
		xlsxOut  = flag.String("xlsx", "", "optional path to also write the fields as an XLSX workbook")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: runpipeline -file <path> [-form-type t] [-family f]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using process environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	content, err := os.ReadFile(*path)
	if err != nil {
		logger.Error("read file failed", "path", *path, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		DialTimeout: cfg.Database.DialTimeout,
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

	rules, err := mapping.LoadRuleDir(cfg.Mapping.PatternDir, logger)
	if err != nil {
		logger.Error("load pattern rules failed", "error", err)
		os.Exit(1)
	}

	mapper := mapping.NewMapper(rules, repository.NewMappingRepository(db, logger), mapping.HeuristicPolicy{}, logger)
	mapper.FuzzyThreshold = cfg.Mapping.FuzzyThreshold
	cache := fingerprint.NewCache(repository.NewCacheRepository(db, logger), cfg.Cache.TTL, logger)

	httpClient := &http.Client{Timeout: 60 * time.Second}
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
	},
		cache,
		extract.NewPartitionClient(cfg.Extract.PartitionURL, cfg.Extract.APIKey, httpClient, logger),
		extract.NewInferenceClient(cfg.Extract.InferenceURL, cfg.Extract.APIKey, httpClient, logger),
		suggester,
		confidence.NewScorer(logger),
		cluster.NewEngine(logger),
		mapper,
	)

	doc := &entity.Document{
		ID:         uuid.New(),
		Content:    content,
		FormType:   *formType,
		FormFamily: *family,
		SourceName: *path,
		ReceivedAt: time.Now().UTC(),
	}

	result, err := processor.Process(ctx, doc)
	if err != nil {
		logger.Error("processing failed", "doc_id", doc.ID, "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode result failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if *xlsxOut != "" {
		workbook, err := export.NewService(mapper, logger).ExportFieldsXLSX(result)
		if err != nil {
			logger.Error("export fields failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, workbook, 0o644); err != nil {
			logger.Error("write workbook failed", "path", *xlsxOut, "error", err)
			os.Exit(1)
		}
		logger.Info("fields workbook written", "path", *xlsxOut, "bytes", len(workbook))
	}
}
