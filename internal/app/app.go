package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/myhealth/internal/api/middlewares"
	"github.com/markdave123-py/myhealth/internal/config"
	"github.com/markdave123-py/myhealth/internal/core"
	db "github.com/markdave123-py/myhealth/internal/core/database"
	"github.com/markdave123-py/myhealth/internal/core/ingestion_engine"
	"github.com/markdave123-py/myhealth/internal/core/llm"
	objectclient "github.com/markdave123-py/myhealth/internal/core/object-client"
	"github.com/markdave123-py/myhealth/internal/core/pubmed"
	"github.com/markdave123-py/myhealth/internal/core/summary_engine"
	textextractor "github.com/markdave123-py/myhealth/internal/core/text-extractor"
	"github.com/markdave123-py/myhealth/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	Indexer      ingestion_engine.Ingestor
	Server       *Server

	closers []io.Closer
	logger  arbor.ILogger
}

// NewApp connects every dependency and builds the HTTP server.
// Background indexing workers run until ctx is cancelled.
func NewApp(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{logger: logger}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient)
	logger.Info().Msg("Database initialized and ready")

	objClient, err := newObjectClient(appCtx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ObjectClient = objClient

	llmProvider, err := llm.NewProvider(appCtx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize the text generation provider: %w", err)
	}

	var embedder core.EmbeddingProvider
	if cfg.GeminiAPIKey != "" {
		gemEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		embedder = gemEmbedder
		a.closers = append(a.closers, gemEmbedder)
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set; report embeddings and report chat are disabled")
	}

	extractor := textextractor.NewPDFExtractor(logger)

	var (
		indexer *ingestion_engine.ReportIndexer
		queue   services.Enqueuer
	)
	if cfg.IndexWorkers > 0 {
		indexer = ingestion_engine.NewReportIndexer(dbClient, objClient, embedder, extractor, cfg.BucketName,
			&ingestion_engine.IngestConfig{
				ChunkSize:     cfg.ChunkSize,
				BatchSize:     16,
				EmbedDim:      cfg.EmbedDim,
				SweepInterval: cfg.IndexSweepInterval,
			}, logger)
		queue = indexer
	} else {
		logger.Warn().Msg("INDEX_WORKERS is 0; uploads are neither indexed nor summarized in the background")
	}

	users := services.NewUserService(dbClient)
	reports := services.NewReportService(dbClient, objClient, cfg.BucketName, queue, logger)
	prescriptions := services.NewPrescriptionService(dbClient)
	contacts := services.NewContactService(dbClient)

	scraper, err := pubmed.NewScraper(cfg.PubMedURL, nil, 10)
	if err != nil {
		a.Close()
		return nil, err
	}
	chat := services.NewChatService(dbClient, llmProvider, embedder, scraper, logger)

	summarizer := summary_engine.NewReportSummarizer(reports, extractor, llmProvider, summary_engine.Config{
		ChunkSize:   cfg.ChunkSize,
		Concurrency: cfg.SummaryConcurrency,
	}, logger)

	if indexer != nil {
		indexer.WithSummarizer(summarizer).Start(ctx, cfg.IndexWorkers)
		a.Indexer = indexer
	}

	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	a.Server = NewServer(cfg, Deps{
		Tokens:        tokens,
		Users:         users,
		Reports:       reports,
		Prescriptions: prescriptions,
		Contacts:      contacts,
		Chat:          chat,
		Summarizer:    summarizer,
	}, logger)

	return a, nil
}

func newObjectClient(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (core.ObjectClient, error) {
	if cfg.StorageBackend == "memory" {
		logger.Warn().Msg("Using in-memory object storage; uploads are lost on restart")
		return objectclient.NewMemoryClient(), nil
	}
	s3Client, err := objectclient.NewS3Client(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s3Client, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
