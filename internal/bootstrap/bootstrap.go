// Package bootstrap wires configuration, infrastructure, and use cases into
// a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evidentia/docsqa/internal/config"
	"github.com/evidentia/docsqa/internal/core/ports"
	"github.com/evidentia/docsqa/internal/core/usecase"
	"github.com/evidentia/docsqa/internal/infrastructure/cache/redis"
	"github.com/evidentia/docsqa/internal/infrastructure/chunking"
	"github.com/evidentia/docsqa/internal/infrastructure/llm/ollama"
	"github.com/evidentia/docsqa/internal/infrastructure/queue/nats"
	"github.com/evidentia/docsqa/internal/infrastructure/repository/postgres"
	"github.com/evidentia/docsqa/internal/infrastructure/rerank"
	"github.com/evidentia/docsqa/internal/infrastructure/resilience"
	"github.com/evidentia/docsqa/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentStore
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryPipeline

	closeFn func()
}

// Options carries dependencies the entry points choose per process, such as
// the metrics sink for the query pipeline.
type Options struct {
	Logger          *slog.Logger
	PipelineMetrics usecase.PipelineMetrics
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	documents := postgres.NewDocumentStore(db)
	if err := documents.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	traces := postgres.NewTraceStore(db)

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	generator := ollama.NewGenerator(ollamaClient)

	var embedder ports.Embedder = ollama.NewEmbedder(ollamaClient)
	var closeCache func()
	if !cfg.EmbedCacheEmpty {
		cacheClient, err := redis.Open(cfg.RedisURL)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		embedder = redis.NewCachedEmbedder(embedder, cacheClient, cfg.EmbedCacheTTL, logger)
		closeCache = func() { _ = cacheClient.Close() }
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	reranker := rerank.NewLexicalScorer()

	ingestUC := usecase.NewIngest(chunker, documents, queue, logger)
	processUC := usecase.NewProcess(documents, embedder, vectorDB, logger)
	queryUC := usecase.NewQueryPipeline(
		cfg,
		embedder,
		vectorDB,
		documents,
		reranker,
		generator,
		documents,
		traces,
		opts.PipelineMetrics,
		logger,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Documents: documents,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			if closeCache != nil {
				closeCache()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
