// Package app assembles the question-answering pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/sopbot/internal/config"
	"github.com/cloo-solutions/sopbot/internal/database"
	"github.com/cloo-solutions/sopbot/internal/gemini"
	"github.com/cloo-solutions/sopbot/internal/loader"
	"github.com/cloo-solutions/sopbot/internal/openai"
	"github.com/cloo-solutions/sopbot/internal/repository"
	"github.com/cloo-solutions/sopbot/internal/service"
	"github.com/cloo-solutions/sopbot/internal/storage"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

// App holds the long-lived components shared by the server, the CLI and the
// chat UI. The same embedder serves index builds and queries.
type App struct {
	Config *config.Config
	Tuning *config.Tuning

	Embedder     *openai.Client
	Generator    service.Generator
	Store        vectorindex.Store
	Builder      *service.IndexBuilder
	Cache        *service.IndexCache
	Retriever    *service.Retriever
	Orchestrator *service.Orchestrator

	pool *pgxpool.Pool
}

// New wires every component. Nothing is indexed until the first question or
// an explicit EnsureIndex.
func New(ctx context.Context, cfg *config.Config, tuning *config.Tuning) (*App, error) {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}

	a := &App{Config: cfg, Tuning: tuning}

	a.Embedder = openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      cfg.ChatModel,
		BatchSize:      tuning.EmbeddingBatchSize,
		Temperature:    &tuning.Temperature,
		MaxTokens:      tuning.MaxOutputTokens,
		Timeout:        cfg.RequestTimeout,
	})

	generator, err := newGenerator(ctx, cfg, tuning, a.Embedder)
	if err != nil {
		return nil, err
	}
	a.Generator = generator

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	chunker, err := service.NewChunker(service.ChunkConfig{
		ChunkSize:    tuning.ChunkSize,
		ChunkOverlap: tuning.ChunkOverlap,
		Separators:   tuning.Separators,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Builder = service.NewIndexBuilder(loader.New(), chunker, a.Embedder, a.Store)
	a.Cache = service.NewIndexCache(a.Builder, a.Store, a.Embedder.ModelID(), cfg.DataPath)
	a.Retriever = service.NewRetriever(a.Cache, a.Embedder, tuning.TopK)
	synthesizer := service.NewSynthesizer(a.Generator, service.SynthesizerConfig{
		MaxWords:      tuning.MaxAnswerWords,
		TruncateWords: tuning.TruncateAnswerWords,
	})
	a.Orchestrator = service.NewOrchestrator(a.Retriever, synthesizer)

	return a, nil
}

func newGenerator(ctx context.Context, cfg *config.Config, tuning *config.Tuning, fallback *openai.Client) (service.Generator, error) {
	if cfg.LLMProvider != config.LLMProviderGemini {
		log.Printf("app: answering with openai model %s", fallback.ChatModel())
		return fallback, nil
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: &tuning.Temperature,
		MaxTokens:   tuning.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("app: answering with gemini model %s", client.ChatModel())
	return client, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config

	if cfg.IndexBackend == config.IndexBackendPostgres {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("connected to database")
		a.pool = pool
		a.Store = repository.NewIndexRepository(pool)
		return nil
	}

	local := vectorindex.NewDirStore(cfg.IndexPath)
	if !cfg.HasS3() {
		a.Store = local
		return nil
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		log.Printf("warning: failed to ensure bucket exists: %v", err)
	}
	a.Store = storage.NewMirroredStore(local, s3Client, cfg.S3Prefix)
	return nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
