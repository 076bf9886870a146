package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/loader"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

// DocumentLoader extracts the documents of a folder.
type DocumentLoader interface {
	Load(ctx context.Context, root string) (*loader.Result, error)
}

// IndexBuilder runs the ingestion pipeline: load, chunk, embed, index, persist.
type IndexBuilder struct {
	loader   DocumentLoader
	chunker  *Chunker
	embedder Embedder
	store    vectorindex.Store
	now      func() time.Time
}

// NewIndexBuilder creates an IndexBuilder. The built index is saved to store.
func NewIndexBuilder(l DocumentLoader, chunker *Chunker, embedder Embedder, store vectorindex.Store) *IndexBuilder {
	return &IndexBuilder{
		loader:   l,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		now:      time.Now,
	}
}

// Build indexes every eligible document under folder and persists the result.
// A folder that yields no chunks fails with domain.ErrEmptyCorpus.
func (b *IndexBuilder) Build(ctx context.Context, folder string) (*vectorindex.Index, *domain.BuildReport, error) {
	buildID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "IndexBuilder.Build", telemetry.SpanAttributes{
		Folder:    folder,
		Model:     b.embedder.ModelID(),
		BuildID:   buildID,
		Operation: "build",
	})
	defer span.End()

	loaded, err := b.loader.Load(ctx, folder)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}

	chunks, err := b.chunker.Split(loaded.Documents)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	span.SetCount("documents", len(loaded.Documents))
	span.SetCount("skipped", len(loaded.Skipped))
	span.SetCount("chunks", len(chunks))
	if len(chunks) == 0 {
		span.SetError(domain.ErrEmptyCorpus)
		return nil, nil, domain.ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		span.SetError(err)
		return nil, nil, asEmbeddingError(err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, domain.NewEmbeddingServiceError(fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks)))
	}

	cfg := b.chunker.Config()
	createdAt := b.now().UTC()
	idx, err := vectorindex.New(chunks, vectors, vectorindex.Manifest{
		BuildID:        buildID,
		EmbeddingModel: b.embedder.ModelID(),
		SourceFolder:   folder,
		DocumentCount:  len(loaded.Documents),
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		CreatedAt:      createdAt,
	})
	if err != nil {
		span.SetError(err)
		return nil, nil, domain.NewEmbeddingServiceError(err)
	}

	if err := b.store.Save(ctx, idx); err != nil {
		span.SetError(err)
		return nil, nil, domain.NewStorageError(fmt.Errorf("failed to persist index: %w", err))
	}

	log.Printf("index: built %d chunks from %d documents in %s (%d skipped)",
		len(chunks), len(loaded.Documents), folder, len(loaded.Skipped))

	return idx, &domain.BuildReport{
		Folder:    folder,
		Source:    domain.IndexSourceBuilt,
		BuildID:   buildID,
		Documents: len(loaded.Documents),
		Chunks:    len(chunks),
		Skipped:   loaded.Skipped,
		CreatedAt: createdAt,
	}, nil
}
