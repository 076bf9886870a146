package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/telemetry"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

// Embedder turns texts into vectors. One instance is shared by index builds
// and query retrieval so both use the same model.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Generator sends a prompt to a language model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, messages []domain.Message) (string, error)
}

// IndexProvider returns the active index, loading or building it on first use.
type IndexProvider interface {
	Get(ctx context.Context) (*vectorindex.Index, error)
}

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	indexes  IndexProvider
	embedder Embedder
	topK     int
}

// NewRetriever creates a Retriever returning topK chunks per question.
func NewRetriever(indexes IndexProvider, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = vectorindex.DefaultTopK
	}
	return &Retriever{indexes: indexes, embedder: embedder, topK: topK}
}

// Retrieve embeds question and returns the topK nearest chunks, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	return r.Search(ctx, question, r.topK)
}

// Search is Retrieve with an explicit k.
func (r *Retriever) Search(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	idx, err := r.indexes.Get(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "Retriever.Search", telemetry.SpanAttributes{
		Model:     r.embedder.ModelID(),
		BuildID:   idx.Manifest().BuildID,
		Operation: "search",
	})
	defer span.End()

	vecs, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		span.SetError(err)
		return nil, asEmbeddingError(err)
	}
	if len(vecs) != 1 {
		return nil, domain.NewEmbeddingServiceError(fmt.Errorf("expected 1 query embedding, got %d", len(vecs)))
	}

	results, err := idx.Search(vecs[0], k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetCount("results", len(results))
	return results, nil
}

func asEmbeddingError(err error) error {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.NewEmbeddingServiceError(err)
}
