package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

// ChunkConfig controls how SOP documents are split before embedding.
// Sizes are measured in characters (runes).
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultChunkConfig splits on paragraphs, then lines, sentences and words.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    3000,
		ChunkOverlap: 500,
		Separators:   []string{"\n\n", "\n", ".", " "},
	}
}

// Validate checks that the overlap is smaller than the chunk size.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return domain.NewDomainErrorWithCause(
			domain.ErrCodeValidation,
			domain.ErrInvalidChunkConfig.Message,
			fmt.Errorf("chunk_size=%d chunk_overlap=%d", c.ChunkSize, c.ChunkOverlap),
		)
	}
	return nil
}

// Chunker splits documents with a recursive separator strategy: it tries the
// separators in order and only falls back to the next one for pieces that are
// still larger than the chunk size.
type Chunker struct {
	cfg      ChunkConfig
	splitter textsplitter.TextSplitter
}

// NewChunker validates cfg and builds a Chunker.
func NewChunker(cfg ChunkConfig) (*Chunker, error) {
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultChunkConfig().Separators
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(cfg.Separators),
		textsplitter.WithChunkSize(cfg.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithKeepSeparator(true),
	)

	return &Chunker{cfg: cfg, splitter: splitter}, nil
}

// Config returns the effective chunking configuration.
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Split chunks every document in order. The output is deterministic for the
// same documents and configuration.
func (c *Chunker) Split(docs []domain.SourceDocument) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}

		parts, err := c.splitter.SplitText(doc.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Path, err)
		}

		idx := 0
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Text:       part,
				SourcePath: doc.Path,
				Index:      idx,
			})
			idx++
		}
	}

	log.Printf("chunker: split %d documents into %d chunks", len(docs), len(chunks))
	return chunks, nil
}
