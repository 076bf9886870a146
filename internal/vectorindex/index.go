// Package vectorindex holds the in-memory similarity index over chunk
// embeddings and its on-disk bundle format.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cloo-solutions/sopbot/internal/domain"
)

// DefaultTopK is used when a search asks for zero or fewer results.
const DefaultTopK = 3

// FormatVersion identifies the bundle layout written by DirStore.
const FormatVersion = 1

// Manifest describes a built index. It is persisted next to the vectors so a
// later process can tell whether the bundle still matches its configuration.
type Manifest struct {
	Version        int       `json:"version"`
	BuildID        string    `json:"build_id"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkCount     int       `json:"chunk_count"`
	DocumentCount  int       `json:"document_count"`
	SourceFolder   string    `json:"source_folder"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	CreatedAt      time.Time `json:"created_at"`
	PayloadSHA256  string    `json:"payload_sha256,omitempty"`
}

// Index is an immutable flat index of unit-length vectors. Search is exact
// cosine similarity.
type Index struct {
	manifest Manifest
	chunks   []domain.Chunk
	vectors  [][]float32
}

// New builds an index from chunks and their embeddings, which must be
// parallel slices. Vectors are copied and L2-normalized. Manifest fields
// describing the content (version, dimension, count) are filled in.
func New(chunks []domain.Chunk, vectors [][]float32, manifest Manifest) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("embedding vectors are empty")
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dimension)
		}
		normalized[i] = normalize(v)
	}

	manifest.Version = FormatVersion
	manifest.Dimension = dimension
	manifest.ChunkCount = len(chunks)

	return &Index{
		manifest: manifest,
		chunks:   append([]domain.Chunk(nil), chunks...),
		vectors:  normalized,
	}, nil
}

// Restore rebuilds an index from persisted, already normalized vectors.
// Any disagreement between manifest and payload is a CorruptIndexError.
func Restore(manifest Manifest, chunks []domain.Chunk, vectors [][]float32) (*Index, error) {
	if manifest.Version != FormatVersion {
		return nil, domain.NewCorruptIndexError(fmt.Errorf("unsupported format version %d", manifest.Version))
	}
	if len(chunks) == 0 || len(chunks) != len(vectors) || len(chunks) != manifest.ChunkCount {
		return nil, domain.NewCorruptIndexError(fmt.Errorf(
			"manifest declares %d chunks, payload has %d chunks and %d vectors",
			manifest.ChunkCount, len(chunks), len(vectors)))
	}
	for i, v := range vectors {
		if len(v) != manifest.Dimension {
			return nil, domain.NewCorruptIndexError(fmt.Errorf(
				"vector %d has dimension %d, manifest declares %d", i, len(v), manifest.Dimension))
		}
	}

	return &Index{manifest: manifest, chunks: chunks, vectors: vectors}, nil
}

// Manifest returns the index description.
func (idx *Index) Manifest() Manifest {
	return idx.manifest
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Dimension returns the embedding dimension.
func (idx *Index) Dimension() int {
	return idx.manifest.Dimension
}

// Chunks returns the indexed chunks in insertion order.
func (idx *Index) Chunks() []domain.Chunk {
	return idx.chunks
}

// Vectors returns the normalized vectors in insertion order.
func (idx *Index) Vectors() [][]float32 {
	return idx.vectors
}

// Search returns the k chunks most similar to query, most similar first.
// Equal scores keep insertion order. If the index holds fewer than k chunks
// all of them are returned.
func (idx *Index) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(query) != idx.manifest.Dimension {
		return nil, domain.NewVectorSearchError(fmt.Errorf(
			"query dimension %d does not match index dimension %d", len(query), idx.manifest.Dimension))
	}
	if k <= 0 {
		k = DefaultTopK
	}

	q := normalize(query)
	order := make([]int, len(idx.vectors))
	scores := make([]float32, len(idx.vectors))
	for i, v := range idx.vectors {
		order[i] = i
		scores[i] = dot(q, v)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}

	results := make([]domain.ScoredChunk, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredChunk{Chunk: idx.chunks[order[i]], Score: scores[order[i]]}
	}
	return results, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
