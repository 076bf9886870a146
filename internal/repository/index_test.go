//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/testutil"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

func newTestIndex(t *testing.T, folder string, texts ...string) *vectorindex.Index {
	t.Helper()
	chunks := make([]domain.Chunk, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{Text: text, SourcePath: folder + "/a.docx", Index: i}
		vectors[i] = []float32{float32(i + 1), 1, 0}
	}
	idx, err := vectorindex.New(chunks, vectors, vectorindex.Manifest{
		BuildID:        uuid.NewString(),
		EmbeddingModel: "text-embedding-3-large",
		DocumentCount:  1,
		SourceFolder:   folder,
		ChunkSize:      3000,
		ChunkOverlap:   500,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	return idx
}

func TestIndexRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc)

	repo := NewIndexRepository(pool)

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	idx := newTestIndex(t, "/sops", "first", "second", "third")
	require.NoError(t, repo.Save(ctx, idx))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, idx.Manifest().BuildID, loaded.Manifest().BuildID)
	assert.Equal(t, "/sops", loaded.Manifest().SourceFolder)
	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, idx.Chunks(), loaded.Chunks())
	for i := range idx.Vectors() {
		assert.InDeltaSlice(t, idx.Vectors()[i], loaded.Vectors()[i], 1e-6)
	}

	results, err := loaded.Search([]float32{3, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "third", results[0].Text)
}

func TestIndexRepository_SaveReplacesActiveBuild(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pc)

	repo := NewIndexRepository(pool)

	require.NoError(t, repo.Save(ctx, newTestIndex(t, "/old", "a", "b")))
	second := newTestIndex(t, "/new", "c")
	require.NoError(t, repo.Save(ctx, second))

	m, err := activeManifest(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, second.Manifest().BuildID, m.BuildID)
	assert.Equal(t, "/new", m.SourceFolder)

	var builds, chunks int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM index_builds`).Scan(&builds))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM index_chunks`).Scan(&chunks))
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, chunks)

	require.NoError(t, testutil.TruncateAll(ctx, pool))
	_, err = activeManifest(ctx, pool)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}
