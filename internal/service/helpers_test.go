package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/loader"
	"github.com/cloo-solutions/sopbot/internal/testutil"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

var testVocabulary = []string{"refund", "approved", "500", "laptop", "onboarding", "incident", "security"}

// keywordEmbedder maps a text to keyword counts over testVocabulary plus a
// constant component, so similar texts get similar vectors.
type keywordEmbedder struct {
	model string
	calls atomic.Int32
	err   error
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{model: "keyword-test"}
}

func (e *keywordEmbedder) ModelID() string { return e.model }

func (e *keywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		vec := make([]float32, len(testVocabulary)+1)
		for j, word := range testVocabulary {
			vec[j] = float32(strings.Count(lower, word))
		}
		vec[len(testVocabulary)] = 0.01
		out[i] = vec
	}
	return out, nil
}

// MockGenerator mocks the language model
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockRetriever mocks chunk retrieval
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, question string) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockSynthesizer mocks answer synthesis
type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, question, excerpts string) (string, error) {
	args := m.Called(ctx, question, excerpts)
	return args.String(0), args.Error(1)
}

var errEmbeddingTimeout = errors.New("context deadline exceeded (Client.Timeout exceeded while awaiting headers)")

// writeSOPFolder writes three SOP documents that split into ten chunks with
// smallChunkConfig, one chunk per paragraph.
func writeSOPFolder(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteDocx(t, filepath.Join(root, "finance", "refunds.docx"),
		"Refund requests are logged by the support agent.",
		"Refunds above 500 EUR are approved by the finance lead.",
		"Approved refunds are paid within five business days.",
		"Refund disputes are escalated to the support manager.",
	)
	testutil.WriteDocx(t, filepath.Join(root, "hr", "onboarding.docx"),
		"New hires receive a laptop from the IT desk.",
		"HR schedules the onboarding session in week one.",
		"Badge access is granted by facilities on day one.",
	)
	testutil.WriteDocx(t, filepath.Join(root, "ops", "incidents.docx"),
		"Security incidents are reported to the security team.",
		"The on-call engineer opens an incident ticket.",
		"Postmortems are written within two weeks by the owner.",
	)
	return root
}

func smallChunkConfig() ChunkConfig {
	return ChunkConfig{ChunkSize: 60, ChunkOverlap: 0}
}

type pipeline struct {
	embedder *keywordEmbedder
	store    *vectorindex.DirStore
	builder  *IndexBuilder
	cache    *IndexCache
}

func newPipeline(t *testing.T, indexDir, defaultFolder string) *pipeline {
	t.Helper()
	chunker, err := NewChunker(smallChunkConfig())
	require.NoError(t, err)

	embedder := newKeywordEmbedder()
	store := vectorindex.NewDirStore(indexDir)
	builder := NewIndexBuilder(loader.New(), chunker, embedder, store)
	return &pipeline{
		embedder: embedder,
		store:    store,
		builder:  builder,
		cache:    NewIndexCache(builder, store, embedder.ModelID(), defaultFolder),
	}
}
