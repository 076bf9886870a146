package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/sopbot/internal/domain"
	"github.com/cloo-solutions/sopbot/internal/vectorindex"
)

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) AnswerDetailed(ctx context.Context, question string) domain.AnswerResult {
	args := m.Called(ctx, question)
	return args.Get(0).(domain.AnswerResult)
}

type MockIndexManager struct {
	mock.Mock
}

func (m *MockIndexManager) EnsureIndex(ctx context.Context, folder string) (*domain.BuildReport, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildReport), args.Error(1)
}

func (m *MockIndexManager) Rebuild(ctx context.Context, folder string) (*domain.BuildReport, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildReport), args.Error(1)
}

func (m *MockIndexManager) Current() *vectorindex.Index {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*vectorindex.Index)
}

func (m *MockIndexManager) Folder() string {
	args := m.Called()
	return args.String(0)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}
