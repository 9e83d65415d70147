package mcp

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result    domain.QueryResult
	err       error
	lastQuery string
	lastTopK  int
}

func (m *mockQueryService) Ask(_ context.Context, query string, topK int) (domain.QueryResult, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.result, m.err
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	hits  []domain.ScoredEntry
	err   error
	lastK int
	text  string
}

func (m *mockRetriever) Search(_ context.Context, text string, k int) ([]domain.ScoredEntry, error) {
	m.text = text
	m.lastK = k
	return m.hits, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	status domain.IndexStatus
	err    error
}

func (m *mockIndexService) EnsureIndex(_ context.Context) (driving.Retriever, error) {
	return &mockRetriever{}, m.err
}

func (m *mockIndexService) OpenExisting(_ context.Context) (driving.Retriever, error) {
	return &mockRetriever{}, m.err
}

func (m *mockIndexService) Restore(_ context.Context, _ []byte) error {
	return m.err
}

func (m *mockIndexService) Export(_ context.Context) ([]byte, error) {
	return nil, m.err
}

func (m *mockIndexService) Status(_ context.Context) (domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) Close() error {
	return nil
}

func validPorts() *Ports {
	return &Ports{Query: &mockQueryService{}, Retriever: &mockRetriever{}}
}
