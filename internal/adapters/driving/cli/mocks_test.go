package cli

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
)

// mockApplication records which purposes were requested and serves canned services.
type mockApplication struct {
	settings  domain.Settings
	index     *mockIndexService
	query     *mockQueryService
	watcher   *mockWatcher
	checks    []domain.ProviderCheck
	archive   []byte
	indexErr  error
	queryErr  error
	fetchErr  error
	purposes  []domain.Purpose
	retriever driving.Retriever
	closed    bool
}

func newMockApplication() *mockApplication {
	settings := domain.DefaultSettings()
	settings.Snapshot.URL = "https://example.com/store.zip"
	return &mockApplication{
		settings: settings,
		index: &mockIndexService{
			status: domain.IndexStatus{Dir: "index", Exists: true, Count: 42, Fingerprint: "abc123"},
		},
		query: &mockQueryService{
			result: domain.QueryResult{
				State:    domain.QueryState{Answer: "Obtain consent first.", RetrievedCount: 3},
				Terminal: domain.StageDone,
			},
		},
		watcher: &mockWatcher{},
		archive: []byte("PK-archive"),
	}
}

func (m *mockApplication) Settings() domain.Settings { return m.settings }

func (m *mockApplication) Index(purpose domain.Purpose) (driving.IndexService, error) {
	m.purposes = append(m.purposes, purpose)
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	return m.index, nil
}

func (m *mockApplication) Query(retriever driving.Retriever) (driving.QueryService, error) {
	m.retriever = retriever
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.query, nil
}

func (m *mockApplication) FetchSnapshot(_ context.Context) ([]byte, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.archive, nil
}

func (m *mockApplication) Watcher() driven.CorpusWatcher { return m.watcher }

func (m *mockApplication) CheckProviders() []domain.ProviderCheck { return m.checks }

func (m *mockApplication) MetricsHandler() http.Handler { return http.NotFoundHandler() }

func (m *mockApplication) Close() error {
	m.closed = true
	return nil
}

type mockIndexService struct {
	status    domain.IndexStatus
	ensureErr error
	openErr   error
	restored  []byte
	ensures   int
	opens     int
}

func (m *mockIndexService) EnsureIndex(_ context.Context) (driving.Retriever, error) {
	m.ensures++
	if m.ensureErr != nil {
		return nil, m.ensureErr
	}
	return &mockRetriever{name: "ensured"}, nil
}

func (m *mockIndexService) OpenExisting(_ context.Context) (driving.Retriever, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &mockRetriever{name: "restored"}, nil
}

func (m *mockIndexService) Restore(_ context.Context, archive []byte) error {
	m.restored = archive
	return nil
}

func (m *mockIndexService) Export(_ context.Context) ([]byte, error) {
	return []byte("PK-exported"), nil
}

func (m *mockIndexService) Status(_ context.Context) (domain.IndexStatus, error) {
	return m.status, nil
}

func (m *mockIndexService) Close() error { return nil }

type mockRetriever struct {
	name string
}

func (m *mockRetriever) Search(_ context.Context, _ string, _ int) ([]domain.ScoredEntry, error) {
	return nil, nil
}

type mockQueryService struct {
	result domain.QueryResult
	err    error
	query  string
	topK   int
}

func (m *mockQueryService) Ask(_ context.Context, query string, topK int) (domain.QueryResult, error) {
	m.query = query
	m.topK = topK
	return m.result, m.err
}

// mockWatcher emits events once, then closes the channel.
type mockWatcher struct {
	events int
	err    error
}

func (m *mockWatcher) Watch(_ context.Context) (<-chan struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan struct{}, m.events)
	for range m.events {
		ch <- struct{}{}
	}
	close(ch)
	return ch, nil
}

func (m *mockWatcher) Close() error { return nil }

// setupTestApplication installs a mock application and resets flag state on cleanup.
func setupTestApplication(t *testing.T) *mockApplication {
	t.Helper()
	app := newMockApplication()
	original := application
	application = app
	t.Cleanup(func() {
		application = original
		askTopK, askRestore, askJSON = 0, false, false
		snapshotOutput, snapshotBuild = defaultSnapshotFile, false
	})
	return app
}

// executeCommand runs rootCmd with args and returns the combined output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
