package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are letter frequencies, so similar texts produce similar vectors.
type mockEmbeddingService struct {
	mu         sync.Mutex
	model      string
	embedCalls int
	batchCalls int
	embedErr   error
	batchErr   error
	// failBatchAt makes the n-th EmbedBatch call fail when positive.
	failBatchAt int
}

func newMockEmbedding() *mockEmbeddingService {
	return &mockEmbeddingService{model: "mock-embed"}
}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[0] += 0.001
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return letterVector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.failBatchAt > 0 && m.batchCalls == m.failBatchAt {
		return nil, errors.New("connection reset")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls + m.batchCalls
}

func (m *mockEmbeddingService) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls = 0
	m.batchCalls = 0
}

func (m *mockEmbeddingService) Dimensions() int              { return 26 }
func (m *mockEmbeddingService) ModelName() string            { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore in memory.
type mockVectorStore struct {
	mu        sync.RWMutex
	exists    bool
	dimension int
	entries   map[string]domain.IndexEntry
	healthErr error
	existsErr error
	upsertErr error
	recreates int
	closed    bool
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{entries: make(map[string]domain.IndexEntry)}
}

func (m *mockVectorStore) Exists(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exists, m.existsErr
}

func (m *mockVectorStore) Recreate(_ context.Context, dimension int, _ domain.DistanceMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = true
	m.dimension = dimension
	m.entries = make(map[string]domain.IndexEntry)
	m.recreates++
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, vector []float32, k int) ([]domain.ScoredEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 1
	}
	hits := make([]domain.ScoredEntry, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, domain.ScoredEntry{
			Content: e.Content,
			Source:  e.Source,
			Title:   e.Title,
			Score:   cosine(vector, e.Vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *mockVectorStore) Health(_ context.Context) (domain.IndexHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthErr != nil {
		return domain.IndexHealth{}, m.healthErr
	}
	return domain.IndexHealth{OK: true, Count: len(m.entries)}, nil
}

func (m *mockVectorStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockVectorStore) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockMetadataStore implements driven.MetadataStore in memory.
type mockMetadataStore struct {
	fingerprint string
	loadErr     error
	saveErr     error
	clearErr    error
	saves       int
	clears      int
}

func (m *mockMetadataStore) LastFingerprint(_ context.Context) (string, error) {
	return m.fingerprint, m.loadErr
}

func (m *mockMetadataStore) SaveFingerprint(_ context.Context, fp string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.fingerprint = fp
	m.saves++
	return nil
}

func (m *mockMetadataStore) ClearFingerprint(_ context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.fingerprint = ""
	m.clears++
	return nil
}

// mockCorpusReader implements driven.CorpusReader over in-memory text files.
type mockCorpusReader struct {
	files   map[string]string
	listErr error
}

func (m *mockCorpusReader) ListDocuments(_ context.Context) ([]domain.RawDocument, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)

	docs := make([]domain.RawDocument, 0, len(names))
	for _, name := range names {
		docs = append(docs, domain.RawDocument{
			Source:   name,
			URI:      "/corpus/" + name,
			MIMEType: "text/plain",
			Content:  []byte(m.files[name]),
		})
	}
	return docs, nil
}

func (m *mockCorpusReader) Root() string { return "/corpus" }

// mockRegistry implements driven.NormaliserRegistry by passing text through.
type mockRegistry struct {
	failOn string
	pages  map[string]int
}

func (m *mockRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw.Source == m.failOn {
		return nil, errors.New("broken file")
	}
	doc := domain.Document{
		URI:      raw.URI,
		MIMEType: raw.MIMEType,
		Title:    "Title of " + raw.Source,
		Content:  strings.TrimSpace(string(raw.Content)),
	}
	if pages, ok := m.pages[raw.Source]; ok {
		doc.Metadata = map[string]any{domain.MetadataPageCount: pages}
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

func (m *mockRegistry) Register(_ driven.Normaliser) {}

func (m *mockRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }

// mockPipeline implements driven.PostProcessorPipeline, one chunk per paragraph.
type mockPipeline struct{}

func (m *mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i, para := range strings.Split(doc.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:       doc.Source + "\x1f" + para,
			Source:   doc.Source,
			Title:    doc.Title,
			Content:  para,
			Position: i,
		})
	}
	return chunks, nil
}

// mockCodec implements driven.SnapshotCodec, remembering the last archive.
type mockCodec struct {
	exported  []byte
	imported  []byte
	exportErr error
	importErr error
}

func (m *mockCodec) Export(_ string) ([]byte, error) {
	return m.exported, m.exportErr
}

func (m *mockCodec) Import(archive []byte, _ string) error {
	m.imported = archive
	return m.importErr
}

// mockLLMService implements driven.LLMService with a canned reply.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	messages []driven.ChatMessage
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	return m.reply, m.err
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// mockRetriever implements driving.Retriever with canned hits.
type mockRetriever struct {
	mu    sync.Mutex
	hits  []domain.ScoredEntry
	err   error
	calls int
	lastK int
}

func (m *mockRetriever) Search(_ context.Context, _ string, k int) ([]domain.ScoredEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.hits) {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

// mockPromptStore implements driven.PromptStore from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockMetrics implements driven.MetricsRecorder.
type mockMetrics struct {
	mu       sync.Mutex
	rebuilds int
	reuses   int
	stages   []domain.Stage
	finished []domain.Stage
}

func (m *mockMetrics) IndexRebuilt(_ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilds++
}

func (m *mockMetrics) IndexReused() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reuses++
}

func (m *mockMetrics) StageCompleted(stage domain.Stage, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *mockMetrics) QueryFinished(terminal domain.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, terminal)
}
