package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// Ensure IndexHandle implements the interface.
var _ driving.Retriever = (*IndexHandle)(nil)

// DimensionProbe is the text embedded to discover the provider's vector size.
const DimensionProbe = "dimension probe"

// DefaultEmbedBatchSize is the number of chunks sent per EmbedBatch call during a rebuild.
const DefaultEmbedBatchSize = 64

// IndexManager owns the vector store and decides when the corpus must be re-indexed.
//
// Every method that can replace or close the store holds the write lock for its
// whole duration, so concurrent EnsureIndex calls never interleave their
// check-and-rebuild sequences. Searches through an IndexHandle hold the read lock.
type IndexManager struct {
	mu sync.RWMutex

	dir       string
	openStore driven.VectorStoreOpener
	store     driven.VectorStore
	closed    bool

	metadata driven.MetadataStore
	embedder driven.EmbeddingService
	corpus   driven.CorpusReader
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	codec    driven.SnapshotCodec
	metrics  driven.MetricsRecorder

	batchSize int
}

// NewIndexManager creates an index manager for the index directory dir.
// The store is opened lazily on first use.
func NewIndexManager(
	dir string,
	openStore driven.VectorStoreOpener,
	metadata driven.MetadataStore,
	embedder driven.EmbeddingService,
	corpus driven.CorpusReader,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	codec driven.SnapshotCodec,
) *IndexManager {
	return &IndexManager{
		dir:       dir,
		openStore: openStore,
		metadata:  metadata,
		embedder:  embedder,
		corpus:    corpus,
		registry:  registry,
		pipeline:  pipeline,
		codec:     codec,
		batchSize: DefaultEmbedBatchSize,
	}
}

// SetMetrics sets the recorder for rebuild and reuse events.
func (m *IndexManager) SetMetrics(metrics driven.MetricsRecorder) {
	m.metrics = metrics
}

// SetBatchSize sets how many chunks are embedded per provider request.
func (m *IndexManager) SetBatchSize(n int) {
	if n > 0 {
		m.batchSize = n
	}
}

// EnsureIndex reads the corpus and rebuilds the collection when the collection is
// absent or empty, the corpus fingerprint differs from the last completed rebuild,
// or the health check fails. Otherwise the existing collection is reused and no
// embedding calls are made.
func (m *IndexManager) EnsureIndex(ctx context.Context) (driving.Retriever, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Section("Ensure Index")

	store, err := m.storeLocked()
	if err != nil {
		return nil, err
	}

	docs, err := m.readCorpus(ctx)
	if err != nil {
		return nil, err
	}

	current := Fingerprint(docs, m.embedder.ModelName())
	last, err := m.metadata.LastFingerprint(ctx)
	if err != nil {
		logger.Warn("Reading index metadata failed, forcing rebuild: %v", err)
		last = ""
	}
	logger.Debug("Fingerprint: current=%s last=%s", current, last)

	reason := rebuildReason(ctx, store, current, last)
	if reason == "" {
		logger.Info("Index is up to date, reusing existing collection")
		if m.metrics != nil {
			m.metrics.IndexReused()
		}
		return &IndexHandle{manager: m}, nil
	}

	logger.Info("Rebuilding index: %s", reason)
	start := time.Now()
	count, err := m.rebuild(ctx, store, docs)
	if err != nil {
		return nil, err
	}

	// The fingerprint is recorded last so an interrupted rebuild is retried.
	// rebuild cleared it before touching the collection.
	if err := m.metadata.SaveFingerprint(ctx, current); err != nil {
		return nil, fmt.Errorf("save index metadata: %w", err)
	}

	logger.Info("Indexed %d chunks from %d documents in %s", count, len(docs), time.Since(start))
	if m.metrics != nil {
		m.metrics.IndexRebuilt(count, time.Since(start))
	}
	return &IndexHandle{manager: m}, nil
}

// OpenExisting opens the persisted collection without reading the corpus.
func (m *IndexManager) OpenExisting(ctx context.Context) (driving.Retriever, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, err := m.storeLocked()
	if err != nil {
		return nil, err
	}

	exists, err := store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return nil, domain.ErrIndexNotFound
	}
	return &IndexHandle{manager: m}, nil
}

// Restore replaces the index directory with the archive contents and reopens the store.
// Handles obtained before the restore search the restored collection afterwards.
func (m *IndexManager) Restore(_ context.Context, archive []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrIndexClosed
	}
	if err := m.releaseLocked(); err != nil {
		return err
	}

	if err := m.codec.Import(archive, m.dir); err != nil {
		// Handles keep searching whatever the directory now holds.
		if _, openErr := m.storeLocked(); openErr != nil {
			logger.Warn("Reopening vector store after failed restore: %v", openErr)
		}
		return fmt.Errorf("import snapshot: %w", err)
	}
	logger.Info("Restored snapshot into %s (%d bytes)", m.dir, len(archive))

	_, err := m.storeLocked()
	return err
}

// Export packs the index directory into a snapshot archive.
// The store is closed while the directory is read so the archive is consistent.
func (m *IndexManager) Export(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrIndexClosed
	}
	if err := m.releaseLocked(); err != nil {
		return nil, err
	}

	archive, exportErr := m.codec.Export(m.dir)
	if _, err := m.storeLocked(); err != nil && exportErr == nil {
		return nil, err
	}
	if exportErr != nil {
		return nil, fmt.Errorf("export snapshot: %w", exportErr)
	}
	logger.Info("Exported snapshot of %s (%d bytes)", m.dir, len(archive))
	return archive, nil
}

// Status reports on the persisted index without reading the corpus.
func (m *IndexManager) Status(ctx context.Context) (domain.IndexStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := domain.IndexStatus{Dir: m.dir}

	store, err := m.storeLocked()
	if err != nil {
		return status, err
	}

	status.Exists, err = store.Exists(ctx)
	if err != nil {
		return status, fmt.Errorf("check collection: %w", err)
	}
	if status.Exists {
		health, err := store.Health(ctx)
		if err != nil {
			return status, fmt.Errorf("check health: %w", err)
		}
		status.Count = health.Count
	}

	status.Fingerprint, err = m.metadata.LastFingerprint(ctx)
	if err != nil {
		return status, fmt.Errorf("read metadata: %w", err)
	}
	return status, nil
}

// Close releases the vector store. Later calls fail with domain.ErrIndexClosed.
func (m *IndexManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.releaseLocked()
}

// storeLocked returns the open store, opening it if needed. Caller holds the write lock.
func (m *IndexManager) storeLocked() (driven.VectorStore, error) {
	if m.closed {
		return nil, domain.ErrIndexClosed
	}
	if m.store != nil {
		return m.store, nil
	}
	store, err := m.openStore(m.dir)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	m.store = store
	return store, nil
}

// releaseLocked closes the open store, if any. Caller holds the write lock.
func (m *IndexManager) releaseLocked() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	if err != nil {
		return fmt.Errorf("close vector store: %w", err)
	}
	return nil
}

// readCorpus lists and normalises every corpus document.
func (m *IndexManager) readCorpus(ctx context.Context) ([]domain.Document, error) {
	raws, err := m.corpus.ListDocuments(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCorpus) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusUnreadable, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrEmptyCorpus, m.corpus.Root())
	}

	docs := make([]domain.Document, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		result, err := m.registry.Normalise(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorpusUnreadable, raw.Source, err)
		}
		doc := result.Document
		if doc.Source == "" {
			doc.Source = raw.Source
		}
		if pages, ok := doc.PageCount(); ok {
			logger.Debug("Read %s %q (%d pages, %d characters)", doc.Source, doc.Title, pages, len(doc.Content))
		} else {
			logger.Debug("Read %s %q (%d characters)", doc.Source, doc.Title, len(doc.Content))
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// rebuildReason returns why the collection must be rebuilt, or "" to reuse it.
// Inspection failures always force a rebuild.
func rebuildReason(ctx context.Context, store driven.VectorStore, current, last string) string {
	exists, err := store.Exists(ctx)
	if err != nil {
		return fmt.Sprintf("collection check failed (%v)", err)
	}
	if !exists {
		return "collection absent"
	}
	if current != last {
		return "corpus fingerprint changed"
	}
	health, err := store.Health(ctx)
	if err != nil {
		return fmt.Sprintf("health check failed (%v)", err)
	}
	if !health.OK || health.Count == 0 {
		return "collection is empty"
	}
	return ""
}

// rebuild recreates the collection and fills it with every chunk of docs.
// Returns the number of chunks indexed.
func (m *IndexManager) rebuild(ctx context.Context, store driven.VectorStore, docs []domain.Document) (int, error) {
	var chunks []domain.Chunk
	for i := range docs {
		if strings.TrimSpace(docs[i].Content) == "" {
			logger.Debug("Skipping %s: no text", docs[i].Source)
			continue
		}
		docChunks, err := m.pipeline.Process(ctx, &docs[i])
		if err != nil {
			return 0, fmt.Errorf("post-process %s: %w", docs[i].Source, err)
		}
		chunks = append(chunks, docChunks...)
	}
	if len(chunks) == 0 {
		return 0, domain.ErrNoExtractableText
	}
	logger.Debug("Split %d documents into %d chunks", len(docs), len(chunks))

	probe, err := m.embedder.Embed(ctx, DimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("%w: probe dimension: %w", domain.ErrProvider, err)
	}
	if len(probe) == 0 {
		return 0, fmt.Errorf("%w: probe dimension: empty embedding", domain.ErrProvider)
	}
	logger.Debug("Embedding dimension: %d", len(probe))

	// Until the fingerprint is saved again, a partly filled collection is never reused.
	if err := m.metadata.ClearFingerprint(ctx); err != nil {
		return 0, fmt.Errorf("clear index metadata: %w", err)
	}
	if err := store.Recreate(ctx, len(probe), domain.DistanceCosine); err != nil {
		return 0, fmt.Errorf("recreate collection: %w", err)
	}

	for start := 0; start < len(chunks); start += m.batchSize {
		end := min(start+m.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("%w: embed chunks %d-%d: %w", domain.ErrProvider, start, end, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("%w: embed chunks %d-%d: got %d vectors",
				domain.ErrProvider, start, end, len(vectors))
		}

		entries := make([]domain.IndexEntry, len(batch))
		for i, c := range batch {
			if len(vectors[i]) != len(probe) {
				return 0, fmt.Errorf("%w: chunk %s: dimension %d, expected %d",
					domain.ErrProvider, c.ID, len(vectors[i]), len(probe))
			}
			entries[i] = domain.IndexEntry{
				ID:      c.ID,
				Vector:  vectors[i],
				Content: c.Content,
				Source:  c.Source,
				Title:   c.Title,
			}
		}
		if err := store.Upsert(ctx, entries); err != nil {
			return 0, fmt.Errorf("upsert chunks %d-%d: %w", start, end, err)
		}
		logger.Debug("Upserted chunks %d-%d of %d", start, end, len(chunks))
	}
	return len(chunks), nil
}

// IndexHandle searches the collection owned by an IndexManager.
// It stays valid across restores; it fails with domain.ErrIndexClosed once the manager is closed.
type IndexHandle struct {
	manager *IndexManager
}

// Search embeds text and returns at most k closest entries. k <= 0 is treated as 1.
func (h *IndexHandle) Search(ctx context.Context, text string, k int) ([]domain.ScoredEntry, error) {
	if k <= 0 {
		k = 1
	}

	vector, err := h.manager.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrProvider, err)
	}

	h.manager.mu.RLock()
	defer h.manager.mu.RUnlock()

	if h.manager.closed {
		return nil, domain.ErrIndexClosed
	}
	if h.manager.store == nil {
		return nil, domain.ErrIndexNotFound
	}
	return h.manager.store.Search(ctx, vector, k)
}
