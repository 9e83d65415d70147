package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

type indexFixture struct {
	store    *mockVectorStore
	opens    int
	metadata *mockMetadataStore
	embedder *mockEmbeddingService
	corpus   *mockCorpusReader
	registry *mockRegistry
	codec    *mockCodec
	metrics  *mockMetrics
	manager  *IndexManager
}

func newIndexFixture(files map[string]string) *indexFixture {
	f := &indexFixture{
		store:    newMockVectorStore(),
		metadata: &mockMetadataStore{},
		embedder: newMockEmbedding(),
		corpus:   &mockCorpusReader{files: files},
		registry: &mockRegistry{},
		codec:    &mockCodec{},
		metrics:  &mockMetrics{},
	}
	opener := func(_ string) (driven.VectorStore, error) {
		f.opens++
		return f.store, nil
	}
	f.manager = NewIndexManager("/index", opener, f.metadata, f.embedder,
		f.corpus, f.registry, &mockPipeline{}, f.codec)
	f.manager.SetMetrics(f.metrics)
	return f
}

func TestIndexManager_EnsureIndex_FirstRunBuilds(t *testing.T) {
	f := newIndexFixture(map[string]string{
		"a.txt": "Consent is required.\n\nNotification is required.",
		"b.txt": "Access requests must be answered.",
	})

	handle, err := f.manager.EnsureIndex(context.Background())

	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, 3, f.store.count())
	assert.Equal(t, 26, f.store.dimension)
	assert.Equal(t, 1, f.store.recreates)
	assert.Equal(t, 1, f.metadata.saves)
	assert.Equal(t, 1, f.metrics.rebuilds)

	docs := []domain.Document{
		{Source: "a.txt", Content: "Consent is required.\n\nNotification is required."},
		{Source: "b.txt", Content: "Access requests must be answered."},
	}
	assert.Equal(t, Fingerprint(docs, "mock-embed"), f.metadata.fingerprint)
}

func TestIndexManager_EnsureIndex_Idempotent(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()

	_, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)
	countBefore := f.store.count()
	f.embedder.reset()

	_, err = f.manager.EnsureIndex(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, f.embedder.calls(), "second run must not embed")
	assert.Equal(t, countBefore, f.store.count())
	assert.Equal(t, 1, f.store.recreates)
	assert.Equal(t, 1, f.metadata.saves)
	assert.Equal(t, 1, f.metrics.reuses)
}

func TestIndexManager_EnsureIndex_RebuildOnChange(t *testing.T) {
	f := newIndexFixture(map[string]string{
		"a.txt": "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
	})
	ctx := context.Background()

	_, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, f.store.count())
	oldFingerprint := f.metadata.fingerprint

	f.corpus.files["a.txt"] = "Only one paragraph now."
	f.embedder.reset()

	_, err = f.manager.EnsureIndex(ctx)

	require.NoError(t, err)
	assert.Positive(t, f.embedder.calls())
	assert.Equal(t, 1, f.store.count(), "old chunks must not survive a rebuild")
	assert.Equal(t, 2, f.store.recreates)
	assert.NotEqual(t, oldFingerprint, f.metadata.fingerprint)
}

func TestIndexManager_EnsureIndex_RebuildReasons(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *indexFixture)
	}{
		{
			name: "empty collection with matching fingerprint",
			setup: func(f *indexFixture) {
				f.store.entries = map[string]domain.IndexEntry{}
			},
		},
		{
			name: "health check fails",
			setup: func(f *indexFixture) {
				f.store.healthErr = errors.New("disk error")
			},
		},
		{
			name: "collection dropped",
			setup: func(f *indexFixture) {
				f.store.exists = false
			},
		},
		{
			name: "metadata unreadable",
			setup: func(f *indexFixture) {
				f.metadata.loadErr = errors.New("permission denied")
			},
		},
		{
			name: "embedding model changed",
			setup: func(f *indexFixture) {
				f.embedder.model = "other-model"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
			ctx := context.Background()
			_, err := f.manager.EnsureIndex(ctx)
			require.NoError(t, err)

			tt.setup(f)

			_, err = f.manager.EnsureIndex(ctx)

			require.NoError(t, err)
			assert.Equal(t, 2, f.store.recreates)
		})
	}
}

func TestIndexManager_EnsureIndex_CorpusErrors(t *testing.T) {
	t.Run("empty corpus", func(t *testing.T) {
		f := newIndexFixture(map[string]string{})

		_, err := f.manager.EnsureIndex(context.Background())

		assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
		assert.ErrorIs(t, err, domain.ErrCorpus)
	})

	t.Run("no extractable text", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "   ", "b.txt": ""})

		_, err := f.manager.EnsureIndex(context.Background())

		assert.ErrorIs(t, err, domain.ErrNoExtractableText)
		assert.Equal(t, 0, f.embedder.calls())
		assert.Empty(t, f.metadata.fingerprint)
	})

	t.Run("unreadable document", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "ok", "b.txt": "ok"})
		f.registry.failOn = "b.txt"

		_, err := f.manager.EnsureIndex(context.Background())

		assert.ErrorIs(t, err, domain.ErrCorpusUnreadable)
		assert.Contains(t, err.Error(), "b.txt")
	})

	t.Run("listing failure", func(t *testing.T) {
		f := newIndexFixture(nil)
		f.corpus.listErr = errors.New("permission denied")

		_, err := f.manager.EnsureIndex(context.Background())

		assert.ErrorIs(t, err, domain.ErrCorpusUnreadable)
	})
}

func TestIndexManager_EnsureIndex_ProviderFailureNotMarkedFresh(t *testing.T) {
	t.Run("dimension probe fails", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
		f.embedder.embedErr = errors.New("connection refused")

		_, err := f.manager.EnsureIndex(context.Background())

		assert.ErrorIs(t, err, domain.ErrProvider)
		assert.Equal(t, 0, f.metadata.saves)
		assert.Equal(t, 0, f.metadata.clears)
		assert.Equal(t, 0, f.store.recreates)
	})

	t.Run("batch embedding fails", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
		ctx := context.Background()
		_, err := f.manager.EnsureIndex(ctx)
		require.NoError(t, err)
		previous := f.metadata.fingerprint

		f.corpus.files["a.txt"] = "Changed text."
		f.embedder.batchErr = errors.New("rate limited")

		_, err = f.manager.EnsureIndex(ctx)

		assert.ErrorIs(t, err, domain.ErrProvider)
		assert.Empty(t, f.metadata.fingerprint, "wiped collection must not keep the old fingerprint")

		f.embedder.batchErr = nil
		_, err = f.manager.EnsureIndex(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, previous, f.metadata.fingerprint)
	})

	t.Run("upsert fails", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
		f.store.upsertErr = errors.New("disk full")

		_, err := f.manager.EnsureIndex(context.Background())

		require.Error(t, err)
		assert.Equal(t, 0, f.metadata.saves)
	})

	t.Run("clearing metadata fails", func(t *testing.T) {
		f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
		f.metadata.clearErr = errors.New("read-only file system")

		_, err := f.manager.EnsureIndex(context.Background())

		require.Error(t, err)
		assert.Equal(t, 0, f.store.recreates, "collection must not be wiped")
	})
}

func TestIndexManager_EnsureIndex_PartialRebuildIsRetried(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *indexFixture)
	}{
		{
			name: "empty collection",
			setup: func(f *indexFixture) {
				f.store.entries = map[string]domain.IndexEntry{}
			},
		},
		{
			name: "failed health check",
			setup: func(f *indexFixture) {
				f.store.healthErr = errors.New("database disk image is malformed")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIndexFixture(map[string]string{
				"a.txt": "First paragraph.\n\nSecond paragraph.\n\nThird paragraph.",
			})
			f.manager.SetBatchSize(1)
			ctx := context.Background()
			_, err := f.manager.EnsureIndex(ctx)
			require.NoError(t, err)
			require.Equal(t, 3, f.store.count())

			tt.setup(f)
			f.embedder.failBatchAt = f.embedder.batchCalls + 2

			_, err = f.manager.EnsureIndex(ctx)
			require.ErrorIs(t, err, domain.ErrProvider)
			require.Equal(t, 1, f.store.count(), "rebuild stopped after the first batch")
			assert.Empty(t, f.metadata.fingerprint)

			f.store.healthErr = nil
			f.embedder.failBatchAt = 0
			f.embedder.reset()

			_, err = f.manager.EnsureIndex(ctx)

			require.NoError(t, err)
			assert.Positive(t, f.embedder.calls(), "partial collection must be rebuilt, not reused")
			assert.Equal(t, 3, f.store.count())
			assert.NotEmpty(t, f.metadata.fingerprint)
		})
	}
}

func TestIndexManager_EnsureIndex_CarriesDocumentDetails(t *testing.T) {
	f := newIndexFixture(map[string]string{
		"act.pdf":   "Consent is required.",
		"guide.txt": "Access requests must be answered.",
	})
	f.registry.pages = map[string]int{"act.pdf": 14}

	var logs bytes.Buffer
	logger.SetOutput(&logs)
	logger.SetVerbose(true)
	t.Cleanup(func() {
		logger.SetVerbose(false)
		logger.SetOutput(os.Stderr)
	})

	handle, err := f.manager.EnsureIndex(context.Background())
	require.NoError(t, err)

	hits, err := handle.Search(context.Background(), "consent required", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "act.pdf", hits[0].Source)
	assert.Equal(t, "Title of act.pdf", hits[0].Title)

	assert.Contains(t, logs.String(), `Read act.pdf "Title of act.pdf" (14 pages, 20 characters)`)
	assert.Contains(t, logs.String(), `Read guide.txt "Title of guide.txt" (33 characters)`)
}

func TestIndexManager_EnsureIndex_Batches(t *testing.T) {
	f := newIndexFixture(map[string]string{
		"a.txt": "one\n\ntwo\n\nthree\n\nfour\n\nfive",
	})
	f.manager.SetBatchSize(2)

	_, err := f.manager.EnsureIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, f.store.count())
	assert.Equal(t, 3, f.embedder.batchCalls)
}

func TestIndexManager_EnsureIndex_Concurrent(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.EnsureIndex(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.store.recreates, "only the first caller rebuilds")
	assert.Equal(t, 1, f.metadata.saves)
}

func TestIndexHandle_Search(t *testing.T) {
	f := newIndexFixture(map[string]string{
		"s1": "The data subject may request correction.",
		"s2": "Zebras xylophone quiz.",
	})
	ctx := context.Background()
	handle, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)

	t.Run("closest first", func(t *testing.T) {
		hits, err := handle.Search(ctx, "request correction of data", 2)

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "s1", hits[0].Source)
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	})

	t.Run("k clamped to one", func(t *testing.T) {
		hits, err := handle.Search(ctx, "correction", 0)

		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("embedding failure is a provider error", func(t *testing.T) {
		f.embedder.embedErr = errors.New("timeout")
		defer func() { f.embedder.embedErr = nil }()

		_, err := handle.Search(ctx, "correction", 1)

		assert.ErrorIs(t, err, domain.ErrProvider)
	})
}

func TestIndexManager_OpenExisting(t *testing.T) {
	t.Run("missing collection", func(t *testing.T) {
		f := newIndexFixture(nil)

		_, err := f.manager.OpenExisting(context.Background())

		assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	})

	t.Run("existing collection without reading corpus", func(t *testing.T) {
		f := newIndexFixture(nil)
		f.corpus.listErr = errors.New("must not be called")
		f.store.exists = true
		f.store.entries["x"] = domain.IndexEntry{ID: "x", Vector: letterVector("abc"), Content: "abc", Source: "s"}

		handle, err := f.manager.OpenExisting(context.Background())

		require.NoError(t, err)
		hits, err := handle.Search(context.Background(), "abc", 3)
		require.NoError(t, err)
		assert.Len(t, hits, 1)
		assert.Equal(t, 1, f.embedder.calls(), "only the query is embedded")
	})
}

func TestIndexManager_RestoreReopensStore(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()
	handle, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)
	first := f.store

	restored := newMockVectorStore()
	restored.exists = true
	restored.entries["r"] = domain.IndexEntry{ID: "r", Vector: letterVector("restored"), Content: "restored", Source: "snap"}
	f.store = restored

	err = f.manager.Restore(ctx, []byte("archive"))

	require.NoError(t, err)
	assert.True(t, first.closed, "previous store must be closed")
	assert.Equal(t, []byte("archive"), f.codec.imported)
	assert.Equal(t, 2, f.opens)

	hits, err := handle.Search(ctx, "restored", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "snap", hits[0].Source, "old handle must see the restored store")
}

func TestIndexManager_RestoreImportFailure(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()
	handle, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)
	f.codec.importErr = domain.ErrInvalidInput

	err = f.manager.Restore(ctx, []byte("bad"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 2, f.opens, "store is reopened after a failed import")

	hits, err := handle.Search(ctx, "consent", 1)
	require.NoError(t, err, "existing handles keep working")
	assert.Len(t, hits, 1)
}

func TestIndexManager_Export(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()
	_, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)
	f.codec.exported = []byte("zip")

	archive, err := f.manager.Export(ctx)

	require.NoError(t, err)
	assert.Equal(t, []byte("zip"), archive)
	assert.Equal(t, 2, f.opens, "store is reopened after export")
}

func TestIndexManager_ExportEmpty(t *testing.T) {
	f := newIndexFixture(nil)
	f.codec.exportErr = domain.ErrEmptyStore

	_, err := f.manager.Export(context.Background())

	assert.ErrorIs(t, err, domain.ErrEmptyStore)
}

func TestIndexManager_Status(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "One.\n\nTwo."})
	ctx := context.Background()
	_, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)

	status, err := f.manager.Status(ctx)

	require.NoError(t, err)
	assert.Equal(t, "/index", status.Dir)
	assert.True(t, status.Exists)
	assert.Equal(t, 2, status.Count)
	assert.Equal(t, f.metadata.fingerprint, status.Fingerprint)
}

func TestIndexManager_Close(t *testing.T) {
	f := newIndexFixture(map[string]string{"a.txt": "Consent is required."})
	ctx := context.Background()
	handle, err := f.manager.EnsureIndex(ctx)
	require.NoError(t, err)

	require.NoError(t, f.manager.Close())
	require.NoError(t, f.manager.Close())

	assert.True(t, f.store.closed)
	_, err = handle.Search(ctx, "consent", 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	_, err = f.manager.EnsureIndex(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	assert.ErrorIs(t, f.manager.Restore(ctx, nil), domain.ErrIndexClosed)
}
