package driven

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// VectorStore persists chunk embeddings in a single named collection
// and answers nearest-neighbour queries against it.
type VectorStore interface {
	// Exists reports whether the collection has been created.
	Exists(ctx context.Context) (bool, error)

	// Recreate drops any existing collection and creates an empty one
	// for vectors of the given dimension.
	Recreate(ctx context.Context, dimension int, metric domain.DistanceMetric) error

	// Upsert inserts entries, replacing any entry with the same ID.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Search returns at most k entries ordered by similarity, closest first.
	// An empty collection yields an empty result. k <= 0 is treated as 1.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredEntry, error)

	// Health performs a cheap inspection of the collection.
	Health(ctx context.Context) (domain.IndexHealth, error)

	// Close releases the underlying storage. The store must not be used afterwards.
	Close() error
}

// VectorStoreOpener opens the vector store rooted at an index directory.
// The index manager reopens the store after a snapshot restore or export.
type VectorStoreOpener func(dir string) (VectorStore, error)
