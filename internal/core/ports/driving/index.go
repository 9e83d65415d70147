package driving

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// IndexService owns the persisted vector index and its lifecycle.
type IndexService interface {
	// EnsureIndex makes the index reflect the current corpus, rebuilding it
	// only when the corpus or embedding model changed or the index is unusable.
	EnsureIndex(ctx context.Context) (Retriever, error)

	// OpenExisting opens the persisted index without reading the corpus.
	// Returns domain.ErrIndexNotFound when no collection exists.
	OpenExisting(ctx context.Context) (Retriever, error)

	// Restore replaces the index directory with a snapshot archive and reopens it.
	Restore(ctx context.Context, archive []byte) error

	// Export packs the index directory into a snapshot archive.
	Export(ctx context.Context) ([]byte, error)

	// Status reports on the persisted index.
	Status(ctx context.Context) (domain.IndexStatus, error)

	// Close releases the vector store.
	Close() error
}

// Retriever answers similarity queries against an open index.
type Retriever interface {
	// Search embeds text and returns at most k closest entries.
	Search(ctx context.Context, text string, k int) ([]domain.ScoredEntry, error)
}
