package driven

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// CorpusReader lists the raw source documents of the corpus.
// Each document is later turned into text by the NormaliserRegistry.
type CorpusReader interface {
	// ListDocuments returns every supported document, ordered by source name.
	// A document that cannot be read fails the whole listing.
	ListDocuments(ctx context.Context) ([]domain.RawDocument, error)

	// Root returns the corpus location, for logging and watching.
	Root() string
}

// CorpusWatcher signals when the corpus may have changed.
type CorpusWatcher interface {
	// Watch emits after a burst of relevant file changes has settled.
	// The channel closes when ctx is cancelled or the watcher is closed.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases the underlying watcher. Safe to call more than once.
	Close() error
}
