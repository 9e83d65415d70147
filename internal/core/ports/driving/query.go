package driving

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// QueryService answers questions about the indexed corpus.
type QueryService interface {
	// Ask runs the moderation, retrieval and generation stages for one query.
	// topK <= 0 selects the configured default.
	// Policy outcomes return a result carrying a sentinel answer, not an error.
	Ask(ctx context.Context, query string, topK int) (domain.QueryResult, error)
}
