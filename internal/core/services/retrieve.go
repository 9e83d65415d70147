package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// RetrieveStage returns the stage that searches the index and builds the context string.
func RetrieveStage(retriever driving.Retriever, defaultTopK int) StageFunc {
	return func(ctx context.Context, state domain.QueryState) (domain.QueryUpdate, error) {
		topK := state.TopK
		if topK == 0 {
			topK = defaultTopK
		}
		topK = max(1, topK)

		hits, err := retriever.Search(ctx, state.Query, topK)
		if err != nil {
			return domain.QueryUpdate{}, fmt.Errorf("search index: %w", err)
		}
		logger.Debug("Retrieved %d passages (top_k=%d)", len(hits), topK)

		text := FormatContext(hits)
		count := len(hits)
		return domain.QueryUpdate{Context: &text, RetrievedCount: &count}, nil
	}
}

// FormatContext renders hits as "[rank] (source) text" blocks separated by blank lines.
// Ranks are 1-based and follow the order of hits.
func FormatContext(hits []domain.ScoredEntry) string {
	blocks := make([]string, len(hits))
	for i, hit := range hits {
		blocks[i] = fmt.Sprintf("[%d] (%s) %s", i+1, hit.Source, hit.Content)
	}
	return strings.Join(blocks, "\n\n")
}
