package driven

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// PostProcessor is one step between a normalised document and its chunks.
type PostProcessor interface {
	// Name is the key used in the [postprocessors] configuration.
	Name() string

	// Process receives the chunks of the previous step (nil for the first
	// step) and returns the chunks for the next one.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into its final chunk list.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
