// Package postprocessors turns normalised documents into identified chunks.
// The default pipeline runs the recursive chunker followed by the identity processor.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline feeds each step the chunks returned by the step before it.
type Pipeline struct {
	steps []driven.PostProcessor
}

// NewPipeline runs steps in the given order.
func NewPipeline(steps ...driven.PostProcessor) *Pipeline {
	return &Pipeline{steps: steps}
}

// Process returns the chunks of the last step, or nil for an empty pipeline.
// A cancelled context stops the pipeline between steps.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := step.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("%s step on %s: %w", step.Name(), doc.Source, err)
		}
		chunks = next
	}
	return chunks, nil
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
