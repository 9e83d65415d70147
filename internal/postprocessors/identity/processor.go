// Package identity assigns content-derived IDs to chunks.
package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// separator joins source and text in the ID name so that boundary shifts
// between the two produce different IDs.
const separator = "\x1f"

// Processor sets every chunk ID to a UUIDv5 of its source and content.
// It implements the PostProcessor interface.
type Processor struct {
	namespace uuid.UUID
}

// New creates an identity processor using the URL namespace.
func New() *Processor {
	return &Processor{namespace: uuid.NameSpaceURL}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "identity"
}

// Process assigns IDs in place and returns the chunks.
// Chunks without a source inherit the document's source first.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if chunks[i].Source == "" {
			chunks[i].Source = doc.Source
		}
		chunks[i].ID = p.ID(chunks[i].Source, chunks[i].Content)
	}
	return chunks, nil
}

// ID returns the stable ID for a passage of text from source.
// Equal inputs always produce equal IDs.
func (p *Processor) ID(source, text string) string {
	return uuid.NewSHA1(p.namespace, []byte(source+separator+text)).String()
}
