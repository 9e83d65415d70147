package driven

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// Normaliser extracts plain text from one family of corpus files.
type Normaliser interface {
	// SupportedMIMETypes lists the content types accepted.
	SupportedMIMETypes() []string

	// Priority breaks ties between normalisers accepting the same type.
	// Format normalisers use 50, fallbacks below 10.
	Priority() int

	// Normalise turns raw bytes into a Document with Content and Title set.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult wraps the extracted document. Chunks are produced later
// by the post-processor pipeline.
type NormaliseResult struct {
	Document domain.Document
}
