package driven

import (
	"context"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// NormaliserRegistry routes each corpus file to a Normaliser by MIME type,
// preferring reader-specific normalisers and then higher priority.
type NormaliserRegistry interface {
	// Normalise fails with domain.ErrUnsupportedType when nothing accepts raw.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	Register(normaliser Normaliser)

	// SupportedMIMETypes is the sorted union over registered normalisers.
	SupportedMIMETypes() []string
}
