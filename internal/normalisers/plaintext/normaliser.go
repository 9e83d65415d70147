// Package plaintext normalises plain text corpus files. It is the fallback
// for any text/plain file the connector finds.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles text/plain files.
type Normaliser struct{}

// New returns the plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns text/plain only.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// Priority is below every format-specific normaliser.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise collapses whitespace within each line. Invalid UTF-8 sequences
// become U+FFFD.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Source:   raw.Source,
			URI:      raw.URI,
			MIMEType: raw.MIMEType,
			Title:    title(raw),
			Content:  normalisers.CollapseWhitespace(content),
			Metadata: normalisers.DocumentMetadata(raw, "text"),
		},
	}, nil
}

// title prefers a "title" entry set by the reader over the file name.
func title(raw *domain.RawDocument) string {
	if t, ok := raw.Metadata["title"].(string); ok && t != "" {
		return t
	}
	return normalisers.TitleFromURI(raw.URI)
}
