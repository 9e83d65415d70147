package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
	"github.com/custodia-labs/openpdpa/internal/normalisers/markdown"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// boilerplate is removed before conversion.
const boilerplate = "head, script, style, noscript, svg, nav, header, footer, aside, form, iframe"

// Normaliser handles HTML documents.
type Normaliser struct {
	converter *md.Converter
}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{converter: md.NewConverter("", true, nil)}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts the page body to Markdown and then to plain text, so
// headings and paragraphs survive as line and paragraph breaks.
// Navigation, scripts and other page furniture are dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	title := extractTitle(doc, raw.URI)

	body := doc.Find("main").First()
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}
	if body.Length() == 0 {
		body = doc.Selection
	}
	body.Find(boilerplate).Remove()

	content := normalisers.CollapseWhitespace(markdown.Strip(n.converter.Convert(body)))

	metadata := normalisers.DocumentMetadata(raw, "html")

	return &driven.NormaliseResult{
		Document: domain.Document{
			Source:   raw.Source,
			URI:      raw.URI,
			MIMEType: raw.MIMEType,
			Title:    title,
			Content:  content,
			Metadata: metadata,
		},
	}, nil
}

// extractTitle tries <title>, then og:title, then the first <h1>, then the file name.
func extractTitle(doc *goquery.Document, uri string) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}

	return normalisers.TitleFromURI(uri)
}
