// Package markdown normalises Markdown corpus files to plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise strips Markdown syntax and collapses whitespace within lines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := string(raw.Content)

	metadata := normalisers.DocumentMetadata(raw, "markdown")

	return &driven.NormaliseResult{
		Document: domain.Document{
			Source:   raw.Source,
			URI:      raw.URI,
			MIMEType: raw.MIMEType,
			Title:    extractMarkdownTitle(raw.Content, raw.URI),
			Content:  normalisers.CollapseWhitespace(Strip(text)),
			Metadata: metadata,
		},
	}, nil
}

// extractMarkdownTitle returns the first level-one heading, ATX or setext,
// or a title built from the file name.
func extractMarkdownTitle(source []byte, uri string) string {
	if title := firstHeading(source); title != "" {
		return title
	}

	return normalisers.TitleFromURI(uri)
}

func firstHeading(source []byte) string {
	root := goldmark.DefaultParser().Parse(gmtext.NewReader(source))

	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !entering || !ok || heading.Level != 1 {
			return ast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(heading, source))
		if title == "" {
			return ast.WalkContinue, nil
		}
		return ast.WalkStop, nil
	})
	return title
}

// inlineText concatenates the text segments below n, emphasis and code spans included.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

// rewrites run in order. Code and rules go before emphasis markers.
var rewrites = []rewrite{
	{regexp.MustCompile("(?s)```[^`]*```"), ""},
	{regexp.MustCompile("`[^`]+`"), ""},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},
	{regexp.MustCompile(`\*\*|__|\*`), ""},
	{regexp.MustCompile(`(?m)^>\s*`), ""},
	{regexp.MustCompile(`(?m)^\s*[-+]\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// Strip removes common Markdown formatting, keeping paragraph breaks.
func Strip(content string) string {
	for _, r := range rewrites {
		content = r.pattern.ReplaceAllString(content, r.replacement)
	}
	return strings.TrimSpace(content)
}
