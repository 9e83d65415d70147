// Package docx extracts paragraph text from Word (DOCX) documents.
package docx

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the content type of Word documents.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise joins the text runs of each body paragraph. Paragraphs are
// separated by a blank line; empty paragraphs are dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}
	paragraphs, err := parseParagraphs(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	metadata := normalisers.DocumentMetadata(raw, "docx")
	metadata["paragraph_count"] = len(paragraphs)

	return &driven.NormaliseResult{
		Document: domain.Document{
			Source:   raw.Source,
			URI:      raw.URI,
			MIMEType: raw.MIMEType,
			Title:    extractTitle(reader, raw.URI),
			Content:  normalisers.JoinPages(paragraphs),
			Metadata: metadata,
		},
	}, nil
}

// readPart returns the bytes of the named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []struct {
		Text []struct {
			Content string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"r"`
}

// parseParagraphs returns the text of each non-empty body paragraph.
func parseParagraphs(content []byte) ([]string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range para.Runs {
			for _, text := range run.Text {
				b.WriteString(text.Content)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs, nil
}

// extractTitle reads the title from the core properties, falling back to the file name.
func extractTitle(reader *zip.Reader, uri string) string {
	if content, err := readPart(reader, corePart); err == nil {
		var core struct {
			Title string `xml:"title"`
		}
		if xml.Unmarshal(content, &core) == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	return normalisers.TitleFromURI(uri)
}
