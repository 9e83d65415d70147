// Package chunker provides a recursive character text splitter.
//
// Text is split on the first separator that occurs in it, paragraph breaks
// before line breaks before spaces before single characters. Pieces shorter
// than the chunk size are merged back greedily with overlap; longer pieces
// are split again with the next separator.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 4000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order. The empty separator splits into characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators sets the separators tried in order.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = separators
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Chunk IDs are left empty for the identity processor.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	texts := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			Source:   doc.Source,
			Title:    doc.Title,
			Content:  text,
			Position: i,
		})
	}
	return chunks, nil
}

// Split returns the chunk texts of text. Every chunk is trimmed and non-empty.
func (p *Processor) Split(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			remaining = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if length(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, p.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, p.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, p.merge(good)...)
	}
	return chunks
}

// merge joins consecutive pieces into chunks no longer than chunkSize where
// possible, carrying up to overlap characters of trailing pieces into the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var chunks, window []string
	total := 0

	for _, piece := range pieces {
		n := length(piece)
		if total+n > p.chunkSize && len(window) > 0 {
			if chunk := join(window); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= length(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}

	if chunk := join(window); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitKeepingSeparator splits text on separator, attaching each separator to
// the start of the piece that follows it. Empty pieces are dropped.
// The empty separator splits into single characters.
func splitKeepingSeparator(text, separator string) []string {
	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, separator)
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, separator+part)
	}
	return pieces
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
