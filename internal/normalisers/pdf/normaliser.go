// Package pdf extracts text from PDF documents with poppler's pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// maxTitleLength bounds the first line accepted as a title.
const maxTitleLength = 200

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
// The PATH lookup for pdftotext is skipped.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext from poppler.
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every page. Each line has its whitespace
// collapsed, empty pages are dropped and pages are joined by a blank line.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if _, system := n.runner.(execRunner); system {
		if err := CheckAvailable(); err != nil {
			return nil, fmt.Errorf("%w\n%s", err, InstallInstructions())
		}
	}

	tmp, err := os.CreateTemp("", "openpdpa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed for %s: %w", raw.URI, err)
	}

	content := normalisePages(string(out))

	metadata := normalisers.DocumentMetadata(raw, "pdf")
	if pages, err := pageCount(raw.Content); err != nil {
		logger.Debug("pdf: page count unavailable for %s: %v", raw.URI, err)
	} else {
		metadata[domain.MetadataPageCount] = pages
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Source:   raw.Source,
			URI:      raw.URI,
			MIMEType: raw.MIMEType,
			Title:    extractTitle(content, raw.URI),
			Content:  content,
			Metadata: metadata,
		},
	}, nil
}

// normalisePages splits pdftotext output on form feeds and normalises each page.
func normalisePages(text string) string {
	return normalisers.JoinPages(strings.Split(text, "\f"))
}

// pageCount parses the document structure without extracting text.
func pageCount(content []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// extractTitle returns the first short non-empty line, falling back to the file name.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\x00"))
		if line == "" || len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return normalisers.TitleFromURI(uri)
}
