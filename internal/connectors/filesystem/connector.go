// Package filesystem reads the corpus from a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// DefaultDebounce is how long Watch waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Ensure Connector implements the interfaces.
var (
	_ driven.CorpusReader  = (*Connector)(nil)
	_ driven.CorpusWatcher = (*Connector)(nil)
)

// Connector lists corpus files under a root directory.
type Connector struct {
	rootPath  string
	mimeTypes []string
	debounce  time.Duration

	mu      sync.Mutex
	closed  bool
	cancels []context.CancelFunc
}

// Option configures a Connector.
type Option func(*Connector)

// WithMIMETypes restricts listing to files of the given MIME types.
// Without it every regular file is listed.
func WithMIMETypes(types ...string) Option {
	return func(c *Connector) {
		c.mimeTypes = types
	}
}

// WithDebounce sets the quiet period Watch waits for before signalling.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// New creates a connector rooted at rootPath.
// The path is checked when documents are listed, not here.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{rootPath: rootPath, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the corpus directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// ListDocuments reads every supported, non-hidden file below the root.
// Sources are slash-separated paths relative to the root, sorted.
func (c *Connector) ListDocuments(ctx context.Context) ([]domain.RawDocument, error) {
	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: directory %s does not exist", domain.ErrEmptyCorpus, c.rootPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusUnreadable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrCorpusUnreadable, c.rootPath)
	}

	var docs []domain.RawDocument
	err = filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(c.rootPath, path)
		if err != nil {
			return err
		}
		if rel != "." && isHidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		mimeType := detectMIMEType(path)
		if !c.accepts(mimeType) {
			logger.Debug("Skipping %s (%s)", rel, mimeType)
			return nil
		}

		doc, err := c.readDocument(path, filepath.ToSlash(rel), mimeType)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCorpusUnreadable, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

func (c *Connector) readDocument(path, source, mimeType string) (domain.RawDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, err
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return domain.RawDocument{
		Source:   source,
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			"filename":  filepath.Base(path),
			"extension": strings.ToLower(ext),
			"size":      len(content),
		},
	}, nil
}

func (c *Connector) accepts(mimeType string) bool {
	return len(c.mimeTypes) == 0 || slices.Contains(c.mimeTypes, mimeType)
}

// Close stops any running watchers. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	return nil
}

// fallbackTypes covers extensions the platform MIME table often lacks.
var fallbackTypes = map[string]string{
	"":          "text/plain",
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
	".html":     "text/html",
	".htm":      "text/html",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// detectMIMEType returns the MIME type for a file name, without parameters.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := fallbackTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.Index(t, ";"); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	return "application/octet-stream"
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
