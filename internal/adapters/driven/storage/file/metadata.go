// Package file persists index metadata as a one-line side-file next to the
// vector collection.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// FileName is the metadata file inside the index directory.
const FileName = "metadata"

var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore reads and writes the fingerprint of the last completed
// rebuild. The file holds the fingerprint followed by a newline.
type MetadataStore struct {
	mu       sync.Mutex
	filePath string
}

// NewMetadataStore creates a store for the metadata file in indexDir.
// Nothing is read or written until first use.
func NewMetadataStore(indexDir string) *MetadataStore {
	return &MetadataStore{filePath: filepath.Join(indexDir, FileName)}
}

// LastFingerprint returns the stored fingerprint, or "" when the file is
// absent. Surrounding whitespace is ignored.
func (s *MetadataStore) LastFingerprint(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read metadata: %w", err)
	}

	fp := strings.TrimSpace(string(data))
	if strings.ContainsAny(fp, " \t\r\n") {
		return "", fmt.Errorf("parse metadata %s: expected a single fingerprint", s.filePath)
	}
	return fp, nil
}

// SaveFingerprint atomically replaces the metadata file.
func (s *MetadataStore) SaveFingerprint(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(fingerprint + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ClearFingerprint removes the metadata file.
func (s *MetadataStore) ClearFingerprint(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear metadata: %w", err)
	}
	return nil
}

// Path returns the metadata file path.
func (s *MetadataStore) Path() string {
	return s.filePath
}
