// Package snapshot archives an index directory as a deflate zip and
// downloads published archives.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// DefaultFileName is the conventional name of a published snapshot.
const DefaultFileName = "store.zip"

// Ensure Codec implements the interface.
var _ driven.SnapshotCodec = (*Codec)(nil)

// Codec converts between an index directory and a zip archive.
type Codec struct{}

// NewCodec creates a snapshot codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Export archives every regular file under dir. Entry names are
// slash-separated paths relative to dir, in lexical order.
func (c *Codec) Export(dir string) ([]byte, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", domain.ErrEmptyStore, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := 0

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if err := addFile(zw, p, filepath.ToSlash(rel)); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		zw.Close()
		return nil, fmt.Errorf("archive %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if files == 0 {
		return nil, fmt.Errorf("%w: no files in %s", domain.ErrEmptyStore, dir)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Import removes every child of dir and extracts the archive into it.
// All entry names are validated before anything is removed.
func (c *Codec) Import(archive []byte, dir string) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("%w: not a zip archive: %w", domain.ErrInvalidInput, err)
	}
	for _, f := range zr.File {
		if err := validateName(f.Name); err != nil {
			return err
		}
		if f.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("%w: symlink entry %q", domain.ErrInvalidInput, f.Name)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := clearDir(dir); err != nil {
		return err
	}

	for _, f := range zr.File {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

// validateName rejects entry names that would resolve outside the target directory.
func validateName(name string) error {
	if name == "" || strings.Contains(name, "\\") || path.IsAbs(name) || filepath.IsAbs(name) {
		return fmt.Errorf("%w: unsafe archive entry %q", domain.ErrInvalidInput, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return fmt.Errorf("%w: archive entry %q escapes target directory", domain.ErrInvalidInput, name)
	}
	return nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
