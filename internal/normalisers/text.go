package normalisers

import (
	"maps"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// CollapseWhitespace collapses runs of whitespace inside every line to a
// single space and trims the result. Line breaks are kept.
func CollapseWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// JoinPages normalises each page and joins the non-empty ones with a blank line.
func JoinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, page := range pages {
		if page = CollapseWhitespace(page); page != "" {
			kept = append(kept, page)
		}
	}
	return strings.Join(kept, "\n\n")
}

// TitleFromURI derives a title from a file name: the extension is dropped and
// underscores and dashes become spaces.
func TitleFromURI(uri string) string {
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// DocumentMetadata copies the reader metadata of raw and records its MIME
// type and format. raw.Metadata is left untouched.
func DocumentMetadata(raw *domain.RawDocument, format string) map[string]any {
	metadata := make(map[string]any, len(raw.Metadata)+2)
	maps.Copy(metadata, raw.Metadata)
	metadata["mime_type"] = raw.MIMEType
	if format != "" {
		metadata["format"] = format
	}
	return metadata
}
