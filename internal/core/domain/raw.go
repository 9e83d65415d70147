package domain

// RawDocument represents opaque bytes read from the corpus.
// It is the corpus reader's output before normalisation.
type RawDocument struct {
	// Source is the display name of the file, relative to the corpus root.
	Source string

	// URI is the original location (file path, URL, etc).
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains reader-specific key-value pairs.
	Metadata map[string]any
}
