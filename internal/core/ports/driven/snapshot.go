package driven

import "context"

// SnapshotCodec packs an index directory into a single archive and back.
type SnapshotCodec interface {
	// Export archives every file under dir with paths relative to dir.
	// Returns domain.ErrEmptyStore when dir is missing or holds no files.
	Export(dir string) ([]byte, error)

	// Import replaces the contents of dir with the archive contents.
	// Entries resolving outside dir are rejected with domain.ErrInvalidInput.
	Import(archive []byte, dir string) error
}

// SnapshotFetcher downloads a published snapshot archive.
type SnapshotFetcher interface {
	// Fetch returns the archive bytes found at url.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
