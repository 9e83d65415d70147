package driven

import "context"

// MetadataStore persists the fingerprint of the corpus the index was last built from.
type MetadataStore interface {
	// LastFingerprint returns the stored fingerprint, or "" when none was written.
	LastFingerprint(ctx context.Context) (string, error)

	// SaveFingerprint records the fingerprint of a completed rebuild.
	SaveFingerprint(ctx context.Context, fingerprint string) error

	// ClearFingerprint forgets the stored fingerprint, so the next check sees
	// no completed rebuild. Clearing an absent fingerprint is not an error.
	ClearFingerprint(ctx context.Context) error
}
