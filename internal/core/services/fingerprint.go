package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// fieldSeparator separates a document's source name from its text in the hash input.
const fieldSeparator = 0x1f

// Fingerprint derives a deterministic hash over the embedding model and the corpus.
// Documents are hashed in lexicographic source order, so the result does not
// depend on the order the caller passes them in. Any change to a source name,
// a document text or the model produces a different fingerprint.
func Fingerprint(docs []domain.Document, embeddingModel string) string {
	sorted := make([]domain.Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Source < sorted[j].Source
	})

	h := sha256.New()
	h.Write([]byte(embeddingModel))
	for _, doc := range sorted {
		h.Write([]byte(doc.Source))
		h.Write([]byte{fieldSeparator})
		h.Write([]byte(doc.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
