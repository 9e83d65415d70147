package domain

// Document is a single corpus file after text extraction.
// Content is whitespace-normalised with pages separated by a blank line.
type Document struct {
	// Source is the display name of the file (e.g. "pdpa-2012.pdf").
	// It doubles as the sort key for fingerprinting.
	Source string

	// URI is the original location on disk.
	URI string

	// MIMEType is the content type the document was extracted from.
	MIMEType string

	// Title is a human-readable title taken from the content or file name.
	Title string

	// Content is the full normalised text.
	Content string

	// Metadata carries normaliser-specific details such as page counts.
	// It never takes part in fingerprinting.
	Metadata map[string]any
}

// MetadataPageCount is the Document.Metadata key holding the number of pages
// of a paginated source such as a PDF.
const MetadataPageCount = "page_count"

// PageCount returns the page count recorded by the normaliser, if any.
func (d *Document) PageCount() (int, bool) {
	pages, ok := d.Metadata[MetadataPageCount].(int)
	return pages, ok
}

// Chunk is a bounded passage of a document, the unit of embedding and retrieval.
type Chunk struct {
	// ID is the stable identifier derived from Source and Content.
	// Empty until the identity processor has run.
	ID string

	// Source links the chunk back to its Document.
	Source string

	// Title is the title of the Document the chunk was cut from.
	Title string

	// Content is the passage text.
	Content string

	// Position is the ordinal position within the document.
	Position int
}

// IndexEntry is a chunk as persisted in the vector index.
type IndexEntry struct {
	ID      string
	Vector  []float32
	Content string
	Source  string
	Title   string
}

// ScoredEntry is a single similarity search hit.
type ScoredEntry struct {
	// Content is the chunk text.
	Content string

	// Source is the originating document name.
	Source string

	// Title is the originating document title, empty for older indexes.
	Title string

	// Score is the cosine similarity (higher is closer).
	Score float64
}

// IndexHealth reports what a cheap inspection of the vector index found.
type IndexHealth struct {
	// OK is true when the inspection itself succeeded.
	OK bool

	// Count is the number of stored entries.
	Count int
}

// DistanceMetric selects the similarity function of a collection.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceCosine DistanceMetric = "cosine"
)

// IndexStatus summarises the persisted index without touching the corpus.
type IndexStatus struct {
	// Dir is the index directory.
	Dir string

	// Exists is true when the vector collection has been created.
	Exists bool

	// Count is the number of stored entries.
	Count int

	// Fingerprint is the corpus fingerprint of the last completed rebuild.
	Fingerprint string
}
