package driven

import "context"

// EmbeddingService turns chunk and query text into vectors. Ollama and
// OpenAI-compatible endpoints are supported.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the size known for the model, or 0. The index manager
	// probes the provider rather than relying on it.
	Dimensions() int

	// ModelName feeds the corpus fingerprint.
	ModelName() string

	// Ping sends a minimal request to confirm the endpoint works.
	Ping(ctx context.Context) error

	Close() error
}
