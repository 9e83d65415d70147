package driven

import "github.com/custodia-labs/openpdpa/internal/core/domain"

// AIConfigValidator pings the configured providers. It backs the check
// command and the readiness report.
type AIConfigValidator interface {
	// ValidateEmbedding returns nil when config is nil or the provider answers.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM returns nil when config is nil or the provider answers.
	ValidateLLM(config *domain.LLMSettings) error

	// CheckAll reports embedding, generation and moderation in that order,
	// skipping roles without a model.
	CheckAll(settings domain.Settings) []domain.ProviderCheck
}
