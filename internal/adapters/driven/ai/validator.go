package ai

import (
	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations by pinging them.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

// CheckAll pings the embedding, generation and moderation providers in turn.
// Unconfigured roles are skipped.
func (v *ConfigValidator) CheckAll(settings domain.Settings) []domain.ProviderCheck {
	var results []domain.ProviderCheck

	if settings.Embedding.IsConfigured() {
		results = append(results, domain.ProviderCheck{
			Role:     "embedding",
			Provider: settings.Embedding.Provider,
			Model:    settings.Embedding.Model,
			Err:      v.ValidateEmbedding(&settings.Embedding),
		})
	}

	for _, llm := range []struct {
		role     string
		settings domain.LLMSettings
	}{
		{"generation", settings.Generation},
		{"moderation", settings.Moderation},
	} {
		if !llm.settings.IsConfigured() {
			continue
		}
		results = append(results, domain.ProviderCheck{
			Role:     llm.role,
			Provider: llm.settings.Provider,
			Model:    llm.settings.Model,
			Err:      v.ValidateLLM(&llm.settings),
		})
	}

	return results
}
