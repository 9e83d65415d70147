// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/openpdpa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/openpdpa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/openpdpa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/openpdpa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/openpdpa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/openpdpa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// defaultBurst is the token bucket burst of every provider client.
const defaultBurst = 1

// Providers holds the AI clients a command needs.
// Fields not required for the purpose they were built for are nil.
type Providers struct {
	Embedding  driven.EmbeddingService
	Generation driven.LLMService
	Moderation driven.LLMService
}

// Close releases all resources held by the providers.
func (p *Providers) Close() {
	if p.Embedding != nil {
		p.Embedding.Close()
	}
	if p.Generation != nil {
		p.Generation.Close()
	}
	if p.Moderation != nil {
		p.Moderation.Close()
	}
}

// NewProviders validates settings for purpose and creates the clients it needs.
// Indexing needs the embedding service; queries add the generation and
// moderation models. Each client gets its own limiter at settings.RateLimit.
func NewProviders(settings domain.Settings, purpose domain.Purpose) (*Providers, error) {
	if err := settings.Validate(purpose); err != nil {
		return nil, err
	}

	p := &Providers{}
	if purpose == domain.PurposeFetch || purpose == domain.PurposeInspect {
		return p, nil
	}

	embedding, err := CreateEmbeddingService(&settings.Embedding, NewLimiter(settings.RateLimit))
	if err != nil {
		return nil, err
	}
	p.Embedding = embedding
	logger.Debug("ai: embedding %s via %s", embedding.ModelName(), settings.Embedding.Provider)

	if purpose != domain.PurposeQuery {
		return p, nil
	}

	if p.Generation, err = CreateLLMService(&settings.Generation, NewLimiter(settings.RateLimit)); err != nil {
		p.Close()
		return nil, err
	}
	if p.Moderation, err = CreateLLMService(&settings.Moderation, NewLimiter(settings.RateLimit)); err != nil {
		p.Close()
		return nil, err
	}
	logger.Debug("ai: generation %s, moderation %s via %s",
		p.Generation.ModelName(), p.Moderation.ModelName(), settings.Generation.Provider)

	return p, nil
}

// NewLimiter returns a limiter for requestsPerSecond, or nil when it is not positive.
func NewLimiter(requestsPerSecond float64) *ratelimit.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return ratelimit.New(requestsPerSecond, defaultBurst)
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider is not configured", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: limiter,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: limiter,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}

// CreateLLMService creates the chat service selected by settings.
func CreateLLMService(settings *domain.LLMSettings, limiter *ratelimit.Limiter) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: LLM provider is not configured", domain.ErrConfiguration)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: limiter,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: limiter,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Limiter: limiter,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfiguration, settings.Provider)
	}
}
