package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI or any OpenAI-compatible API (OpenRouter, LM Studio).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if this provider can produce embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name. It is part of the corpus fingerprint.
	Model string

	// BaseURL is the API endpoint (empty = provider default).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() || e.Model == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (empty = provider default).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Model == "" {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings locates the corpus and the persisted index.
type IndexSettings struct {
	// CorpusDir holds the source documents.
	CorpusDir string

	// Dir holds the vector collection and the metadata side-file.
	Dir string
}

// QuerySettings holds query pipeline configuration.
type QuerySettings struct {
	// TopK is the default number of passages retrieved.
	TopK int

	// AssistantName is the persona name used in the generation prompt.
	AssistantName string
}

// SnapshotSettings locates the published index snapshot.
type SnapshotSettings struct {
	// URL is where a prebuilt snapshot archive can be downloaded.
	URL string
}

// Settings holds all application settings.
type Settings struct {
	Embedding  EmbeddingSettings
	Generation LLMSettings
	Moderation LLMSettings
	Index      IndexSettings
	Query      QuerySettings
	Snapshot   SnapshotSettings
	Pipeline   PipelineConfig

	// RateLimit caps requests per second for each provider client (0 = unlimited).
	RateLimit float64
}

// Purpose names the operation a Settings value is validated for.
type Purpose string

// Validation purposes.
const (
	// PurposeIndex needs the embedding provider and directories.
	PurposeIndex Purpose = "index"

	// PurposeQuery additionally needs the generation and moderation models.
	PurposeQuery Purpose = "query"

	// PurposeFetch needs only a snapshot URL and an index directory.
	PurposeFetch Purpose = "fetch"

	// PurposeInspect needs only the index directory.
	PurposeInspect Purpose = "inspect"
)

// Validate reports every missing required setting for the given purpose.
// The returned error wraps ErrConfiguration.
func (s Settings) Validate(purpose Purpose) error {
	var missing []string

	if s.Index.Dir == "" {
		missing = append(missing, "INDEX_DIR")
	}

	switch purpose {
	case PurposeInspect:
	case PurposeFetch:
		if s.Snapshot.URL == "" {
			missing = append(missing, "STORE_URL")
		}
	case PurposeIndex, PurposeQuery:
		missing = append(missing, s.missingEmbedding()...)
		if purpose == PurposeIndex && s.Index.CorpusDir == "" {
			missing = append(missing, "CORPUS_DIR")
		}
		if purpose == PurposeQuery {
			missing = append(missing, missingLLM(s.Generation, "CHAT_MODEL")...)
			missing = append(missing, missingLLM(s.Moderation, "MODERATION_MODEL")...)
		}
	default:
		return fmt.Errorf("%w: unknown purpose %q", ErrConfiguration, purpose)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrConfiguration, strings.Join(dedupe(missing), ", "))
	}
	return nil
}

func (s Settings) missingEmbedding() []string {
	var missing []string
	if s.Embedding.Model == "" {
		missing = append(missing, "EMBEDDING_MODEL")
	}
	if !s.Embedding.Provider.SupportsEmbeddings() {
		missing = append(missing, "EMBEDDING_PROVIDER")
	} else if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		missing = append(missing, "EMBEDDING_API_KEY")
	}
	return missing
}

func missingLLM(l LLMSettings, modelKey string) []string {
	var missing []string
	if l.Model == "" {
		missing = append(missing, modelKey)
	}
	if !l.Provider.IsValid() {
		missing = append(missing, "LLM_PROVIDER")
	} else if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	return missing
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
// The index manager never trusts this table; it probes the provider.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration:
// recursive chunking followed by stable ID assignment.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "identity"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 4000,
				"overlap":    200,
			},
		},
	}
}

// DefaultSettings returns settings with sensible defaults.
// Model identifiers and credentials are left empty; they must come from the environment.
func DefaultSettings() Settings {
	return Settings{
		Embedding:  EmbeddingSettings{Provider: AIProviderOllama},
		Generation: LLMSettings{Provider: AIProviderOpenAI},
		Moderation: LLMSettings{Provider: AIProviderOpenAI},
		Index: IndexSettings{
			CorpusDir: "corpus",
			Dir:       "index",
		},
		Query: QuerySettings{
			TopK:          DefaultTopK,
			AssistantName: "Assistant",
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// ProviderCheck is the outcome of pinging one configured provider.
type ProviderCheck struct {
	// Role is "embedding", "generation" or "moderation".
	Role     string
	Provider AIProvider
	Model    string
	Err      error
}

// OK returns true if the provider answered.
func (c ProviderCheck) OK() bool {
	return c.Err == nil
}
