// Package env builds application settings from the environment.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (domain.DefaultSettings)
//  2. the optional TOML tuning file (openpdpa.toml)
//  3. a .env file in the working directory
//  4. the process environment
//
// Secrets and model identifiers only come from the environment layers.
package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/openpdpa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// Environment keys.
const (
	KeyEmbeddingModel    = "EMBEDDING_MODEL"
	KeyEmbeddingProvider = "EMBEDDING_PROVIDER"
	KeyEmbeddingBaseURL  = "EMBEDDING_BASE_URL"
	KeyEmbeddingAPIKey   = "EMBEDDING_API_KEY"
	KeyChatModel         = "CHAT_MODEL"
	KeyModerationModel   = "MODERATION_MODEL"
	KeyLLMProvider       = "LLM_PROVIDER"
	KeyLLMAPIKey         = "OPENROUTER_API_KEY"
	KeyLLMBaseURL        = "OPENROUTER_BASE_URL"
	KeyAssistantName     = "ASSISTANT_NAME"
	KeyTopK              = "TOP_K"
	KeyStoreURL          = "STORE_URL"
	KeyIndexDir          = "INDEX_DIR"
	KeyCorpusDir         = "CORPUS_DIR"
	KeyChunkSize         = "CHUNK_SIZE"
	KeyChunkOverlap      = "CHUNK_OVERLAP"
	KeyRateLimit         = "PROVIDER_RATE_LIMIT"
)

// aliases lists alternative names accepted for a key, tried after the key itself.
var aliases = map[string][]string{
	KeyLLMAPIKey:     {"LLM_API_KEY"},
	KeyLLMBaseURL:    {"LLM_BASE_URL"},
	KeyAssistantName: {"NEXT_PUBLIC_MODEL_NAME"},
}

// DefaultLLMBaseURL is used for the OpenAI-compatible chat provider when no base URL is set.
const DefaultLLMBaseURL = "https://openrouter.ai/api/v1"

// DefaultDotEnv is the dotenv file read from the working directory.
const DefaultDotEnv = ".env"

// Options configures Load.
type Options struct {
	// DotEnvPath is the dotenv file (default: .env). A missing file is ignored.
	DotEnvPath string

	// Config is the TOML tuning store. Nil skips the file layer.
	Config driven.ConfigStore

	// LookupEnv reads the process environment (default: os.LookupEnv).
	LookupEnv func(key string) (string, bool)
}

// LoadDefault reads ./openpdpa.toml, ./.env and the process environment.
func LoadDefault() (domain.Settings, error) {
	store, err := file.NewConfigStore("")
	if err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return Load(Options{Config: store})
}

// Load builds settings from all layers. It does not validate them;
// callers run Settings.Validate for the operation they are about to perform.
// Malformed numbers fail with ErrConfiguration.
func Load(opts Options) (domain.Settings, error) {
	settings := domain.DefaultSettings()

	if opts.Config != nil {
		applyConfig(&settings, opts.Config)
	}

	lookup, err := newLookup(opts)
	if err != nil {
		return domain.Settings{}, err
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative integer, got %q", key, v))
			return
		}
		*dst = n
	}

	var embeddingProvider, llmProvider string
	str(KeyEmbeddingProvider, &embeddingProvider)
	str(KeyLLMProvider, &llmProvider)
	if embeddingProvider != "" {
		settings.Embedding.Provider = domain.AIProvider(strings.ToLower(embeddingProvider))
	}
	if llmProvider != "" {
		settings.Generation.Provider = domain.AIProvider(strings.ToLower(llmProvider))
		settings.Moderation.Provider = settings.Generation.Provider
	}

	str(KeyEmbeddingModel, &settings.Embedding.Model)
	str(KeyEmbeddingBaseURL, &settings.Embedding.BaseURL)
	str(KeyEmbeddingAPIKey, &settings.Embedding.APIKey)

	str(KeyChatModel, &settings.Generation.Model)
	str(KeyModerationModel, &settings.Moderation.Model)

	var apiKey, baseURL string
	str(KeyLLMAPIKey, &apiKey)
	str(KeyLLMBaseURL, &baseURL)
	if baseURL == "" && settings.Generation.Provider == domain.AIProviderOpenAI {
		baseURL = DefaultLLMBaseURL
	}
	for _, llm := range []*domain.LLMSettings{&settings.Generation, &settings.Moderation} {
		llm.APIKey = apiKey
		llm.BaseURL = baseURL
	}

	str(KeyAssistantName, &settings.Query.AssistantName)
	num(KeyTopK, &settings.Query.TopK)
	str(KeyStoreURL, &settings.Snapshot.URL)
	str(KeyIndexDir, &settings.Index.Dir)
	str(KeyCorpusDir, &settings.Index.CorpusDir)

	chunker := settings.Pipeline.GetProcessorConfig("chunker")
	size, overlap := intValue(chunker["chunk_size"]), intValue(chunker["overlap"])
	num(KeyChunkSize, &size)
	num(KeyChunkOverlap, &overlap)
	setChunker(&settings, size, overlap)

	if v, ok := lookup(KeyRateLimit); ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative number, got %q", KeyRateLimit, v))
		} else {
			settings.RateLimit = rate
		}
	}

	if settings.Query.TopK == 0 {
		settings.Query.TopK = domain.DefaultTopK
	}

	if len(errs) > 0 {
		return domain.Settings{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	logger.Debug("config: embedding=%s/%s chat=%s moderation=%s index=%s corpus=%s",
		settings.Embedding.Provider, settings.Embedding.Model,
		settings.Generation.Model, settings.Moderation.Model,
		settings.Index.Dir, settings.Index.CorpusDir)

	return settings, nil
}

// newLookup returns a lookup that prefers the process environment, then the
// dotenv file, trying each key's aliases in turn. Empty values count as unset.
func newLookup(opts Options) (func(string) (string, bool), error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	path := opts.DotEnvPath
	if path == "" {
		path = DefaultDotEnv
	}
	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
		}
		dotenv = nil
	} else {
		logger.Debug("config: loaded %d values from %s", len(dotenv), path)
	}

	one := func(key string) (string, bool) {
		if v, ok := lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		if v, ok := dotenv[key]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
		return "", false
	}

	return func(key string) (string, bool) {
		for _, k := range append([]string{key}, aliases[key]...) {
			if v, ok := one(k); ok {
				return v, true
			}
		}
		return "", false
	}, nil
}

// applyConfig copies the non-secret tuning keys of the TOML file.
func applyConfig(s *domain.Settings, cfg driven.ConfigStore) {
	if v := cfg.GetString("index.dir"); v != "" {
		s.Index.Dir = v
	}
	if v := cfg.GetString("corpus.dir"); v != "" {
		s.Index.CorpusDir = v
	}
	if v := cfg.GetInt("query.top_k"); v > 0 {
		s.Query.TopK = v
	}
	if v := cfg.GetString("query.assistant_name"); v != "" {
		s.Query.AssistantName = v
	}
	if v := cfg.GetString("snapshot.url"); v != "" {
		s.Snapshot.URL = v
	}
	if v := cfg.GetFloat("providers.rate_limit"); v > 0 {
		s.RateLimit = v
	}

	chunker := s.Pipeline.GetProcessorConfig("chunker")
	size, overlap := intValue(chunker["chunk_size"]), intValue(chunker["overlap"])
	if v := cfg.GetInt("chunker.chunk_size"); v > 0 {
		size = v
	}
	if _, ok := cfg.Get("chunker.overlap"); ok {
		overlap = cfg.GetInt("chunker.overlap")
	}
	setChunker(s, size, overlap)
}

func setChunker(s *domain.Settings, size, overlap int) {
	if s.Pipeline.ProcessorConfigs == nil {
		s.Pipeline.ProcessorConfigs = make(map[string]map[string]any)
	}
	s.Pipeline.ProcessorConfigs["chunker"] = map[string]any{
		"chunk_size": size,
		"overlap":    overlap,
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
