package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/openpdpa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func noDotEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func chunkerConfig(s domain.Settings) (int, int) {
	cfg := s.Pipeline.GetProcessorConfig("chunker")
	return cfg["chunk_size"].(int), cfg["overlap"].(int)
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(Options{DotEnvPath: noDotEnv(t), LookupEnv: lookupFrom(nil)})

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, s.Embedding.Provider)
	assert.Equal(t, domain.AIProviderOpenAI, s.Generation.Provider)
	assert.Equal(t, DefaultLLMBaseURL, s.Generation.BaseURL)
	assert.Equal(t, DefaultLLMBaseURL, s.Moderation.BaseURL)
	assert.Equal(t, domain.DefaultTopK, s.Query.TopK)
	assert.Equal(t, "index", s.Index.Dir)
	assert.Equal(t, "corpus", s.Index.CorpusDir)

	size, overlap := chunkerConfig(s)
	assert.Equal(t, 4000, size)
	assert.Equal(t, 200, overlap)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	env := map[string]string{
		KeyEmbeddingProvider: "OpenAI",
		KeyEmbeddingModel:    "text-embedding-3-small",
		KeyEmbeddingAPIKey:   "emb-key",
		KeyChatModel:         "openai/gpt-4o",
		KeyModerationModel:   "openai/gpt-4o-mini",
		KeyLLMAPIKey:         "or-key",
		KeyAssistantName:     "Pip",
		KeyTopK:              "7",
		KeyStoreURL:          "https://example.com/store.zip",
		KeyIndexDir:          "/srv/index",
		KeyCorpusDir:         "/srv/corpus",
		KeyChunkSize:         "1000",
		KeyChunkOverlap:      "50",
		KeyRateLimit:         "1.5",
	}

	s, err := Load(Options{DotEnvPath: noDotEnv(t), LookupEnv: lookupFrom(env)})

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, s.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", s.Embedding.Model)
	assert.Equal(t, "emb-key", s.Embedding.APIKey)
	assert.Equal(t, "openai/gpt-4o", s.Generation.Model)
	assert.Equal(t, "openai/gpt-4o-mini", s.Moderation.Model)
	assert.Equal(t, "or-key", s.Generation.APIKey)
	assert.Equal(t, "or-key", s.Moderation.APIKey)
	assert.Equal(t, "Pip", s.Query.AssistantName)
	assert.Equal(t, 7, s.Query.TopK)
	assert.Equal(t, "https://example.com/store.zip", s.Snapshot.URL)
	assert.Equal(t, "/srv/index", s.Index.Dir)
	assert.Equal(t, "/srv/corpus", s.Index.CorpusDir)
	assert.Equal(t, 1.5, s.RateLimit)

	size, overlap := chunkerConfig(s)
	assert.Equal(t, 1000, size)
	assert.Equal(t, 50, overlap)

	assert.NoError(t, s.Validate(domain.PurposeQuery))
}

func TestLoad_Aliases(t *testing.T) {
	env := map[string]string{
		"LLM_API_KEY":            "alias-key",
		"LLM_BASE_URL":           "http://localhost:1234/v1",
		"NEXT_PUBLIC_MODEL_NAME": "Alias",
	}

	s, err := Load(Options{DotEnvPath: noDotEnv(t), LookupEnv: lookupFrom(env)})

	require.NoError(t, err)
	assert.Equal(t, "alias-key", s.Generation.APIKey)
	assert.Equal(t, "http://localhost:1234/v1", s.Generation.BaseURL)
	assert.Equal(t, "Alias", s.Query.AssistantName)
}

func TestLoad_PrimaryKeyBeatsAlias(t *testing.T) {
	env := map[string]string{
		KeyLLMAPIKey:  "primary",
		"LLM_API_KEY": "alias",
	}

	s, err := Load(Options{DotEnvPath: noDotEnv(t), LookupEnv: lookupFrom(env)})

	require.NoError(t, err)
	assert.Equal(t, "primary", s.Generation.APIKey)
}

func TestLoad_NoDefaultBaseURLForOtherProviders(t *testing.T) {
	env := map[string]string{KeyLLMProvider: "anthropic"}

	s, err := Load(Options{DotEnvPath: noDotEnv(t), LookupEnv: lookupFrom(env)})

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, s.Generation.Provider)
	assert.Equal(t, domain.AIProviderAnthropic, s.Moderation.Provider)
	assert.Empty(t, s.Generation.BaseURL)
}

func TestLoad_DotEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", `
# models
CHAT_MODEL=from-dotenv
MODERATION_MODEL="quoted model"
TOP_K=3
`)

	s, err := Load(Options{
		DotEnvPath: dotenv,
		LookupEnv:  lookupFrom(map[string]string{KeyTopK: "9"}),
	})

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.Generation.Model)
	assert.Equal(t, "quoted model", s.Moderation.Model)
	assert.Equal(t, 9, s.Query.TopK, "process environment wins over .env")
}

func TestLoad_EmptyEnvironmentValueFallsThrough(t *testing.T) {
	dotenv := writeFile(t, ".env", "CHAT_MODEL=from-dotenv\n")

	s, err := Load(Options{
		DotEnvPath: dotenv,
		LookupEnv:  lookupFrom(map[string]string{KeyChatModel: "  "}),
	})

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", s.Generation.Model)
}

func TestLoad_ConfigFileLayer(t *testing.T) {
	path := writeFile(t, file.DefaultConfigFile, `
[index]
dir = "toml-index"

[corpus]
dir = "toml-corpus"

[chunker]
chunk_size = 2500
overlap = 0

[query]
top_k = 4
assistant_name = "Toml"

[snapshot]
url = "https://example.com/toml.zip"

[providers]
rate_limit = 2
`)
	store, err := file.NewConfigStore(path)
	require.NoError(t, err)

	s, err := Load(Options{
		DotEnvPath: noDotEnv(t),
		Config:     store,
		LookupEnv:  lookupFrom(map[string]string{KeyIndexDir: "env-index"}),
	})

	require.NoError(t, err)
	assert.Equal(t, "env-index", s.Index.Dir, "environment wins over the config file")
	assert.Equal(t, "toml-corpus", s.Index.CorpusDir)
	assert.Equal(t, 4, s.Query.TopK)
	assert.Equal(t, "Toml", s.Query.AssistantName)
	assert.Equal(t, "https://example.com/toml.zip", s.Snapshot.URL)
	assert.Equal(t, 2.0, s.RateLimit)

	size, overlap := chunkerConfig(s)
	assert.Equal(t, 2500, size)
	assert.Equal(t, 0, overlap)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "top k not a number", key: KeyTopK, val: "many"},
		{name: "negative chunk size", key: KeyChunkSize, val: "-1"},
		{name: "overlap float", key: KeyChunkOverlap, val: "1.5"},
		{name: "rate limit not a number", key: KeyRateLimit, val: "fast"},
		{name: "negative rate limit", key: KeyRateLimit, val: "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Options{
				DotEnvPath: noDotEnv(t),
				LookupEnv:  lookupFrom(map[string]string{tt.key: tt.val}),
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_UnreadableDotEnv(t *testing.T) {
	// a directory where the file should be
	_, err := Load(Options{DotEnvPath: t.TempDir(), LookupEnv: lookupFrom(nil)})

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLoadDefault_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHAT_MODEL=wd-model\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file.DefaultConfigFile), []byte("[query]\ntop_k = 6\n"), 0600))
	t.Setenv(KeyChatModel, "")
	t.Setenv(KeyTopK, "")

	s, err := LoadDefault()

	require.NoError(t, err)
	assert.Equal(t, "wd-model", s.Generation.Model)
	assert.Equal(t, 6, s.Query.TopK)
}
