package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings",
	Long: `Shows the settings resolved from the environment, the .env file and
openpdpa.toml, with API keys masked, and reports which commands they are
complete enough for.`,
	Args: cobra.NoArgs,
	RunE: runSettingsShow,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}
	settings := app.Settings()

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Println()

	cmd.Println("[Generation]")
	printProvider(cmd, settings.Generation.Provider, settings.Generation.Model,
		settings.Generation.BaseURL, settings.Generation.APIKey)
	cmd.Println()

	cmd.Println("[Moderation]")
	printProvider(cmd, settings.Moderation.Provider, settings.Moderation.Model,
		settings.Moderation.BaseURL, settings.Moderation.APIKey)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Corpus: %s\n", settings.Index.CorpusDir)
	cmd.Printf("  Directory: %s\n", settings.Index.Dir)
	chunker := settings.Pipeline.GetProcessorConfig("chunker")
	cmd.Printf("  Chunk size: %v, overlap: %v\n", chunker["chunk_size"], chunker["overlap"])
	cmd.Println()

	cmd.Println("[Query]")
	cmd.Printf("  Top K: %d\n", settings.Query.TopK)
	cmd.Printf("  Assistant: %s\n", orNotSet(settings.Query.AssistantName))
	cmd.Printf("  Snapshot URL: %s\n", orNotSet(settings.Snapshot.URL))
	if settings.RateLimit > 0 {
		cmd.Printf("  Rate limit: %g req/s per provider\n", settings.RateLimit)
	}
	cmd.Println()

	for _, purpose := range []domain.Purpose{domain.PurposeIndex, domain.PurposeQuery, domain.PurposeFetch} {
		if err := settings.Validate(purpose); err != nil {
			cmd.Printf("%-6s %v\n", purpose+":", err)
			continue
		}
		cmd.Printf("%-6s ready\n", purpose+":")
	}
	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", orNotSet(model))
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// maskAPIKey masks an API key for display, showing only first and last 4 chars.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
