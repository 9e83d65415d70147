package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the persisted index",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ping the configured model providers",
	Long: `Sends a minimal request to every configured embedding and chat provider
and reports which ones answered. Exits non-zero if any provider failed.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	index, err := app.Index(domain.PurposeInspect)
	if err != nil {
		return err
	}
	status, err := index.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	settings := app.Settings()
	cmd.Printf("Index:       %s\n", status.Dir)
	cmd.Printf("Corpus:      %s\n", settings.Index.CorpusDir)
	if !status.Exists {
		cmd.Println("Collection:  not built")
		return nil
	}
	cmd.Printf("Collection:  %d entries\n", status.Count)
	fingerprint := status.Fingerprint
	if fingerprint == "" {
		fingerprint = "(none)"
	}
	cmd.Printf("Fingerprint: %s\n", fingerprint)
	return nil
}

func runCheck(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	checks := app.CheckProviders()
	if len(checks) == 0 {
		cmd.Println("No providers configured.")
		return nil
	}

	failed := 0
	for _, check := range checks {
		if check.OK() {
			cmd.Printf("  ok    %-10s %s/%s\n", check.Role, check.Provider, check.Model)
			continue
		}
		failed++
		cmd.Printf("  FAIL  %-10s %s/%s: %v\n", check.Role, check.Provider, check.Model, check.Err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(checks))
	}
	return nil
}
