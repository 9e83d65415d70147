package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the vector index",
	Long: `Reads the corpus directory, and rebuilds the vector index when the corpus
or the embedding model changed since the last build. An up-to-date index is
left untouched.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	index, err := app.Index(domain.PurposeIndex)
	if err != nil {
		return err
	}

	start := time.Now()
	if _, err := index.EnsureIndex(cmd.Context()); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	status, err := index.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	cmd.Printf("Index ready: %d chunks in %s (%s)\n",
		status.Count, status.Dir, time.Since(start).Round(time.Millisecond))
	return nil
}
