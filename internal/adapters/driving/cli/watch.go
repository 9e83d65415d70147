package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index whenever the corpus changes",
	Long: `Brings the index up to date, then watches the corpus directory and
re-checks the index after each burst of file changes settles.

A failed rebuild is reported and the watch continues. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	index, err := app.Index(domain.PurposeIndex)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if _, err := index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	changes, err := app.Watcher().Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch corpus: %w", err)
	}
	cmd.Printf("Watching %s\n", app.Settings().Index.CorpusDir)

	for range changes {
		start := time.Now()
		if _, err := index.EnsureIndex(ctx); err != nil {
			logger.Warn("Index refresh failed: %v", err)
			cmd.PrintErrf("Index refresh failed: %v\n", err)
			continue
		}
		cmd.Printf("Index checked (%s)\n", time.Since(start).Round(time.Millisecond))
	}
	return nil
}
