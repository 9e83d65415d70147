package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// defaultSnapshotFile is the archive name written by snapshot export.
const defaultSnapshotFile = "store.zip"

var (
	snapshotOutput string
	snapshotBuild  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export, import and fetch index snapshots",
	Long: `A snapshot is a zip archive of the index directory. Importing one replaces
the local index wholesale; the corpus is not read.`,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the index directory to a zip archive",
	Long: `Writes the index directory to a zip archive.

With --build the index is first brought up to date with the corpus.`,
	Args: cobra.NoArgs,
	RunE: runSnapshotExport,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the index with a local snapshot archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotImport,
}

var snapshotFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Replace the index with the snapshot published at STORE_URL",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotFetch,
}

func init() {
	snapshotExportCmd.Flags().StringVarP(&snapshotOutput, "output", "o", defaultSnapshotFile, "archive path")
	snapshotExportCmd.Flags().BoolVar(&snapshotBuild, "build", false, "refresh the index from the corpus first")
	snapshotCmd.AddCommand(snapshotExportCmd)
	snapshotCmd.AddCommand(snapshotImportCmd)
	snapshotCmd.AddCommand(snapshotFetchCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotExport(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	purpose := domain.PurposeInspect
	if snapshotBuild {
		purpose = domain.PurposeIndex
	}
	index, err := app.Index(purpose)
	if err != nil {
		return err
	}

	if snapshotBuild {
		cmd.Println("Building index...")
		if _, err := index.EnsureIndex(cmd.Context()); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
	}

	cmd.Println("Packing index...")
	archive, err := index.Export(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err := os.WriteFile(snapshotOutput, archive, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", snapshotOutput, err)
	}
	cmd.Printf("Wrote %s (%d bytes)\n", snapshotOutput, len(archive))
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	archive, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return restoreSnapshot(cmd, app, archive, domain.PurposeInspect)
}

func runSnapshotFetch(cmd *cobra.Command, _ []string) error {
	app, err := requireApplication()
	if err != nil {
		return err
	}

	cmd.Printf("Fetching %s...\n", app.Settings().Snapshot.URL)
	archive, err := app.FetchSnapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	return restoreSnapshot(cmd, app, archive, domain.PurposeFetch)
}

func restoreSnapshot(cmd *cobra.Command, app Application, archive []byte, purpose domain.Purpose) error {
	index, err := app.Index(purpose)
	if err != nil {
		return err
	}
	if err := index.Restore(cmd.Context(), archive); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	status, err := index.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}
	cmd.Printf("Restored %d entries into %s\n", status.Count, status.Dir)
	return nil
}
