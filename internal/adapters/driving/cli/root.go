// Package cli provides the openpdpa command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Application is the set of wired services the commands run against.
type Application interface {
	Settings() domain.Settings
	Index(purpose domain.Purpose) (driving.IndexService, error)
	Query(retriever driving.Retriever) (driving.QueryService, error)
	FetchSnapshot(ctx context.Context) ([]byte, error)
	Watcher() driven.CorpusWatcher
	CheckProviders() []domain.ProviderCheck
	MetricsHandler() http.Handler
	Close() error
}

var (
	application Application
	verbose     bool
)

// errNoApplication is returned by commands run before SetApplication.
var errNoApplication = errors.New("application not configured")

var rootCmd = &cobra.Command{
	Use:   "openpdpa",
	Short: "Answer PDPA questions from a local document corpus",
	Long: `openpdpa indexes a corpus of PDPA reference documents into a local vector
store and answers questions grounded in it.

Queries are moderated, matched against the index and answered by a chat model.
The index is rebuilt only when the corpus or the embedding model changes, and
can be exported to or restored from a zip snapshot.

Configuration is read from the environment, an optional .env file and an
optional openpdpa.toml.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline and index decisions to stderr")
}

// SetApplication injects the wired application.
func SetApplication(app Application) {
	application = app
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireApplication() (Application, error) {
	if application == nil {
		return nil, errNoApplication
	}
	return application, nil
}

// openIndex returns an index ready to serve queries. With restore set the
// published snapshot replaces the local index and the corpus is never read.
func openIndex(ctx context.Context, app Application, restore bool) (driving.IndexService, driving.Retriever, error) {
	index, err := app.Index(domain.PurposeQuery)
	if err != nil {
		return nil, nil, err
	}

	if !restore {
		retriever, err := index.EnsureIndex(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to prepare index: %w", err)
		}
		return index, retriever, nil
	}

	archive, err := app.FetchSnapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	if err := index.Restore(ctx, archive); err != nil {
		return nil, nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}
	retriever, err := index.OpenExisting(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open restored index: %w", err)
	}
	return index, retriever, nil
}
