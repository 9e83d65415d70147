// Package app wires the adapters and core services of OpenPDPA together.
//
// A single App is built per process from validated settings. Provider clients
// and the index manager are created on first use, for the purpose of the
// command being run, so commands that only touch the index directory never
// need provider credentials.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/custodia-labs/openpdpa/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/openpdpa/internal/adapters/driven/config/file"
	promrecorder "github.com/custodia-labs/openpdpa/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/openpdpa/internal/adapters/driven/snapshot"
	storagefile "github.com/custodia-labs/openpdpa/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/openpdpa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/openpdpa/internal/connectors/filesystem"
	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
	"github.com/custodia-labs/openpdpa/internal/core/services"
	"github.com/custodia-labs/openpdpa/internal/logger"
	"github.com/custodia-labs/openpdpa/internal/normalisers"
	"github.com/custodia-labs/openpdpa/internal/normalisers/docx"
	"github.com/custodia-labs/openpdpa/internal/normalisers/html"
	"github.com/custodia-labs/openpdpa/internal/normalisers/markdown"
	"github.com/custodia-labs/openpdpa/internal/normalisers/pdf"
	"github.com/custodia-labs/openpdpa/internal/normalisers/plaintext"
	"github.com/custodia-labs/openpdpa/internal/postprocessors"
)

// Options overrides the default collaborators. Zero values select the defaults.
type Options struct {
	// PromptDir holds the editable prompts (default: ~/.openpdpa/prompts).
	PromptDir string

	// OpenStore opens the vector store (default: sqlite.Open).
	OpenStore driven.VectorStoreOpener

	// Fetcher downloads snapshots (default: HTTP with a five minute timeout).
	Fetcher driven.SnapshotFetcher

	// Validator pings providers for the check command.
	Validator driven.AIConfigValidator
}

// App holds all application components and dependencies.
type App struct {
	settings  domain.Settings
	prompts   driven.PromptStore
	corpus    *filesystem.Connector
	registry  *normalisers.Registry
	pipeline  driven.PostProcessorPipeline
	codec     driven.SnapshotCodec
	fetcher   driven.SnapshotFetcher
	validator driven.AIConfigValidator
	openStore driven.VectorStoreOpener
	metrics   *promrecorder.Recorder

	mu        sync.Mutex
	purpose   domain.Purpose
	providers *ai.Providers
	index     *services.IndexManager
}

// New builds the application. No provider or store is opened here.
func New(settings domain.Settings, opts Options) (*App, error) {
	prompts, err := configfile.NewPromptStore(opts.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt store: %w", err)
	}

	ppRegistry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(ppRegistry)
	pipeline, err := ppRegistry.BuildPipeline(settings.Pipeline)
	if err != nil {
		return nil, err
	}

	registry := normalisers.NewRegistry(pdf.New(), docx.New(), html.New(), markdown.New(), plaintext.New())

	a := &App{
		settings:  settings,
		prompts:   prompts,
		registry:  registry,
		pipeline:  pipeline,
		codec:     snapshot.NewCodec(),
		fetcher:   opts.Fetcher,
		validator: opts.Validator,
		openStore: opts.OpenStore,
		metrics:   promrecorder.NewRecorder(),
		corpus: filesystem.New(settings.Index.CorpusDir,
			filesystem.WithMIMETypes(registry.SupportedMIMETypes()...)),
	}
	if a.fetcher == nil {
		a.fetcher = snapshot.NewHTTPFetcher(nil)
	}
	if a.validator == nil {
		a.validator = ai.NewConfigValidator()
	}
	if a.openStore == nil {
		a.openStore = sqlite.Open
	}

	logger.Debug("app: corpus=%s index=%s mime=%v steps=%v", settings.Index.CorpusDir, settings.Index.Dir,
		registry.SupportedMIMETypes(), pipeline.Steps())
	return a, nil
}

// Settings returns the loaded configuration.
func (a *App) Settings() domain.Settings {
	return a.settings
}

// Index returns the index service with the provider clients purpose needs.
// Asking for a different purpose than the one already built replaces the
// manager; PurposeInspect is served by whatever manager exists.
func (a *App) Index(purpose domain.Purpose) (driving.IndexService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index != nil && (purpose == a.purpose || purpose == domain.PurposeInspect) {
		return a.index, nil
	}

	providers, err := ai.NewProviders(a.settings, purpose)
	if err != nil {
		return nil, err
	}
	if err := a.releaseLocked(); err != nil {
		providers.Close()
		return nil, err
	}

	manager := services.NewIndexManager(
		a.settings.Index.Dir,
		a.openStore,
		storagefile.NewMetadataStore(a.settings.Index.Dir),
		providers.Embedding,
		a.corpus,
		a.registry,
		a.pipeline,
		a.codec,
	)
	manager.SetMetrics(a.metrics)

	a.purpose = purpose
	a.providers = providers
	a.index = manager
	return manager, nil
}

// Query builds the query pipeline over retriever.
// Index must have been called with domain.PurposeQuery first.
func (a *App) Query(retriever driving.Retriever) (driving.QueryService, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.providers == nil || a.providers.Generation == nil || a.providers.Moderation == nil {
		return nil, fmt.Errorf("%w: query providers are not initialised", domain.ErrConfiguration)
	}

	pipeline := services.NewStandardQueryPipeline(services.QueryPipelineConfig{
		Classifier:    a.providers.Moderation,
		Generator:     a.providers.Generation,
		Retriever:     retriever,
		Prompts:       a.prompts,
		AssistantName: a.settings.Query.AssistantName,
		DefaultTopK:   a.settings.Query.TopK,
	})
	pipeline.SetMetrics(a.metrics)
	return pipeline, nil
}

// FetchSnapshot downloads the archive published at the configured snapshot URL.
func (a *App) FetchSnapshot(ctx context.Context) ([]byte, error) {
	if err := a.settings.Validate(domain.PurposeFetch); err != nil {
		return nil, err
	}
	return a.fetcher.Fetch(ctx, a.settings.Snapshot.URL)
}

// Watcher returns the corpus watcher.
func (a *App) Watcher() driven.CorpusWatcher {
	return a.corpus
}

// CheckProviders pings every configured provider.
func (a *App) CheckProviders() []domain.ProviderCheck {
	return a.validator.CheckAll(a.settings)
}

// MetricsHandler serves the index and query metrics.
func (a *App) MetricsHandler() http.Handler {
	return a.metrics.Handler()
}

// Close releases the index, the provider clients and the corpus watcher.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return errors.Join(a.releaseLocked(), a.corpus.Close())
}

// releaseLocked closes the current manager and providers. Caller holds the lock.
func (a *App) releaseLocked() error {
	var err error
	if a.index != nil {
		err = a.index.Close()
		a.index = nil
	}
	if a.providers != nil {
		a.providers.Close()
		a.providers = nil
	}
	a.purpose = ""
	return err
}
