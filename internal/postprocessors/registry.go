package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// BuilderFunc constructs a step from its [postprocessors.<name>] table.
// cfg may be nil.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves configured step names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry. RegisterDefaults adds the built-in steps.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register binds name to builder, replacing any earlier binding.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build constructs the named step.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown post-processor %q (known: %v)", domain.ErrConfiguration, name, r.Names())
	}
	return builder(cfg)
}

// Names returns the registered step names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildPipeline builds the steps listed in cfg, in order.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	steps := make([]driven.PostProcessor, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		step, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		steps = append(steps, step)
	}
	return NewPipeline(steps...), nil
}
