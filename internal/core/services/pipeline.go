package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driving"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// Ensure QueryPipeline implements the interface.
var _ driving.QueryService = (*QueryPipeline)(nil)

// StageFunc runs one pipeline stage against a read-only state and returns
// the fields it changes. Stages never mutate the state they receive.
type StageFunc func(ctx context.Context, state domain.QueryState) (domain.QueryUpdate, error)

// QueryPipeline sequences moderation, retrieval and generation for each query.
// It holds no per-query state and is safe for concurrent use.
type QueryPipeline struct {
	stages      map[domain.Stage]StageFunc
	defaultTopK int
	metrics     driven.MetricsRecorder
}

// NewQueryPipeline creates a pipeline from its three stages.
func NewQueryPipeline(moderate, retrieve, generate StageFunc, defaultTopK int) *QueryPipeline {
	if defaultTopK <= 0 {
		defaultTopK = domain.DefaultTopK
	}
	return &QueryPipeline{
		stages: map[domain.Stage]StageFunc{
			domain.StageModerate: moderate,
			domain.StageRetrieve: retrieve,
			domain.StageGenerate: generate,
		},
		defaultTopK: defaultTopK,
	}
}

// QueryPipelineConfig holds the collaborators of the standard pipeline.
type QueryPipelineConfig struct {
	Classifier    driven.LLMService
	Generator     driven.LLMService
	Retriever     driving.Retriever
	Prompts       driven.PromptStore
	AssistantName string
	DefaultTopK   int
}

// NewStandardQueryPipeline wires the moderate, retrieve and generate stages.
func NewStandardQueryPipeline(cfg QueryPipelineConfig) *QueryPipeline {
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return NewQueryPipeline(
		ModerateStage(cfg.Classifier, cfg.Prompts),
		RetrieveStage(cfg.Retriever, topK),
		GenerateStage(cfg.Generator, cfg.Prompts, cfg.AssistantName),
		topK,
	)
}

// SetMetrics sets the recorder for stage timings and outcomes.
func (p *QueryPipeline) SetMetrics(metrics driven.MetricsRecorder) {
	p.metrics = metrics
}

// Ask runs one query through the pipeline. A topK of 0 selects the default;
// any other value below 1 retrieves a single passage.
// Stage failures return a *domain.PipelineError; the result then holds the
// state reached before the failing stage.
func (p *QueryPipeline) Ask(ctx context.Context, query string, topK int) (domain.QueryResult, error) {
	logger.Section("Query Pipeline")

	if topK == 0 {
		topK = p.defaultTopK
	}
	state := domain.QueryState{Query: query, TopK: max(1, topK)}

	stage := domain.StageModerate
	for !stage.IsTerminal() {
		run, ok := p.stages[stage]
		if !ok || run == nil {
			return domain.QueryResult{State: state, Terminal: stage},
				&domain.PipelineError{Stage: stage, Err: fmt.Errorf("%w: no handler", domain.ErrNotImplemented)}
		}

		logger.Debug("Stage %s", stage)
		start := time.Now()
		update, err := run(ctx, state)
		if p.metrics != nil {
			p.metrics.StageCompleted(stage, time.Since(start), err)
		}
		if err != nil {
			logger.Warn("Stage %s failed: %v", stage, err)
			return domain.QueryResult{State: state, Terminal: stage}, &domain.PipelineError{Stage: stage, Err: err}
		}

		state = state.Merge(update)
		stage = next(stage, state)
	}

	state.Answer = strings.TrimSpace(state.Answer)
	if state.Answer == "" {
		state.Answer = domain.NoInformationSentinel
	}

	logger.Info("Query finished in stage %s (retrieved=%d)", stage, state.RetrievedCount)
	if p.metrics != nil {
		p.metrics.QueryFinished(stage)
	}
	return domain.QueryResult{State: state, Terminal: stage}, nil
}

// next is the transition function of the pipeline state machine.
func next(stage domain.Stage, state domain.QueryState) domain.Stage {
	switch stage {
	case domain.StageModerate:
		if !state.ModerationOK {
			return domain.StageBlocked
		}
		return domain.StageRetrieve
	case domain.StageRetrieve:
		return domain.StageGenerate
	default:
		return domain.StageDone
	}
}
