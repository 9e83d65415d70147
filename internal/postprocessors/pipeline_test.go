package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

// stubStep appends its tag to every incoming chunk, or emits seed when it is first.
type stubStep struct {
	name  string
	seed  []domain.Chunk
	tag   string
	err   error
	calls int
}

func (s *stubStep) Name() string { return s.name }

func (s *stubStep) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if chunks == nil {
		return s.seed, nil
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Content += s.tag
		out[i] = c
	}
	return out, nil
}

var guideDoc = &domain.Document{Source: "consent.txt", Content: "Consent must be obtained."}

func TestPipeline_EmptyReturnsNil(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), guideDoc)

	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestPipeline_NilDocument(t *testing.T) {
	_, err := NewPipeline(&stubStep{name: "chunker"}).Process(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPipeline_ChainsSteps(t *testing.T) {
	first := &stubStep{name: "chunker", seed: []domain.Chunk{{Content: "a"}, {Content: "b"}}}
	second := &stubStep{name: "suffix", tag: "!"}
	p := NewPipeline(first, second)

	chunks, err := p.Process(context.Background(), guideDoc)

	require.NoError(t, err)
	assert.Equal(t, []domain.Chunk{{Content: "a!"}, {Content: "b!"}}, chunks)
	assert.Equal(t, []string{"chunker", "suffix"}, p.Steps())
}

func TestPipeline_StepErrorNamesStepAndSource(t *testing.T) {
	boom := errors.New("boom")
	after := &stubStep{name: "identity"}
	p := NewPipeline(&stubStep{name: "chunker", err: boom}, after)

	_, err := p.Process(context.Background(), guideDoc)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "chunker step on consent.txt")
	assert.Zero(t, after.calls)
}

func TestPipeline_StopsWhenCancelled(t *testing.T) {
	step := &stubStep{name: "chunker"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(step).Process(ctx, guideDoc)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, step.calls)
}
