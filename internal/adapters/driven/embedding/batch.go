// Package embedding holds helpers shared by the embedding provider adapters.
package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight requests for providers without a batch endpoint.
const DefaultConcurrency = 4

// EmbedFunc embeds a single text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedEach embeds every text with at most concurrency requests in flight.
// Results are in input order. The first error cancels the remaining requests.
func EmbedEach(ctx context.Context, texts []string, concurrency int, embed EmbedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
