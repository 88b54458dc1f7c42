// Package llm provides reference implementations of the extraction
// pipeline's external LLM contract (goextract.Adapter): OpenAI, Ollama,
// and Anthropic, each with bounded internal concurrency across a prompt
// batch.
package llm

import (
	"context"

	"golang.org/x/sync/errgroup"

	goextract "github.com/soundprediction/go-extract"
)

const defaultMaxWorkers = 4

// runBatch calls fn once per prompt with bounded concurrency (at most
// maxWorkers in flight at a time), collecting results indexed by original
// position so callers never need to worry about completion-order
// reshuffling.
func runBatch(ctx context.Context, prompts []string, maxWorkers int, fn func(ctx context.Context, prompt string) ([]goextract.ScoredOutput, error)) ([][]goextract.ScoredOutput, error) {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	results := make([][]goextract.ScoredOutput, len(prompts))

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxWorkers)

	for i, prompt := range prompts {
		i, prompt := i, prompt
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			out, err := fn(ctx, prompt)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
