package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll fans the specifications out over independent loops, at most
// maxConcurrent at a time. Outcomes come back as an unordered set; a
// specification's failure never affects its siblings. The context is the
// run deadline: loops in flight when it fires finish as Abandoned with the
// deadline reason rather than being dropped.
func (e *Engine) RunAll(ctx context.Context, specs []ToolSpecification, maxConcurrent int) []ToolOutcome {
	if len(specs) == 0 {
		return nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = len(specs)
	}

	results := make(chan ToolOutcome, len(specs))

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrent)
	for _, spec := range specs {
		g.Go(func() error {
			results <- e.Run(ctx, spec)
			return nil
		})
	}
	// Loops report outcomes for every terminal path, so Wait cannot fail.
	_ = g.Wait()
	close(results)

	outcomes := make([]ToolOutcome, 0, len(specs))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
