package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toolforge/pkg/llm/llmerrors"
	"toolforge/pkg/logx"
	"toolforge/pkg/sandbox"
)

const (
	// DefaultMaxAttempts is the default correction-loop budget per
	// specification.
	DefaultMaxAttempts = 5

	// ReasonExhausted marks an abandonment after the full attempt budget.
	ReasonExhausted = "exhausted"

	// ReasonDeadline marks an abandonment caused by run-deadline
	// cancellation.
	ReasonDeadline = "deadline"
)

// Options configures the engine.
type Options struct {
	// MaxAttempts is the correction-loop budget K per specification.
	MaxAttempts int

	// SandboxOpts is the execution configuration passed to the executor on
	// every attempt.
	SandboxOpts sandbox.Opts
}

// Engine runs build-validate-correct loops. It holds no per-specification
// state; each Run call owns its own loop, so concurrent Runs for different
// specifications are independent.
type Engine struct {
	logger    *logx.Logger
	generator Generator
	executor  sandbox.Executor
	opts      Options
}

// New creates an engine over the given generative service and sandbox.
func New(generator Generator, executor sandbox.Executor, opts Options) *Engine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		logger:    logx.NewLogger("engine"),
		generator: generator,
		executor:  executor,
		opts:      opts,
	}
}

// loop is the state for one specification's correction loop.
type loop struct {
	logger   *logx.Logger
	spec     ToolSpecification
	state    State
	attempts []BuildAttempt
}

// Run drives one specification to a terminal outcome. The attempt budget,
// feedback chaining, and cooperative deadline handling all live here; the
// caller only sees the finished ToolOutcome.
func (e *Engine) Run(ctx context.Context, spec ToolSpecification) ToolOutcome {
	l := &loop{logger: e.logger, spec: spec, state: StatePending}

	// Each attempt's request carries exactly the feedback recorded from the
	// immediately preceding attempt. Attempt 0 carries none.
	feedback := ""

	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return l.finish(StateAbandoned, ReasonDeadline)
		}
		if err := l.transition(StateGenerating); err != nil {
			return l.finish(StateFatalError, err.Error())
		}

		startedAt := time.Now()
		candidate, err := e.generator.Generate(ctx, spec, feedback)
		if err != nil {
			if ctx.Err() != nil {
				return l.finish(StateAbandoned, ReasonDeadline)
			}
			if llmerrors.IsFatal(err) {
				e.logger.Error("%s: generative service failure: %v", spec.Name, err)
				return l.finish(StateFatalError, err.Error())
			}
			// Malformed response: consumes a retry slot, never reaches the
			// sandbox. The parse error itself becomes the next feedback.
			feedback = l.record(BuildAttempt{
				Index:     attempt,
				Feedback:  fmt.Sprintf("previous response was not usable: %v", err),
				Status:    AttemptMalformed,
				StartedAt: startedAt,
			})
			if attempt == e.opts.MaxAttempts-1 {
				return l.finish(StateAbandoned, ReasonExhausted)
			}
			if err := l.transition(StateRetrying); err != nil {
				return l.finish(StateFatalError, err.Error())
			}
			continue
		}

		if err := l.transition(StateExecuting); err != nil {
			return l.finish(StateFatalError, err.Error())
		}
		result, execErr := e.executor.Execute(ctx, sandbox.Payload{
			ToolName:     spec.Name,
			Source:       candidate.Source,
			Test:         candidate.Test,
			Requirements: candidate.Requirements,
		}, e.opts.SandboxOpts)

		// A run that completed before the deadline fired still counts, even
		// when the two race: check the result before checking the context.
		if execErr == nil && spec.Criteria.Satisfied(result) {
			l.record(BuildAttempt{
				Index:     attempt,
				Source:    candidate.Source,
				Test:      candidate.Test,
				Result:    result,
				Status:    AttemptPassed,
				StartedAt: startedAt,
			})
			e.logger.Info("%s: passed on attempt %d", spec.Name, attempt)
			return l.finish(StatePassed, "")
		}

		feedback = l.record(BuildAttempt{
			Index:     attempt,
			Source:    candidate.Source,
			Test:      candidate.Test,
			Result:    result,
			Feedback:  attemptFeedback(result, execErr),
			Status:    AttemptFailed,
			StartedAt: startedAt,
		})
		e.logger.Info("%s: attempt %d failed (exit %d)", spec.Name, attempt, result.ExitCode)

		if ctx.Err() != nil {
			return l.finish(StateAbandoned, ReasonDeadline)
		}
		if attempt == e.opts.MaxAttempts-1 {
			return l.finish(StateAbandoned, ReasonExhausted)
		}
		if err := l.transition(StateRetrying); err != nil {
			return l.finish(StateFatalError, err.Error())
		}
	}

	return l.finish(StateAbandoned, ReasonExhausted)
}

// record appends an attempt and returns its feedback for the next cycle.
func (l *loop) record(attempt BuildAttempt) string {
	l.attempts = append(l.attempts, attempt)
	return attempt.Feedback
}

// finish moves the loop to a terminal state and builds the outcome.
func (l *loop) finish(state State, reason string) ToolOutcome {
	if err := l.transition(state); err != nil {
		// Terminal bookkeeping must not lose the outcome; keep the intended
		// state and surface the table violation in the reason.
		l.state = state
		if reason == "" {
			reason = err.Error()
		}
	}
	return ToolOutcome{
		Spec:     l.spec,
		State:    l.state,
		Attempts: l.attempts,
		Reason:   reason,
	}
}

// attemptFeedback derives the diagnostic digest for a failed attempt.
func attemptFeedback(result sandbox.Result, execErr error) string {
	switch {
	case errors.Is(execErr, sandbox.ErrTimeoutExceeded):
		return fmt.Sprintf("tests exceeded the %d second time limit; the implementation likely hangs or busy-loops", int(result.Duration.Seconds()))
	case errors.Is(execErr, sandbox.ErrResourceExceeded):
		return "tests exceeded the sandbox memory limit; avoid unbounded buffering or recursion"
	case execErr != nil:
		return fmt.Sprintf("sandbox failed to run the tests: %v", execErr)
	}
	return summarizeFailure(result.Combined())
}
