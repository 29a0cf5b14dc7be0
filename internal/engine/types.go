// Package engine drives each tool specification through generation, sandboxed
// validation, and bounded feedback-driven correction until it passes, is
// abandoned, or hits a fatal service error. Loops for different
// specifications are independent and may run concurrently.
package engine

import (
	"time"

	"toolforge/pkg/sandbox"
)

// AcceptanceCriteria is the machine-checkable contract a candidate must
// satisfy. Criteria are evaluated purely from the harness's structured
// result, never by inspecting source text.
type AcceptanceCriteria struct {
	// MinTestsPassed is the minimum number of harness tests that must pass.
	// The harness must also exit zero.
	MinTestsPassed int
}

// Satisfied reports whether a sandbox result meets the criteria.
func (c AcceptanceCriteria) Satisfied(result sandbox.Result) bool {
	if result.ExitCode != 0 {
		return false
	}
	min := c.MinTestsPassed
	if min <= 0 {
		min = 1
	}
	return result.TestsPassed >= min
}

// ToolSpecification is one topic-derived unit of work. It is immutable for
// the lifetime of its loop; correction rewrites the candidate, never the
// specification.
type ToolSpecification struct {
	// Name is the normalized snake_case identifier, unique within a run.
	Name string

	// DisplayName is the human-readable name.
	DisplayName string

	// Description states what the tool does.
	Description string

	// Topic is the label of the topic the specification came from.
	Topic string

	// Features lists the key behaviors the implementation should cover.
	Features []string

	// Criteria is the acceptance contract for the generated artifact.
	Criteria AcceptanceCriteria
}

// AttemptStatus classifies one finished build attempt.
type AttemptStatus string

const (
	// AttemptPassed means the attempt satisfied the acceptance criteria.
	AttemptPassed AttemptStatus = "passed"

	// AttemptFailed means the harness ran and the criteria were not met,
	// or the sandbox hit its timeout or resource ceiling.
	AttemptFailed AttemptStatus = "failed"

	// AttemptMalformed means the generative response could not be parsed
	// into a candidate; no sandbox execution happened.
	AttemptMalformed AttemptStatus = "malformed"
)

// BuildAttempt is one generation+validation cycle. Attempts are immutable
// once recorded; the loop appends to a per-specification history and never
// rewrites an earlier entry.
type BuildAttempt struct {
	// Index is the 0-based attempt number within the specification's loop.
	Index int

	// Source is the generated implementation payload.
	Source string

	// Test is the generated test payload.
	Test string

	// Result is the sandbox result. Zero-valued for malformed attempts,
	// which never reach the sandbox.
	Result sandbox.Result

	// Feedback is the diagnostic digest recorded from this attempt; the
	// next attempt's generation request carries exactly this text.
	Feedback string

	// Status classifies the attempt.
	Status AttemptStatus

	// StartedAt is when the generation request was issued.
	StartedAt time.Time
}

// ToolOutcome is the terminal record of one specification's loop.
type ToolOutcome struct {
	// Spec is the specification the loop ran for.
	Spec ToolSpecification

	// State is the terminal state: Passed, Abandoned, or FatalError.
	State State

	// Attempts is the full ordered attempt history. For Passed outcomes the
	// last entry is the winning attempt.
	Attempts []BuildAttempt

	// Reason distinguishes why a non-Passed outcome ended: "exhausted",
	// "deadline", or the fatal service error text.
	Reason string
}

// Winning returns the passing attempt, or nil for non-Passed outcomes.
func (o *ToolOutcome) Winning() *BuildAttempt {
	if o.State != StatePassed || len(o.Attempts) == 0 {
		return nil
	}
	return &o.Attempts[len(o.Attempts)-1]
}

// RunSummary aggregates every specification's outcome for one run. The
// publisher consumes it as an unordered set and imposes its own ordering.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []ToolOutcome
}

// Passed returns the outcomes that reached StatePassed.
func (s *RunSummary) Passed() []ToolOutcome {
	var out []ToolOutcome
	for _, o := range s.Outcomes {
		if o.State == StatePassed {
			out = append(out, o)
		}
	}
	return out
}

// CountByState tallies outcomes per terminal state.
func (s *RunSummary) CountByState() map[State]int {
	counts := make(map[State]int)
	for _, o := range s.Outcomes {
		counts[o.State]++
	}
	return counts
}
