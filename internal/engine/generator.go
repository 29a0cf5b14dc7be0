package engine

import "context"

// Candidate is one generated implementation plus its test suite.
type Candidate struct {
	// Source is the implementation payload.
	Source string

	// Test is the test-suite payload.
	Test string

	// Requirements lists third-party packages the candidate needs.
	Requirements []string
}

// Generator is the generative code service. Implementations are stateless
// request/response: given a specification and optional failure feedback from
// the immediately preceding attempt, return a candidate.
//
// Errors are classified by the llmerrors package: a fatal error (unreachable
// or unauthenticated service) terminates the loop immediately; a malformed
// response counts as a failed attempt and is retried within the loop budget.
type Generator interface {
	Generate(ctx context.Context, spec ToolSpecification, feedback string) (Candidate, error)
}
