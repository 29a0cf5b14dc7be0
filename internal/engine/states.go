package engine

import "fmt"

// State is one phase of a specification's build-validate-correct loop.
type State string

const (
	// StatePending is the initial state before any generation request.
	StatePending State = "PENDING"

	// StateGenerating means a candidate is being requested from the
	// generative service.
	StateGenerating State = "GENERATING"

	// StateExecuting means the candidate is running in the sandbox.
	StateExecuting State = "EXECUTING"

	// StateRetrying means the last attempt failed and retry budget remains.
	StateRetrying State = "RETRYING"

	// StatePassed is terminal: an attempt satisfied the acceptance criteria.
	StatePassed State = "PASSED"

	// StateAbandoned is terminal: the retry budget was exhausted, or the run
	// deadline cancelled the loop.
	StateAbandoned State = "ABANDONED"

	// StateFatalError is terminal: the generative service is unreachable or
	// unauthenticated, so retrying cannot help.
	StateFatalError State = "FATAL_ERROR"
)

// TransitionTable maps each state to the states it may legally enter.
type TransitionTable map[State][]State

// loopTransitions is the exhaustive transition table for one specification's
// loop. Terminal states have no outgoing edges.
var loopTransitions = TransitionTable{
	StatePending:    {StateGenerating, StateAbandoned},
	StateGenerating: {StateExecuting, StateRetrying, StateAbandoned, StateFatalError},
	StateExecuting:  {StatePassed, StateRetrying, StateAbandoned, StateFatalError},
	StateRetrying:   {StateGenerating, StateAbandoned},
	StatePassed:     {},
	StateAbandoned:  {},
	StateFatalError: {},
}

// IsTerminal reports whether s permits no further transitions.
func (s State) IsTerminal() bool {
	return len(loopTransitions[s]) == 0
}

// isValidTransition reports whether from → to appears in the table.
func isValidTransition(from, to State) bool {
	for _, next := range loopTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transition validates and applies a state change on the loop.
func (l *loop) transition(to State) error {
	if !isValidTransition(l.state, to) {
		return fmt.Errorf("invalid transition %s -> %s for %s", l.state, to, l.spec.Name)
	}
	l.logger.Debug("%s: %s -> %s", l.spec.Name, l.state, to)
	l.state = to
	return nil
}
