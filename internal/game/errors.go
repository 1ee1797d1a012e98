package game

import "errors"

var (
	// ErrIllegalAction is returned when a response does not match the
	// offered legal action set: unknown card, locked slot or a rule
	// violation. The match is not mutated.
	ErrIllegalAction = errors.New("illegal action")

	// ErrNoActiveMatch is returned for a response from a player that has
	// no assigned or active match.
	ErrNoActiveMatch = errors.New("no active match")

	// ErrStaleResponse is returned for a response to an offer that was
	// superseded or whose deadline already passed.
	ErrStaleResponse = errors.New("stale response")

	// ErrInconsistentState signals an internal bookkeeping defect such as a
	// card held by two containers or by none. It is fatal to the match.
	ErrInconsistentState = errors.New("inconsistent match state")
)
