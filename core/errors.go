package core

import "errors"

var (
	// ErrDimensionMismatch is returned by strict similarity calls on vectors of
	// unequal length. It is fatal for a run and never coerced.
	ErrDimensionMismatch = errors.New("pheromone dimension mismatch")

	// ErrMalformedBlueprint marks a proposed agent without id or patterns.
	ErrMalformedBlueprint = errors.New("malformed blueprint")

	// ErrDuplicateAgent is returned when an agent id is already registered.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrUnknownAgent is returned when an operation references a missing agent.
	ErrUnknownAgent = errors.New("unknown agent")
)
