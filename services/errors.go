package services

import "errors"

// Pipeline error taxonomy. Callers match with errors.Is; details are wrapped
// around these with %w.
var (
	// ErrInput covers missing required columns, malformed dates and empty
	// fields an identity depends on.
	ErrInput = errors.New("input error")

	// ErrNoFacilities is returned when the facility set is empty after filtering.
	ErrNoFacilities = errors.New("no facilities")

	// ErrJoinCardinality is returned when a merge grows the row count beyond
	// the configured tolerance.
	ErrJoinCardinality = errors.New("join cardinality exceeded")
)
