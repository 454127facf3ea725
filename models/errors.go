package models

import "errors"

// Error taxonomy shared across the store, NLP and orchestration layers.
// Handlers map these to HTTP status codes with errors.Is.
var (
	// ErrValidation indicates bad or missing caller input.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound indicates a referenced audience does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate audience name.
	ErrConflict = errors.New("already exists")

	// ErrExtraction indicates the keyword extraction backend failed.
	// Distinct from an empty keyword list, which is a valid result.
	ErrExtraction = errors.New("keyword extraction failed")

	// ErrStorage indicates a persistence failure after rollback.
	ErrStorage = errors.New("storage failure")
)
