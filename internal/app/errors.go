package app

import "errors"

// Structural and validation errors surfaced to the caller. Failures of the
// text-generation capability or the durable store are never in this list:
// they are absorbed with fallback content or the volatile backend.
var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrUnitNotFound      = errors.New("unit not found")
	ErrWrongKind         = errors.New("wrong document kind for this operation")
	ErrNoContentToRefine = errors.New("no content to refine")
	ErrNoRefinements     = errors.New("no refinements found for this unit")
	ErrInvalidRequest    = errors.New("invalid request")
)
