package engine

import "errors"

// The error taxonomy from spec.md §7, mapped by pkg/api to HTTP status and
// by cmd/resumerank to the CLI exit codes in spec.md §6.
var (
	ErrNotFound            = errors.New("engine: not found")
	ErrForbidden           = errors.New("engine: owner does not match")
	ErrIllegalTransition   = errors.New("engine: action not applicable to current batch status")
	ErrUpstreamUnavailable = errors.New("engine: upstream dependency unavailable")
	ErrValidation          = errors.New("engine: invalid input")
)
