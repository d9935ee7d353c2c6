package domain

import "errors"

var (
	// ErrValidation marks caller input that can never produce a dispatch unit.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for batches or units that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrCanceled marks a run that was stopped by the caller.
	ErrCanceled = errors.New("canceled")
)
