package state

import "errors"

var (
	// ErrNotFound indicates a slot holds no value.
	ErrNotFound = errors.New("record not found")

	// ErrMalformed indicates a persisted value could not be parsed.
	ErrMalformed = errors.New("malformed record")
)
