package store

import "errors"

var (
	// ErrNotFound is returned when no record matches the given Ref.
	ErrNotFound = errors.New("record not found")

	// ErrBadPolicy is returned when an operation names an unknown
	// projection policy.
	ErrBadPolicy = errors.New("unknown projection policy")
)
