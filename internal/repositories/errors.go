package repositories

import "errors"

var (
	// ErrNotFound indicates no record matched the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the write would violate a uniqueness constraint,
	// e.g. a duplicate username or email.
	ErrConflict = errors.New("record conflict")
)
