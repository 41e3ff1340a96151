package shortener

import "errors"

var (
	// ErrInvalidInput is returned for an empty URL or a malformed alias.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAliasConflict is returned when the requested code is already taken.
	ErrAliasConflict = errors.New("alias already in use")
	// ErrNotFound is returned when a code does not resolve to a link.
	ErrNotFound = errors.New("url not found")
	// ErrUnavailable wraps failures of the persistent store.
	ErrUnavailable = errors.New("store unavailable")
)
