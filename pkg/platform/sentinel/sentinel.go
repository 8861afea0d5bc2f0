// Package sentinel holds the infrastructure facts shared across layers.
// Values are wrapped, never returned bare, so callers match with errors.Is.
package sentinel

import "errors"

var (
	// ErrInvalidState marks a stored value that exists but cannot be decoded.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyUsed marks a one-shot resource, such as a module fetch
	// attempt, that has already been consumed.
	ErrAlreadyUsed = errors.New("already used")
)
