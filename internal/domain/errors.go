package domain

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when the caller does not own the resource
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when a resource is not in the expected state
	ErrConflict = errors.New("conflict occurred")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
