package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the movie does not exist locally or upstream.
	ErrNotFound = errors.New("movie not found")
	// ErrUpstreamUnavailable means the provider failed and no cached copy exists.
	ErrUpstreamUnavailable = errors.New("movie provider unavailable")
	// ErrConflict means a movie with the same external id already exists.
	ErrConflict = errors.New("movie already exists")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
