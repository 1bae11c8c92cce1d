package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes the service layer can report.
// Handlers match these with errors.Is to pick a status code and message;
// nothing below the handler layer knows about HTTP.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrInvalidSlug = errors.New("invalid slug")
	ErrExpired     = errors.New("expired")
	ErrDisabled    = errors.New("disabled")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Field:   key,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a slug uniqueness violation; either detected by the
// probe loop or surfaced by the store's UNIQUE constraint when two creators
// race on the same base slug.
func Conflict(slug string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("slug %q is already in use", slug),
		Field:   slug,
	}
}

// InvalidSlug reports a title or rename that normalizes to nothing usable.
func InvalidSlug(input string) *AppError {
	return &AppError{
		Err:     ErrInvalidSlug,
		Message: "Invalid slug",
		Field:   input,
	}
}

// Expired and Disabled are preview-only failures from the gated read path.
// They carry the exact user-facing messages the preview layer shows, and are
// distinct so the caller knows which remedy applies (wait vs re-enable).

func Expired(slug string) *AppError {
	return &AppError{
		Err:     ErrExpired,
		Message: "Snippet has expired",
		Field:   slug,
	}
}

func Disabled(slug string) *AppError {
	return &AppError{
		Err:     ErrDisabled,
		Message: "Snippet is disabled",
		Field:   slug,
	}
}
