package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("Snippet", "my-test"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("my-test"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "InvalidSlug wraps ErrInvalidSlug",
			err:       InvalidSlug("???"),
			target:    ErrInvalidSlug,
			wantMatch: true,
		},
		{
			name:      "Expired wraps ErrExpired",
			err:       Expired("my-test"),
			target:    ErrExpired,
			wantMatch: true,
		},
		{
			name:      "Disabled wraps ErrDisabled",
			err:       Disabled("my-test"),
			target:    ErrDisabled,
			wantMatch: true,
		},
		{
			name:      "Expired does NOT match ErrDisabled",
			err:       Expired("my-test"),
			target:    ErrDisabled,
			wantMatch: false,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("Snippet", "my-test"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	// The preview-gating messages are user-facing strings the presentation
	// layer shows verbatim; they must stay exactly as they are.
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"not found", NotFound("Snippet", "my-test"), "Snippet not found"},
		{"expired", Expired("my-test"), "Snippet has expired"},
		{"disabled", Disabled("my-test"), "Snippet is disabled"},
		{"invalid slug", InvalidSlug("???"), "Invalid slug"},
		{"conflict names the slug", Conflict("my-test"), `slug "my-test" is already in use`},
		{"validation uses the custom message", ValidationFailed("title", "title is required"), "title is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrapSurvivesWrapping(t *testing.T) {
	// Handlers rely on errors.Is through however many fmt.Errorf layers the
	// error picks up between the repository and the response writer.
	err := fmt.Errorf("updating snippet: %w", Conflict("taken"))

	if !errors.Is(err, ErrConflict) {
		t.Errorf("errors.Is through a wrap = false, want true")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As through a wrap failed")
	}
	if appErr.Field != "taken" {
		t.Errorf("Field = %q, want %q", appErr.Field, "taken")
	}
}
