package handler

// Every JSON response from the API uses one envelope:
//
//	success: {"success":true, "snippet":{...}}   (or "snippets" for lists)
//	failure: {"success":false, "error":"Snippet has expired"}
//
// The error string is the user-facing message; consumers branch on the HTTP
// status for machine decisions. writeError is the single place domain errors
// become status codes; the service layer below never sees HTTP, and no
// failure leaves a handler as anything but this envelope.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Xeven777/flyo/internal/apperror"
	"github.com/Xeven777/flyo/internal/model"
)

// SnippetResponse is the single-snippet success envelope.
type SnippetResponse struct {
	Success bool           `json:"success"`
	Snippet *model.Snippet `json:"snippet"`
}

// ListResponse is the list success envelope.
type ListResponse struct {
	Success  bool            `json:"success"`
	Snippets []model.Snippet `json:"snippets"`
}

// DeleteResponse acknowledges a deletion; there is no entity left to return.
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the uniform failure shape.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON sends a JSON response. Headers and status must be set before the
// first byte of the body goes out, hence the ordering here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone at this point; logging is all we can do.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and the failure envelope.
//
// errors.Is walks the wrapped chain, so it doesn't matter how many layers of
// fmt.Errorf("...: %w") the error picked up on the way up.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidSlug):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrDisabled):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrExpired):
		status = http.StatusGone
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, status, ErrorResponse{Error: appErr.Message})
		return
	}

	// Unknown error; a store failure or a bug. Never leak the raw message;
	// it can contain SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred"})
}
