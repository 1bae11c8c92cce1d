// Package handler contains the HTTP layer: request parsing, response
// envelopes, and the mapping from domain errors to status codes. No business
// rules live here; handlers are the glue between HTTP and the service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"gopkg.in/guregu/null.v3"

	"github.com/Xeven777/flyo/internal/service"
)

// SnippetHandler serves the JSON API for snippet CRUD and lifecycle toggles.
type SnippetHandler struct {
	svc    *service.SnippetService
	logger *slog.Logger
}

func NewSnippetHandler(svc *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{svc: svc, logger: logger}
}

// createRequest mirrors the create form. CSS and JS decode into null.String:
// an omitted or null field stays invalid (absent), an empty string stays a
// present-but-empty value. The distinction flows through to storage.
type createRequest struct {
	Title      string      `json:"title"`
	HTML       string      `json:"html"`
	CSS        null.String `json:"css"`
	JS         null.String `json:"js"`
	ExpiresIn  int         `json:"expiresIn"`
	ExpiryUnit string      `json:"expiryUnit"`
}

// optionalNullString distinguishes "key absent" from "explicit null". The
// decoder only calls UnmarshalJSON for keys present in the body, and it does
// call it for a null value as long as the field is not itself a pointer
// (decoding null into a pointer field just nils the pointer). So this must
// stay a value-type field.
type optionalNullString struct {
	set   bool
	value null.String
}

func (o *optionalNullString) UnmarshalJSON(b []byte) error {
	o.set = true
	return o.value.UnmarshalJSON(b)
}

// ptr converts to the service's tri-state form: nil when the key was absent,
// a pointer to an invalid null.String for "clear", a valid one for "set".
func (o *optionalNullString) ptr() *null.String {
	if !o.set {
		return nil
	}
	return &o.value
}

// updateRequest is sparse: nil pointers mean "field not mentioned". CSS and JS
// additionally distinguish an explicit null (clear the stored value) from an
// absent key (leave it alone).
type updateRequest struct {
	Title      *string            `json:"title"`
	HTML       *string            `json:"html"`
	CSS        optionalNullString `json:"css"`
	JS         optionalNullString `json:"js"`
	ExpiresIn  *int               `json:"expiresIn"`
	ExpiryUnit string             `json:"expiryUnit"`
	NewSlug    *string            `json:"newSlug"`
}

// HandleCreate handles POST /api/snippets.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body"})
		return
	}

	snippet, err := h.svc.Create(r.Context(), service.CreateInput{
		Title:      req.Title,
		HTML:       req.HTML,
		CSS:        req.CSS,
		JS:         req.JS,
		ExpiresIn:  req.ExpiresIn,
		ExpiryUnit: req.ExpiryUnit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SnippetResponse{Success: true, Snippet: snippet})
}

// HandleGet handles GET /api/snippets/{slug}; the raw edit fetch. Disabled
// and expired snippets are returned here; visibility only gates previews.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.svc.Get(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnippetResponse{Success: true, Snippet: snippet})
}

// HandleList handles GET /api/snippets; the dashboard snapshot, newest
// first.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Success: true, Snippets: snippets})
}

// HandleUpdate handles PUT /api/snippets/{slug}. Only fields present in the
// body change; newSlug renames.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid update JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body"})
		return
	}

	snippet, err := h.svc.Update(r.Context(), service.UpdateInput{
		Slug:       r.PathValue("slug"),
		Title:      req.Title,
		HTML:       req.HTML,
		CSS:        req.CSS.ptr(),
		JS:         req.JS.ptr(),
		ExpiresIn:  req.ExpiresIn,
		ExpiryUnit: req.ExpiryUnit,
		NewSlug:    req.NewSlug,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnippetResponse{Success: true, Snippet: snippet})
}

// HandleDelete handles DELETE /api/snippets/{slug}.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Success: true})
}

// HandleDisable handles POST /api/snippets/{slug}/disable.
func (h *SnippetHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.svc.Disable(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnippetResponse{Success: true, Snippet: snippet})
}

// HandleEnable handles POST /api/snippets/{slug}/enable.
func (h *SnippetHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.svc.Enable(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnippetResponse{Success: true, Snippet: snippet})
}
