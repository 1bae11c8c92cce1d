package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/Xeven777/flyo/internal/apperror"
	"github.com/Xeven777/flyo/internal/service"
)

// embedPage is the sandbox boundary. The composed document goes into the
// iframe's srcdoc, and sandbox="allow-scripts" is what actually contains
// snippet-authored script: it may run, but it gets a unique opaque origin:
// no cookies, no storage, no same-origin access to this page. The composer
// performs no sanitization, so this attribute is the only defense and must
// never be widened (in particular, never add allow-same-origin).
//
// html/template escapes .Document for the srcdoc attribute context, which is
// exactly the encoding the attribute needs; the browser decodes it back to
// the verbatim composed bytes before parsing.
const embedPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; height: 100%; }
iframe { width: 100%; height: 100%; border: 0; display: block; background: #fff; }
</style>
</head>
<body>
<iframe srcdoc="{{.Document}}" sandbox="allow-scripts" title="{{.Title}}"></iframe>
</body>
</html>
`

// PreviewHandler serves the public rendering surface: the embed page at
// /p/{slug} and the bare composed document at /raw/{slug}. Both go through
// the gated read, so both count a view and both refuse expired or disabled
// snippets.
type PreviewHandler struct {
	svc    *service.SnippetService
	embed  *template.Template
	logger *slog.Logger
}

func NewPreviewHandler(svc *service.SnippetService, logger *slog.Logger) (*PreviewHandler, error) {
	tmpl, err := template.New("embed").Parse(embedPage)
	if err != nil {
		return nil, err
	}
	return &PreviewHandler{svc: svc, embed: tmpl, logger: logger}, nil
}

// previewError renders gate failures as plain pages with the same status
// mapping the API uses. The messages are the user-facing ones: the visitor
// needs to know whether the link is dead, expired, or switched off.
func (h *PreviewHandler) previewError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "An internal error occurred"

	var appErr *apperror.AppError
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, apperror.ErrDisabled):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	}
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("preview failed", slog.String("error", err.Error()))
	}

	http.Error(w, message, status)
}

// HandleEmbed handles GET /p/{slug}: the shareable preview page with the
// composed document inlined into a sandboxed iframe.
func (h *PreviewHandler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	snippet, err := h.svc.GetForPreview(r.Context(), slug)
	if err != nil {
		h.previewError(w, err)
		return
	}

	// The gated read above already counted this view; fetch the composed
	// document without counting again.
	doc := h.svc.ComposedDocument(snippet)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.embed.Execute(w, map[string]any{
		"Title":    snippet.Title,
		"Document": doc,
	}); err != nil {
		h.logger.Error("failed to render embed page",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
	}
}

// HandleRaw handles GET /raw/{slug}: the composed document itself, for
// direct links and iframe src use.
//
// The CSP sandbox header applies the same isolation the embed page's iframe
// attribute does, so opening the raw document directly is no less contained:
// scripts run in an opaque origin with no storage or same-origin access.
func (h *PreviewHandler) HandleRaw(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.PreviewDocument(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.previewError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts")
	w.Write([]byte(doc))
}
