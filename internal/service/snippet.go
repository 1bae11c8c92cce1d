// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, orchestrates, enforces rules
//	Repository (data layer)  → reads/writes the database
//
// The service receives the repository as an interface, so tests swap in an
// in-memory fake and the HTTP layer never appears anywhere below here. Every
// failure leaving this package is a typed apperror value; handlers translate
// those into the uniform success/error envelope, and nothing panics across
// the boundary.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/Xeven777/flyo/internal/apperror"
	"github.com/Xeven777/flyo/internal/compose"
	"github.com/Xeven777/flyo/internal/lifecycle"
	"github.com/Xeven777/flyo/internal/model"
	"github.com/Xeven777/flyo/internal/repository"
	"github.com/Xeven777/flyo/internal/slug"
)

const (
	MaxTitleLength    = 200
	MaxFragmentLength = 500000 // ~500KB per html/css/js fragment
)

// CreateInput carries everything a create request may supply. CSS and JS are
// null.String because "omitted" and "empty string" are different inputs and
// both must round-trip. ExpiresIn <= 0 (or omitted) means the snippet never
// expires; ExpiryUnit defaults to days when left blank.
type CreateInput struct {
	Title      string
	HTML       string
	CSS        null.String
	JS         null.String
	ExpiresIn  int
	ExpiryUnit string
}

// UpdateInput is the sparse update surface: nil pointer = field not
// mentioned. NewSlug, when present, is normalized and applied as a rename.
// ExpiresIn present always recomputes the expiry from now (replacing the old
// deadline); absent leaves it alone.
type UpdateInput struct {
	Slug       string
	Title      *string
	HTML       *string
	CSS        *null.String
	JS         *null.String
	ExpiresIn  *int
	ExpiryUnit string
	NewSlug    *string
}

// SnippetService orchestrates slug assignment, lifecycle policy, persistence,
// and render-cache invalidation.
type SnippetService struct {
	repo        repository.SnippetRepository
	invalidator Invalidator
	renders     *RenderCache
	logger      *slog.Logger
}

// NewSnippetService wires the service. The render cache doubles as the
// invalidator in the default setup, but the two are separate parameters so
// tests can observe invalidations without a real cache.
func NewSnippetService(repo repository.SnippetRepository, renders *RenderCache, invalidator Invalidator, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:        repo,
		invalidator: invalidator,
		renders:     renders,
		logger:      logger,
	}
}

// parseUnit validates the expiry unit, defaulting to days; the original
// create form measured expiry in days, hours came later.
func parseUnit(raw string) (lifecycle.Unit, error) {
	if raw == "" {
		return lifecycle.UnitDays, nil
	}
	unit := lifecycle.Unit(strings.ToLower(strings.TrimSpace(raw)))
	if !unit.Valid() {
		return "", apperror.ValidationFailed("expiryUnit",
			fmt.Sprintf("expiry unit must be %q or %q", lifecycle.UnitHours, lifecycle.UnitDays))
	}
	return unit, nil
}

func validateFragment(field, value string) error {
	if len(value) > MaxFragmentLength {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d bytes or less", field, MaxFragmentLength))
	}
	return nil
}

// Create validates the input, derives a unique slug from the title, computes
// the expiry, and persists the snippet.
func (s *SnippetService) Create(ctx context.Context, in CreateInput) (*model.Snippet, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if in.HTML == "" {
		return nil, apperror.ValidationFailed("html", "html is required")
	}
	for field, value := range map[string]string{"html": in.HTML, "css": in.CSS.String, "js": in.JS.String} {
		if err := validateFragment(field, value); err != nil {
			return nil, err
		}
	}

	unit, err := parseUnit(in.ExpiryUnit)
	if err != nil {
		return nil, err
	}

	base := slug.Normalize(title)
	if base == "" {
		return nil, apperror.InvalidSlug(title)
	}

	finalSlug, err := slug.Resolve(ctx, base, s.repo.SlugExists)
	if err != nil {
		return nil, fmt.Errorf("resolving slug: %w", err)
	}

	snippet := &model.Snippet{
		Slug:      finalSlug,
		Title:     title,
		HTML:      in.HTML,
		CSS:       in.CSS,
		JS:        in.JS,
		ExpiresAt: lifecycle.ExpiryFrom(in.ExpiresIn, unit, time.Now().UTC()),
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("slug", finalSlug),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.invalidator.Invalidate(snippet.Slug)
	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("slug", snippet.Slug),
	)

	return snippet, nil
}

// Get is the raw edit-flow fetch: disabled and expired snippets load
// normally and nothing is counted.
func (s *SnippetService) Get(ctx context.Context, slugKey string) (*model.Snippet, error) {
	slugKey = strings.TrimSpace(slugKey)
	if slugKey == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}
	return s.repo.GetBySlug(ctx, slugKey)
}

// GetForPreview is the gated read: the repository checks visibility and
// counts the view atomically, and a disabled or expired snippet comes back
// as the matching typed error with nothing mutated.
func (s *SnippetService) GetForPreview(ctx context.Context, slugKey string) (*model.Snippet, error) {
	slugKey = strings.TrimSpace(slugKey)
	if slugKey == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}
	return s.repo.GetForRender(ctx, slugKey, time.Now().UTC())
}

// PreviewDocument runs the gated read and returns the composed renderable
// document for the snippet.
//
// The gated read runs on every call; that is where views are counted and
// expiry/disable enforced. Only the composition result is memoized, keyed by
// slug and purged on every mutation, so a cached document can never outlive
// an edit.
func (s *SnippetService) PreviewDocument(ctx context.Context, slugKey string) (string, error) {
	snippet, err := s.GetForPreview(ctx, slugKey)
	if err != nil {
		return "", err
	}
	return s.ComposedDocument(snippet), nil
}

// ComposedDocument returns the renderable document for a snippet that has
// already passed the gate, consulting the render cache first. Callers that
// did their own gated read use this to avoid counting the view twice.
func (s *SnippetService) ComposedDocument(snippet *model.Snippet) string {
	if doc, ok := s.renders.Get(snippet.Slug); ok {
		return doc
	}

	doc := compose.Document(snippet.HTML, snippet.CSS.ValueOrZero(), snippet.JS.ValueOrZero())
	s.renders.Set(snippet.Slug, doc)
	return doc
}

// Update applies a sparse update, including an optional rename, and purges
// cached renders for every slug involved.
func (s *SnippetService) Update(ctx context.Context, in UpdateInput) (*model.Snippet, error) {
	slugKey := strings.TrimSpace(in.Slug)
	if slugKey == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}

	fields := repository.UpdateFields{CSS: in.CSS, JS: in.JS}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title is required")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
		}
		fields.Title = &title
	}
	if in.HTML != nil {
		if *in.HTML == "" {
			return nil, apperror.ValidationFailed("html", "html is required")
		}
		if err := validateFragment("html", *in.HTML); err != nil {
			return nil, err
		}
		fields.HTML = in.HTML
	}
	if in.CSS != nil {
		if err := validateFragment("css", in.CSS.String); err != nil {
			return nil, err
		}
	}
	if in.JS != nil {
		if err := validateFragment("js", in.JS.String); err != nil {
			return nil, err
		}
	}

	// An explicit expiry quantity always replaces the stored deadline,
	// anchored to now. Omitting it leaves the stored value alone.
	if in.ExpiresIn != nil {
		unit, err := parseUnit(in.ExpiryUnit)
		if err != nil {
			return nil, err
		}
		expiry := lifecycle.ExpiryFrom(*in.ExpiresIn, unit, time.Now().UTC())
		fields.ExpiresAt = &expiry
	}

	if in.NewSlug != nil {
		normalized := slug.Normalize(*in.NewSlug)
		if normalized == "" {
			return nil, apperror.InvalidSlug(*in.NewSlug)
		}
		// Renaming to the current slug is a no-op, not a conflict with
		// ourselves.
		if normalized != slugKey {
			fields.Slug = &normalized
		}
	}

	snippet, err := s.repo.Update(ctx, slugKey, fields)
	if err != nil {
		return nil, err
	}

	// Purge both names: the old slug's cached render is stale, and the new
	// slug may still carry a render cached from a previous occupant.
	if fields.Slug != nil {
		s.invalidator.Invalidate(slugKey, *fields.Slug)
	} else {
		s.invalidator.Invalidate(slugKey)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("slug", snippet.Slug),
	)

	return snippet, nil
}

// Delete removes a snippet and purges its cached render.
func (s *SnippetService) Delete(ctx context.Context, slugKey string) error {
	slugKey = strings.TrimSpace(slugKey)
	if slugKey == "" {
		return apperror.ValidationFailed("slug", "slug is required")
	}

	if err := s.repo.Delete(ctx, slugKey); err != nil {
		return err
	}

	s.invalidator.Invalidate(slugKey)
	s.logger.Info("snippet deleted", slog.String("slug", slugKey))
	return nil
}

// Disable flips the kill switch on. The snippet stays listed and editable;
// only rendering is blocked.
func (s *SnippetService) Disable(ctx context.Context, slugKey string) (*model.Snippet, error) {
	return s.setDisabled(ctx, slugKey, true)
}

// Enable flips the kill switch off.
func (s *SnippetService) Enable(ctx context.Context, slugKey string) (*model.Snippet, error) {
	return s.setDisabled(ctx, slugKey, false)
}

func (s *SnippetService) setDisabled(ctx context.Context, slugKey string, disabled bool) (*model.Snippet, error) {
	slugKey = strings.TrimSpace(slugKey)
	if slugKey == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}

	snippet, err := s.repo.SetDisabled(ctx, slugKey, disabled)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(slugKey)
	s.logger.Info("snippet disabled state changed",
		slog.String("slug", slugKey),
		slog.Bool("disabled", disabled),
	)

	return snippet, nil
}

// List returns the dashboard snapshot, newest first, hidden snippets
// included.
func (s *SnippetService) List(ctx context.Context) ([]model.Snippet, error) {
	snippets, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, err
	}
	return snippets, nil
}
