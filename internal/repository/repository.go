package repository

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/Xeven777/flyo/internal/model"
)

// UpdateFields is a sparse update: only fields that are explicitly present
// are applied, everything else on the row stays untouched.
//
// PRESENT vs NULL vs VALUE:
// CSS, JS, and ExpiresAt each have three meaningful states ("don't touch",
// "clear to null", "set to this value"), so a plain optional string can't
// carry them. A nil pointer means the field wasn't mentioned at all; a
// non-nil pointer to an invalid null.String/null.Time means "clear"; a valid
// one means "set". Title and HTML are never nullable, so a plain *string is
// enough for them.
//
// Slug is the normalized rename target. The repository checks uniqueness and
// applies it in the same transaction as every other change, so a failed
// rename leaves the row fully untouched.
type UpdateFields struct {
	Title     *string
	HTML      *string
	CSS       *null.String
	JS        *null.String
	ExpiresAt *null.Time
	Slug      *string
}

// Empty reports whether the update mentions nothing at all.
func (f UpdateFields) Empty() bool {
	return f.Title == nil && f.HTML == nil && f.CSS == nil &&
		f.JS == nil && f.ExpiresAt == nil && f.Slug == nil
}

// SnippetRepository is the persistence contract for snippets. The slug is the
// public lookup key for every operation; IDs are internal.
//
// Atomicity requirements carried by implementations:
//   - slug uniqueness is enforced by the store itself (unique constraint),
//     not by a check in application code;
//   - GetForRender evaluates visibility and bumps the view counters in one
//     transaction, and performs no write at all when the gate fails.
type SnippetRepository interface {
	// Create persists a new snippet. The caller supplies slug, title, html,
	// and the optional fields; the implementation assigns ID and timestamps
	// in place. A slug collision (lost race) returns apperror.ErrConflict.
	Create(ctx context.Context, snippet *model.Snippet) error

	// SlugExists reports whether any stored snippet currently uses the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// GetBySlug is the raw fetch for edit flows: no visibility gating, no
	// side effects. Disabled and expired snippets load normally.
	GetBySlug(ctx context.Context, slug string) (*model.Snippet, error)

	// GetForRender is the gated read: it returns the snippet only if it is
	// visible at `now`, incrementing Views and stamping LastViewedAt as a
	// side effect of the successful read. A disabled snippet returns
	// apperror.ErrDisabled, an expired one apperror.ErrExpired, and in both
	// cases the row is left unmodified.
	GetForRender(ctx context.Context, slug string, now time.Time) (*model.Snippet, error)

	// Update applies a sparse update and returns the resulting snippet.
	// A rename to a taken slug returns apperror.ErrConflict and changes
	// nothing.
	Update(ctx context.Context, slug string, fields UpdateFields) (*model.Snippet, error)

	// Delete removes the snippet.
	Delete(ctx context.Context, slug string) error

	// SetDisabled flips the kill switch and returns the updated snippet.
	SetDisabled(ctx context.Context, slug string, disabled bool) (*model.Snippet, error)

	// List returns every stored snippet, newest CreatedAt first.
	List(ctx context.Context) ([]model.Snippet, error)
}
