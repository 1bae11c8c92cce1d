package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/Xeven777/flyo/internal/apperror"
	"github.com/Xeven777/flyo/internal/lifecycle"
	"github.com/Xeven777/flyo/internal/model"
	"github.com/Xeven777/flyo/internal/repository"
)

// Compile-time check that *DB implements repository.SnippetRepository.
var _ repository.SnippetRepository = (*DB)(nil)

// snippetColumns is the canonical SELECT column list. Every scan in this file
// goes through scanSnippet, so column order is defined in exactly one place.
const snippetColumns = `id, slug, title, html, css, js, views, last_viewed_at,
	is_disabled, expires_at, created_at, updated_at`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*model.Snippet, error) {
	var s model.Snippet
	err := row.Scan(
		&s.ID,
		&s.Slug,
		&s.Title,
		&s.HTML,
		&s.CSS,
		&s.JS,
		&s.Views,
		&s.LastViewedAt,
		&s.IsDisabled,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new snippet. The caller has already chosen the slug; this
// method assigns the xid and timestamps in place on the passed struct.
//
// If another creator won a race for the same slug between the probe loop and
// this INSERT, the UNIQUE constraint fires and we report a conflict instead
// of picking a new suffix; the caller decides whether to retry.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, slug, title, html, css, js, is_disabled, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Slug,
		snippet.Title,
		snippet.HTML,
		snippet.CSS,
		snippet.JS,
		snippet.IsDisabled,
		snippet.ExpiresAt,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(snippet.Slug)
		}
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// SlugExists reports whether any stored snippet currently uses the slug.
// This feeds the probe loop in the slug package; it is advisory only, the
// UNIQUE constraint is authoritative.
func (db *DB) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets WHERE slug = ?`, slug,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %s: %w", slug, err)
	}
	return n > 0, nil
}

// GetBySlug is the raw fetch used by edit flows: no lifecycle gating, no side
// effects. Disabled and expired snippets load normally so their authors can
// still fix them.
func (db *DB) GetBySlug(ctx context.Context, slug string) (*model.Snippet, error) {
	snippet, err := scanSnippet(db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE slug = ?`, slug,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Snippet", slug)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", slug, err)
	}
	return snippet, nil
}

// GetForRender is the gated read: fetch, evaluate visibility, and only on
// success bump views and last_viewed_at.
//
// The whole thing runs in one transaction so the check and the increment are
// atomic across concurrent previews and across multiple server processes
// sharing the file. When the gate fails, the transaction is rolled back
// having written nothing; a disabled or expired snippet's counters never
// move.
func (db *DB) GetForRender(ctx context.Context, slug string, now time.Time) (*model.Snippet, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning render transaction: %w", err)
	}
	defer tx.Rollback()

	snippet, err := scanSnippet(tx.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE slug = ?`, slug,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Snippet", slug)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s for render: %w", slug, err)
	}

	switch lifecycle.CheckVisibility(snippet, now) {
	case lifecycle.Disabled:
		return nil, apperror.Disabled(slug)
	case lifecycle.Expired:
		return nil, apperror.Expired(slug)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE snippets SET views = views + 1, last_viewed_at = ? WHERE id = ?`,
		now, snippet.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: counting view for %s: %w", slug, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing render transaction: %w", err)
	}

	snippet.Views++
	snippet.LastViewedAt.SetValid(now)
	return snippet, nil
}

// Update applies a sparse update: only the fields present in `fields` appear
// in the SET clause, everything else on the row is untouched. A rename rides
// in the same statement as the content changes, so a rename that loses to the
// UNIQUE constraint leaves the whole row exactly as it was.
func (db *DB) Update(ctx context.Context, slug string, fields repository.UpdateFields) (*model.Snippet, error) {
	if fields.Empty() {
		return db.GetBySlug(ctx, slug)
	}

	set := make([]string, 0, 7)
	args := make([]any, 0, 8)

	if fields.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *fields.Title)
	}
	if fields.HTML != nil {
		set = append(set, "html = ?")
		args = append(args, *fields.HTML)
	}
	if fields.CSS != nil {
		set = append(set, "css = ?")
		args = append(args, *fields.CSS)
	}
	if fields.JS != nil {
		set = append(set, "js = ?")
		args = append(args, *fields.JS)
	}
	if fields.ExpiresAt != nil {
		set = append(set, "expires_at = ?")
		args = append(args, *fields.ExpiresAt)
	}
	if fields.Slug != nil {
		set = append(set, "slug = ?")
		args = append(args, *fields.Slug)
	}

	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, slug)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET `+strings.Join(set, ", ")+` WHERE slug = ?`,
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) && fields.Slug != nil {
			return nil, apperror.Conflict(*fields.Slug)
		}
		return nil, fmt.Errorf("sqlite: updating snippet %s: %w", slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("Snippet", slug)
	}

	// Re-read under the slug the row now has.
	current := slug
	if fields.Slug != nil {
		current = *fields.Slug
	}
	return db.GetBySlug(ctx, current)
}

// Delete removes a snippet. RowsAffected distinguishes "deleted" from "was
// never there".
func (db *DB) Delete(ctx context.Context, slug string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE slug = ?`, slug,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Snippet", slug)
	}

	return nil
}

// SetDisabled flips the kill switch. Disabling is independent of expiry:
// it only gates rendering, the row itself stays fully editable.
func (db *DB) SetDisabled(ctx context.Context, slug string, disabled bool) (*model.Snippet, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET is_disabled = ?, updated_at = ? WHERE slug = ?`,
		disabled, time.Now().UTC(), slug,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: setting disabled on %s: %w", slug, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("Snippet", slug)
	}

	return db.GetBySlug(ctx, slug)
}

// List returns every snippet, newest first; the dashboard snapshot. Expired
// and disabled snippets are included; expiry never deletes anything, it only
// gates rendering.
func (db *DB) List(ctx context.Context) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]model.Snippet, 0, 16)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}
