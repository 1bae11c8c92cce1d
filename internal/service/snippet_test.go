package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/Xeven777/flyo/internal/apperror"
	"github.com/Xeven777/flyo/internal/lifecycle"
	"github.com/Xeven777/flyo/internal/model"
	"github.com/Xeven777/flyo/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKE REPOSITORY
// =========================================================================
//
// The fake implements repository.SnippetRepository against a map, with the
// same semantics the sqlite implementation guarantees: slug uniqueness on
// write, gated reads that mutate nothing on failure, and sparse updates.
// Service tests exercise orchestration only; storage behaviour has its own
// tests in repository/sqlite.

type fakeRepo struct {
	snippets map[string]*model.Snippet // keyed by slug
	nextID   int
	failWith error // when set, every call fails with this
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{snippets: make(map[string]*model.Snippet)}
}

func (f *fakeRepo) Create(_ context.Context, snippet *model.Snippet) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, taken := f.snippets[snippet.Slug]; taken {
		return apperror.Conflict(snippet.Slug)
	}
	f.nextID++
	snippet.ID = fmt.Sprintf("fake-%d", f.nextID)
	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	stored := *snippet
	f.snippets[snippet.Slug] = &stored
	return nil
}

func (f *fakeRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, ok := f.snippets[slug]
	return ok, nil
}

func (f *fakeRepo) GetBySlug(_ context.Context, slug string) (*model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.snippets[slug]
	if !ok {
		return nil, apperror.NotFound("Snippet", slug)
	}
	result := *s
	return &result, nil
}

func (f *fakeRepo) GetForRender(_ context.Context, slug string, now time.Time) (*model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.snippets[slug]
	if !ok {
		return nil, apperror.NotFound("Snippet", slug)
	}
	switch lifecycle.CheckVisibility(s, now) {
	case lifecycle.Disabled:
		return nil, apperror.Disabled(slug)
	case lifecycle.Expired:
		return nil, apperror.Expired(slug)
	}
	s.Views++
	s.LastViewedAt = null.TimeFrom(now)
	result := *s
	return &result, nil
}

func (f *fakeRepo) Update(_ context.Context, slug string, fields repository.UpdateFields) (*model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.snippets[slug]
	if !ok {
		return nil, apperror.NotFound("Snippet", slug)
	}
	if fields.Slug != nil {
		if _, taken := f.snippets[*fields.Slug]; taken {
			return nil, apperror.Conflict(*fields.Slug)
		}
	}
	if fields.Title != nil {
		s.Title = *fields.Title
	}
	if fields.HTML != nil {
		s.HTML = *fields.HTML
	}
	if fields.CSS != nil {
		s.CSS = *fields.CSS
	}
	if fields.JS != nil {
		s.JS = *fields.JS
	}
	if fields.ExpiresAt != nil {
		s.ExpiresAt = *fields.ExpiresAt
	}
	if fields.Slug != nil {
		delete(f.snippets, slug)
		s.Slug = *fields.Slug
		f.snippets[s.Slug] = s
	}
	s.UpdatedAt = time.Now().UTC()
	result := *s
	return &result, nil
}

func (f *fakeRepo) Delete(_ context.Context, slug string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.snippets[slug]; !ok {
		return apperror.NotFound("Snippet", slug)
	}
	delete(f.snippets, slug)
	return nil
}

func (f *fakeRepo) SetDisabled(_ context.Context, slug string, disabled bool) (*model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	s, ok := f.snippets[slug]
	if !ok {
		return nil, apperror.NotFound("Snippet", slug)
	}
	s.IsDisabled = disabled
	result := *s
	return &result, nil
}

func (f *fakeRepo) List(_ context.Context) ([]model.Snippet, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	result := make([]model.Snippet, 0, len(f.snippets))
	for _, s := range f.snippets {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// recordingInvalidator captures which slugs the service purged.
type recordingInvalidator struct {
	purged []string
}

func (r *recordingInvalidator) Invalidate(slugs ...string) {
	r.purged = append(r.purged, slugs...)
}

func newTestService(t *testing.T) (*SnippetService, *fakeRepo, *recordingInvalidator) {
	t.Helper()
	repo := newFakeRepo()
	inv := &recordingInvalidator{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewSnippetService(repo, NewRenderCache(time.Minute), inv, logger)
	return svc, repo, inv
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_DerivesSlugFromTitle(t *testing.T) {
	svc, _, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), CreateInput{
		Title: "My Test!",
		HTML:  "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.Slug != "my-test" {
		t.Errorf("Slug = %q, want %q", snippet.Slug, "my-test")
	}
	if snippet.ExpiresAt.Valid {
		t.Errorf("ExpiresAt = %v, want null when expiresIn is omitted", snippet.ExpiresAt)
	}
	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
}

func TestCreate_SlugCollisionProbesSuffixes(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		s, err := svc.Create(ctx, CreateInput{Title: "Same Title", HTML: "<p>x</p>"})
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i+1, err)
		}
		slugs = append(slugs, s.Slug)
	}

	want := []string{"same-title", "same-title-2", "same-title-3"}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slug #%d = %q, want %q", i+1, slugs[i], want[i])
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"empty title", CreateInput{HTML: "<p>x</p>"}, apperror.ErrValidation},
		{"whitespace title", CreateInput{Title: "   ", HTML: "<p>x</p>"}, apperror.ErrValidation},
		{"empty html", CreateInput{Title: "ok"}, apperror.ErrValidation},
		{"title normalizes to nothing", CreateInput{Title: "!!!", HTML: "<p>x</p>"}, apperror.ErrInvalidSlug},
		{"bad expiry unit", CreateInput{Title: "ok", HTML: "<p>x</p>", ExpiresIn: 1, ExpiryUnit: "weeks"}, apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreate_ExpiryUnits(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	before := time.Now().UTC()

	hours, err := svc.Create(ctx, CreateInput{
		Title: "Hourly", HTML: "<p>x</p>", ExpiresIn: 5, ExpiryUnit: "hours",
	})
	if err != nil {
		t.Fatalf("Create(hours) error = %v", err)
	}
	lo, hi := before.Add(5*time.Hour), time.Now().UTC().Add(5*time.Hour)
	if !hours.ExpiresAt.Valid || hours.ExpiresAt.Time.Before(lo) || hours.ExpiresAt.Time.After(hi) {
		t.Errorf("ExpiresAt = %v, want within [%v, %v]", hours.ExpiresAt, lo, hi)
	}

	days, err := svc.Create(ctx, CreateInput{
		Title: "Daily", HTML: "<p>x</p>", ExpiresIn: 2, ExpiryUnit: "days",
	})
	if err != nil {
		t.Fatalf("Create(days) error = %v", err)
	}
	lo, hi = before.Add(48*time.Hour), time.Now().UTC().Add(48*time.Hour)
	if !days.ExpiresAt.Valid || days.ExpiresAt.Time.Before(lo) || days.ExpiresAt.Time.After(hi) {
		t.Errorf("ExpiresAt = %v, want within [%v, %v]", days.ExpiresAt, lo, hi)
	}

	// Blank unit defaults to days.
	defaulted, err := svc.Create(ctx, CreateInput{
		Title: "Defaulted", HTML: "<p>x</p>", ExpiresIn: 1,
	})
	if err != nil {
		t.Fatalf("Create(default unit) error = %v", err)
	}
	if !defaulted.ExpiresAt.Valid || defaulted.ExpiresAt.Time.Before(before.Add(23*time.Hour)) {
		t.Errorf("ExpiresAt = %v, want roughly a day out", defaulted.ExpiresAt)
	}
}

func TestCreate_InvalidatesSlug(t *testing.T) {
	svc, _, inv := newTestService(t)

	snippet, err := svc.Create(context.Background(), CreateInput{Title: "Fresh", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(inv.purged) == 0 || inv.purged[len(inv.purged)-1] != snippet.Slug {
		t.Errorf("invalidations = %v, want %q purged", inv.purged, snippet.Slug)
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_RenameNormalizesAndApplies(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Original", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	newSlug := "Brand New Name!"
	updated, err := svc.Update(ctx, UpdateInput{Slug: "original", NewSlug: &newSlug})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "brand-new-name" {
		t.Errorf("Slug = %q, want normalized %q", updated.Slug, "brand-new-name")
	}

	// Both the old and the new slug must be purged.
	got := map[string]bool{}
	for _, s := range inv.purged {
		got[s] = true
	}
	if !got["original"] || !got["brand-new-name"] {
		t.Errorf("invalidations = %v, want both old and new slug", inv.purged)
	}
}

func TestUpdate_RenameToEmptyNormalizationFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Victim", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	bad := "???"
	_, err := svc.Update(ctx, UpdateInput{Slug: "victim", NewSlug: &bad})
	if !errors.Is(err, apperror.ErrInvalidSlug) {
		t.Errorf("Update() error = %v, want ErrInvalidSlug", err)
	}
}

func TestUpdate_RenameToTakenSlugConflicts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "First", HTML: "<p>1</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Title: "Second", HTML: "<p>2</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	taken := "first"
	_, err := svc.Update(ctx, UpdateInput{Slug: "second", NewSlug: &taken})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Update() error = %v, want ErrConflict", err)
	}

	// The loser keeps its slug.
	if _, ok := repo.snippets["second"]; !ok {
		t.Error("failed rename must leave the original slug in place")
	}
}

func TestUpdate_RenameToCurrentSlugIsNoop(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Stay", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Renaming to a value that normalizes to the current slug must not
	// trip the uniqueness check against the snippet itself.
	same := "Stay"
	updated, err := svc.Update(ctx, UpdateInput{Slug: "stay", NewSlug: &same})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Slug != "stay" {
		t.Errorf("Slug = %q, want %q", updated.Slug, "stay")
	}
}

func TestUpdate_EmptyTitleRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Titled", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	empty := "  "
	_, err := svc.Update(ctx, UpdateInput{Slug: "titled", Title: &empty})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() error = %v, want ErrValidation", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	title := "x"
	_, err := svc.Update(context.Background(), UpdateInput{Slug: "ghost", Title: &title})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// PREVIEW
// =========================================================================

func TestPreviewDocument_FastPathIsRawHTML(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "My Test!", HTML: "<p>hi</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	doc, err := svc.PreviewDocument(ctx, "my-test")
	if err != nil {
		t.Fatalf("PreviewDocument() error = %v", err)
	}
	if doc != "<p>hi</p>" {
		t.Errorf("PreviewDocument() = %q, want raw html %q", doc, "<p>hi</p>")
	}
}

func TestPreviewDocument_CountsEveryView(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Counted", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// The composition is cached after the first call, but the gated read
	// (and with it the view counter) runs every time.
	for i := 0; i < 3; i++ {
		if _, err := svc.PreviewDocument(ctx, "counted"); err != nil {
			t.Fatalf("PreviewDocument() #%d error = %v", i+1, err)
		}
	}
	if views := repo.snippets["counted"].Views; views != 3 {
		t.Errorf("Views = %d, want 3", views)
	}
}

func TestPreviewDocument_StaleRenderNotServedAfterUpdate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{
		Title: "Evolving", HTML: "<p>v1</p>", CSS: null.StringFrom("p{}"),
	}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Prime the cache.
	first, err := svc.PreviewDocument(ctx, "evolving")
	if err != nil {
		t.Fatalf("PreviewDocument() error = %v", err)
	}

	html := "<p>v2</p>"
	if _, err := svc.Update(ctx, UpdateInput{Slug: "evolving", HTML: &html}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	second, err := svc.PreviewDocument(ctx, "evolving")
	if err != nil {
		t.Fatalf("PreviewDocument() after update error = %v", err)
	}
	if second == first {
		t.Error("cached render served after mutation; invalidation failed")
	}
}

func TestPreviewDocument_DisabledAndExpired(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Gated", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Disabled wins even with expiry also in the past.
	repo.snippets["gated"].IsDisabled = true
	repo.snippets["gated"].ExpiresAt = null.TimeFrom(time.Now().Add(-time.Hour))

	_, err := svc.PreviewDocument(ctx, "gated")
	if !errors.Is(err, apperror.ErrDisabled) {
		t.Errorf("PreviewDocument() error = %v, want ErrDisabled", err)
	}

	repo.snippets["gated"].IsDisabled = false
	_, err = svc.PreviewDocument(ctx, "gated")
	if !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("PreviewDocument() error = %v, want ErrExpired", err)
	}

	if views := repo.snippets["gated"].Views; views != 0 {
		t.Errorf("Views = %d after gate failures, want 0", views)
	}
}

// =========================================================================
// DELETE / DISABLE / LIST
// =========================================================================

func TestDelete_Invalidates(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Bye", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := svc.Delete(ctx, "bye"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if inv.purged[len(inv.purged)-1] != "bye" {
		t.Errorf("invalidations = %v, want %q last", inv.purged, "bye")
	}

	if _, err := svc.Get(ctx, "bye"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDisableEnable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Title: "Toggle", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	disabled, err := svc.Disable(ctx, "toggle")
	if err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if !disabled.IsDisabled {
		t.Error("IsDisabled = false after Disable()")
	}

	// Edit lookup still works while disabled.
	if _, err := svc.Get(ctx, "toggle"); err != nil {
		t.Errorf("Get() on disabled snippet error = %v, want success", err)
	}

	enabled, err := svc.Enable(ctx, "toggle")
	if err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if enabled.IsDisabled {
		t.Error("IsDisabled = true after Enable()")
	}
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := svc.Create(ctx, CreateInput{Title: title, HTML: "<p>x</p>"}); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d snippets, want 3", len(all))
	}
}
