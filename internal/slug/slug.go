// Package slug derives URL-safe identifiers from snippet titles.
//
// A slug is the public lookup key for a snippet, so it has to be something
// you can paste into a URL bar: lowercase letters, digits, and hyphens only.
// Normalize does the character-level work; Resolve handles collisions against
// whatever store the caller gives it.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// maxProbes bounds the suffix search so a pathological store can't spin us
// forever. 1000 live copies of the same title is already absurd.
const maxProbes = 1000

var (
	// Everything outside [a-z0-9 whitespace -] gets stripped before hyphenation.
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	// Runs of whitespace collapse to a single hyphen.
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Repeated hyphens (from stripped punctuation or typed "--") collapse too.
	hyphenRun = regexp.MustCompile(`-{2,}`)
)

// Normalize converts a title to its candidate slug:
// lowercase, trim, strip invalid characters, collapse whitespace runs to a
// single hyphen, collapse repeated hyphens, trim leading/trailing hyphens.
//
// It returns "" when the title has no eligible characters (e.g. "!!!" or an
// all-emoji title). Callers must treat an empty result as an error; an empty
// slug would collide with the route itself.
func Normalize(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ExistsFunc reports whether a slug is already taken in the store.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Resolve finds an unused slug starting from base: it tries base itself, then
// base-2, base-3, and so on until exists reports a free one.
//
// NOTE ON RACES:
// This is a check-then-insert probe, so two concurrent creators racing on the
// same base can both see "free" and pick the same suffix. That window is
// accepted here; the snippets table's UNIQUE constraint is the real arbiter,
// and the repository translates its violation into a conflict error rather
// than renegotiating the suffix.
func Resolve(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	taken, err := exists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("slug: checking %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for i := 2; i <= maxProbes; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug: checking %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("slug: no free suffix for %q after %d probes", base, maxProbes)
}
