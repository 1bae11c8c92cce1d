package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Invalidator is the presentation-layer invalidation hook: after any mutating
// operation the service tells it which slugs can no longer be served from
// cached renders. The zero-dependency direction matters; the service never
// knows what is cached, only what just changed.
type Invalidator interface {
	Invalidate(slugs ...string)
}

// RenderCache memoizes composed preview documents by slug.
//
// Only the composition output is cached. The gated read (visibility check and
// view counting) runs on every request regardless; caching that would both
// undercount views and serve expired snippets, so the cache sits strictly
// after the gate.
type RenderCache struct {
	c *gocache.Cache
}

// NewRenderCache creates a cache whose entries expire after ttl even without
// an explicit invalidation, as a backstop for invalidations lost to a crash.
func NewRenderCache(ttl time.Duration) *RenderCache {
	return &RenderCache{
		c: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the cached composed document for a slug, if present.
func (r *RenderCache) Get(slug string) (string, bool) {
	v, ok := r.c.Get(slug)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Set stores a composed document under its slug.
func (r *RenderCache) Set(slug, document string) {
	r.c.SetDefault(slug, document)
}

// Invalidate drops the cached renders for the given slugs.
func (r *RenderCache) Invalidate(slugs ...string) {
	for _, s := range slugs {
		r.c.Delete(s)
	}
}

var _ Invalidator = (*RenderCache)(nil)
