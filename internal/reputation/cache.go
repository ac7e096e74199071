package reputation

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/docvet/qrscan/internal/model"
)

// Default cache tuning. One day of freshness matches how quickly URL
// reputations actually change, and 4096 distinct URLs comfortably covers
// even large document batches.
const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 4096
)

// lookupDeadline bounds a shared in-flight lookup. The flight runs
// detached from the contexts of the callers waiting on it, so it needs
// its own deadline; this leaves headroom over the HTTP client's
// per-request timeout.
const lookupDeadline = 3 * DefaultLookupTimeout

// LookupFunc performs a live reputation lookup for one URL.
// Client.Lookup satisfies this signature; tests substitute fakes.
type LookupFunc func(ctx context.Context, url string) (model.Verdict, error)

// Cache is the process-wide verdict cache. Cached verdicts outlive a
// single scan; entries expire by TTL and are evicted least-recently-used
// once capacity is exceeded.
//
// All mutation goes through Resolve. The single-flight group guarantees
// at most one live lookup per distinct URL at a time; concurrent callers
// for the same URL wait for and share the in-flight result.
type Cache struct {
	ttl     time.Duration
	entries *lru.Cache[string, cachedVerdict]
	group   singleflight.Group
	lookup  LookupFunc
	logger  *slog.Logger

	// now is the clock source, replaceable in tests to exercise TTL
	// expiry without sleeping.
	now func() time.Time
}

// cachedVerdict pairs a stored verdict with the time it was stored,
// which drives TTL staleness checks.
type cachedVerdict struct {
	verdict  model.Verdict
	storedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the maximum age before a cached verdict must be refreshed.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity sets the maximum number of distinct cached URLs.
func WithCapacity(capacity int) CacheOption {
	return func(c *Cache) {
		if capacity > 0 {
			entries, err := lru.New[string, cachedVerdict](capacity)
			if err == nil {
				c.entries = entries
			}
		}
	}
}

// WithClock overrides the cache's time source. Tests use this to age
// entries deterministically.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a verdict cache backed by the given lookup function.
func NewCache(lookup LookupFunc, opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:    DefaultTTL,
		lookup: lookup,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.entries == nil {
		// Capacity is validated by the option; the default never fails.
		c.entries, _ = lru.New[string, cachedVerdict](DefaultCapacity)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// Resolve returns the verdict for a normalized URL.
//
// A fresh cached verdict is returned immediately with source cache-hit.
// Otherwise one live lookup runs (shared across concurrent callers of the
// same URL); its result is cached and returned with source live-lookup.
// Lookup failures are propagated without caching so the next resolve
// retries, and without fabricating a verdict: fallback policy belongs to
// the classifier.
func (c *Cache) Resolve(ctx context.Context, url string) (model.Verdict, error) {
	if verdict, ok := c.fresh(url); ok {
		return verdict, nil
	}

	// DoChan rather than Do so a cancelled caller stops waiting without
	// aborting the shared lookup other callers may still want.
	resultCh := c.group.DoChan(url, func() (any, error) {
		// Re-check under the flight: another caller may have populated
		// the entry between our staleness check and joining the group.
		if verdict, ok := c.fresh(url); ok {
			return verdict, nil
		}

		// The flight outlives the caller that opened it, so the lookup
		// must not inherit that caller's cancellation. It runs on a
		// detached context with its own deadline.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupDeadline)
		defer cancel()

		verdict, err := c.lookup(lookupCtx, url)
		if err != nil {
			return model.Verdict{}, err
		}

		verdict.Source = model.SourceLiveLookup
		c.entries.Add(url, cachedVerdict{verdict: verdict, storedAt: c.now()})

		c.logger.Debug("verdict cached",
			"url", url,
			"category", verdict.Category,
		)

		return verdict, nil
	})

	select {
	case <-ctx.Done():
		return model.Verdict{}, ctx.Err()
	case result := <-resultCh:
		if result.Err != nil {
			return model.Verdict{}, result.Err
		}
		return result.Val.(model.Verdict), nil
	}
}

// fresh returns the cached verdict for url if present and within TTL,
// marked as a cache hit.
func (c *Cache) fresh(url string) (model.Verdict, bool) {
	entry, ok := c.entries.Get(url)
	if !ok {
		return model.Verdict{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return model.Verdict{}, false
	}

	verdict := entry.verdict
	verdict.Source = model.SourceCacheHit
	return verdict, true
}

// Len returns the number of cached entries, fresh or stale.
func (c *Cache) Len() int {
	return c.entries.Len()
}
