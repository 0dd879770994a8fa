package engine

import (
	"context"
	"time"

	"github.com/caasmo/regverify/cache"
	"github.com/caasmo/regverify/primitives"
)

// displayNameCacheTTL bounds how stale a cached corpus can be. No
// correctness requirement depends on immediate visibility of a newly
// upserted display name: the external similarity policy re-polls on its
// own schedule, so TTL expiry is a sufficient invalidation strategy and
// no explicit bust path is needed.
const displayNameCacheTTL = 30 * time.Second

// displayNameCache is the narrow shape engine needs from cache.Cache,
// keyed on chain name, so engine doesn't depend on a specific backend.
type displayNameCache interface {
	Get(key string) ([]primitives.DisplayNameEntry, bool)
	SetWithTTL(key string, value []primitives.DisplayNameEntry, cost int64, ttl time.Duration) bool
}

var _ displayNameCache = (cache.Cache[string, []primitives.DisplayNameEntry])(nil)

// WithDisplayNameCache fronts FetchDisplayNames with c, keyed on
// string(chain). Optional: engines built without this option always read
// through to the store, grounded on spec.md §4.2.2.
func WithDisplayNameCache(c displayNameCache) Option {
	return func(e *Engine) { e.displayNames = c }
}

// FetchDisplayNames returns the display-name corpus for chain, called by
// the external similarity policy on every new/changed DisplayName field.
// The corpus only grows between admin corrections, so when a cache is
// configured the result is served from it for up to displayNameCacheTTL.
func (e *Engine) FetchDisplayNames(ctx context.Context, chain primitives.ChainName) ([]primitives.DisplayNameEntry, error) {
	key := string(chain)

	if e.displayNames != nil {
		if cached, ok := e.displayNames.Get(key); ok {
			return cached, nil
		}
	}

	entries, err := e.store.FetchDisplayNames(ctx, chain)
	if err != nil {
		return nil, newError(KindStorage, "fetch_display_names", err)
	}

	if e.displayNames != nil {
		e.displayNames.SetWithTTL(key, entries, int64(len(entries)+1), displayNameCacheTTL)
	}
	return entries, nil
}
