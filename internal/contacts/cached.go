package contacts

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedResolver wraps another resolver with a local TTL cache so a
// burst of calls from the same number does not hammer the directory.
// Misses are cached too, with a shorter TTL, since contacts change.
type CachedResolver struct {
	inner   Resolver
	cache   *gocache.Cache
	missTTL time.Duration
}

// NewCachedResolver caches hits for ttl and misses for ttl/4.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   gocache.New(ttl, 2*ttl),
		missTTL: ttl / 4,
	}
}

type cachedName struct {
	name  string
	found bool
}

func (r *CachedResolver) Lookup(ctx context.Context, number string) (string, bool) {
	key := CleanNumber(number)
	if v, ok := r.cache.Get(key); ok {
		entry := v.(cachedName)
		return entry.name, entry.found
	}

	name, found := r.inner.Lookup(ctx, number)
	ttl := gocache.DefaultExpiration
	if !found {
		ttl = r.missTTL
	}
	r.cache.Set(key, cachedName{name: name, found: found}, ttl)
	return name, found
}
