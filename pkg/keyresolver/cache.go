package keyresolver

import (
	"context"
	"crypto"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long a resolved key is reused before the next
// lookup goes back to the wrapped resolver.
const DefaultCacheTTL = 10 * time.Minute

// CachingResolver wraps a Resolver with a TTL cache and single-flight
// request coalescing: concurrent lookups for the same verification
// method share one in-flight resolution instead of each dialing out.
type CachingResolver struct {
	wrapped Resolver
	cache   *ttlcache.Cache[string, crypto.PublicKey]
	group   singleflight.Group
}

// NewCachingResolver builds a CachingResolver. ttl <= 0 uses DefaultCacheTTL.
func NewCachingResolver(wrapped Resolver, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache := ttlcache.New(ttlcache.WithTTL[string, crypto.PublicKey](ttl))
	go cache.Start()
	return &CachingResolver{wrapped: wrapped, cache: cache}
}

// ResolveKey implements Resolver. Only successful resolutions are cached;
// a failing lookup is retried on the next call rather than poisoning the
// cache for the TTL window.
func (c *CachingResolver) ResolveKey(ctx context.Context, verificationMethod string) (crypto.PublicKey, error) {
	if item := c.cache.Get(verificationMethod); item != nil {
		return item.Value(), nil
	}

	result, err, _ := c.group.Do(verificationMethod, func() (any, error) {
		key, err := c.wrapped.ResolveKey(ctx, verificationMethod)
		if err != nil {
			return nil, err
		}
		c.cache.Set(verificationMethod, key, ttlcache.DefaultTTL)
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(crypto.PublicKey), nil
}

// Stop stops the cache's automatic expiration goroutine.
func (c *CachingResolver) Stop() {
	c.cache.Stop()
}

// Len returns the number of cached entries.
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}
