package reqobj

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/eidverify/oid4vp/pkg/model"
)

// DefaultTTL is how long a hosted Request Object remains fetchable at its
// request_uri before expiring.
const DefaultTTL = 10 * time.Minute

// Cache holds Request Object JWS strings (and the AuthorizationRequest
// they were built from) keyed by the request_uri path segment that
// references them, for cross-device flows where the Wallet dereferences
// the URI after scanning a QR code.
type Cache struct {
	cache *ttlcache.Cache[string, *CacheEntry]
}

// CacheEntry is what a Cache stores per request_uri key.
type CacheEntry struct {
	Request *model.AuthorizationRequest
	JWS     string
}

// NewCache creates and starts a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	c := ttlcache.New(ttlcache.WithTTL[string, *CacheEntry](ttl))
	go c.Start()
	return &Cache{cache: c}
}

// Get retrieves the entry stored under key.
func (c *Cache) Get(key string) (*CacheEntry, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set stores entry under key with the cache's default TTL.
func (c *Cache) Set(key string, entry *CacheEntry) {
	c.cache.Set(key, entry, ttlcache.DefaultTTL)
}

// Delete removes key, e.g. once the Wallet has fetched it and
// request_uri is meant to be single-use.
func (c *Cache) Delete(key string) {
	c.cache.Delete(key)
}

// Stop halts the cache's background expiration goroutine.
func (c *Cache) Stop() {
	c.cache.Stop()
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	return c.cache.Len()
}
