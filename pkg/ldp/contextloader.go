package ldp

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/piprate/json-gold/ld"
)

// DefaultContextCacheTTL bounds how long a fetched JSON-LD context document
// stays cached before the next canonicalization re-fetches it.
const DefaultContextCacheTTL = 24 * time.Hour

// CachingDocumentLoader is a ld.DocumentLoader that serves known contexts
// from an in-memory cache before falling back to the default HTTP loader.
// Verifying a presentation canonicalizes the same handful of contexts
// (the VC Data Model context, whatever vocabulary the issuer declared)
// over and over; without caching every verification would re-fetch them.
type CachingDocumentLoader struct {
	fallback ld.DocumentLoader
	cache    *ttlcache.Cache[string, *ld.RemoteDocument]
}

// NewCachingDocumentLoader creates a loader seeded with the given contexts
// (url -> parsed JSON-LD document) and falling back to the network for
// anything not preloaded.
func NewCachingDocumentLoader(preload map[string]any) *CachingDocumentLoader {
	cache := ttlcache.New[string, *ld.RemoteDocument](
		ttlcache.WithTTL[string, *ld.RemoteDocument](DefaultContextCacheTTL),
	)
	go cache.Start()

	l := &CachingDocumentLoader{
		fallback: ld.NewDefaultDocumentLoader(nil),
		cache:    cache,
	}
	for url, doc := range preload {
		l.cache.Set(url, &ld.RemoteDocument{DocumentURL: url, Document: doc}, ttlcache.NoTTL)
	}
	return l
}

// LoadDocument implements ld.DocumentLoader.
func (l *CachingDocumentLoader) LoadDocument(url string) (*ld.RemoteDocument, error) {
	if item := l.cache.Get(url); item != nil {
		return item.Value(), nil
	}

	doc, err := l.fallback.LoadDocument(url)
	if err != nil {
		return nil, err
	}

	l.cache.Set(url, doc, ttlcache.DefaultTTL)
	return doc, nil
}

// Stop releases the cache's background eviction goroutine.
func (l *CachingDocumentLoader) Stop() {
	l.cache.Stop()
}
