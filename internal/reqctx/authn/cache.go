package authn

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// jwksCache fetches and caches a JWKS document for cacheDuration: a
// fetch-once-then-serve-stale-until-expiry single-key cache implemented
// directly over sync.Mutex and time.Time, since the key set is looked up by
// a single well-known URL and needs no general-purpose cache library.
type jwksCache struct {
	url           string
	cacheDuration time.Duration
	client        *http.Client

	mu        sync.Mutex
	set       *jwkSet
	fetchedAt time.Time
}

func newJWKSCache(url string, cacheDuration time.Duration) *jwksCache {
	return &jwksCache{
		url:           url,
		cacheDuration: cacheDuration,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *jwksCache) get(ctx context.Context) (*jwkSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil && time.Since(c.fetchedAt) < c.cacheDuration {
		return c.set, nil
	}

	set, err := fetchJWKSet(ctx, c.client, c.url)
	if err != nil {
		if c.set != nil {
			return c.set, nil
		}

		return nil, err
	}

	c.set = set
	c.fetchedAt = time.Now()

	return c.set, nil
}
