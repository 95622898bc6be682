package fasign

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// fetchFunc acquires a fresh token and reports when it expires.
type fetchFunc func(ctx context.Context) (string, time.Time, error)

// TokenCache holds the provider bearer token. It is empty at process start,
// populated lazily and never persisted. Concurrent callers observing a
// missing or expiring token share a single in-flight refresh.
type TokenCache struct {
	mu        sync.Mutex
	group     singleflight.Group
	token     string
	expiresAt time.Time
	grace     time.Duration
	now       func() time.Time
}

// NewTokenCache creates an empty cache that refreshes grace ahead of expiry.
func NewTokenCache(grace time.Duration) *TokenCache {
	return &TokenCache{grace: grace, now: time.Now}
}

// Token returns a valid token, refreshing through fetch when needed.
func (c *TokenCache) Token(ctx context.Context, fetch fetchFunc) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	v, err, _ := c.group.Do("access-token", func() (any, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		token, expiresAt, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token = token
		c.expiresAt = expiresAt
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next caller refreshes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if !c.now().Before(c.expiresAt.Add(-c.grace)) {
		return "", false
	}
	return c.token, true
}
