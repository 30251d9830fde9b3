package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// cachedToken is a cached token value plus its absolute expiry.
type cachedToken struct {
	value  string
	expiry time.Time
}

// CachingProvider wraps an inner Provider with a TTL-bounded cache. Within
// ttl-refreshBuffer of a successful fetch, Token returns the cached value
// without invoking inner. Once within refreshBuffer of expiry, Token kicks
// off a background refresh (so concurrent callers keep getting the still-
// valid cached token immediately) and blocks only once the token has fully
// expired. At most one fetch of inner is ever in flight at a time, enforced
// with singleflight.
//
// The zero value is not usable; construct with NewCachingProvider.
type CachingProvider struct {
	inner         Provider
	ttl           time.Duration
	refreshBuffer time.Duration
	logger        *slog.Logger

	sf singleflight.Group

	mu     sync.Mutex
	cached *cachedToken
}

// NewCachingProvider creates a CachingProvider. ttl is how long a fetched
// token is considered valid; refreshBuffer is how far before expiry a
// background refresh is triggered. A nil logger discards log output.
func NewCachingProvider(inner Provider, ttl, refreshBuffer time.Duration, logger *slog.Logger) *CachingProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachingProvider{inner: inner, ttl: ttl, refreshBuffer: refreshBuffer, logger: logger}
}

// Token implements Provider.
func (c *CachingProvider) Token(ctx context.Context) (string, error) {
	now := time.Now()

	c.mu.Lock()
	cached := c.cached
	c.mu.Unlock()

	if cached != nil {
		if now.Before(cached.expiry) {
			// Still valid. If we're inside the refresh window, kick a
			// background refresh but do not block this caller on it.
			if now.After(cached.expiry.Add(-c.refreshBuffer)) {
				c.refreshAsync()
			}
			return cached.value, nil
		}
	}

	// Fully expired (or never fetched): block until a fresh token is
	// available. singleflight collapses concurrent callers into one fetch.
	v, err, _ := c.sf.Do("token", func() (any, error) {
		return c.fetchWithRetry(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// refreshAsync starts a background refresh if one is not already running,
// via the same singleflight key used by Token so the two paths can never
// race into two concurrent fetches.
func (c *CachingProvider) refreshAsync() {
	go func() {
		_, err, _ := c.sf.Do("token", func() (any, error) {
			return c.fetchWithRetry(context.Background())
		})
		if err != nil {
			c.logger.Warn("auth: background token refresh failed", slog.Any("error", err))
		}
	}()
}

// fetchWithRetry calls inner.Token, retrying with exponential backoff on
// transient failure, and stores the result in the cache on success.
func (c *CachingProvider) fetchWithRetry(ctx context.Context) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	var token string
	op := func() error {
		t, err := c.inner.Token(ctx)
		if err != nil {
			return err
		}
		token = t
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cached = &cachedToken{value: token, expiry: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return token, nil
}
