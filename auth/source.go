/*
Package auth supplies access credentials to the record-store backends.

PURPOSE:
  The remote tabular backend authenticates every request with a bearer
  token. Fetching a token is comparatively expensive, so CachedSource
  wraps a fetch function with the two coordination behaviors the rest
  of the system relies on:

    1. A time-boxed cache: a fetched token is served for 5 minutes.
    2. In-flight deduplication: callers arriving while a fetch is
       outstanding share that one fetch instead of starting their own.

  This is the only concurrency-coordination primitive in the system;
  repositories and the reconciliation engine stay free of shared state.
*/
package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TokenCacheDuration is the validity window of a cached token.
const TokenCacheDuration = 5 * time.Minute

// Source yields a bearer token for backend requests.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// =============================================================================
// STATIC SOURCE - Fixed token (dev, tests)
// =============================================================================

// Static wraps a fixed token, e.g. one issued out of band.
func Static(token string) Source {
	return staticSource{ts: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}

type staticSource struct {
	ts oauth2.TokenSource
}

func (s staticSource) Token(_ context.Context) (string, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// =============================================================================
// CACHED SOURCE - TTL cache + in-flight dedup
// =============================================================================

// FetchFunc obtains a fresh token from the credential provider.
type FetchFunc func(ctx context.Context) (*oauth2.Token, error)

type fetchCall struct {
	done  chan struct{}
	token string
	err   error
}

// CachedSource caches tokens for TokenCacheDuration and shares one
// outstanding fetch among concurrent callers. A failed fetch clears
// the cache so the next caller retries.
type CachedSource struct {
	fetch FetchFunc

	mu        sync.Mutex
	cached    string
	fetchedAt time.Time
	inflight  *fetchCall
	nowFn     func() time.Time
}

func NewCachedSource(fetch FetchFunc) *CachedSource {
	return &CachedSource{fetch: fetch, nowFn: time.Now}
}

func (c *CachedSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()

	if c.cached != "" && c.nowFn().Sub(c.fetchedAt) < TokenCacheDuration {
		token := c.cached
		c.mu.Unlock()
		return token, nil
	}

	if call := c.inflight; call != nil {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &fetchCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	tok, err := c.fetch(ctx)

	c.mu.Lock()
	c.inflight = nil
	if err != nil {
		c.cached = ""
		c.fetchedAt = time.Time{}
		call.err = err
	} else {
		c.cached = tok.AccessToken
		c.fetchedAt = c.nowFn()
		call.token = tok.AccessToken
	}
	c.mu.Unlock()

	close(call.done)
	return call.token, call.err
}

// Invalidate drops the cached token, forcing the next caller to fetch.
// Called after the backend rejects a request as unauthorized.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.cached = ""
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
