package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSource supplies access tokens.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Token must honor cancellation.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns itself.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// DefaultRefreshLeeway is how long before expiry a cached token is refreshed.
const DefaultRefreshLeeway = 30 * time.Second

// CachingTokenSource caches tokens from a slower source. A cached JWT is
// reused until it is within Leeway of its exp claim; opaque tokens are cached
// until Invalidate. Concurrent refreshes share one call to the source.
type CachingTokenSource struct {
	source TokenSource
	leeway time.Duration
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

// NewCachingTokenSource wraps source. A non-positive leeway uses
// DefaultRefreshLeeway.
func NewCachingTokenSource(source TokenSource, leeway time.Duration) *CachingTokenSource {
	if leeway <= 0 {
		leeway = DefaultRefreshLeeway
	}
	return &CachingTokenSource{source: source, leeway: leeway, now: time.Now}
}

// Token returns the cached token or fetches a fresh one.
func (c *CachingTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.fresh() {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("token", func() (any, error) {
		token, err := c.source.Token(ctx)
		if err != nil {
			return "", err
		}
		if err := CheckToken(token, c.now(), 0); err != nil {
			return "", err
		}
		expiry, _ := TokenExpiry(token)

		c.mu.Lock()
		c.token = token
		c.expiry = expiry
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, for example after the server rejected it.
func (c *CachingTokenSource) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

func (c *CachingTokenSource) fresh() bool {
	return c.expiry.IsZero() || c.now().Add(c.leeway).Before(c.expiry)
}

var (
	_ TokenSource = StaticToken("")
	_ TokenSource = TokenSourceFunc(nil)
	_ TokenSource = (*CachingTokenSource)(nil)
)
