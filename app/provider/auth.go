package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type authToken struct {
	accessToken string
	validUntil  time.Time
}

// tokenCache holds the process-wide gateway bearer token. At most one token
// request is in flight at a time; concurrent callers share its result.
type tokenCache struct {
	mu        sync.Mutex
	token     *authToken
	group     singleflight.Group
	threshold time.Duration
	now       func() time.Time
	fetch     func(ctx context.Context) (*authToken, error)
}

func newTokenCache(threshold time.Duration, fetch func(ctx context.Context) (*authToken, error)) *tokenCache {
	return &tokenCache{
		threshold: threshold,
		now:       time.Now,
		fetch:     fetch,
	}
}

func (c *tokenCache) get(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}
	return c.refresh(ctx, false)
}

func (c *tokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return "", false
	}
	if !c.now().Add(c.threshold).Before(c.token.validUntil) {
		return "", false
	}
	return c.token.accessToken, true
}

func (c *tokenCache) refresh(ctx context.Context, force bool) (string, error) {
	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		if !force {
			if token, ok := c.cached(); ok {
				return token, nil
			}
		}

		// The shared request must not die with whichever caller started it.
		token, err := c.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		return token.accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
