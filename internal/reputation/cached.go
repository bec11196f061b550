package reputation

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL is how long CachedProbe remembers an answer.
const DefaultCacheTTL = 6 * time.Hour

type cachedAnswer struct {
	recent    bool
	expiresAt time.Time
}

// CachedProbe memoizes successful answers of an underlying probe per domain.
// Errors are not cached. Concurrent lookups of one domain share a single call.
type CachedProbe struct {
	probe Probe
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	answers map[string]cachedAnswer
	group   singleflight.Group
}

// NewCachedProbe wraps p. A non-positive ttl uses DefaultCacheTTL.
func NewCachedProbe(p Probe, ttl time.Duration) *CachedProbe {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProbe{
		probe:   p,
		ttl:     ttl,
		now:     time.Now,
		answers: make(map[string]cachedAnswer),
	}
}

// IsRecentlyRegistered returns the remembered answer or asks the underlying probe.
func (c *CachedProbe) IsRecentlyRegistered(ctx context.Context, domain string) (bool, error) {
	domain = strings.ToLower(domain)

	c.mu.Lock()
	a, ok := c.answers[domain]
	if ok && c.now().Before(a.expiresAt) {
		c.mu.Unlock()
		return a.recent, nil
	}
	if ok {
		delete(c.answers, domain)
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(domain, func() (interface{}, error) {
		recent, err := c.probe.IsRecentlyRegistered(ctx, domain)
		if err != nil {
			return false, err
		}
		c.mu.Lock()
		c.answers[domain] = cachedAnswer{recent: recent, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return recent, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Len returns the number of remembered answers, including expired ones not
// yet evicted.
func (c *CachedProbe) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}
