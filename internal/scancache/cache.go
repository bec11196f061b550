// Package scancache bounds how often a target is re-evaluated. Entries are
// fresh for a short window, stale until a hard expiry, and gone after it.
package scancache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mbd888/fountainscan/internal/metrics"
	"github.com/mbd888/fountainscan/internal/risk"
)

// Defaults for the two windows.
const (
	DefaultFreshness = 5 * time.Minute
	DefaultExpiry    = 24 * time.Hour
)

const shardCount = 32

// Status describes the outcome of a lookup.
type Status int

const (
	Miss Status = iota
	Fresh
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

type entry struct {
	verdict     *risk.Verdict
	storedAt    time.Time
	withContent bool
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Cache maps target keys to their latest verdict. Every InvalidateAll starts
// a new generation; PutIfGeneration refuses verdicts computed in an older one.
type Cache struct {
	shards     [shardCount]*shard
	generation atomic.Uint64

	mu        sync.RWMutex
	freshness time.Duration
	expiry    time.Duration
	now       func() time.Time
}

// New creates a cache. Non-positive windows use the defaults; an expiry
// shorter than the freshness window is raised to it.
func New(freshness, expiry time.Duration) *Cache {
	c := &Cache{now: time.Now}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	c.SetWindows(freshness, expiry)
	return c
}

// SetClock overrides the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// SetWindows changes the freshness and expiry windows for all entries.
func (c *Cache) SetWindows(freshness, expiry time.Duration) {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if expiry < freshness {
		expiry = freshness
	}
	c.mu.Lock()
	c.freshness = freshness
	c.expiry = expiry
	c.mu.Unlock()
}

// Windows returns the current freshness and expiry windows.
func (c *Cache) Windows() (freshness, expiry time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.freshness, c.expiry
}

func (c *Cache) clock() (now time.Time, freshness, expiry time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now(), c.freshness, c.expiry
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// Get returns the cached verdict for key and its freshness. Hard-expired
// entries are reported as a Miss even before a sweep removes them.
func (c *Cache) Get(key string) (*risk.Verdict, Status) {
	v, st, _ := c.Lookup(key)
	return v, st
}

// Lookup is Get that also reports whether the entry was computed with page
// content.
func (c *Cache) Lookup(key string) (*risk.Verdict, Status, bool) {
	now, freshness, expiry := c.clock()

	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	status := Miss
	if ok {
		switch age := now.Sub(e.storedAt); {
		case age < freshness:
			status = Fresh
		case age < expiry:
			status = Stale
		}
	}
	metrics.CacheLookupsTotal.WithLabelValues(status.String()).Inc()

	if status == Miss {
		return nil, Miss, false
	}
	return e.verdict, status, e.withContent
}

// Put stores v under key, replacing any previous entry.
func (c *Cache) Put(key string, v *risk.Verdict, withContent bool) {
	c.PutIfGeneration(key, v, withContent, c.Generation())
}

// Generation returns the current invalidation generation. Read it before
// resolving anything the verdict depends on.
func (c *Cache) Generation() uint64 {
	return c.generation.Load()
}

// PutIfGeneration stores v only if no InvalidateAll happened since gen was
// read. The comparison and the write happen under the shard lock, which
// InvalidateAll also holds while it advances the generation.
func (c *Cache) PutIfGeneration(key string, v *risk.Verdict, withContent bool, gen uint64) bool {
	if v == nil {
		return false
	}
	now, _, _ := c.clock()

	s := c.shardFor(key)
	s.mu.Lock()
	if c.generation.Load() != gen {
		s.mu.Unlock()
		return false
	}
	s.entries[key] = entry{verdict: v, storedAt: now, withContent: withContent}
	s.mu.Unlock()
	metrics.CacheEntries.Set(float64(c.Len()))
	return true
}

// Invalidate removes key.
func (c *Cache) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	metrics.CacheEntries.Set(float64(c.Len()))
}

// InvalidateAll removes every entry and starts a new generation.
func (c *Cache) InvalidateAll() {
	for _, s := range c.shards {
		s.mu.Lock()
	}
	c.generation.Add(1)
	for _, s := range c.shards {
		s.entries = make(map[string]entry)
		s.mu.Unlock()
	}
	metrics.CacheEntries.Set(0)
}

// Sweep removes hard-expired entries and returns how many it removed.
func (c *Cache) Sweep() int {
	now, _, expiry := c.clock()

	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if now.Sub(e.storedAt) >= expiry {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	metrics.CacheEntries.Set(float64(c.Len()))
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
