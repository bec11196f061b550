package scancache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically removes hard-expired entries from a Cache.
type Sweeper struct {
	cache    *Cache
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a sweeper. interval defaults to one minute.
func NewSweeper(cache *Cache, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		cache:    cache,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is done or Stop is called. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.cache.Sweep(); n > 0 {
				s.logger.Debug("scan cache swept", "removed", n, "remaining", s.cache.Len())
			}
		}
	}
}

// Stop signals the sweep loop to exit.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
