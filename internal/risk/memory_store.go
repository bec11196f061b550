package risk

import (
	"context"
	"sync"
)

// maxVerdictsPerHost bounds the in-memory audit trail.
const maxVerdictsPerHost = 500

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu       sync.RWMutex
	verdicts map[string][]*Verdict // host → verdicts, oldest first
}

// NewMemoryStore creates an in-memory verdict store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		verdicts: make(map[string][]*Verdict),
	}
}

func (s *MemoryStore) Record(ctx context.Context, v *Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := copyVerdict(v)
	all := append(s.verdicts[v.Host], c)
	if len(all) > maxVerdictsPerHost {
		all = all[len(all)-maxVerdictsPerHost:]
	}
	s.verdicts[v.Host] = all
	return nil
}

func (s *MemoryStore) ListByHost(ctx context.Context, host string, limit int) ([]*Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.verdicts[host]
	if len(all) == 0 {
		return nil, nil
	}

	// Most recent first, up to limit
	start := len(all) - limit
	if start < 0 {
		start = 0
	}

	result := make([]*Verdict, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		result = append(result, copyVerdict(all[i]))
	}
	return result, nil
}

func copyVerdict(v *Verdict) *Verdict {
	c := *v
	c.Issues = append([]Issue(nil), v.Issues...)
	return &c
}
