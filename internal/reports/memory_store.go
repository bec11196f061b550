package reports

import (
	"context"
	"sort"
	"sync"

	"github.com/mbd888/fountainscan/internal/pagination"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []*Report
}

// NewMemoryStore creates an in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(ctx context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *r
	m.reports = append(m.reports, &c)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, limit int, after *pagination.Cursor) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]*Report, len(m.reports))
	copy(sorted, m.reports)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	result := make([]*Report, 0, limit)
	for _, r := range sorted {
		if len(result) >= limit {
			break
		}
		if after.After(r.CreatedAt, r.ID) {
			c := *r
			result = append(result, &c)
		}
	}
	return result, nil
}

func (m *MemoryStore) MarkForwarded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reports {
		if r.ID == id {
			r.Forwarded = true
			return nil
		}
	}
	return ErrNotFound
}
