package lists

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists list entries across restarts.
type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Add(ctx context.Context, entry Entry) error
	// Remove returns *NotFoundError when the entry does not exist.
	Remove(ctx context.Context, tag Tag, pattern string) error
	Replace(ctx context.Context, tag Tag, patterns []string) error
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Tag]map[string]Entry
}

// NewMemoryStore creates an empty in-memory list store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[Tag]map[string]Entry{
			TagAllow: {},
			TagDeny:  {},
		},
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, byPattern := range s.entries {
		for _, e := range byPattern {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out, nil
}

func (s *MemoryStore) Add(ctx context.Context, entry Entry) error {
	if !entry.Tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, entry.Tag)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.Tag][entry.Pattern]; ok {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries[entry.Tag][entry.Pattern] = entry
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, tag Tag, pattern string) error {
	if !tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, tag)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[tag][pattern]; !ok {
		return &NotFoundError{Tag: tag, Pattern: pattern}
	}
	delete(s.entries[tag], pattern)
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, tag Tag, patterns []string) error {
	if !tag.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownTag, tag)
	}
	now := time.Now()
	next := make(map[string]Entry, len(patterns))
	for _, p := range patterns {
		next[p] = Entry{Tag: tag, Pattern: p, CreatedAt: now}
	}

	s.mu.Lock()
	s.entries[tag] = next
	s.mu.Unlock()
	return nil
}
