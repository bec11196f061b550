package lists

import "sync"

// Registry holds the in-memory allow and deny sets consulted on every scan.
// Writers replace whole sets; readers resolve against a consistent pair.
type Registry struct {
	mu    sync.RWMutex
	allow Set
	deny  Set
}

// NewRegistry creates a registry populated from persisted entries.
func NewRegistry(entries []Entry) *Registry {
	r := &Registry{allow: NewSet(), deny: NewSet()}
	r.Load(entries)
	return r
}

// Load replaces both sets with the given entries.
func (r *Registry) Load(entries []Entry) {
	allow, deny := NewSet(), NewSet()
	for _, e := range entries {
		switch e.Tag {
		case TagAllow:
			allow.Add(e.Pattern)
		case TagDeny:
			deny.Add(e.Pattern)
		}
	}
	r.mu.Lock()
	r.allow, r.deny = allow, deny
	r.mu.Unlock()
}

// Resolve returns the override for hostname and the pattern that produced it.
func (r *Registry) Resolve(hostname string) (Resolution, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.allow.Match(hostname); ok {
		return ResolutionAllow, p
	}
	if p, ok := r.deny.Match(hostname); ok {
		return ResolutionDeny, p
	}
	return ResolutionNone, ""
}

// Add inserts a canonical pattern, reporting whether it was new. Unknown
// tags are ignored.
func (r *Registry) Add(tag Tag, pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(tag)
	if s == nil {
		return false
	}
	return s.Add(pattern)
}

// Remove deletes a pattern, reporting whether it was present.
func (r *Registry) Remove(tag Tag, pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.set(tag)
	if s == nil {
		return false
	}
	return s.Remove(pattern)
}

// Has reports whether the pattern is on the tagged list.
func (r *Registry) Has(tag Tag, pattern string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set(tag).Has(pattern)
}

// Replace swaps the tagged list for a new set of patterns. Unknown tags are
// ignored.
func (r *Registry) Replace(tag Tag, patterns []string) {
	next := NewSet(patterns...)
	r.mu.Lock()
	defer r.mu.Unlock()
	switch tag {
	case TagAllow:
		r.allow = next
	case TagDeny:
		r.deny = next
	}
}

// Patterns returns sorted copies of both lists.
func (r *Registry) Patterns() (allow, deny []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allow.Patterns(), r.deny.Patterns()
}

// set returns the tagged set, or nil for an unknown tag. Caller must hold r.mu.
func (r *Registry) set(tag Tag) Set {
	switch tag {
	case TagAllow:
		return r.allow
	case TagDeny:
		return r.deny
	}
	return nil
}
