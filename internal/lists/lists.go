// Package lists resolves hostnames against user-managed allow and deny
// pattern sets.
//
// Patterns are bare domains ("example.com", matching the domain and every
// subdomain) or wildcards ("*.example.com", matching the base domain and every
// subdomain). An allow match always beats a deny match.
package lists

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tag names the list an entry belongs to.
type Tag string

const (
	TagAllow Tag = "ALLOW"
	TagDeny  Tag = "DENY"
)

// ErrUnknownTag is returned for tags other than ALLOW and DENY.
var ErrUnknownTag = errors.New("unknown list tag")

// Valid reports whether t is ALLOW or DENY exactly.
func (t Tag) Valid() bool {
	return t == TagAllow || t == TagDeny
}

// ParseTag accepts "allow"/"deny" in any case.
func ParseTag(s string) (Tag, error) {
	if t := Tag(strings.ToUpper(strings.TrimSpace(s))); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownTag, s)
}

// Resolution is the outcome of matching a host against both lists.
type Resolution string

const (
	ResolutionNone  Resolution = "NONE"
	ResolutionAllow Resolution = "ALLOW"
	ResolutionDeny  Resolution = "DENY"
)

// Entry is a single persisted list pattern.
type Entry struct {
	Tag       Tag       `json:"tag"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"createdAt"`
}

// Normalize strips scheme, userinfo, path, query, fragment, port and a
// leading "www." and lower-cases the rest. A "*." wildcard prefix is kept.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = stripPort(s)
	s = strings.TrimSuffix(s, ".")

	wildcard := strings.HasPrefix(s, "*.")
	if wildcard {
		s = s[2:]
	}
	s = strings.TrimPrefix(s, "www.")
	if wildcard {
		return "*." + s
	}
	return s
}

func stripPort(s string) string {
	if strings.HasPrefix(s, "[") {
		if i := strings.Index(s, "]"); i >= 0 {
			return s[:i+1]
		}
		return s
	}
	i := strings.LastIndex(s, ":")
	if i < 0 || strings.Count(s, ":") > 1 {
		return s
	}
	for _, r := range s[i+1:] {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[:i]
}

// Matches reports whether hostname is covered by pattern.
func Matches(hostname, pattern string) bool {
	h := Normalize(hostname)
	p := Normalize(pattern)
	if h == "" || p == "" {
		return false
	}
	return matchNormalized(h, p)
}

func matchNormalized(h, p string) bool {
	if base, ok := strings.CutPrefix(p, "*."); ok {
		return h == base || strings.HasSuffix(h, "."+base)
	}
	return h == p || strings.HasSuffix(h, "."+p)
}

// Set is an unordered collection of normalized patterns.
type Set map[string]struct{}

// NewSet builds a set from raw patterns.
func NewSet(patterns ...string) Set {
	s := make(Set, len(patterns))
	for _, p := range patterns {
		s.Add(p)
	}
	return s
}

// Add inserts a pattern, reporting whether it was new.
func (s Set) Add(pattern string) bool {
	p := Normalize(pattern)
	if p == "" {
		return false
	}
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Remove deletes a pattern, reporting whether it was present.
func (s Set) Remove(pattern string) bool {
	p := Normalize(pattern)
	if _, ok := s[p]; !ok {
		return false
	}
	delete(s, p)
	return true
}

// Has reports membership of the normalized pattern.
func (s Set) Has(pattern string) bool {
	_, ok := s[Normalize(pattern)]
	return ok
}

// Match returns the most specific pattern that covers hostname. It walks the
// host's parent domains, so the cost depends on the label count only.
func (s Set) Match(hostname string) (string, bool) {
	h := Normalize(hostname)
	if h == "" || strings.HasPrefix(h, "*.") {
		return "", false
	}
	for d := h; d != ""; {
		if _, ok := s[d]; ok {
			return d, true
		}
		if _, ok := s["*."+d]; ok {
			return "*." + d, true
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	return "", false
}

// Patterns returns the members in sorted order.
func (s Set) Patterns() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for p := range s {
		c[p] = struct{}{}
	}
	return c
}

// Resolve checks allow before deny.
func Resolve(hostname string, allow, deny Set) Resolution {
	if _, ok := allow.Match(hostname); ok {
		return ResolutionAllow
	}
	if _, ok := deny.Match(hostname); ok {
		return ResolutionDeny
	}
	return ResolutionNone
}
