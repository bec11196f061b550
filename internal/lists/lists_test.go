package lists

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"EXAMPLE.com", "example.com"},
		{"https://www.example.com/path?q=1#frag", "example.com"},
		{"http://example.com:8080", "example.com"},
		{"user:pw@Example.com", "example.com"},
		{"*.Example.com/", "*.example.com"},
		{"www.example.com.", "example.com"},
		{"  sub.example.com  ", "sub.example.com"},
		{"[::1]:443", "[::1]"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"sub.example.com", "example.com", true},
		{"example.com", "sub.example.com", false},
		{"sub.example.com", "*.example.com", true},
		{"example.com", "*.example.com", true},
		{"example.com", "example.com", true},
		{"a.b.example.com", "example.com", true},
		{"notexample.com", "example.com", false},
		{"example.com.evil.org", "example.com", false},
		{"www.example.com", "example.com", true},
		{"https://sub.example.com/login", "EXAMPLE.COM", true},
		{"example.com", "", false},
		{"", "example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.host, tt.pattern), "Matches(%q, %q)", tt.host, tt.pattern)

		_, ok := NewSet(tt.pattern).Match(tt.host)
		assert.Equal(t, tt.want, ok, "Set.Match(%q) with %q", tt.host, tt.pattern)
	}
}

func TestSet_MatchMostSpecific(t *testing.T) {
	s := NewSet("example.com", "*.login.example.com", "other.org")

	p, ok := s.Match("a.login.example.com")
	assert.True(t, ok)
	assert.Equal(t, "*.login.example.com", p)

	p, ok = s.Match("shop.example.com")
	assert.True(t, ok)
	assert.Equal(t, "example.com", p)

	_, ok = s.Match("example.net")
	assert.False(t, ok)
}

func TestSet_MatchLargeFeed(t *testing.T) {
	s := make(Set, 100000)
	for i := 0; i < 100000; i++ {
		s.Add(fmt.Sprintf("scam-%d.example", i))
	}

	p, ok := s.Match("https://login.scam-99999.example/verify")
	assert.True(t, ok)
	assert.Equal(t, "scam-99999.example", p)

	_, ok = s.Match("www.benign-site.org")
	assert.False(t, ok)
}

func BenchmarkSet_MatchLargeFeed(b *testing.B) {
	s := make(Set, 100000)
	for i := 0; i < 100000; i++ {
		s.Add(fmt.Sprintf("scam-%d.example", i))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Match("www.benign-site.org")
	}
}

func TestParseTag(t *testing.T) {
	for _, in := range []string{"allow", "ALLOW", " Allow "} {
		tag, err := ParseTag(in)
		assert.NoError(t, err)
		assert.Equal(t, TagAllow, tag)
	}
	tag, err := ParseTag(" Deny ")
	assert.NoError(t, err)
	assert.Equal(t, TagDeny, tag)

	_, err = ParseTag("block")
	assert.True(t, errors.Is(err, ErrUnknownTag))

	assert.False(t, Tag("allow").Valid(), "tags are stored upper-case")
}

func TestResolve_AllowBeatsDeny(t *testing.T) {
	allow := NewSet("good.example.com")
	deny := NewSet("example.com")

	assert.Equal(t, ResolutionAllow, Resolve("good.example.com", allow, deny))
	assert.Equal(t, ResolutionDeny, Resolve("bad.example.com", allow, deny))
	assert.Equal(t, ResolutionNone, Resolve("other.org", allow, deny))
}

func TestResolve_OrderIndependent(t *testing.T) {
	patterns := []string{"*.scam.tk", "example.com", "bit.ly", "evil.org"}
	reversed := []string{"evil.org", "bit.ly", "example.com", "*.scam.tk"}

	hosts := []string{"a.scam.tk", "scam.tk", "example.com", "x.bit.ly", "clean.net"}
	for _, h := range hosts {
		assert.Equal(t,
			Resolve(h, NewSet(), NewSet(patterns...)),
			Resolve(h, NewSet(), NewSet(reversed...)),
			"host %s", h)
		assert.Equal(t,
			Resolve(h, NewSet(patterns...), NewSet()),
			Resolve(h, NewSet(reversed...), NewSet()),
			"host %s", h)
	}
}

func TestSet_AddRemove(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Add("Example.com"))
	assert.False(t, s.Add("https://www.example.com/"), "same pattern after normalization")
	assert.True(t, s.Has("example.com"))
	assert.Equal(t, []string{"example.com"}, s.Patterns())

	assert.True(t, s.Remove("EXAMPLE.COM"))
	assert.False(t, s.Remove("example.com"))
	assert.Empty(t, s.Patterns())
}
