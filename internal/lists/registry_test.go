package lists

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry([]Entry{
		{Tag: TagAllow, Pattern: "safe.example.com"},
		{Tag: TagDeny, Pattern: "*.example.com"},
	})

	res, p := r.Resolve("safe.example.com")
	assert.Equal(t, ResolutionAllow, res)
	assert.Equal(t, "safe.example.com", p)

	res, p = r.Resolve("login.example.com")
	assert.Equal(t, ResolutionDeny, res)
	assert.Equal(t, "*.example.com", p)

	res, p = r.Resolve("elsewhere.org")
	assert.Equal(t, ResolutionNone, res)
	assert.Empty(t, p)
}

func TestRegistry_AddRemoveReplace(t *testing.T) {
	r := NewRegistry(nil)

	assert.True(t, r.Add(TagDeny, "scam.tk"))
	assert.False(t, r.Add(TagDeny, "scam.tk"))
	assert.True(t, r.Has(TagDeny, "scam.tk"))
	assert.False(t, r.Has(TagAllow, "scam.tk"))

	assert.True(t, r.Remove(TagDeny, "scam.tk"))
	assert.False(t, r.Remove(TagDeny, "scam.tk"))

	r.Replace(TagDeny, []string{"a.com", "b.com"})
	_, deny := r.Patterns()
	assert.Equal(t, []string{"a.com", "b.com"}, deny)
}

func TestRegistry_UnknownTagIgnored(t *testing.T) {
	r := NewRegistry([]Entry{{Tag: "GREY", Pattern: "x.com"}})

	assert.False(t, r.Add(Tag("allow"), "scam.tk"))
	assert.False(t, r.Remove(Tag("allow"), "scam.tk"))
	assert.False(t, r.Has(Tag("allow"), "scam.tk"))
	r.Replace(Tag("block"), []string{"a.com"})

	allow, deny := r.Patterns()
	assert.Empty(t, allow)
	assert.Empty(t, deny, "unknown tags never land on the deny list")
	res, _ := r.Resolve("a.com")
	assert.Equal(t, ResolutionNone, res)
}

func TestMemoryStore_UnknownTag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.ErrorIs(t, s.Add(ctx, Entry{Tag: Tag("allow"), Pattern: "x.com"}), ErrUnknownTag)
	assert.ErrorIs(t, s.Remove(ctx, Tag("allow"), "x.com"), ErrUnknownTag)
	assert.ErrorIs(t, s.Replace(ctx, Tag("block"), []string{"x.com"}), ErrUnknownTag)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Add(ctx, Entry{Tag: TagAllow, Pattern: "good.org"}))
	require.NoError(t, s.Add(ctx, Entry{Tag: TagDeny, Pattern: "bad.org"}))
	require.NoError(t, s.Add(ctx, Entry{Tag: TagDeny, Pattern: "bad.org"}))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, TagAllow, entries[0].Tag)
	assert.False(t, entries[0].CreatedAt.IsZero())

	err = s.Remove(ctx, TagAllow, "missing.org")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing.org", nf.Pattern)

	require.NoError(t, s.Replace(ctx, TagDeny, []string{"x.com", "y.com"}))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
