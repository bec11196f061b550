//go:build integration

package lists

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fountainscan/internal/testutil"
)

func TestPostgresStore_Lifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	s := NewPostgresStore(db)
	require.NoError(t, s.Migrate(ctx))

	require.NoError(t, s.Add(ctx, Entry{Tag: TagAllow, Pattern: "good.org"}))
	require.NoError(t, s.Add(ctx, Entry{Tag: TagAllow, Pattern: "good.org"}))
	require.NoError(t, s.Add(ctx, Entry{Tag: TagDeny, Pattern: "*.bad.org"}))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	err = s.Remove(ctx, TagDeny, "nope.org")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Remove(ctx, TagAllow, "good.org"))

	require.NoError(t, s.Replace(ctx, TagDeny, []string{"a.com", "b.com", "a.com"}))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.com", entries[0].Pattern)
	assert.Equal(t, TagDeny, entries[1].Tag)
}
