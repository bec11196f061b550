//go:build integration

package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/fountainscan/internal/pagination"
	"github.com/mbd888/fountainscan/internal/risk"
	"github.com/mbd888/fountainscan/internal/testutil"
)

func TestPostgresStore_Lifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	s := NewPostgresStore(db)
	require.NoError(t, s.Migrate(ctx))

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"rpt_a", "rpt_b", "rpt_c"} {
		require.NoError(t, s.Create(ctx, &Report{
			ID:        id,
			URL:       "https://scam.example/" + id,
			Host:      "scam.example",
			Reason:    "fee",
			RiskLevel: risk.LevelHigh,
			RiskScore: 9,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := s.List(ctx, 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "rpt_c", page[0].ID)
	assert.Equal(t, "rpt_b", page[1].ID)

	last := page[1]
	page, err = s.List(ctx, 2, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "rpt_a", page[0].ID)
	assert.False(t, page[0].Forwarded)

	require.NoError(t, s.MarkForwarded(ctx, "rpt_a"))
	page, err = s.List(ctx, 1, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	require.NoError(t, err)
	assert.True(t, page[0].Forwarded)

	assert.True(t, errors.Is(s.MarkForwarded(ctx, "rpt_missing"), ErrNotFound))
}
