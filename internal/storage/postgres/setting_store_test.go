package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

func TestSettingStore_UpsertsPreserveOtherFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewSettingStore(pool)
	ctx := context.Background()

	_, err := s.Get(ctx, -1)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SetAlerts(ctx, -1, true))
	require.NoError(t, s.SetLastDigestDate(ctx, -1, "2025-06-01"))
	require.NoError(t, s.SetGroupKey(ctx, -1, "alpha-lounge"))

	got, err := s.Get(ctx, -1)
	require.NoError(t, err)
	require.True(t, got.AlertsEnabled)
	require.Equal(t, "2025-06-01", got.LastDigestDate)
	require.Equal(t, "alpha-lounge", got.GroupKey)

	// Clearing the key must not touch the other fields.
	require.NoError(t, s.SetGroupKey(ctx, -1, ""))

	got, err = s.Get(ctx, -1)
	require.NoError(t, err)
	require.True(t, got.AlertsEnabled)
	require.Empty(t, got.GroupKey)
}

func TestSettingStore_GroupIDsSorted(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewSettingStore(pool)
	ctx := context.Background()

	require.NoError(t, s.SetAlerts(ctx, -1, true))
	require.NoError(t, s.SetAlerts(ctx, -3, false))
	require.NoError(t, s.SetAlerts(ctx, -2, true))

	ids, err := s.GroupIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-3, -2, -1}, ids)
}
