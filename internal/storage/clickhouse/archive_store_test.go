package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

var archiveBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func archivedCall(groupID int64, seq int) *domain.ArchivedCall {
	return &domain.ArchivedCall{
		CallID:       fmt.Sprintf("g%d-call-%d", groupID, seq),
		GroupID:      groupID,
		AddressNorm:  fmt.Sprintf("addr-%d", seq),
		ClaimantID:   ptr(int64(100 + seq)),
		ClaimantName: "alice",
		Symbol:       "YBI",
		InitialVal:   10000,
		CurrentVal:   12000,
		PeakVal:      15000,
		SubmittedAt:  archiveBase.Add(time.Duration(seq) * time.Second),
		StashedAt:    archiveBase.Add(time.Hour),
		ArchivedAt:   archiveBase.Add(2 * time.Hour),
	}
}

func TestArchiveStore_InsertBulkIsRetryable(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArchiveStore(conn)
	ctx := context.Background()

	batch := []*domain.ArchivedCall{archivedCall(-500, 1), archivedCall(-500, 2)}
	require.NoError(t, store.InsertBulk(ctx, batch))

	// Replaying the same sweep must not inflate the count.
	require.NoError(t, store.InsertBulk(ctx, batch))

	count, err := store.CountByGroup(ctx, -500)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.NoError(t, store.InsertBulk(ctx, nil))

	err = store.InsertBulk(ctx, []*domain.ArchivedCall{{}})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestArchiveStore_ExistsIsGroupScoped(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArchiveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ArchivedCall{archivedCall(-500, 1)}))

	exists, err := store.Exists(ctx, -500, "addr-1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.Exists(ctx, -501, "addr-1")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = store.Exists(ctx, -500, "addr-2")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestArchiveStore_DeleteOlderThan(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArchiveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ArchivedCall{
		archivedCall(-500, 1),
		archivedCall(-500, 2),
		archivedCall(-500, 3),
		archivedCall(-501, 1),
	}))

	// Records 1 and 2 predate the cutoff, record 3 does not. The other
	// group is untouched.
	deleted, err := store.DeleteOlderThan(ctx, -500, archiveBase.Add(3*time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	count, err := store.CountByGroup(ctx, -500)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, err = store.CountByGroup(ctx, -501)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	deleted, err = store.DeleteOlderThan(ctx, -500, archiveBase)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
