package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

func admissionEvent(claimantID int64, status domain.CallStatus, reason domain.RejectReason, at time.Time) storage.AdmissionEvent {
	return storage.AdmissionEvent{
		GroupID:     -1,
		ClaimantID:  claimantID,
		DisplayName: "Alice",
		Handle:      "alicex",
		Status:      status,
		Reason:      reason,
		At:          at,
	}
}

func TestProfileStore_ApplyAdmissionUpserts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewProfileStore(pool)
	ctx := context.Background()

	require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(100, domain.CallAccepted, "", baseTime)))
	require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, baseTime.Add(time.Minute))))
	require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, baseTime.Add(2*time.Minute))))

	p, err := s.Get(ctx, -1, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.AcceptedCalls)
	require.Equal(t, int64(2), p.RejectedCalls)
	require.Equal(t, map[domain.RejectReason]int64{domain.RejectDuplicateCA: 2}, p.RejectReasons)
	require.True(t, p.FirstSeen.Equal(baseTime), "first seen is preserved across upserts")
	require.True(t, p.UpdatedAt.Equal(baseTime.Add(2*time.Minute)))
	require.True(t, p.HotAlert.NotifiedAt.IsZero())

	err = s.ApplyAdmission(ctx, storage.AdmissionEvent{GroupID: -1, ClaimantID: 100, Status: "weird"})
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = s.Get(ctx, -1, 999)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfileStore_SetAlertStateCreatesProfile(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewProfileStore(pool)
	ctx := context.Background()

	notified := baseTime.Add(time.Hour)
	require.NoError(t, s.SetAlertState(ctx, -1, 100, domain.AlertHot, domain.AlertState{NotifiedAt: notified, StreakLen: 3}))

	p, err := s.Get(ctx, -1, 100)
	require.NoError(t, err)
	require.True(t, p.HotAlert.NotifiedAt.Equal(notified))
	require.Equal(t, 3, p.HotAlert.StreakLen)
	require.True(t, p.ColdAlert.NotifiedAt.IsZero())
	require.Zero(t, p.ColdAlert.StreakLen)

	// Updating one kind must not clobber the other.
	require.NoError(t, s.SetAlertState(ctx, -1, 100, domain.AlertCold, domain.AlertState{NotifiedAt: notified.Add(time.Hour), StreakLen: 4}))

	p, err = s.Get(ctx, -1, 100)
	require.NoError(t, err)
	require.True(t, p.HotAlert.NotifiedAt.Equal(notified))
	require.Equal(t, 4, p.ColdAlert.StreakLen)

	err = s.SetAlertState(ctx, -1, 100, "lukewarm", domain.AlertState{})
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestProfileStore_TopRejectedOrdersAndLimits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewProfileStore(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(200, domain.CallRejected, domain.RejectLateSubmission, baseTime)))
	}
	require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, baseTime)))
	require.NoError(t, s.ApplyAdmission(ctx, admissionEvent(300, domain.CallAccepted, "", baseTime)))

	profiles, err := s.TopRejected(ctx, -1, 2)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, int64(200), profiles[0].ClaimantID)
	require.Equal(t, int64(3), profiles[0].RejectedCalls)
	require.Equal(t, int64(100), profiles[1].ClaimantID)
}
