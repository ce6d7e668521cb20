package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

func admissionEvent(claimant int64, status domain.CallStatus, reason domain.RejectReason, at time.Time) storage.AdmissionEvent {
	return storage.AdmissionEvent{
		GroupID:     -1,
		ClaimantID:  claimant,
		DisplayName: "alice",
		Handle:      "alicex",
		Status:      status,
		Reason:      reason,
		At:          at,
	}
}

func TestProfileStore_ApplyAdmissionUpserts(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()

	first := baseTime
	if err := s.ApplyAdmission(ctx, admissionEvent(100, domain.CallAccepted, "", first)); err != nil {
		t.Fatalf("ApplyAdmission failed: %v", err)
	}
	if err := s.ApplyAdmission(ctx, admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, first.Add(time.Minute))); err != nil {
		t.Fatalf("ApplyAdmission failed: %v", err)
	}
	if err := s.ApplyAdmission(ctx, admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, first.Add(2*time.Minute))); err != nil {
		t.Fatalf("ApplyAdmission failed: %v", err)
	}

	p, err := s.Get(ctx, -1, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.AcceptedCalls != 1 || p.RejectedCalls != 2 {
		t.Errorf("counters = (%d, %d), want (1, 2)", p.AcceptedCalls, p.RejectedCalls)
	}
	if p.RejectReasons[domain.RejectDuplicateCA] != 2 {
		t.Errorf("reason histogram = %v", p.RejectReasons)
	}
	if !p.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen = %v, want the original admission time", p.FirstSeen)
	}
	if !p.UpdatedAt.Equal(first.Add(2 * time.Minute)) {
		t.Errorf("UpdatedAt = %v, want the latest admission time", p.UpdatedAt)
	}
}

func TestProfileStore_GetMissing(t *testing.T) {
	s := NewProfileStore()

	if _, err := s.Get(context.Background(), -1, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestProfileStore_SetAlertStateCreatesProfile(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()

	state := domain.AlertState{NotifiedAt: baseTime, StreakLen: 4}
	if err := s.SetAlertState(ctx, -1, 100, domain.AlertHot, state); err != nil {
		t.Fatalf("SetAlertState failed: %v", err)
	}
	if err := s.SetAlertState(ctx, -1, 100, "bogus", state); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("invalid kind: err = %v, want ErrInvalidInput", err)
	}

	p, err := s.Get(ctx, -1, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.HotAlert != state {
		t.Errorf("HotAlert = %+v, want %+v", p.HotAlert, state)
	}
	if p.ColdAlert != (domain.AlertState{}) {
		t.Errorf("ColdAlert should stay zero, got %+v", p.ColdAlert)
	}
}

func TestProfileStore_TopRejectedOrdersAndLimits(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()

	for claimant, rejections := range map[int64]int{100: 1, 200: 3, 300: 0} {
		for i := 0; i < rejections; i++ {
			ev := admissionEvent(claimant, domain.CallRejected, domain.RejectLateSubmission, baseTime)
			if err := s.ApplyAdmission(ctx, ev); err != nil {
				t.Fatalf("ApplyAdmission failed: %v", err)
			}
		}
		ev := admissionEvent(claimant, domain.CallAccepted, "", baseTime)
		if err := s.ApplyAdmission(ctx, ev); err != nil {
			t.Fatalf("ApplyAdmission failed: %v", err)
		}
	}

	got, err := s.TopRejected(ctx, -1, 2)
	if err != nil {
		t.Fatalf("TopRejected failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ClaimantID != 200 || got[1].ClaimantID != 100 {
		t.Errorf("order = [%d %d], want [200 100]", got[0].ClaimantID, got[1].ClaimantID)
	}
}

func TestProfileStore_GetReturnsCopy(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()

	ev := admissionEvent(100, domain.CallRejected, domain.RejectDuplicateCA, baseTime)
	if err := s.ApplyAdmission(ctx, ev); err != nil {
		t.Fatalf("ApplyAdmission failed: %v", err)
	}

	p, err := s.Get(ctx, -1, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	p.RejectReasons[domain.RejectDuplicateCA] = 99

	again, err := s.Get(ctx, -1, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.RejectReasons[domain.RejectDuplicateCA] != 1 {
		t.Error("stored histogram aliased by the returned copy")
	}
}
