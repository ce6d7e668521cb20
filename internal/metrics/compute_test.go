package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

func acceptedCall(initial, current, peak float64) *domain.CallRecord {
	return &domain.CallRecord{
		Status:     domain.CallAccepted,
		InitialVal: initial,
		CurrentVal: current,
		PeakVal:    peak,
	}
}

func TestDerive_EmptySet(t *testing.T) {
	s := Derive(nil)

	if s.Calls != 0 {
		t.Errorf("expected 0 calls, got %d", s.Calls)
	}
	if s.Reputation != 0 {
		t.Errorf("expected 0 reputation, got %f", s.Reputation)
	}
	if len(s.Badges) != 0 {
		t.Errorf("expected no badges, got %v", s.Badges)
	}
}

func TestDerive_ExcludesNonPositiveInitial(t *testing.T) {
	calls := []*domain.CallRecord{
		acceptedCall(0, 100, 100),
		acceptedCall(-5, 100, 100),
	}

	s := Derive(calls)
	if s.Calls != 0 {
		t.Errorf("expected all calls excluded, got %d", s.Calls)
	}
}

func TestDerive_WinRate(t *testing.T) {
	// Peak multiples 3.0, 1.5, 2.0 with threshold 2.0 → 2 of 3 win.
	calls := []*domain.CallRecord{
		acceptedCall(100, 150, 300),
		acceptedCall(100, 120, 150),
		acceptedCall(100, 100, 200),
	}

	s := Derive(calls)
	if s.Calls != 3 {
		t.Fatalf("expected 3 calls, got %d", s.Calls)
	}
	want := 2.0 / 3.0
	if math.Abs(s.WinRate-want) > 1e-9 {
		t.Errorf("expected win rate %f, got %f", want, s.WinRate)
	}
}

func TestDerive_ProfitableRateUsesCurrentValue(t *testing.T) {
	// High peak but collapsed current: a win, not profitable.
	calls := []*domain.CallRecord{
		acceptedCall(100, 50, 500),
	}

	s := Derive(calls)
	if s.WinRate != 1.0 {
		t.Errorf("expected win rate 1.0, got %f", s.WinRate)
	}
	if s.ProfitableRate != 0.0 {
		t.Errorf("expected profitable rate 0.0, got %f", s.ProfitableRate)
	}
}

func TestDerive_PeakFloorsAtCurrent(t *testing.T) {
	// Stored peak below current: current wins.
	calls := []*domain.CallRecord{
		acceptedCall(100, 400, 200),
	}

	s := Derive(calls)
	if s.BestX != 4.0 {
		t.Errorf("expected best multiple 4.0, got %f", s.BestX)
	}
}

func TestDerive_ReputationBounds(t *testing.T) {
	cases := [][]*domain.CallRecord{
		{acceptedCall(100, 1, 1)},                            // total collapse
		{acceptedCall(1, 100000, 100000)},                    // extreme upside
		{acceptedCall(100, 250, 300), acceptedCall(1, 1, 1)}, // mixed
	}

	for i, calls := range cases {
		s := Derive(calls)
		if s.Reputation < 0 || s.Reputation > 100 {
			t.Errorf("case %d: reputation %f out of [0,100]", i, s.Reputation)
		}
	}
}

func TestDerive_Badges(t *testing.T) {
	calls := []*domain.CallRecord{acceptedCall(100, 100, 11000)}

	s := Derive(calls)
	if len(s.Badges) == 0 || s.Badges[0] != "100x Legend" {
		t.Errorf("expected 100x Legend badge, got %v", s.Badges)
	}

	s = Derive([]*domain.CallRecord{acceptedCall(100, 100, 1200)})
	if len(s.Badges) == 0 || s.Badges[0] != "Sniper" {
		t.Errorf("expected Sniper badge, got %v", s.Badges)
	}
}

func TestDeriveRugStats(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-24 * time.Hour)
	fresh := now.Add(-1 * time.Hour)

	rug := acceptedCall(100, 20, 110) // peak 1.1x < 1.2, current 0.2x <= 0.3
	rug.SubmittedAt = old
	survivor := acceptedCall(100, 150, 300)
	survivor.SubmittedAt = old
	tooYoung := acceptedCall(100, 10, 100)
	tooYoung.SubmittedAt = fresh

	r := DeriveRugStats([]*domain.CallRecord{rug, survivor, tooYoung}, now)

	if r.Eligible != 2 {
		t.Errorf("expected 2 eligible, got %d", r.Eligible)
	}
	if r.Rugs != 1 {
		t.Errorf("expected 1 rug, got %d", r.Rugs)
	}
	if math.Abs(r.RatePct-50.0) > 1e-9 {
		t.Errorf("expected 50%%, got %f", r.RatePct)
	}
}

func TestLeadingRun_StopsAtFirstMiss(t *testing.T) {
	// Most-recent-first peak multiples: 2.5 win, 3.0 win, 0.8 loss, 5.0 win.
	calls := []*domain.CallRecord{
		acceptedCall(100, 100, 250),
		acceptedCall(100, 100, 300),
		acceptedCall(100, 80, 80),
		acceptedCall(100, 100, 500),
	}

	if got := LeadingRun(calls, IsWin); got != 2 {
		t.Errorf("expected hot streak 2, got %d", got)
	}
}

func TestLeadingRun_ColdStreak(t *testing.T) {
	calls := []*domain.CallRecord{
		acceptedCall(100, 50, 100),
		acceptedCall(100, 90, 150),
		acceptedCall(100, 200, 300),
	}

	if got := LeadingRun(calls, IsLoss); got != 2 {
		t.Errorf("expected cold streak 2, got %d", got)
	}
}
