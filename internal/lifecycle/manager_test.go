package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/marketdata"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
	"github.com/DeanCryptoo/YabaiBot/internal/storage/memory"
)

const testGroup int64 = -200

type fixture struct {
	calls    *memory.CallStore
	archive  *memory.ArchiveStore
	provider *marketdata.StubProvider
	mgr      *Manager
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		calls:    memory.NewCallStore(),
		archive:  memory.NewArchiveStore(),
		provider: marketdata.NewStubProvider(nil),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	cache := marketdata.NewCache(f.provider,
		marketdata.WithClock(func() time.Time { return f.now }))
	f.mgr = New(Options{
		Calls:     f.calls,
		Archive:   f.archive,
		Refresher: NewRefresher(f.calls, cache),
		Now:       func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) insert(t *testing.T, claimant int64, seq int, volume float64) *domain.CallRecord {
	t.Helper()

	addr := fmt.Sprintf("addr-%d-%d", claimant, seq)
	rec := &domain.CallRecord{
		CallID:       fmt.Sprintf("call-%d-%d", claimant, seq),
		GroupID:      testGroup,
		Address:      addr,
		AddressNorm:  addr,
		Status:       domain.CallAccepted,
		ClaimantID:   &claimant,
		ClaimantName: fmt.Sprintf("caller-%d", claimant),
		MessageTime:  f.now.Add(time.Duration(seq) * time.Minute),
		SubmittedAt:  f.now.Add(time.Duration(seq) * time.Minute),
		InitialVal:   10000,
		CurrentVal:   10000,
		PeakVal:      10000,
		Volume24h:    volume,
	}
	if err := f.calls.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert %s failed: %v", rec.CallID, err)
	}
	return rec
}

func TestRefreshGroup_UpdatesPeakAndCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.insert(t, 1, 0, 5000)
	f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 30000, Symbol: "UP", Volume24h: 8000})

	refreshed, stashed, reactivated, err := f.mgr.RefreshGroup(ctx, testGroup)
	if err != nil {
		t.Fatalf("RefreshGroup failed: %v", err)
	}
	if refreshed != 1 || stashed != 0 || reactivated != 0 {
		t.Fatalf("unexpected counts: refreshed=%d stashed=%d reactivated=%d", refreshed, stashed, reactivated)
	}

	got, err := f.calls.GetByID(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentVal != 30000 || got.PeakVal != 30000 {
		t.Errorf("expected current=peak=30000, got current=%v peak=%v", got.CurrentVal, got.PeakVal)
	}
	if got.Symbol != "UP" {
		t.Errorf("expected symbol UP, got %q", got.Symbol)
	}
}

func TestRefreshGroup_PeakNeverDrops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.insert(t, 1, 0, 5000)
	seed := []storage.MarketUpdate{{CallID: rec.CallID, Current: 40000, Peak: 50000, Volume24h: 5000}}
	if err := f.calls.UpdateMarket(ctx, seed); err != nil {
		t.Fatalf("seed peak failed: %v", err)
	}
	f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 20000, Volume24h: 5000})

	if _, _, _, err := f.mgr.RefreshGroup(ctx, testGroup); err != nil {
		t.Fatalf("RefreshGroup failed: %v", err)
	}

	got, err := f.calls.GetByID(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.CurrentVal != 20000 {
		t.Errorf("expected current 20000, got %v", got.CurrentVal)
	}
	if got.PeakVal != 50000 {
		t.Errorf("peak must not drop, got %v", got.PeakVal)
	}
}

func TestRefreshGroup_LowVolumeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.insert(t, 1, 0, 5000)
	f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 12000, Volume24h: 200})

	_, stashed, _, err := f.mgr.RefreshGroup(ctx, testGroup)
	if err != nil {
		t.Fatalf("RefreshGroup failed: %v", err)
	}
	if stashed != 1 {
		t.Fatalf("expected 1 low-volume stash, got %d", stashed)
	}
	got, _ := f.calls.GetByID(ctx, rec.CallID)
	if !got.Stashed || got.StashReason != domain.StashLowVolume {
		t.Fatalf("expected low_volume stash, got %+v", got)
	}

	// Volume recovers; advance past the cache TTL so the stale quote expires.
	f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 12000, Volume24h: 7000})
	f.now = f.now.Add(time.Minute)

	_, _, reactivated, err := f.mgr.RefreshGroup(ctx, testGroup)
	if err != nil {
		t.Fatalf("second RefreshGroup failed: %v", err)
	}
	if reactivated != 1 {
		t.Fatalf("expected 1 reactivation, got %d", reactivated)
	}
	got, _ = f.calls.GetByID(ctx, rec.CallID)
	if got.Stashed {
		t.Error("recovered record must be hot again")
	}
}

func TestStashOverflow_KeepsNewestThree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seq := 0; seq < 5; seq++ {
		f.insert(t, 1, seq, 5000)
	}

	n, err := f.mgr.StashOverflow(ctx, testGroup)
	if err != nil {
		t.Fatalf("StashOverflow failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 stashed, got %d", n)
	}

	// The two oldest go cold, the three newest stay hot.
	for seq, wantStashed := range map[int]bool{0: true, 1: true, 2: false, 3: false, 4: false} {
		got, err := f.calls.GetByID(ctx, fmt.Sprintf("call-1-%d", seq))
		if err != nil {
			t.Fatalf("GetByID seq %d failed: %v", seq, err)
		}
		if got.Stashed != wantStashed {
			t.Errorf("seq %d: expected stashed=%v, got %v", seq, wantStashed, got.Stashed)
		}
		if wantStashed && got.StashReason != domain.StashOlderCall {
			t.Errorf("seq %d: expected older_call reason, got %q", seq, got.StashReason)
		}
	}
}

func TestStashOverflow_CountsClaimantsSeparately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seq := 0; seq < 4; seq++ {
		f.insert(t, 1, seq, 5000)
	}
	for seq := 0; seq < 3; seq++ {
		f.insert(t, 2, seq, 5000)
	}

	n, err := f.mgr.StashOverflow(ctx, testGroup)
	if err != nil {
		t.Fatalf("StashOverflow failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only claimant 1's overflow stashed, got %d", n)
	}
}

func TestArchiveSweep_MigratesOlderCallStashes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seq := 0; seq < 5; seq++ {
		f.insert(t, 1, seq, 5000)
	}
	if _, err := f.mgr.StashOverflow(ctx, testGroup); err != nil {
		t.Fatalf("StashOverflow failed: %v", err)
	}

	n, err := f.mgr.ArchiveSweep(ctx, testGroup)
	if err != nil {
		t.Fatalf("ArchiveSweep failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 archived, got %d", n)
	}

	count, err := f.archive.CountByGroup(ctx, testGroup)
	if err != nil {
		t.Fatalf("CountByGroup failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 archive rows, got %d", count)
	}
	if _, err := f.calls.GetByID(ctx, "call-1-0"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("archived record must leave the hot tier, got err=%v", err)
	}

	ok, err := f.archive.Exists(ctx, testGroup, "addr-1-0")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("archived identifier must remain visible to duplicate checks")
	}
}

func TestArchiveSweep_IgnoresLowVolumeStashes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.insert(t, 1, 0, 200)
	f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 12000, Volume24h: 200})
	if _, _, _, err := f.mgr.RefreshGroup(ctx, testGroup); err != nil {
		t.Fatalf("RefreshGroup failed: %v", err)
	}

	n, err := f.mgr.ArchiveSweep(ctx, testGroup)
	if err != nil {
		t.Fatalf("ArchiveSweep failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("low-volume stashes must not be archived, got %d", n)
	}
	if _, err := f.calls.GetByID(ctx, rec.CallID); err != nil {
		t.Errorf("record must stay in the hot tier: %v", err)
	}
}

func TestRunGroup_FullPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for seq := 0; seq < 5; seq++ {
		rec := f.insert(t, 1, seq, 5000)
		f.provider.SetQuote(rec.AddressNorm, domain.MarketQuote{Valuation: 15000, Volume24h: 5000})
	}

	out, err := f.mgr.RunGroup(ctx, testGroup)
	if err != nil {
		t.Fatalf("RunGroup failed: %v", err)
	}
	if out.Refreshed != 5 {
		t.Errorf("expected 5 refreshed, got %d", out.Refreshed)
	}
	if out.StashedOld != 2 || out.Archived != 2 {
		t.Errorf("expected 2 stashed and archived, got %+v", out)
	}

	hot, err := f.calls.FindAccepted(ctx, storage.CallFilter{GroupID: testGroup})
	if err != nil {
		t.Fatalf("FindAccepted failed: %v", err)
	}
	if len(hot) != 3 {
		t.Errorf("expected 3 hot records after the pass, got %d", len(hot))
	}
}
