package digest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/marketdata"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/storage/memory"
)

const testGroup int64 = -500

type fixture struct {
	calls    *memory.CallStore
	settings *memory.SettingStore
	sender   *messaging.Recorder
	disp     *Dispatcher
	now      time.Time
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		calls:    memory.NewCallStore(),
		settings: memory.NewSettingStore(),
		sender:   messaging.NewRecorder(),
		now:      time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
	}
	cache := marketdata.NewCache(marketdata.NewStubProvider(nil),
		marketdata.WithClock(func() time.Time { return f.now }))
	f.disp = New(Options{
		Calls:     f.calls,
		Settings:  f.settings,
		Refresher: lifecycle.NewRefresher(f.calls, cache),
		Sender:    f.sender,
		Now:       func() time.Time { return f.now },
	})
	if err := f.settings.SetAlerts(context.Background(), testGroup, true); err != nil {
		t.Fatalf("SetAlerts failed: %v", err)
	}
	return f
}

func (f *fixture) insert(t *testing.T, name, addr string, nowX, peakX float64, age time.Duration) {
	t.Helper()

	f.seq++
	claimant := int64(f.seq)
	const initial = 10000.0
	rec := &domain.CallRecord{
		CallID:       fmt.Sprintf("call-%d", f.seq),
		GroupID:      testGroup,
		Address:      addr,
		AddressNorm:  strings.ToLower(addr),
		Status:       domain.CallAccepted,
		ClaimantID:   &claimant,
		ClaimantName: name,
		Symbol:       "TKN",
		MessageTime:  f.now.Add(-age),
		SubmittedAt:  f.now.Add(-age),
		InitialVal:   initial,
		CurrentVal:   initial * nowX,
		PeakVal:      initial * peakX,
		Volume24h:    5000,
	}
	if err := f.calls.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestDispatch_SendsOncePerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insert(t, "alice", "AddrOne", 3.0, 3.0, time.Hour)

	sent, err := f.disp.Dispatch(ctx, testGroup, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !sent {
		t.Fatal("expected digest sent")
	}
	if len(f.sender.Sent()) != 1 {
		t.Fatalf("expected 1 message, got %d", len(f.sender.Sent()))
	}

	setting, err := f.settings.Get(ctx, testGroup)
	if err != nil {
		t.Fatalf("Get settings failed: %v", err)
	}
	if setting.LastDigestDate != "2025-06-01" {
		t.Errorf("expected last digest date persisted, got %q", setting.LastDigestDate)
	}

	// Same day, second attempt is a no-op.
	sent, err = f.disp.Dispatch(ctx, testGroup, false)
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}
	if sent {
		t.Error("digest must go out at most once per day")
	}

	// Next day it fires again.
	f.now = f.now.Add(24 * time.Hour)
	sent, err = f.disp.Dispatch(ctx, testGroup, false)
	if err != nil {
		t.Fatalf("next-day Dispatch failed: %v", err)
	}
	if !sent {
		t.Error("expected digest on the next day")
	}
}

func TestDispatch_WaitsForConfiguredHour(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insert(t, "alice", "AddrOne", 2.0, 2.0, time.Hour)
	f.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sent, err := f.disp.Dispatch(ctx, testGroup, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if sent {
		t.Error("digest must wait for the configured UTC hour")
	}

	// Manual trigger ignores the hour gate.
	sent, err = f.disp.Dispatch(ctx, testGroup, true)
	if err != nil {
		t.Fatalf("manual Dispatch failed: %v", err)
	}
	if !sent {
		t.Error("manual trigger must bypass the hour gate")
	}
}

func TestDispatch_SkipsDisabledGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.settings.SetAlerts(ctx, testGroup, false); err != nil {
		t.Fatalf("SetAlerts failed: %v", err)
	}
	f.insert(t, "alice", "AddrOne", 2.0, 2.0, time.Hour)

	sent, err := f.disp.Dispatch(ctx, testGroup, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if sent {
		t.Error("disabled group must not receive digests")
	}
}

func TestBuild_EmptyWindow(t *testing.T) {
	f := newFixture(t)

	text, err := f.disp.Build(context.Background(), testGroup)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(text, "No accepted calls") {
		t.Errorf("unexpected empty digest: %q", text)
	}
}

func TestBuild_RanksAndMentions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.insert(t, "alice", "AddrOne", 3.0, 3.0, time.Hour)
	f.insert(t, "bob", "AddrTwo", 0.5, 1.0, 2*time.Hour)
	f.insert(t, "carol", "AddrTwo", 1.5, 2.0, 3*time.Hour)
	// Outside the 24h window, must be excluded.
	f.insert(t, "dave", "AddrOld", 10.0, 10.0, 30*time.Hour)

	text, err := f.disp.Build(ctx, testGroup)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(text, "📞 Calls: 3 | 👥 Callers: 3") {
		t.Errorf("wrong counts line in:\n%s", text)
	}
	if !strings.Contains(text, "🥇 alice") {
		t.Errorf("alice must rank first in:\n%s", text)
	}
	if !strings.Contains(text, "🔥 Best Call: 3.00x by alice") {
		t.Errorf("missing best call highlight in:\n%s", text)
	}
	if !strings.Contains(text, "🩸 Worst Rug: -50.0% by bob") {
		t.Errorf("missing worst rug highlight in:\n%s", text)
	}
	if !strings.Contains(text, "1. $TKN • 2 mentions") {
		t.Errorf("missing top mention in:\n%s", text)
	}
	if strings.Contains(text, "dave") {
		t.Errorf("calls outside the window must be excluded:\n%s", text)
	}
}
