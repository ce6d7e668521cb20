// Package streak detects hot and cold runs per claimant and throttles the
// resulting alerts. One alert per kind per cooldown window, re-armed early
// only when the streak keeps growing.
package streak

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/metrics"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/render"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// Default detection policy values.
const (
	DefaultHotMin       = 4
	DefaultColdMin      = 6
	DefaultLookback     = 8
	DefaultActiveWindow = time.Hour
	DefaultCooldown     = 4 * time.Hour
)

// Detector scans a group's recently active claimants for streaks.
type Detector struct {
	calls     storage.CallStore
	profiles  storage.ProfileStore
	settings  storage.SettingStore
	refresher *lifecycle.Refresher
	sender    messaging.Sender

	hotMin       int
	coldMin      int
	lookback     int
	activeWindow time.Duration
	cooldown     time.Duration
	logger       *log.Logger
	now          func() time.Time
}

// Options for creating a Detector.
type Options struct {
	Calls     storage.CallStore
	Profiles  storage.ProfileStore
	Settings  storage.SettingStore
	Refresher *lifecycle.Refresher
	Sender    messaging.Sender

	HotMin       int           // 0 means DefaultHotMin
	ColdMin      int           // 0 means DefaultColdMin
	Lookback     int           // 0 means DefaultLookback
	ActiveWindow time.Duration // 0 means DefaultActiveWindow
	Cooldown     time.Duration // 0 means DefaultCooldown
	Logger       *log.Logger
	Now          func() time.Time
}

// New creates a Detector.
func New(opts Options) *Detector {
	d := &Detector{
		calls:        opts.Calls,
		profiles:     opts.Profiles,
		settings:     opts.Settings,
		refresher:    opts.Refresher,
		sender:       opts.Sender,
		hotMin:       opts.HotMin,
		coldMin:      opts.ColdMin,
		lookback:     opts.Lookback,
		activeWindow: opts.ActiveWindow,
		cooldown:     opts.Cooldown,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if d.hotMin == 0 {
		d.hotMin = DefaultHotMin
	}
	if d.coldMin == 0 {
		d.coldMin = DefaultColdMin
	}
	if d.lookback == 0 {
		d.lookback = DefaultLookback
	}
	if d.activeWindow == 0 {
		d.activeWindow = DefaultActiveWindow
	}
	if d.cooldown == 0 {
		d.cooldown = DefaultCooldown
	}
	if d.logger == nil {
		d.logger = log.New(os.Stdout, "[streak] ", log.LstdFlags)
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Scan checks every claimant active within the window and sends alerts that
// pass the throttle. Returns the number of alerts sent. A non-manual scan is
// skipped entirely when the group has alerts disabled.
func (d *Detector) Scan(ctx context.Context, groupID int64, manual bool) (int, error) {
	if !manual {
		setting, err := d.settings.Get(ctx, groupID)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("load group %d settings: %w", groupID, err)
		}
		if !setting.AlertsEnabled {
			return 0, nil
		}
	}

	cutoff := d.now().Add(-d.activeWindow)
	claimants, err := d.calls.ActiveClaimants(ctx, groupID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list active claimants: %w", err)
	}

	triggered := 0
	for _, claimantID := range claimants {
		n, err := d.scanClaimant(ctx, groupID, claimantID, cutoff, manual)
		if err != nil {
			return triggered, err
		}
		triggered += n
	}
	return triggered, nil
}

func (d *Detector) scanClaimant(ctx context.Context, groupID, claimantID int64, cutoff time.Time, manual bool) (int, error) {
	recent, err := d.calls.RecentByClaimant(ctx, groupID, claimantID, d.lookback)
	if err != nil {
		return 0, fmt.Errorf("load recent calls of %d: %w", claimantID, err)
	}
	if len(recent) == 0 || recent[0].SubmittedAt.Before(cutoff) {
		return 0, nil
	}
	if err := d.refresher.Refresh(ctx, recent); err != nil {
		return 0, err
	}

	hot := metrics.LeadingRun(recent, metrics.IsWin)
	cold := metrics.LeadingRun(recent, metrics.IsLoss)
	if hot < d.hotMin && cold < d.coldMin {
		return 0, nil
	}

	profile, err := d.profiles.Get(ctx, groupID, claimantID)
	if errors.Is(err, storage.ErrNotFound) {
		profile = &domain.ClaimantProfile{GroupID: groupID, ClaimantID: claimantID}
	} else if err != nil {
		return 0, fmt.Errorf("load profile of %d: %w", claimantID, err)
	}

	name := recent[0].ClaimantName
	if name == "" {
		name = profile.DisplayName
	}

	triggered := 0
	if hot >= d.hotMin && d.shouldFire(manual, profile.HotAlert, hot) {
		text := render.HotStreakAlert(name, hot, d.activeWindow)
		if err := d.fire(ctx, groupID, claimantID, domain.AlertHot, hot, text); err != nil {
			return triggered, err
		}
		triggered++
	}
	if cold >= d.coldMin && d.shouldFire(manual, profile.ColdAlert, cold) {
		text := render.ColdStreakAlert(name, cold)
		if err := d.fire(ctx, groupID, claimantID, domain.AlertCold, cold, text); err != nil {
			return triggered, err
		}
		triggered++
	}
	return triggered, nil
}

// shouldFire applies the throttle: manual triggers always fire, otherwise
// fire on first notification, after the cooldown, or when the streak grew
// past the length recorded at the last notification.
func (d *Detector) shouldFire(manual bool, st domain.AlertState, streak int) bool {
	if manual || st.NotifiedAt.IsZero() {
		return true
	}
	if d.now().Sub(st.NotifiedAt) >= d.cooldown {
		return true
	}
	return streak > st.StreakLen
}

func (d *Detector) fire(ctx context.Context, groupID, claimantID int64, kind domain.AlertKind, streak int, text string) error {
	if _, err := d.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: text}); err != nil {
		return fmt.Errorf("send %s alert: %w", kind, err)
	}
	state := domain.AlertState{NotifiedAt: d.now(), StreakLen: streak}
	if err := d.profiles.SetAlertState(ctx, groupID, claimantID, kind, state); err != nil {
		return fmt.Errorf("persist %s alert state: %w", kind, err)
	}
	observability.RecordStreakAlerts(string(kind), 1)
	d.logger.Printf("group %d: %s streak alert for claimant %d (len %d)", groupID, kind, claimantID, streak)
	return nil
}
