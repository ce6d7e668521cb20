// Package bot is the command surface of the call tracker. It translates
// chat commands and button presses into calls against the admission,
// lifecycle, ranking, streak and digest subsystems, and formats every
// reply through the render package.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/admission"
	"github.com/DeanCryptoo/YabaiBot/internal/digest"
	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/lifecycle"
	"github.com/DeanCryptoo/YabaiBot/internal/messaging"
	"github.com/DeanCryptoo/YabaiBot/internal/ranking"
	"github.com/DeanCryptoo/YabaiBot/internal/render"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
	"github.com/DeanCryptoo/YabaiBot/internal/streak"
)

const recentChartCalls = 50

// Bot wires the command handlers to the subsystems. One instance serves
// every group; group identity travels with each call.
type Bot struct {
	calls     storage.CallStore
	archive   storage.ArchiveStore
	profiles  storage.ProfileStore
	settings  storage.SettingStore
	admission *admission.Controller
	lifecycle *lifecycle.Manager
	refresher *lifecycle.Refresher
	rankings  *ranking.Service
	sessions  *ranking.SessionCache
	streaks   *streak.Detector
	digests   *digest.Dispatcher
	sender    messaging.Sender
	logger    *log.Logger
	now       func() time.Time
}

// Options configures a Bot. Every store, subsystem and the sender are
// required; Sessions, Logger and Now fall back to defaults when unset.
type Options struct {
	Calls     storage.CallStore
	Archive   storage.ArchiveStore
	Profiles  storage.ProfileStore
	Settings  storage.SettingStore
	Admission *admission.Controller
	Lifecycle *lifecycle.Manager
	Refresher *lifecycle.Refresher
	Rankings  *ranking.Service
	Sessions  *ranking.SessionCache
	Streaks   *streak.Detector
	Digests   *digest.Dispatcher
	Sender    messaging.Sender
	Logger    *log.Logger
	Now       func() time.Time
}

// New creates a Bot from the given options.
func New(opts Options) *Bot {
	b := &Bot{
		calls:     opts.Calls,
		archive:   opts.Archive,
		profiles:  opts.Profiles,
		settings:  opts.Settings,
		admission: opts.Admission,
		lifecycle: opts.Lifecycle,
		refresher: opts.Refresher,
		rankings:  opts.Rankings,
		sessions:  opts.Sessions,
		streaks:   opts.Streaks,
		digests:   opts.Digests,
		sender:    opts.Sender,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if b.sessions == nil {
		b.sessions = ranking.NewSessionCache()
	}
	if b.logger == nil {
		b.logger = log.New(os.Stdout, "[bot] ", log.LstdFlags)
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	return b
}

// SubmitClaim runs an incoming message through admission.
func (b *Bot) SubmitClaim(ctx context.Context, sub admission.Submission) (*admission.Result, error) {
	result, err := b.admission.Submit(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("submit claim: %w", err)
	}
	if len(result.Accepted)+len(result.Rejected) > 0 {
		b.logger.Printf("group %d claimant %d: accepted=%d rejected=%d bumped=%d",
			sub.GroupID, sub.ClaimantID, len(result.Accepted), len(result.Rejected), result.Bumped)
	}
	return result, nil
}

// ToggleAlerts flips the group's alert flag and announces the new state.
func (b *Bot) ToggleAlerts(ctx context.Context, groupID int64) (bool, error) {
	enabled := false
	setting, err := b.settings.Get(ctx, groupID)
	switch {
	case err == nil:
		enabled = setting.AlertsEnabled
	case errors.Is(err, storage.ErrNotFound):
		// first interaction, alerts default off
	default:
		return false, fmt.Errorf("load settings: %w", err)
	}

	enabled = !enabled
	if err := b.settings.SetAlerts(ctx, groupID, enabled); err != nil {
		return false, fmt.Errorf("store alert flag: %w", err)
	}
	_, err = b.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: render.AlertsToggled(enabled)})
	return enabled, err
}

// LinkGroup binds the group to a canonical key. Admin only.
func (b *Bot) LinkGroup(ctx context.Context, groupID, claimantID int64, key string) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}
	if key == "" {
		return b.reply(ctx, groupID, "Provide a group key. Example: /linkgroup alpha-lounge")
	}
	if err := b.settings.SetGroupKey(ctx, groupID, key); err != nil {
		return fmt.Errorf("link group: %w", err)
	}
	return b.reply(ctx, groupID, fmt.Sprintf("🔗 Group linked to key '%s'", key))
}

// UnlinkGroup clears the group's canonical key. Admin only.
func (b *Bot) UnlinkGroup(ctx context.Context, groupID, claimantID int64) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}
	if err := b.settings.SetGroupKey(ctx, groupID, ""); err != nil {
		return fmt.Errorf("unlink group: %w", err)
	}
	return b.reply(ctx, groupID, "🔓 Group unlinked")
}

// RefreshAll re-quotes every record of the group without archiving. Admin only.
func (b *Bot) RefreshAll(ctx context.Context, groupID, claimantID int64) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}
	refreshed, stashed, reactivated, err := b.lifecycle.RefreshGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("refresh group: %w", err)
	}
	return b.reply(ctx, groupID,
		fmt.Sprintf("♻️ Refreshed %d records (%d stashed, %d reactivated)", refreshed, stashed, reactivated))
}

// ClearData deletes records older than the parsed window from both tiers.
// An empty or all-time window wipes everything. Admin only.
func (b *Bot) ClearData(ctx context.Context, groupID, claimantID int64, windowArg string) error {
	ok, err := b.requireAdmin(ctx, groupID, claimantID, "Admin only command")
	if err != nil || !ok {
		return err
	}

	window := domain.ParseTimeWindow(windowArg)
	cutoff := window.Cutoff
	if cutoff.IsZero() {
		cutoff = b.now()
	}

	hot, err := b.calls.DeleteOlderThan(ctx, groupID, cutoff)
	if err != nil {
		return fmt.Errorf("clear hot tier: %w", err)
	}
	cold, err := b.archive.DeleteOlderThan(ctx, groupID, cutoff)
	if err != nil {
		return fmt.Errorf("clear archive: %w", err)
	}
	b.logger.Printf("group %d: cleared %d hot and %d archived records before %s",
		groupID, hot, cold, cutoff.Format(time.RFC3339))
	return b.reply(ctx, groupID, fmt.Sprintf("🧹 Cleared %d tracked and %d archived records", hot, cold))
}

func (b *Bot) reply(ctx context.Context, groupID int64, text string) error {
	_, err := b.sender.SendText(ctx, messaging.Message{GroupID: groupID, Text: text})
	return err
}

// requireAdmin checks the claimant's role and sends denied when it does not
// grant admin commands. Returns true when the caller may proceed.
func (b *Bot) requireAdmin(ctx context.Context, groupID, claimantID int64, denied string) (bool, error) {
	role, err := b.sender.MemberRole(ctx, groupID, claimantID)
	if err != nil {
		return false, fmt.Errorf("resolve member role: %w", err)
	}
	if !role.Admin() {
		return false, b.reply(ctx, groupID, denied)
	}
	return true, nil
}
