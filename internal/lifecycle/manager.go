// Package lifecycle moves call records through the hot/cold tiers: market
// refresh with the low-volume policy, per-claimant overflow stashing, and the
// bounded sweep that migrates stale stashed records into the archive.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/observability"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// Default lifecycle policy values.
const (
	DefaultKeepPerClaimant = 3
	DefaultArchiveBatch    = 1000
	DefaultMinVolume       = 1000.0
)

// Manager runs the lifecycle passes over one group's records.
type Manager struct {
	calls     storage.CallStore
	archive   storage.ArchiveStore
	refresher *Refresher

	keep         int
	archiveBatch int
	minVolume    float64
	logger       *log.Logger
	now          func() time.Time
}

// Options for creating a Manager.
type Options struct {
	Calls     storage.CallStore
	Archive   storage.ArchiveStore
	Refresher *Refresher

	KeepPerClaimant int     // 0 means DefaultKeepPerClaimant
	ArchiveBatch    int     // 0 means DefaultArchiveBatch
	MinVolume       float64 // 0 means DefaultMinVolume
	Logger          *log.Logger
	Now             func() time.Time
}

// New creates a Manager.
func New(opts Options) *Manager {
	m := &Manager{
		calls:        opts.Calls,
		archive:      opts.Archive,
		refresher:    opts.Refresher,
		keep:         opts.KeepPerClaimant,
		archiveBatch: opts.ArchiveBatch,
		minVolume:    opts.MinVolume,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if m.keep == 0 {
		m.keep = DefaultKeepPerClaimant
	}
	if m.archiveBatch == 0 {
		m.archiveBatch = DefaultArchiveBatch
	}
	if m.minVolume == 0 {
		m.minVolume = DefaultMinVolume
	}
	if m.logger == nil {
		m.logger = log.New(os.Stdout, "[lifecycle] ", log.LstdFlags)
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// Outcome reports what one lifecycle pass did.
type Outcome struct {
	Refreshed   int // records with re-resolved valuations
	StashedLow  int // hot records stashed for low volume
	Reactivated int // low-volume records whose volume recovered
	StashedOld  int // records stashed by the keep-newest rule
	Archived    int // stashed records migrated to the archive
}

// RunGroup executes the full pass for one group: refresh, then overflow
// stashing, then the archive sweep.
func (m *Manager) RunGroup(ctx context.Context, groupID int64) (Outcome, error) {
	var out Outcome

	refreshed, stashed, reactivated, err := m.RefreshGroup(ctx, groupID)
	if err != nil {
		return out, err
	}
	out.Refreshed = refreshed
	out.StashedLow = stashed
	out.Reactivated = reactivated

	out.StashedOld, err = m.StashOverflow(ctx, groupID)
	if err != nil {
		return out, err
	}

	out.Archived, err = m.ArchiveSweep(ctx, groupID)
	if err != nil {
		return out, err
	}

	observability.RecordLifecyclePass(out.Refreshed, out.StashedLow, out.StashedOld, out.Reactivated, out.Archived)
	return out, nil
}

// RefreshGroup re-resolves valuations for the group's records and re-applies
// the low-volume policy in both directions: hot records whose fresh 24h
// volume dropped below the floor are stashed, low-volume stashes whose volume
// recovered are reactivated. Records stashed by the keep-newest rule are not
// touched; only the archive sweep moves those on.
func (m *Manager) RefreshGroup(ctx context.Context, groupID int64) (refreshed, stashed, reactivated int, err error) {
	records, err := m.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID, IncludeStashed: true})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("load group %d records: %w", groupID, err)
	}

	var live []*domain.CallRecord
	for _, rec := range records {
		if rec.Stashed && rec.StashReason == domain.StashOlderCall {
			continue
		}
		live = append(live, rec)
	}
	if err := m.refresher.Refresh(ctx, live); err != nil {
		return 0, 0, 0, err
	}
	refreshed = len(live)

	var toStash, toWake []string
	for _, rec := range live {
		switch {
		case !rec.Stashed && rec.Volume24h < m.minVolume:
			toStash = append(toStash, rec.CallID)
		case rec.Stashed && rec.StashReason == domain.StashLowVolume && rec.Volume24h >= m.minVolume:
			toWake = append(toWake, rec.CallID)
		}
	}
	if len(toStash) > 0 {
		if err := m.calls.SetStashed(ctx, toStash, domain.StashLowVolume, m.now()); err != nil {
			return refreshed, 0, 0, fmt.Errorf("stash low-volume records: %w", err)
		}
	}
	if len(toWake) > 0 {
		if err := m.calls.ClearStashed(ctx, toWake); err != nil {
			return refreshed, len(toStash), 0, fmt.Errorf("reactivate recovered records: %w", err)
		}
	}
	return refreshed, len(toStash), len(toWake), nil
}

// StashOverflow keeps each claimant's newest records hot and stashes the
// rest. Ties on submission time break by call id, matching the store order,
// so repeated passes pick the same survivors.
func (m *Manager) StashOverflow(ctx context.Context, groupID int64) (int, error) {
	records, err := m.calls.FindAccepted(ctx, storage.CallFilter{GroupID: groupID})
	if err != nil {
		return 0, fmt.Errorf("load group %d hot records: %w", groupID, err)
	}

	kept := make(map[string]int)
	var overflow []string
	for _, rec := range records {
		key := rec.ClaimantKey()
		if kept[key] < m.keep {
			kept[key]++
			continue
		}
		overflow = append(overflow, rec.CallID)
	}
	if len(overflow) == 0 {
		return 0, nil
	}
	if err := m.calls.SetStashed(ctx, overflow, domain.StashOlderCall, m.now()); err != nil {
		return 0, fmt.Errorf("stash overflow records: %w", err)
	}
	return len(overflow), nil
}

// ArchiveSweep migrates up to one batch of keep-newest stashed records into
// the archive and deletes them from the hot tier. The archive insert is
// idempotent, so a sweep interrupted between insert and delete re-runs
// cleanly.
func (m *Manager) ArchiveSweep(ctx context.Context, groupID int64) (int, error) {
	records, err := m.calls.StashedForArchive(ctx, groupID, domain.StashOlderCall, m.archiveBatch)
	if err != nil {
		return 0, fmt.Errorf("load archivable records: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := m.now()
	archived := make([]*domain.ArchivedCall, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		archived = append(archived, rec.Archive(now))
		ids = append(ids, rec.CallID)
	}
	if err := m.archive.InsertBulk(ctx, archived); err != nil {
		return 0, fmt.Errorf("archive group %d records: %w", groupID, err)
	}
	if _, err := m.calls.DeleteByIDs(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete archived hot records: %w", err)
	}
	m.logger.Printf("group %d: archived %d stashed records", groupID, len(records))
	return len(records), nil
}
