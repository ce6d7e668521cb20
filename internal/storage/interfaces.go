package storage

import (
	"context"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

// CallFilter narrows accepted-call queries. The zero value selects every
// accepted, non-stashed call of the group.
type CallFilter struct {
	GroupID        int64
	Since          time.Time // zero means unbounded
	ClaimantID     *int64    // nil means all claimants
	IncludeStashed bool      // cold-tier records are excluded by default
}

// MarketUpdate carries refreshed market fields for one call record.
type MarketUpdate struct {
	CallID    string
	Current   float64
	Peak      float64
	Volume24h float64
	Symbol    string // empty means leave unchanged
}

// DelayStats summarizes ingest delay over accepted calls of a group.
type DelayStats struct {
	AvgSeconds float64
	MaxSeconds int64
}

// CallStore provides access to hot-tier call records.
type CallStore interface {
	// Insert adds a new call record. Returns ErrDuplicateKey if call_id exists.
	Insert(ctx context.Context, c *domain.CallRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, callID string) (*domain.CallRecord, error)

	// FindAccepted retrieves accepted records matching the filter,
	// ordered by submission time DESC.
	FindAccepted(ctx context.Context, f CallFilter) ([]*domain.CallRecord, error)

	// RecentByClaimant retrieves the claimant's most recent accepted records
	// (stashed included), ordered by submission time DESC, at most limit.
	RecentByClaimant(ctx context.Context, groupID, claimantID int64, limit int) ([]*domain.CallRecord, error)

	// GetByAddress retrieves every record of the group for a normalized
	// identifier, any status.
	GetByAddress(ctx context.Context, groupID int64, addressNorm string) ([]*domain.CallRecord, error)

	// AcceptedExists reports whether an accepted record (stashed or not)
	// exists for (group, identifier).
	AcceptedExists(ctx context.Context, groupID int64, addressNorm string) (bool, error)

	// UpdateMarket bulk-applies refreshed market fields by call id.
	UpdateMarket(ctx context.Context, updates []MarketUpdate) error

	// SetStashed flags the given records cold with the reason.
	SetStashed(ctx context.Context, callIDs []string, reason domain.StashReason, at time.Time) error

	// ClearStashed reactivates the given records (flag and reason cleared).
	ClearStashed(ctx context.Context, callIDs []string) error

	// StashedForArchive retrieves up to limit stashed records of the group
	// with the given reason, oldest stash first.
	StashedForArchive(ctx context.Context, groupID int64, reason domain.StashReason, limit int) ([]*domain.CallRecord, error)

	// DeleteByIDs removes records by id, returning the number deleted.
	DeleteByIDs(ctx context.Context, callIDs []string) (int64, error)

	// DeleteOlderThan removes the group's records submitted before cutoff,
	// returning the number deleted.
	DeleteOlderThan(ctx context.Context, groupID int64, cutoff time.Time) (int64, error)

	// CountByStatus returns accepted and rejected record counts for a group.
	CountByStatus(ctx context.Context, groupID int64) (accepted, rejected int64, err error)

	// RejectReasonCounts returns the group's rejected-call histogram.
	RejectReasonCounts(ctx context.Context, groupID int64) (map[domain.RejectReason]int64, error)

	// IngestDelayStats aggregates ingest delay over the group's accepted calls.
	IngestDelayStats(ctx context.Context, groupID int64) (DelayStats, error)

	// ActiveClaimants returns distinct claimant ids with accepted calls
	// submitted at or after since.
	ActiveClaimants(ctx context.Context, groupID int64, since time.Time) ([]int64, error)

	// GroupIDs returns all distinct group ids present in the store.
	GroupIDs(ctx context.Context) ([]int64, error)
}

// ArchiveStore provides access to the archival cold tier.
type ArchiveStore interface {
	// InsertBulk adds archived records. Duplicate ids are ignored so an
	// interrupted sweep can be retried.
	InsertBulk(ctx context.Context, calls []*domain.ArchivedCall) error

	// Exists reports whether an archived record exists for (group, identifier).
	Exists(ctx context.Context, groupID int64, addressNorm string) (bool, error)

	// CountByGroup returns the number of archived records for a group.
	CountByGroup(ctx context.Context, groupID int64) (int64, error)

	// DeleteOlderThan removes the group's archived records submitted before
	// cutoff, returning the number deleted.
	DeleteOlderThan(ctx context.Context, groupID int64, cutoff time.Time) (int64, error)
}

// AdmissionEvent records one admission decision against a claimant profile.
type AdmissionEvent struct {
	GroupID     int64
	ClaimantID  int64
	DisplayName string
	Handle      string
	Status      domain.CallStatus
	Reason      domain.RejectReason // set only for rejections
	At          time.Time
}

// ProfileStore provides access to claimant profiles.
type ProfileStore interface {
	// ApplyAdmission upserts the profile: counters incremented, display
	// metadata set, first-seen set on insert.
	ApplyAdmission(ctx context.Context, ev AdmissionEvent) error

	// Get retrieves a profile. Returns ErrNotFound if not exists.
	Get(ctx context.Context, groupID, claimantID int64) (*domain.ClaimantProfile, error)

	// SetAlertState upserts the cooldown state for one alert kind.
	SetAlertState(ctx context.Context, groupID, claimantID int64, kind domain.AlertKind, state domain.AlertState) error

	// TopRejected retrieves the group's profiles ordered by rejected count
	// DESC, at most limit.
	TopRejected(ctx context.Context, groupID int64, limit int) ([]*domain.ClaimantProfile, error)
}

// SettingStore provides access to group settings.
type SettingStore interface {
	// Get retrieves a group's settings. Returns ErrNotFound if not exists.
	Get(ctx context.Context, groupID int64) (*domain.GroupSetting, error)

	// SetAlerts upserts the alerts-enabled flag.
	SetAlerts(ctx context.Context, groupID int64, enabled bool) error

	// SetLastDigestDate upserts the UTC date ("YYYY-MM-DD") of the last digest.
	SetLastDigestDate(ctx context.Context, groupID int64, date string) error

	// SetGroupKey upserts the canonical group key; empty clears the link.
	SetGroupKey(ctx context.Context, groupID int64, key string) error

	// GroupIDs returns all group ids with settings rows.
	GroupIDs(ctx context.Context) ([]int64, error)
}
