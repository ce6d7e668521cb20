package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// callColumns is the shared SELECT list for the calls table.
const callColumns = `
	call_id, group_id, address, address_norm, status, reject_reason,
	claimant_id, claimant_name, claimant_handle, message_id, message_time,
	submitted_at, ingest_delay_sec, initial_val, current_val, peak_val,
	volume_24h, symbol, stashed, stash_reason, stashed_at
`

// CallStore implements storage.CallStore using PostgreSQL.
type CallStore struct {
	pool *Pool
}

// NewCallStore creates a new CallStore.
func NewCallStore(pool *Pool) *CallStore {
	return &CallStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CallStore = (*CallStore)(nil)

// Insert adds a new call record. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(ctx context.Context, c *domain.CallRecord) error {
	if c == nil || c.CallID == "" || !c.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO calls (
			call_id, group_id, address, address_norm, status, reject_reason,
			claimant_id, claimant_name, claimant_handle, message_id, message_time,
			submitted_at, ingest_delay_sec, initial_val, current_val, peak_val,
			volume_24h, symbol, stashed, stash_reason, stashed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`

	_, err := s.pool.Exec(ctx, query,
		c.CallID, c.GroupID, c.Address, c.AddressNorm, string(c.Status), string(c.RejectReason),
		c.ClaimantID, c.ClaimantName, c.ClaimantHandle, c.MessageID, c.MessageTime,
		c.SubmittedAt, c.IngestDelaySec, c.InitialVal, c.CurrentVal, c.PeakVal,
		c.Volume24h, c.Symbol, c.Stashed, string(c.StashReason), c.StashedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`

	row := s.pool.QueryRow(ctx, query, callID)
	c, err := scanCall(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get call by id: %w", err)
	}
	return c, nil
}

// FindAccepted retrieves accepted records matching the filter, newest first.
func (s *CallStore) FindAccepted(ctx context.Context, f storage.CallFilter) ([]*domain.CallRecord, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE group_id = $1
		  AND status = $2
		  AND (stashed = FALSE OR $3)
		  AND ($4::timestamptz IS NULL OR submitted_at >= $4)
		  AND ($5::bigint IS NULL OR claimant_id = $5)
		ORDER BY submitted_at DESC, call_id ASC
	`

	var since *time.Time
	if !f.Since.IsZero() {
		since = &f.Since
	}

	rows, err := s.pool.Query(ctx, query,
		f.GroupID, string(domain.CallAccepted), f.IncludeStashed, since, f.ClaimantID)
	if err != nil {
		return nil, fmt.Errorf("find accepted calls: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// RecentByClaimant retrieves the claimant's most recent accepted records.
func (s *CallStore) RecentByClaimant(ctx context.Context, groupID, claimantID int64, limit int) ([]*domain.CallRecord, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE group_id = $1 AND status = $2 AND claimant_id = $3
		ORDER BY submitted_at DESC, call_id ASC
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, groupID, string(domain.CallAccepted), claimantID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent calls by claimant: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// GetByAddress retrieves every record of the group for a normalized identifier.
func (s *CallStore) GetByAddress(ctx context.Context, groupID int64, addressNorm string) ([]*domain.CallRecord, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE group_id = $1 AND address_norm = $2
		ORDER BY submitted_at DESC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, groupID, addressNorm)
	if err != nil {
		return nil, fmt.Errorf("get calls by address: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// AcceptedExists reports whether an accepted record exists for (group, identifier).
func (s *CallStore) AcceptedExists(ctx context.Context, groupID int64, addressNorm string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM calls
			WHERE group_id = $1 AND address_norm = $2 AND status = $3
		)
	`

	var exists bool
	err := s.pool.QueryRow(ctx, query, groupID, addressNorm, string(domain.CallAccepted)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check accepted exists: %w", err)
	}
	return exists, nil
}

// UpdateMarket bulk-applies refreshed market fields by call id. Unknown ids
// are skipped: a record may have been archived mid-refresh.
func (s *CallStore) UpdateMarket(ctx context.Context, updates []storage.MarketUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	query := `
		UPDATE calls SET
			current_val = $2,
			peak_val = $3,
			volume_24h = $4,
			symbol = CASE WHEN $5 = '' THEN symbol ELSE $5 END
		WHERE call_id = $1
	`

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(query, u.CallID, u.Current, u.Peak, u.Volume24h, u.Symbol)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range updates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("update market fields: %w", err)
		}
	}
	return nil
}

// SetStashed flags the given records cold with the reason.
func (s *CallStore) SetStashed(ctx context.Context, callIDs []string, reason domain.StashReason, at time.Time) error {
	if !reason.IsValid() {
		return storage.ErrInvalidInput
	}
	if len(callIDs) == 0 {
		return nil
	}

	query := `
		UPDATE calls SET stashed = TRUE, stash_reason = $2, stashed_at = $3
		WHERE call_id = ANY($1)
	`

	if _, err := s.pool.Exec(ctx, query, callIDs, string(reason), at); err != nil {
		return fmt.Errorf("set stashed: %w", err)
	}
	return nil
}

// ClearStashed reactivates the given records.
func (s *CallStore) ClearStashed(ctx context.Context, callIDs []string) error {
	if len(callIDs) == 0 {
		return nil
	}

	query := `
		UPDATE calls SET stashed = FALSE, stash_reason = '', stashed_at = $2
		WHERE call_id = ANY($1)
	`

	if _, err := s.pool.Exec(ctx, query, callIDs, time.Time{}); err != nil {
		return fmt.Errorf("clear stashed: %w", err)
	}
	return nil
}

// StashedForArchive retrieves up to limit stashed records, oldest stash first.
func (s *CallStore) StashedForArchive(ctx context.Context, groupID int64, reason domain.StashReason, limit int) ([]*domain.CallRecord, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE group_id = $1 AND stashed = TRUE AND stash_reason = $2
		ORDER BY stashed_at ASC, call_id ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, groupID, string(reason), limit)
	if err != nil {
		return nil, fmt.Errorf("stashed for archive: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// DeleteByIDs removes records by id.
func (s *CallStore) DeleteByIDs(ctx context.Context, callIDs []string) (int64, error) {
	if len(callIDs) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM calls WHERE call_id = ANY($1)`, callIDs)
	if err != nil {
		return 0, fmt.Errorf("delete calls by ids: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOlderThan removes the group's records submitted before cutoff.
func (s *CallStore) DeleteOlderThan(ctx context.Context, groupID int64, cutoff time.Time) (int64, error) {
	query := `DELETE FROM calls WHERE group_id = $1 AND submitted_at < $2`

	tag, err := s.pool.Exec(ctx, query, groupID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete calls older than cutoff: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByStatus returns accepted and rejected record counts for a group.
func (s *CallStore) CountByStatus(ctx context.Context, groupID int64) (accepted, rejected int64, err error) {
	query := `
		SELECT
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status = $3)
		FROM calls
		WHERE group_id = $1
	`

	err = s.pool.QueryRow(ctx, query,
		groupID, string(domain.CallAccepted), string(domain.CallRejected)).Scan(&accepted, &rejected)
	if err != nil {
		return 0, 0, fmt.Errorf("count calls by status: %w", err)
	}
	return accepted, rejected, nil
}

// RejectReasonCounts returns the group's rejected-call histogram.
func (s *CallStore) RejectReasonCounts(ctx context.Context, groupID int64) (map[domain.RejectReason]int64, error) {
	query := `
		SELECT reject_reason, count(*)
		FROM calls
		WHERE group_id = $1 AND status = $2
		GROUP BY reject_reason
	`

	rows, err := s.pool.Query(ctx, query, groupID, string(domain.CallRejected))
	if err != nil {
		return nil, fmt.Errorf("reject reason counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RejectReason]int64)
	for rows.Next() {
		var reason string
		var n int64
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan reason count: %w", err)
		}
		counts[domain.RejectReason(reason)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reason counts: %w", err)
	}
	return counts, nil
}

// IngestDelayStats aggregates ingest delay over the group's accepted calls.
func (s *CallStore) IngestDelayStats(ctx context.Context, groupID int64) (storage.DelayStats, error) {
	query := `
		SELECT
			coalesce(avg(ingest_delay_sec), 0),
			coalesce(max(ingest_delay_sec), 0)
		FROM calls
		WHERE group_id = $1 AND status = $2
	`

	var stats storage.DelayStats
	err := s.pool.QueryRow(ctx, query, groupID, string(domain.CallAccepted)).
		Scan(&stats.AvgSeconds, &stats.MaxSeconds)
	if err != nil {
		return storage.DelayStats{}, fmt.Errorf("ingest delay stats: %w", err)
	}
	return stats, nil
}

// ActiveClaimants returns distinct claimant ids with accepted calls since the cutoff.
func (s *CallStore) ActiveClaimants(ctx context.Context, groupID int64, since time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT claimant_id
		FROM calls
		WHERE group_id = $1 AND status = $2 AND claimant_id IS NOT NULL AND submitted_at >= $3
		ORDER BY claimant_id ASC
	`

	rows, err := s.pool.Query(ctx, query, groupID, string(domain.CallAccepted), since)
	if err != nil {
		return nil, fmt.Errorf("active claimants: %w", err)
	}
	defer rows.Close()

	return scanInt64s(rows)
}

// GroupIDs returns all distinct group ids present in the store.
func (s *CallStore) GroupIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT group_id FROM calls ORDER BY group_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("call group ids: %w", err)
	}
	defer rows.Close()

	return scanInt64s(rows)
}

// scanCall scans a single row into a CallRecord.
func scanCall(row pgx.Row) (*domain.CallRecord, error) {
	var c domain.CallRecord
	var status, rejectReason, stashReason string

	err := row.Scan(
		&c.CallID, &c.GroupID, &c.Address, &c.AddressNorm, &status, &rejectReason,
		&c.ClaimantID, &c.ClaimantName, &c.ClaimantHandle, &c.MessageID, &c.MessageTime,
		&c.SubmittedAt, &c.IngestDelaySec, &c.InitialVal, &c.CurrentVal, &c.PeakVal,
		&c.Volume24h, &c.Symbol, &c.Stashed, &stashReason, &c.StashedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CallStatus(status)
	c.RejectReason = domain.RejectReason(rejectReason)
	c.StashReason = domain.StashReason(stashReason)
	return &c, nil
}

// scanCalls scans multiple rows into a slice of CallRecord.
func scanCalls(rows pgx.Rows) ([]*domain.CallRecord, error) {
	var calls []*domain.CallRecord
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}
	return calls, nil
}

func scanInt64s(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
