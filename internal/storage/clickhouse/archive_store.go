package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// ArchiveStore implements storage.ArchiveStore using ClickHouse.
type ArchiveStore struct {
	conn *Conn
}

// NewArchiveStore creates a new ArchiveStore.
func NewArchiveStore(conn *Conn) *ArchiveStore {
	return &ArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// InsertBulk adds archived records. The table is a ReplacingMergeTree keyed
// by (group_id, address_norm, call_id), so replaying an interrupted sweep
// collapses to one row per call.
func (s *ArchiveStore) InsertBulk(ctx context.Context, calls []*domain.ArchivedCall) error {
	if len(calls) == 0 {
		return nil
	}
	for _, c := range calls {
		if c == nil || c.CallID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO archived_calls (
			call_id, group_id, address_norm, claimant_id, claimant_name,
			symbol, initial_val, current_val, peak_val,
			submitted_at, stashed_at, archived_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range calls {
		if err := batch.Append(
			c.CallID, c.GroupID, c.AddressNorm, c.ClaimantID, c.ClaimantName,
			c.Symbol, c.InitialVal, c.CurrentVal, c.PeakVal,
			c.SubmittedAt, c.StashedAt, c.ArchivedAt,
		); err != nil {
			return fmt.Errorf("append archived call %s: %w", c.CallID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Exists reports whether an archived record exists for (group, identifier).
func (s *ArchiveStore) Exists(ctx context.Context, groupID int64, addressNorm string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM archived_calls
		WHERE group_id = ? AND address_norm = ?
	`, groupID, addressNorm).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return count > 0, nil
}

// CountByGroup returns the number of archived records for a group.
// DISTINCT guards against not-yet-merged ReplacingMergeTree duplicates.
func (s *ArchiveStore) CountByGroup(ctx context.Context, groupID int64) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(DISTINCT call_id) FROM archived_calls
		WHERE group_id = ?
	`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query count: %w", err)
	}
	return int64(count), nil
}

// DeleteOlderThan removes the group's archived records submitted before
// cutoff. ClickHouse deletes report no affected rows, so the count is taken
// up front.
func (s *ArchiveStore) DeleteOlderThan(ctx context.Context, groupID int64, cutoff time.Time) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(DISTINCT call_id) FROM archived_calls
		WHERE group_id = ? AND submitted_at < ?
	`, groupID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count for delete: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.conn.Exec(ctx, `
		DELETE FROM archived_calls
		WHERE group_id = ? AND submitted_at < ?
	`, groupID, cutoff); err != nil {
		return 0, fmt.Errorf("delete archived calls: %w", err)
	}
	return int64(count), nil
}
