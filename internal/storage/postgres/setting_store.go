package postgres

import (
	"context"
	"fmt"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// SettingStore implements storage.SettingStore using PostgreSQL.
type SettingStore struct {
	pool *Pool
}

// NewSettingStore creates a new SettingStore.
func NewSettingStore(pool *Pool) *SettingStore {
	return &SettingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingStore = (*SettingStore)(nil)

// Get retrieves a group's settings. Returns ErrNotFound if not exists.
func (s *SettingStore) Get(ctx context.Context, groupID int64) (*domain.GroupSetting, error) {
	query := `
		SELECT group_id, alerts_enabled, last_digest_date, group_key
		FROM group_settings
		WHERE group_id = $1
	`

	var g domain.GroupSetting
	err := s.pool.QueryRow(ctx, query, groupID).
		Scan(&g.GroupID, &g.AlertsEnabled, &g.LastDigestDate, &g.GroupKey)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get group settings: %w", err)
	}
	return &g, nil
}

// SetAlerts upserts the alerts-enabled flag.
func (s *SettingStore) SetAlerts(ctx context.Context, groupID int64, enabled bool) error {
	query := `
		INSERT INTO group_settings (group_id, alerts_enabled)
		VALUES ($1, $2)
		ON CONFLICT (group_id) DO UPDATE SET alerts_enabled = EXCLUDED.alerts_enabled
	`

	if _, err := s.pool.Exec(ctx, query, groupID, enabled); err != nil {
		return fmt.Errorf("set alerts flag: %w", err)
	}
	return nil
}

// SetLastDigestDate upserts the UTC date of the last digest.
func (s *SettingStore) SetLastDigestDate(ctx context.Context, groupID int64, date string) error {
	query := `
		INSERT INTO group_settings (group_id, last_digest_date)
		VALUES ($1, $2)
		ON CONFLICT (group_id) DO UPDATE SET last_digest_date = EXCLUDED.last_digest_date
	`

	if _, err := s.pool.Exec(ctx, query, groupID, date); err != nil {
		return fmt.Errorf("set last digest date: %w", err)
	}
	return nil
}

// SetGroupKey upserts the canonical group key; empty clears the link.
func (s *SettingStore) SetGroupKey(ctx context.Context, groupID int64, key string) error {
	query := `
		INSERT INTO group_settings (group_id, group_key)
		VALUES ($1, $2)
		ON CONFLICT (group_id) DO UPDATE SET group_key = EXCLUDED.group_key
	`

	if _, err := s.pool.Exec(ctx, query, groupID, key); err != nil {
		return fmt.Errorf("set group key: %w", err)
	}
	return nil
}

// GroupIDs returns all group ids with settings rows.
func (s *SettingStore) GroupIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT group_id FROM group_settings ORDER BY group_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("setting group ids: %w", err)
	}
	defer rows.Close()

	return scanInt64s(rows)
}
