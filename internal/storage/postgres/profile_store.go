package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

const profileColumns = `
	group_id, claimant_id, display_name, handle, accepted_calls, rejected_calls,
	reject_reasons, first_seen, updated_at,
	hot_notified_at, hot_streak_len, cold_notified_at, cold_streak_len
`

// ProfileStore implements storage.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *Pool
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(pool *Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

// ApplyAdmission upserts the profile in one statement: counters incremented,
// display metadata refreshed, first-seen preserved, and the reject-reason
// histogram bumped inside the jsonb column.
func (s *ProfileStore) ApplyAdmission(ctx context.Context, ev storage.AdmissionEvent) error {
	if !ev.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	var acceptedInc, rejectedInc int64
	reasons := map[domain.RejectReason]int64{}
	switch ev.Status {
	case domain.CallAccepted:
		acceptedInc = 1
	case domain.CallRejected:
		rejectedInc = 1
		if ev.Reason != "" {
			reasons[ev.Reason] = 1
		}
	}
	initialReasons, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("marshal reject reasons: %w", err)
	}

	query := `
		INSERT INTO claimant_profiles (
			group_id, claimant_id, display_name, handle,
			accepted_calls, rejected_calls, reject_reasons, first_seen, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (group_id, claimant_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			handle = EXCLUDED.handle,
			accepted_calls = claimant_profiles.accepted_calls + EXCLUDED.accepted_calls,
			rejected_calls = claimant_profiles.rejected_calls + EXCLUDED.rejected_calls,
			reject_reasons = CASE
				WHEN $9 = '' THEN claimant_profiles.reject_reasons
				ELSE jsonb_set(
					claimant_profiles.reject_reasons,
					ARRAY[$9],
					to_jsonb(coalesce((claimant_profiles.reject_reasons->>$9)::bigint, 0) + 1)
				)
			END,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		ev.GroupID, ev.ClaimantID, ev.DisplayName, ev.Handle,
		acceptedInc, rejectedInc, initialReasons, ev.At, string(ev.Reason))
	if err != nil {
		return fmt.Errorf("apply admission: %w", err)
	}
	return nil
}

// Get retrieves a profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) Get(ctx context.Context, groupID, claimantID int64) (*domain.ClaimantProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM claimant_profiles WHERE group_id = $1 AND claimant_id = $2`

	row := s.pool.QueryRow(ctx, query, groupID, claimantID)
	p, err := scanProfile(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SetAlertState upserts the cooldown state for one alert kind.
func (s *ProfileStore) SetAlertState(ctx context.Context, groupID, claimantID int64, kind domain.AlertKind, state domain.AlertState) error {
	if !kind.IsValid() {
		return storage.ErrInvalidInput
	}

	var query string
	switch kind {
	case domain.AlertHot:
		query = `
			INSERT INTO claimant_profiles (group_id, claimant_id, first_seen, updated_at, hot_notified_at, hot_streak_len)
			VALUES ($1, $2, $3, $3, $3, $4)
			ON CONFLICT (group_id, claimant_id) DO UPDATE SET
				hot_notified_at = EXCLUDED.hot_notified_at,
				hot_streak_len = EXCLUDED.hot_streak_len
		`
	case domain.AlertCold:
		query = `
			INSERT INTO claimant_profiles (group_id, claimant_id, first_seen, updated_at, cold_notified_at, cold_streak_len)
			VALUES ($1, $2, $3, $3, $3, $4)
			ON CONFLICT (group_id, claimant_id) DO UPDATE SET
				cold_notified_at = EXCLUDED.cold_notified_at,
				cold_streak_len = EXCLUDED.cold_streak_len
		`
	}

	if _, err := s.pool.Exec(ctx, query, groupID, claimantID, state.NotifiedAt, state.StreakLen); err != nil {
		return fmt.Errorf("set alert state: %w", err)
	}
	return nil
}

// TopRejected retrieves the group's profiles ordered by rejected count DESC.
func (s *ProfileStore) TopRejected(ctx context.Context, groupID int64, limit int) ([]*domain.ClaimantProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM claimant_profiles
		WHERE group_id = $1
		ORDER BY rejected_calls DESC, claimant_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("top rejected profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.ClaimantProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}
	return profiles, nil
}

// scanProfile scans a single row into a ClaimantProfile.
func scanProfile(row pgx.Row) (*domain.ClaimantProfile, error) {
	var p domain.ClaimantProfile
	var reasonsRaw []byte

	err := row.Scan(
		&p.GroupID, &p.ClaimantID, &p.DisplayName, &p.Handle,
		&p.AcceptedCalls, &p.RejectedCalls, &reasonsRaw, &p.FirstSeen, &p.UpdatedAt,
		&p.HotAlert.NotifiedAt, &p.HotAlert.StreakLen,
		&p.ColdAlert.NotifiedAt, &p.ColdAlert.StreakLen,
	)
	if err != nil {
		return nil, err
	}

	reasons := map[domain.RejectReason]int64{}
	if len(reasonsRaw) > 0 {
		if err := json.Unmarshal(reasonsRaw, &reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reject reasons: %w", err)
		}
	}
	if len(reasons) > 0 {
		p.RejectReasons = reasons
	}
	return &p, nil
}
