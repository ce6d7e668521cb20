package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// CallStore is an in-memory implementation of storage.CallStore.
type CallStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CallRecord // keyed by call_id
}

// NewCallStore creates a new in-memory call store.
func NewCallStore() *CallStore {
	return &CallStore{
		data: make(map[string]*domain.CallRecord),
	}
}

// Insert adds a new call record. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(_ context.Context, c *domain.CallRecord) error {
	if c == nil || c.CallID == "" || !c.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CallID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *c
	s.data[c.CallID] = &cp
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(_ context.Context, callID string) (*domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[callID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *c
	return &cp, nil
}

// FindAccepted retrieves accepted records matching the filter, newest first.
func (s *CallStore) FindAccepted(_ context.Context, f storage.CallFilter) ([]*domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CallRecord
	for _, c := range s.data {
		if c.GroupID != f.GroupID || c.Status != domain.CallAccepted {
			continue
		}
		if c.Stashed && !f.IncludeStashed {
			continue
		}
		if !f.Since.IsZero() && c.SubmittedAt.Before(f.Since) {
			continue
		}
		if f.ClaimantID != nil && (c.ClaimantID == nil || *c.ClaimantID != *f.ClaimantID) {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}

	sortNewestFirst(result)
	return result, nil
}

// RecentByClaimant retrieves the claimant's most recent accepted records.
func (s *CallStore) RecentByClaimant(_ context.Context, groupID, claimantID int64, limit int) ([]*domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CallRecord
	for _, c := range s.data {
		if c.GroupID != groupID || c.Status != domain.CallAccepted {
			continue
		}
		if c.ClaimantID == nil || *c.ClaimantID != claimantID {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}

	sortNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetByAddress retrieves every record of the group for a normalized identifier.
func (s *CallStore) GetByAddress(_ context.Context, groupID int64, addressNorm string) ([]*domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CallRecord
	for _, c := range s.data {
		if c.GroupID == groupID && c.AddressNorm == addressNorm {
			cp := *c
			result = append(result, &cp)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// AcceptedExists reports whether an accepted record exists for (group, identifier).
func (s *CallStore) AcceptedExists(_ context.Context, groupID int64, addressNorm string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data {
		if c.GroupID == groupID && c.AddressNorm == addressNorm && c.Status == domain.CallAccepted {
			return true, nil
		}
	}
	return false, nil
}

// UpdateMarket bulk-applies refreshed market fields by call id.
// Unknown ids are skipped: a record may have been archived mid-refresh.
func (s *CallStore) UpdateMarket(_ context.Context, updates []storage.MarketUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		c, exists := s.data[u.CallID]
		if !exists {
			continue
		}
		c.CurrentVal = u.Current
		c.PeakVal = u.Peak
		c.Volume24h = u.Volume24h
		if u.Symbol != "" {
			c.Symbol = u.Symbol
		}
	}
	return nil
}

// SetStashed flags the given records cold with the reason.
func (s *CallStore) SetStashed(_ context.Context, callIDs []string, reason domain.StashReason, at time.Time) error {
	if !reason.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range callIDs {
		if c, exists := s.data[id]; exists {
			c.Stashed = true
			c.StashReason = reason
			c.StashedAt = at
		}
	}
	return nil
}

// ClearStashed reactivates the given records.
func (s *CallStore) ClearStashed(_ context.Context, callIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range callIDs {
		if c, exists := s.data[id]; exists {
			c.Stashed = false
			c.StashReason = ""
			c.StashedAt = time.Time{}
		}
	}
	return nil
}

// StashedForArchive retrieves up to limit stashed records, oldest stash first.
func (s *CallStore) StashedForArchive(_ context.Context, groupID int64, reason domain.StashReason, limit int) ([]*domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CallRecord
	for _, c := range s.data {
		if c.GroupID == groupID && c.Stashed && c.StashReason == reason {
			cp := *c
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StashedAt.Equal(result[j].StashedAt) {
			return result[i].StashedAt.Before(result[j].StashedAt)
		}
		return result[i].CallID < result[j].CallID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteByIDs removes records by id.
func (s *CallStore) DeleteByIDs(_ context.Context, callIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, id := range callIDs {
		if _, exists := s.data[id]; exists {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteOlderThan removes the group's records submitted before cutoff.
func (s *CallStore) DeleteOlderThan(_ context.Context, groupID int64, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, c := range s.data {
		if c.GroupID == groupID && c.SubmittedAt.Before(cutoff) {
			delete(s.data, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountByStatus returns accepted and rejected record counts for a group.
func (s *CallStore) CountByStatus(_ context.Context, groupID int64) (accepted, rejected int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data {
		if c.GroupID != groupID {
			continue
		}
		if c.Status == domain.CallRejected {
			rejected++
		} else {
			accepted++
		}
	}
	return accepted, rejected, nil
}

// RejectReasonCounts returns the group's rejected-call histogram.
func (s *CallStore) RejectReasonCounts(_ context.Context, groupID int64) (map[domain.RejectReason]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.RejectReason]int64)
	for _, c := range s.data {
		if c.GroupID == groupID && c.Status == domain.CallRejected {
			counts[c.RejectReason]++
		}
	}
	return counts, nil
}

// IngestDelayStats aggregates ingest delay over the group's accepted calls.
func (s *CallStore) IngestDelayStats(_ context.Context, groupID int64) (storage.DelayStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats storage.DelayStats
	var sum, n int64
	for _, c := range s.data {
		if c.GroupID != groupID || c.Status != domain.CallAccepted {
			continue
		}
		sum += c.IngestDelaySec
		n++
		if c.IngestDelaySec > stats.MaxSeconds {
			stats.MaxSeconds = c.IngestDelaySec
		}
	}
	if n > 0 {
		stats.AvgSeconds = float64(sum) / float64(n)
	}
	return stats, nil
}

// ActiveClaimants returns distinct claimant ids with accepted calls since the cutoff.
func (s *CallStore) ActiveClaimants(_ context.Context, groupID int64, since time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, c := range s.data {
		if c.GroupID != groupID || c.Status != domain.CallAccepted || c.ClaimantID == nil {
			continue
		}
		if c.SubmittedAt.Before(since) {
			continue
		}
		seen[*c.ClaimantID] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// GroupIDs returns all distinct group ids present in the store.
func (s *CallStore) GroupIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, c := range s.data {
		seen[c.GroupID] = struct{}{}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func sortNewestFirst(calls []*domain.CallRecord) {
	sort.Slice(calls, func(i, j int) bool {
		if !calls[i].SubmittedAt.Equal(calls[j].SubmittedAt) {
			return calls[i].SubmittedAt.After(calls[j].SubmittedAt)
		}
		return calls[i].CallID < calls[j].CallID
	})
}

var _ storage.CallStore = (*CallStore)(nil)
