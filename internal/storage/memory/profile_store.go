package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

type profileKey struct {
	groupID    int64
	claimantID int64
}

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[profileKey]*domain.ClaimantProfile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[profileKey]*domain.ClaimantProfile),
	}
}

// ApplyAdmission upserts the profile: counters incremented, display metadata
// set, first-seen set on insert.
func (s *ProfileStore) ApplyAdmission(_ context.Context, ev storage.AdmissionEvent) error {
	if !ev.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{groupID: ev.GroupID, claimantID: ev.ClaimantID}
	p, exists := s.data[key]
	if !exists {
		p = &domain.ClaimantProfile{
			GroupID:    ev.GroupID,
			ClaimantID: ev.ClaimantID,
			FirstSeen:  ev.At,
		}
		s.data[key] = p
	}

	p.DisplayName = ev.DisplayName
	p.Handle = ev.Handle
	p.UpdatedAt = ev.At

	switch ev.Status {
	case domain.CallAccepted:
		p.AcceptedCalls++
	case domain.CallRejected:
		p.RejectedCalls++
		if ev.Reason != "" {
			if p.RejectReasons == nil {
				p.RejectReasons = make(map[domain.RejectReason]int64)
			}
			p.RejectReasons[ev.Reason]++
		}
	}
	return nil
}

// Get retrieves a profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) Get(_ context.Context, groupID, claimantID int64) (*domain.ClaimantProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[profileKey{groupID: groupID, claimantID: claimantID}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyProfile(p), nil
}

// SetAlertState upserts the cooldown state for one alert kind.
func (s *ProfileStore) SetAlertState(_ context.Context, groupID, claimantID int64, kind domain.AlertKind, state domain.AlertState) error {
	if !kind.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := profileKey{groupID: groupID, claimantID: claimantID}
	p, exists := s.data[key]
	if !exists {
		p = &domain.ClaimantProfile{GroupID: groupID, ClaimantID: claimantID}
		s.data[key] = p
	}

	switch kind {
	case domain.AlertHot:
		p.HotAlert = state
	case domain.AlertCold:
		p.ColdAlert = state
	}
	return nil
}

// TopRejected retrieves the group's profiles ordered by rejected count DESC.
func (s *ProfileStore) TopRejected(_ context.Context, groupID int64, limit int) ([]*domain.ClaimantProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClaimantProfile
	for _, p := range s.data {
		if p.GroupID == groupID {
			result = append(result, copyProfile(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RejectedCalls != result[j].RejectedCalls {
			return result[i].RejectedCalls > result[j].RejectedCalls
		}
		return result[i].ClaimantID < result[j].ClaimantID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyProfile(p *domain.ClaimantProfile) *domain.ClaimantProfile {
	cp := *p
	if p.RejectReasons != nil {
		cp.RejectReasons = make(map[domain.RejectReason]int64, len(p.RejectReasons))
		for k, v := range p.RejectReasons {
			cp.RejectReasons[k] = v
		}
	}
	return &cp
}

var _ storage.ProfileStore = (*ProfileStore)(nil)
