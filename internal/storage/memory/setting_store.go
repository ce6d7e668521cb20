package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// SettingStore is an in-memory implementation of storage.SettingStore.
type SettingStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.GroupSetting // keyed by group_id
}

// NewSettingStore creates a new in-memory setting store.
func NewSettingStore() *SettingStore {
	return &SettingStore{
		data: make(map[int64]*domain.GroupSetting),
	}
}

// Get retrieves a group's settings. Returns ErrNotFound if not exists.
func (s *SettingStore) Get(_ context.Context, groupID int64) (*domain.GroupSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.data[groupID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *g
	return &cp, nil
}

// SetAlerts upserts the alerts-enabled flag.
func (s *SettingStore) SetAlerts(_ context.Context, groupID int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(groupID).AlertsEnabled = enabled
	return nil
}

// SetLastDigestDate upserts the UTC date of the last digest.
func (s *SettingStore) SetLastDigestDate(_ context.Context, groupID int64, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(groupID).LastDigestDate = date
	return nil
}

// SetGroupKey upserts the canonical group key; empty clears the link.
func (s *SettingStore) SetGroupKey(_ context.Context, groupID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsert(groupID).GroupKey = key
	return nil
}

// GroupIDs returns all group ids with settings rows.
func (s *SettingStore) GroupIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// upsert returns the existing row or creates a default one. Caller holds the lock.
func (s *SettingStore) upsert(groupID int64) *domain.GroupSetting {
	g, exists := s.data[groupID]
	if !exists {
		g = &domain.GroupSetting{GroupID: groupID}
		s.data[groupID] = g
	}
	return g
}

var _ storage.SettingStore = (*SettingStore)(nil)
