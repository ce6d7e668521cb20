package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
	"github.com/DeanCryptoo/YabaiBot/internal/storage"
)

// ArchiveStore is an in-memory implementation of storage.ArchiveStore.
type ArchiveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ArchivedCall // keyed by call_id
}

// NewArchiveStore creates a new in-memory archive store.
func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		data: make(map[string]*domain.ArchivedCall),
	}
}

// InsertBulk adds archived records. Duplicate ids are ignored so an
// interrupted sweep can be retried.
func (s *ArchiveStore) InsertBulk(_ context.Context, calls []*domain.ArchivedCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range calls {
		if c == nil || c.CallID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[c.CallID]; exists {
			continue
		}
		cp := *c
		s.data[c.CallID] = &cp
	}
	return nil
}

// Exists reports whether an archived record exists for (group, identifier).
func (s *ArchiveStore) Exists(_ context.Context, groupID int64, addressNorm string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data {
		if c.GroupID == groupID && c.AddressNorm == addressNorm {
			return true, nil
		}
	}
	return false, nil
}

// CountByGroup returns the number of archived records for a group.
func (s *ArchiveStore) CountByGroup(_ context.Context, groupID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.data {
		if c.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

// DeleteOlderThan removes the group's archived records submitted before cutoff.
func (s *ArchiveStore) DeleteOlderThan(_ context.Context, groupID int64, cutoff time.Time) (int64, error) {
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

var _ storage.ArchiveStore = (*ArchiveStore)(nil)
