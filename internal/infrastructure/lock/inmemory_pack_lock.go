package lock

import (
	"context"
	"sync"
	"time"

	"github.com/meliznube/backend/internal/domain/order"
)

// record is one claimed pack lock.
type record struct {
	acquiredAt time.Time
	done       bool
	doneAt     time.Time
}

// InMemoryPackLockStore implements order.PackLockStore in process memory.
// Suitable for single-instance deployments and tests; state is lost on
// restart.
type InMemoryPackLockStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// NewInMemoryPackLockStore creates an InMemoryPackLockStore.
func NewInMemoryPackLockStore() *InMemoryPackLockStore {
	return &InMemoryPackLockStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// TryAcquire creates the lock record for a pack id if none exists.
func (s *InMemoryPackLockStore) TryAcquire(ctx context.Context, packID string) (order.PackLockHandle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[packID]; exists {
		return order.PackLockHandle{}, false, nil
	}
	s.records[packID] = &record{acquiredAt: s.now()}
	return order.PackLockHandle{Key: packID}, true, nil
}

// MarkDone flags an acquired record as completed. The record stays.
func (s *InMemoryPackLockStore) MarkDone(ctx context.Context, handle order.PackLockHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[handle.Key]; ok {
		rec.done = true
		rec.doneAt = s.now()
	}
	return nil
}

// IsDone reports whether a pack's record exists and has been completed.
func (s *InMemoryPackLockStore) IsDone(packID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[packID]
	return ok && rec.done
}

var _ order.PackLockStore = (*InMemoryPackLockStore)(nil)
