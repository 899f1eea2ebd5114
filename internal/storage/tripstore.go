package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/models"
)

var ErrDuplicateReservation = errors.New("reservation already pending")

// DispatchStore holds the pending reservation pool and the latest snapshot.
type DispatchStore interface {
	AddReservation(r models.Reservation) error
	Pending() []models.Reservation
	SetRoute(est models.DriverRouteEstimate)
	Snapshot() models.Snapshot
	Commit(next models.Snapshot, assigned []uuid.UUID)
}

// MemoryStore keeps everything in process. Reservations leave the pool only
// through Commit.
type MemoryStore struct {
	mu      sync.RWMutex
	pending []models.Reservation
	ids     map[uuid.UUID]struct{}
	snap    models.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[uuid.UUID]struct{}), snap: models.NewSnapshot()}
}

func (m *MemoryStore) AddReservation(r models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[r.ID]; ok {
		return fmt.Errorf("%s: %w", r.ID, ErrDuplicateReservation)
	}
	m.ids[r.ID] = struct{}{}
	m.pending = append(m.pending, r)
	return nil
}

// Pending returns a copy of the pool in arrival order.
func (m *MemoryStore) Pending() []models.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Reservation(nil), m.pending...)
}

func (m *MemoryStore) SetRoute(est models.DriverRouteEstimate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = m.snap.With(est)
}

func (m *MemoryStore) Snapshot() models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone()
}

// Commit installs next and drops the assigned reservations from the pool.
func (m *MemoryStore) Commit(next models.Snapshot, assigned []uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = next.Clone()
	gone := make(map[uuid.UUID]struct{}, len(assigned))
	for _, id := range assigned {
		gone[id] = struct{}{}
		delete(m.ids, id)
	}
	kept := m.pending[:0]
	for _, r := range m.pending {
		if _, ok := gone[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	m.pending = kept
}
