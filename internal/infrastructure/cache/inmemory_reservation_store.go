package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/payables/internal/domain/payables"
)

// reservation is a claim on one check number
type reservation struct {
	owner     string
	expiresAt time.Time
}

// InMemoryReservationStore implements CheckNumberReservationStore using an
// in-memory map. This is suitable for single-instance deployments and testing
type InMemoryReservationStore struct {
	mu        sync.Mutex
	entries   map[string]reservation
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReservationStore creates a new in-memory reservation store.
// It starts a background goroutine to clean up expired claims
func NewInMemoryReservationStore() *InMemoryReservationStore {
	store := &InMemoryReservationStore{
		entries:  make(map[string]reservation),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Reserve claims every number in r for owner, or nothing at all.
// Numbers the same owner already holds are refreshed, not reported.
func (s *InMemoryReservationStore) Reserve(ctx context.Context, r payables.CheckNumberRange, owner string, ttl time.Duration) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numbers := r.Numbers()
	if len(numbers) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var conflicts []string
	for _, n := range numbers {
		e, exists := s.entries[reservationKey("", r, n)]
		if exists && now.Before(e.expiresAt) && e.owner != owner {
			conflicts = append(conflicts, n)
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	expiresAt := now.Add(ttl)
	for _, n := range numbers {
		s.entries[reservationKey("", r, n)] = reservation{owner: owner, expiresAt: expiresAt}
	}
	return nil, nil
}

// Release drops the claims owner holds on r. Claims held by others stay.
func (s *InMemoryReservationStore) Release(ctx context.Context, r payables.CheckNumberRange, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range r.Numbers() {
		key := reservationKey("", r, n)
		if e, exists := s.entries[key]; exists && e.owner == owner {
			delete(s.entries, key)
		}
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryReservationStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryReservationStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired claims from the store
func (s *InMemoryReservationStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of claims in the store (for testing/monitoring)
func (s *InMemoryReservationStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ payables.CheckNumberReservationStore = (*InMemoryReservationStore)(nil)
