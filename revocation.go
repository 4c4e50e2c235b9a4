package identity

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is the jti deny-list consulted by the token guards.
// Entries expire on their own once the revoked token would have expired
// anyway; there is no need to retain them past natural expiry.
type RevocationStore interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore is a process-local deny-list for single-instance
// deployments and tests. Multi-instance deployments need the redis store
// so revocation is visible cluster-wide.
type MemoryRevocationStore struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	lastSweep  time.Time
	sweepEvery time.Duration
}

// NewMemoryRevocationStore returns an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries:    map[string]time.Time{},
		lastSweep:  time.Now(),
		sweepEvery: time.Minute,
	}
}

// Add marks the jti revoked for ttl. A non-positive ttl means the token
// already expired and there is nothing to deny.
func (s *MemoryRevocationStore) Add(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(now)
	s.entries[jti] = now.Add(ttl)

	return nil
}

// Contains reports whether the jti is currently revoked.
func (s *MemoryRevocationStore) Contains(_ context.Context, jti string) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(now)

	deadline, ok := s.entries[jti]
	if !ok {
		return false, nil
	}

	if now.After(deadline) {
		delete(s.entries, jti)
		return false, nil
	}

	return true, nil
}

// maybeSweep drops expired entries at most once per sweep interval.
// Callers must hold the mutex.
func (s *MemoryRevocationStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.sweepEvery {
		return
	}

	for jti, deadline := range s.entries {
		if now.After(deadline) {
			delete(s.entries, jti)
		}
	}
	s.lastSweep = now
}
