package cache

import (
	"context"
	"sync"
	"time"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/google/uuid"
)

// claimEntry represents a held checksum claim with expiration
type claimEntry struct {
	transactionID uuid.UUID
	expiresAt     time.Time
}

// InMemoryClaimStore implements ChecksumClaimStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryClaimStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[string]claimEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryClaimStore creates a new in-memory claim store. It starts a
// background goroutine to clean up expired claims.
func NewInMemoryClaimStore(ttl time.Duration) *InMemoryClaimStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	store := &InMemoryClaimStore{
		ttl:      ttl,
		entries:  make(map[string]claimEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Claim claims a checksum for a transaction. The first caller wins and gets
// its own transaction ID back; later callers get the winner's.
func (s *InMemoryClaimStore) Claim(ctx context.Context, checksum string, transactionID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[checksum]; exists && time.Now().Before(e.expiresAt) {
		return e.transactionID, false, nil
	}

	s.entries[checksum] = claimEntry{
		transactionID: transactionID,
		expiresAt:     time.Now().Add(s.ttl),
	}
	return transactionID, true, nil
}

// Release frees the claim for a checksum
func (s *InMemoryClaimStore) Release(ctx context.Context, checksum string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, checksum)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryClaimStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of held claims (for testing/monitoring)
func (s *InMemoryClaimStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop periodically removes expired claims
func (s *InMemoryClaimStore) cleanupLoop() {
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
func (s *InMemoryClaimStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for checksum, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, checksum)
		}
	}
}

// Ensure InMemoryClaimStore implements ChecksumClaimStore
var _ intakeapp.ChecksumClaimStore = (*InMemoryClaimStore)(nil)
