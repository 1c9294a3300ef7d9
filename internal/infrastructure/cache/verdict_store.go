package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// VerdictStore keeps the last known dealer verdict per customer. Entries
// outlive the freshness TTL so a failed lookup can still serve them.
type VerdictStore interface {
	// Get returns false when nothing is stored for userID
	Get(ctx context.Context, userID int64) (fulfillment.DealerVerdict, bool, error)
	Set(ctx context.Context, userID int64, v fulfillment.DealerVerdict) error
	Close() error
}

// DefaultVerdictRetention bounds how long a verdict is kept for stale serving
const DefaultVerdictRetention = 24 * time.Hour

// InMemoryVerdictStore implements VerdictStore with a process-local map
type InMemoryVerdictStore struct {
	mu        sync.RWMutex
	entries   map[int64]fulfillment.DealerVerdict
	retention time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryVerdictStore creates the store and starts its cleanup goroutine
func NewInMemoryVerdictStore(retention time.Duration) *InMemoryVerdictStore {
	if retention <= 0 {
		retention = DefaultVerdictRetention
	}
	s := &InMemoryVerdictStore{
		entries:   make(map[int64]fulfillment.DealerVerdict),
		retention: retention,
		stopChan:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Get returns the stored verdict for userID
func (s *InMemoryVerdictStore) Get(_ context.Context, userID int64) (fulfillment.DealerVerdict, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[userID]
	return v, ok, nil
}

// Set replaces the verdict for userID
func (s *InMemoryVerdictStore) Set(_ context.Context, userID int64, v fulfillment.DealerVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = v
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryVerdictStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryVerdictStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup(time.Now())
		}
	}
}

func (s *InMemoryVerdictStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.entries {
		if now.Sub(v.CheckedAt) > s.retention {
			delete(s.entries, id)
		}
	}
}

// Size returns the number of stored verdicts
func (s *InMemoryVerdictStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ VerdictStore = (*InMemoryVerdictStore)(nil)
