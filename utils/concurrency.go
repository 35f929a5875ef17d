package utils

import (
	"sync"
	"time"
)

// Set is a thread-safe string set with test-and-set insertion. The
// deduplicator relies on Add being atomic: two concurrent inserts of
// the same key must never both report the key as new.
type Set struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the key has already been added.
func (s *Set) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *Set) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// RateGate enforces a minimum interval between calls to Wait. Used to
// keep outbound geocoding requests inside the provider's usage policy.
type RateGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateGate creates a RateGate with the given minimum interval.
// A non-positive interval disables the gate.
func NewRateGate(interval time.Duration) *RateGate {
	return &RateGate{interval: interval}
}

// Wait blocks until at least the configured interval has passed since
// the previous call returned.
func (g *RateGate) Wait() {
	if g.interval <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	elapsed := time.Since(g.last)
	if elapsed < g.interval {
		time.Sleep(g.interval - elapsed)
	}
	g.last = time.Now()
}
