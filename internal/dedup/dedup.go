// Package dedup tracks recently seen item fingerprints inside a rolling time
// window so one platform event produces one notification.
package dedup

import (
	"sync"
	"time"

	"github.com/pawprint/leakwatch/internal/model"
)

// Store maps fingerprints to their last-seen time. Entries older than the
// window are purged on every check, which keeps memory bounded in long-lived
// processes.
type Store struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// New creates a Store with the given suppression window.
func New(window time.Duration) *Store {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Store{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// NewWithClock creates a Store with an injectable clock for tests.
func NewWithClock(window time.Duration, now func() time.Time) *Store {
	s := New(window)
	s.now = now
	return s
}

// Seen reports whether item's fingerprint was already registered inside the
// window. When it was not, the fingerprint is registered as a side effect.
func (s *Store) Seen(item model.Item) bool {
	return s.SeenFingerprint(item.Fingerprint())
}

// SeenFingerprint is Seen for a precomputed fingerprint.
func (s *Store) SeenFingerprint(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, t := range s.seen {
		if now.Sub(t) > s.window {
			delete(s.seen, k)
		}
	}

	if _, ok := s.seen[fp]; ok {
		return true
	}
	s.seen[fp] = now
	return false
}

// Len returns the number of tracked fingerprints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
