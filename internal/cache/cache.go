// Package cache is a TTL-bounded in-memory store for fetched bar series,
// keyed by symbol and interval. Instances are independent; there is no
// package-level shared state.
package cache

import (
	"sync"
	"time"

	"premarketdash/internal/model"
)

type entry struct {
	series    model.Series
	fetchedAt time.Time
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"` // 0..1, 0 when no lookups yet
	TTL     string  `json:"ttl"`
}

// Store holds bar series with lazy read-time expiry. All methods are safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits   uint64
	misses uint64
}

// New builds a store whose entries expire ttl after Put.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewWithClock is New with an injected clock, for tests.
func NewWithClock(ttl time.Duration, now func() time.Time) *Store {
	s := New(ttl)
	s.now = now
	return s
}

// Key derives the cache key for a symbol and bar interval.
func Key(symbol, interval string) string {
	return symbol + "|" + interval
}

// Get returns the cached series for the key if present and fresh. An expired
// entry is removed on the spot and reported as a miss.
func (s *Store) Get(symbol, interval string) (model.Series, bool) {
	k := Key(symbol, interval)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[k]
	if !ok {
		s.misses++
		return nil, false
	}
	if s.now().Sub(e.fetchedAt) > s.ttl {
		delete(s.entries, k)
		s.misses++
		return nil, false
	}
	s.hits++
	return e.series, true
}

// Put stores the series under the key, restarting its TTL.
func (s *Store) Put(symbol, interval string, series model.Series) {
	k := Key(symbol, interval)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = entry{series: series, fetchedAt: s.now()}
}

// Clear drops every entry. Hit/miss counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Sweep removes every expired entry and returns how many were dropped.
// Expiry is otherwise lazy, so a long-idle store can hold dead entries
// until something calls this.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for k, e := range s.entries {
		if now.Sub(e.fetchedAt) > s.ttl {
			delete(s.entries, k)
			dropped++
		}
	}
	return dropped
}

// Stats reports entry count and lookup counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	rate := 0.0
	if total > 0 {
		rate = float64(s.hits) / float64(total)
	}
	return Stats{
		Entries: len(s.entries),
		Hits:    s.hits,
		Misses:  s.misses,
		HitRate: rate,
		TTL:     s.ttl.String(),
	}
}
