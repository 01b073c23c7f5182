// Package cache holds the single most recent resolved table.
package cache

import (
	"sync"
	"time"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
)

// Entry is one resolved table and where it came from.
type Entry struct {
	Rows   market.Table
	Source string
	At     time.Time
}

// Slot is a one-entry TTL cache. The zero value with TTL <= 0 never hits.
// Expired entries are not evicted; they are overwritten by the next Set.
type Slot struct {
	TTL time.Duration

	mu    sync.RWMutex
	entry *Entry
}

func New(ttl time.Duration) *Slot { return &Slot{TTL: ttl} }

// Get returns the entry if it was stored less than TTL before now.
func (s *Slot) Get(now time.Time) (Entry, bool) {
	if s.TTL <= 0 {
		return Entry{}, false
	}
	s.mu.RLock()
	e := s.entry
	s.mu.RUnlock()
	if e == nil || now.Sub(e.At) >= s.TTL {
		return Entry{}, false
	}
	return *e, true
}

// Set replaces the stored entry.
func (s *Slot) Set(e Entry) {
	s.mu.Lock()
	s.entry = &e
	s.mu.Unlock()
}

// Age reports how old the stored entry is at now, and whether there is one.
func (s *Slot) Age(now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return 0, false
	}
	return now.Sub(s.entry.At), true
}
