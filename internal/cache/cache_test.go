package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
)

func TestSlot_HitWithinTTL(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := New(5 * time.Minute)

	_, ok := s.Get(t0)
	require.False(t, ok)

	s.Set(Entry{Rows: market.Fallback(), Source: "luse-api", At: t0})

	e, ok := s.Get(t0.Add(4*time.Minute + 59*time.Second))
	require.True(t, ok)
	require.Equal(t, "luse-api", e.Source)
	require.Len(t, e.Rows, 2)

	_, ok = s.Get(t0.Add(5 * time.Minute))
	require.False(t, ok)

	age, ok := s.Age(t0.Add(time.Hour))
	require.True(t, ok)
	require.Equal(t, time.Hour, age)
}

func TestSlot_ZeroTTLNeverHits(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	s := &Slot{}
	s.Set(Entry{Source: "luse-api", At: t0})
	_, ok := s.Get(t0)
	require.False(t, ok)
}

func TestSlot_SetOverwrites(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	s := New(time.Minute)
	s.Set(Entry{Source: "a", At: t0})
	s.Set(Entry{Source: "b", At: t0})
	e, ok := s.Get(t0)
	require.True(t, ok)
	require.Equal(t, "b", e.Source)
}

func TestSlot_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New(time.Minute)
	now := time.Now()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				s.Set(Entry{Source: "x", At: now})
				return
			}
			s.Get(now)
		}()
	}
	wg.Wait()
	_, ok := s.Get(now)
	require.True(t, ok)
}
