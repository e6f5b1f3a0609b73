package observability

import (
	"sort"
	"sync"
	"time"
)

// LookupStats tracks how often each geometry id is looked up through the
// registry API, so hot parcels can be inspected and pre-warmed.
type LookupStats struct {
	mu     sync.RWMutex
	ids    map[string]*IDStats
	window time.Duration
	now    func() time.Time
}

// IDStats holds the counters of one geometry id.
type IDStats struct {
	GeometryID string    `json:"geometry_id"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	LastSeen   time.Time `json:"last_seen"`
}

// NewLookupStats creates a tracker whose entries expire after window.
func NewLookupStats(window time.Duration) *LookupStats {
	return &LookupStats{
		ids:    make(map[string]*IDStats),
		window: window,
		now:    time.Now,
	}
}

// Record counts a lookup of id; found tells whether records matched.
func (s *LookupStats) Record(id string, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.ids[id]
	if !ok {
		st = &IDStats{GeometryID: id}
		s.ids[id] = st
	}
	if found {
		st.Hits++
	} else {
		st.Misses++
	}
	st.LastSeen = s.now()
}

// Top returns copies of the n most looked-up ids, busiest first, ties by id.
func (s *LookupStats) Top(n int) []IDStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.ids) == 0 {
		return []IDStats{}
	}

	out := make([]IDStats, 0, len(s.ids))
	for _, st := range s.ids {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Hits+out[i].Misses, out[j].Hits+out[j].Misses
		if ti != tj {
			return ti > tj
		}
		return out[i].GeometryID < out[j].GeometryID
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Prune drops ids not seen within the window. Call it periodically.
func (s *LookupStats) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := s.now().Add(-s.window)
	pruned := 0
	for id, st := range s.ids {
		if st.LastSeen.Before(threshold) {
			delete(s.ids, id)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of tracked ids.
func (s *LookupStats) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
