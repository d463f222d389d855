// Package tracker keeps per-user daily PHI access counts.
package tracker

import (
	"maps"
	"sync"
	"time"
)

// DateLayout formats the day buckets.
const DateLayout = "2006-01-02"

// Tracker counts PHI accesses per user per calendar day. Days are taken from
// the access time in its own location.
type Tracker struct {
	mu     sync.RWMutex
	counts map[string]map[string]int
}

func New() *Tracker {
	return &Tracker{counts: make(map[string]map[string]int)}
}

// Record increments (userID, day of at). No-op when patientID is empty.
func (t *Tracker) Record(userID, patientID string, at time.Time) {
	if patientID == "" {
		return
	}
	day := at.Format(DateLayout)

	t.mu.Lock()
	defer t.mu.Unlock()
	byDay := t.counts[userID]
	if byDay == nil {
		byDay = make(map[string]int)
		t.counts[userID] = byDay
	}
	byDay[day]++
}

// Count returns the user's accesses on day (YYYY-MM-DD).
func (t *Tracker) Count(userID, day string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counts[userID][day]
}

// DailyCounts returns a copy of the user's day buckets.
func (t *Tracker) DailyCounts(userID string) map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := maps.Clone(t.counts[userID])
	if out == nil {
		out = map[string]int{}
	}
	return out
}
