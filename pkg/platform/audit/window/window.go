// Package window answers the trailing-window questions the volumetric
// violation rules ask about a user's recent PHI access.
//
// Two implementations share the Counter contract: LogScan rescans the full
// audit log on every query, Index keeps a per-user sliding window of PHI
// accesses. Both count events whose timestamp is strictly after the cutoff.
package window

import (
	"sync"
	"time"

	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/store/memory"
)

// Counter reports a user's PHI access volume since a cutoff. Observe is
// called once per event after it has been appended to the log.
type Counter interface {
	PHIAccesses(userID string, since time.Time) int
	DistinctPatients(userID string, since time.Time) int
	Observe(event audit.Event)
}

// LogScan reads the audit log directly. O(log size) per query.
type LogScan struct {
	log *memory.Log
}

func NewLogScan(log *memory.Log) *LogScan {
	return &LogScan{log: log}
}

func (s *LogScan) PHIAccesses(userID string, since time.Time) int {
	count := 0
	s.log.Each(func(e audit.Event) bool {
		if e.UserID == userID && e.HasPHI() && e.Timestamp.After(since) {
			count++
		}
		return true
	})
	return count
}

func (s *LogScan) DistinctPatients(userID string, since time.Time) int {
	patients := make(map[string]struct{})
	s.log.Each(func(e audit.Event) bool {
		if e.UserID == userID && e.HasPHI() && e.Timestamp.After(since) {
			patients[e.PatientID] = struct{}{}
		}
		return true
	})
	return len(patients)
}

// Observe is a no-op; the log is the index.
func (s *LogScan) Observe(audit.Event) {}

// Index keeps, per user, the PHI accesses younger than the retention window.
// Queries with a cutoff older than retention undercount, so retention must
// cover the widest rule window.
type Index struct {
	mu        sync.RWMutex
	retention time.Duration
	users     map[string]*slidingWindow
}

type access struct {
	at        time.Time
	patientID string
}

// slidingWindow holds accesses in insertion order.
type slidingWindow struct {
	accesses []access
}

func NewIndex(retention time.Duration) *Index {
	return &Index{
		retention: retention,
		users:     make(map[string]*slidingWindow),
	}
}

func (x *Index) Observe(event audit.Event) {
	if !event.HasPHI() {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	sw := x.users[event.UserID]
	if sw == nil {
		sw = &slidingWindow{}
		x.users[event.UserID] = sw
	}
	sw.accesses = append(sw.accesses, access{at: event.Timestamp, patientID: event.PatientID})
	sw.cleanup(event.Timestamp.Add(-x.retention))
}

func (x *Index) PHIAccesses(userID string, since time.Time) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	sw := x.users[userID]
	if sw == nil {
		return 0
	}
	count := 0
	for _, a := range sw.accesses {
		if a.at.After(since) {
			count++
		}
	}
	return count
}

func (x *Index) DistinctPatients(userID string, since time.Time) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	sw := x.users[userID]
	if sw == nil {
		return 0
	}
	patients := make(map[string]struct{})
	for _, a := range sw.accesses {
		if a.at.After(since) {
			patients[a.patientID] = struct{}{}
		}
	}
	return len(patients)
}

// cleanup drops leading accesses at or before cutoff.
func (sw *slidingWindow) cleanup(cutoff time.Time) {
	i := 0
	for ; i < len(sw.accesses); i++ {
		if sw.accesses[i].at.After(cutoff) {
			break
		}
	}
	sw.accesses = sw.accesses[i:]
}
