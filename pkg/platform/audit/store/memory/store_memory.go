package memory

import (
	"sync"

	audit "pedcare/pkg/platform/audit"
)

// Log is the append-only, process-lifetime audit log. Insertion order is
// chronological order. There is no update or delete.
type Log struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewLog() *Log {
	return &Log{}
}

// Append stores a detached copy of event.
func (l *Log) Append(event audit.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event.Clone())
}

// Len returns the number of events recorded so far.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Each calls fn for every event, oldest first, until fn returns false.
// fn must not call back into the log.
func (l *Log) Each(fn func(audit.Event) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.events {
		if !fn(e) {
			return
		}
	}
}

// Recent returns up to limit matching events, most recent first.
// A nil match selects every event.
func (l *Log) Recent(limit int, match func(audit.Event) bool) []audit.Event {
	out := []audit.Event{}
	if limit <= 0 {
		return out
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := l.events[i]
		if match == nil || match(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Filter returns every matching event in log order.
func (l *Log) Filter(match func(audit.Event) bool) []audit.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []audit.Event{}
	for _, e := range l.events {
		if match(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}
