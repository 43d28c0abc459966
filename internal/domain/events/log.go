// Package events keeps a bounded history of acquisition events for the
// admin API.
package events

import "sync"

// Log is a concurrent-safe fixed-size history. The oldest event is
// overwritten once it is full.
type Log struct {
	mu     sync.RWMutex
	events []Event
	next   int
	count  int
}

// NewLog creates a log that holds up to size events.
func NewLog(size int) *Log {
	if size <= 0 {
		size = 100
	}
	return &Log{events: make([]Event, size)}
}

// Record appends e.
func (l *Log) Record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.next] = e
	l.next = (l.next + 1) % len(l.events)
	if l.count < len(l.events) {
		l.count++
	}
}

// Recent returns up to n events, oldest first.
func (l *Log) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n = min(n, l.count)
	if n <= 0 {
		return nil
	}
	out := make([]Event, n)
	size := len(l.events)
	first := (l.next - n + size) % size
	for i := range n {
		out[i] = l.events[(first+i)%size]
	}
	return out
}

// Len is the number of events held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
