// Package history keeps a bounded in-memory record of recent gateway
// requests for the /api/history endpoint and the ctl client.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded request, allowed or not.
type Entry struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Command  string    `json:"command"`
	Denied   bool      `json:"denied"`
	Reason   string    `json:"reason,omitempty"`
	ExitCode int       `json:"exit_code"`
	TimedOut bool      `json:"timed_out,omitempty"`
}

// Log is a concurrency-safe ring of the most recent entries.
type Log struct {
	mu      sync.Mutex
	limit   int
	entries []Entry
}

// NewLog builds a log keeping at most limit entries. limit <= 0 keeps the
// conventional 50.
func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = 50
	}
	return &Log{limit: limit}
}

// Add records an entry, stamping ID and time when unset, and drops the
// oldest entries beyond the limit.
func (l *Log) Add(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if overflow := len(l.entries) - l.limit; overflow > 0 {
		l.entries = l.entries[overflow:]
	}
	return entry
}

// Entries returns a chronological copy, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
