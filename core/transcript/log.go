// Package transcript keeps the append-only conversation record for one
// session, together with one in-flight partial utterance per speaker.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parloq/interview-core/core/turns"
)

// Entry is a single committed utterance. Entries are immutable once
// created and never reordered; insertion order is chronological order.
type Entry struct {
	ID          string
	Speaker     turns.Role
	DisplayName string
	Text        string
	Timestamp   time.Time
}

// Log is the durable utterance record plus per-speaker pending buffers.
// The orchestrator mutates it from a single goroutine, but readers such
// as the scoring path may snapshot it concurrently, so it carries a lock.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	pending map[turns.Role]*strings.Builder
	names   map[turns.Role]string
}

// NewLog returns an empty log. displayNames maps speakers to the names
// stamped onto committed entries; missing speakers fall back to the role
// string itself.
func NewLog(displayNames map[turns.Role]string) *Log {
	names := make(map[turns.Role]string, len(displayNames))
	for role, name := range displayNames {
		names[role] = name
	}
	return &Log{
		pending: map[turns.Role]*strings.Builder{},
		names:   names,
	}
}

// AddDelta appends a streamed fragment to the speaker's pending buffer.
// Fragments never reach the durable log until Commit.
func (l *Log) AddDelta(speaker turns.Role, chunk string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buffer, ok := l.pending[speaker]
	if !ok {
		buffer = &strings.Builder{}
		l.pending[speaker] = buffer
	}
	buffer.WriteString(chunk)
}

// PendingDelta returns the speaker's accumulated, uncommitted text.
func (l *Log) PendingDelta(speaker turns.Role) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if buffer, ok := l.pending[speaker]; ok {
		return buffer.String()
	}
	return ""
}

// Commit clears the speaker's pending buffer and appends an immutable
// entry carrying fullText, returning the new entry.
func (l *Log) Commit(speaker turns.Role, fullText string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.pending, speaker)

	name, ok := l.names[speaker]
	if !ok {
		name = string(speaker)
	}
	entry := Entry{
		ID:          uuid.NewString(),
		Speaker:     speaker,
		DisplayName: name,
		Text:        fullText,
		Timestamp:   time.Now(),
	}
	l.entries = append(l.entries, entry)
	return entry
}

// GetAll returns a defensive copy of all committed entries.
func (l *Log) GetAll() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// GetRecent returns up to n most recent entries, oldest first.
func (l *Log) GetRecent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		return nil
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	entries := make([]Entry, len(l.entries)-start)
	copy(entries, l.entries[start:])
	return entries
}

// GetBySpeaker returns all entries committed by the given speaker.
func (l *Log) GetBySpeaker(speaker turns.Role) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []Entry
	for _, entry := range l.entries {
		if entry.Speaker == speaker {
			entries = append(entries, entry)
		}
	}
	return entries
}

// GetLastBySpeaker returns the speaker's most recent entry, or nil.
func (l *Log) GetLastBySpeaker(speaker turns.Role) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Speaker == speaker {
			entry := l.entries[i]
			return &entry
		}
	}
	return nil
}

// GetCountBySpeaker returns how many entries the speaker committed.
func (l *Log) GetCountBySpeaker(speaker turns.Role) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, entry := range l.entries {
		if entry.Speaker == speaker {
			count++
		}
	}
	return count
}

// Len returns the number of committed entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Clear empties the durable log and every pending buffer.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.pending = map[turns.Role]*strings.Builder{}
}
