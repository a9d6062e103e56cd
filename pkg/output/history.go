// Package output delivers transcribed text to the focused application
package output

import (
	"sync"
	"time"
)

// HistoryEntry is an immutable record of one successful delivery
type HistoryEntry struct {
	Text      string
	Timestamp time.Time
}

// History is a bounded, ordered sequence of delivered transcriptions.
// Oldest entries are evicted first when the bound is exceeded.
type History struct {
	max     int
	entries []HistoryEntry
	mu      sync.Mutex
}

// NewHistory creates a history bounded to max entries
func NewHistory(max int) *History {
	if max <= 0 {
		max = 5
	}
	return &History{max: max}
}

// Append records a delivery, evicting the oldest entry on overflow
func (h *History) Append(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, HistoryEntry{Text: text, Timestamp: time.Now()})
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Entries returns a copy of the history in chronological order
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
