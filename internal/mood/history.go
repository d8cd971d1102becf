package mood

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MaxHistory is the number of entries kept in a history.
const MaxHistory = 50

// Entry is one recorded mood selection.
type Entry struct {
	Emotion         Label
	Timestamp       time.Time
	PlaylistCreated bool
}

// entryJSON is the browser storage shape: timestamps are epoch milliseconds.
type entryJSON struct {
	Emotion         Label `json:"emotion"`
	Timestamp       int64 `json:"timestamp"`
	PlaylistCreated bool  `json:"playlistCreated"`
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Emotion:         e.Emotion,
		Timestamp:       e.Timestamp.UnixMilli(),
		PlaylistCreated: e.PlaylistCreated,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding mood entry: %w", err)
	}
	e.Emotion = raw.Emotion
	e.Timestamp = time.UnixMilli(raw.Timestamp)
	e.PlaylistCreated = raw.PlaylistCreated
	return nil
}

// History is a newest-first sequence of entries capped at MaxHistory.
// The zero value is an empty history.
type History struct {
	entries []Entry
}

// NewHistory wraps entries that are already newest first. Anything beyond
// MaxHistory is dropped from the old end.
func NewHistory(entries []Entry) *History {
	n := min(len(entries), MaxHistory)
	h := &History{entries: make([]Entry, n, MaxHistory)}
	copy(h.entries, entries[:n])
	return h
}

// Add inserts e as the newest entry, evicting the oldest when full.
func (h *History) Add(e Entry) {
	h.entries = append(h.entries, Entry{})
	copy(h.entries[1:], h.entries)
	h.entries[0] = e
	if len(h.entries) > MaxHistory {
		h.entries = h.entries[:MaxHistory]
	}
}

// Entries returns a copy of the entries, newest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Observer is notified after an entry has been recorded.
type Observer func(Entry)

// Tracker owns a History and tells subscribers about each new entry.
// It is safe for concurrent use; Record performs the read-modify-write under
// a single lock so concurrent selections cannot lose updates.
type Tracker struct {
	mu        sync.Mutex
	history   *History
	observers []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Observer
}

// NewTracker creates a tracker seeded with an existing newest-first history.
func NewTracker(entries []Entry) *Tracker {
	return &Tracker{history: NewHistory(entries)}
}

// Subscribe registers fn and returns a function that removes it. Observers
// are notified in subscription order.
func (t *Tracker) Subscribe(fn Observer) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers = append(t.observers, subscription{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.observers = slices.DeleteFunc(t.observers, func(s subscription) bool { return s.id == id })
		t.mu.Unlock()
	}
}

// Record adds e to the history and notifies observers.
func (t *Tracker) Record(e Entry) {
	t.mu.Lock()
	t.history.Add(e)
	observers := slices.Clone(t.observers)
	t.mu.Unlock()

	for _, s := range observers {
		s.fn(e)
	}
}

// Entries returns a snapshot of the history, newest first.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Entries()
}
