package mood

import (
	"encoding/json"
	"slices"
	"sync"
	"testing"
	"time"
)

func entriesAt(base time.Time, n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		// newest first
		out[i] = Entry{Emotion: Happy, Timestamp: base.Add(-time.Duration(i) * time.Minute)}
	}
	return out
}

func TestHistory_Add(t *testing.T) {
	var h History
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	h.Add(Entry{Emotion: Sad, Timestamp: now})
	h.Add(Entry{Emotion: Happy, Timestamp: now.Add(time.Minute)})

	got := h.Entries()
	if len(got) != 2 {
		t.Fatalf("Len = %d, want 2", len(got))
	}
	if got[0].Emotion != Happy || got[1].Emotion != Sad {
		t.Errorf("order = [%s %s], want newest first [happy sad]", got[0].Emotion, got[1].Emotion)
	}
}

func TestHistory_Cap(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewHistory(entriesAt(base, MaxHistory))
	oldest := h.Entries()[MaxHistory-1]

	newest := Entry{Emotion: Angry, Timestamp: base.Add(time.Hour)}
	h.Add(newest)

	if n := len(h.Entries()); n != MaxHistory {
		t.Fatalf("len(Entries()) = %d, want %d", n, MaxHistory)
	}
	got := h.Entries()
	if got[0].Emotion != Angry {
		t.Errorf("newest entry = %s, want angry", got[0].Emotion)
	}
	for _, e := range got {
		if e.Timestamp.Equal(oldest.Timestamp) {
			t.Error("oldest entry was not evicted")
		}
	}
}

func TestNewHistory_TruncatesOversizedInput(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := entriesAt(base, MaxHistory+7)

	h := NewHistory(in)
	if n := len(h.Entries()); n != MaxHistory {
		t.Fatalf("len(Entries()) = %d, want %d", n, MaxHistory)
	}
	if !h.Entries()[0].Timestamp.Equal(base) {
		t.Error("NewHistory dropped the newest entries instead of the oldest")
	}
}

func TestHistory_EntriesIsCopy(t *testing.T) {
	var h History
	h.Add(Entry{Emotion: Happy})
	got := h.Entries()
	got[0].Emotion = Sad

	if h.Entries()[0].Emotion != Happy {
		t.Error("Entries() exposed internal storage")
	}
}

func TestEntry_JSON(t *testing.T) {
	raw := `{"emotion":"happy","timestamp":1714564800000,"playlistCreated":true}`

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if e.Emotion != Happy || !e.PlaylistCreated {
		t.Errorf("decoded %+v", e)
	}
	if want := time.UnixMilli(1714564800000); !e.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, want)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != raw {
		t.Errorf("Marshal() = %s, want %s", out, raw)
	}
}

func TestTracker_NotifiesObservers(t *testing.T) {
	tr := NewTracker(nil)

	var got []Label
	unsubscribe := tr.Subscribe(func(e Entry) {
		got = append(got, e.Emotion)
	})

	tr.Record(Entry{Emotion: Happy})
	tr.Record(Entry{Emotion: Sad})
	unsubscribe()
	tr.Record(Entry{Emotion: Angry})

	if len(got) != 2 || got[0] != Happy || got[1] != Sad {
		t.Errorf("observer saw %v, want [happy sad]", got)
	}
	if n := len(tr.Entries()); n != 3 {
		t.Errorf("tracker holds %d entries, want 3", n)
	}
}

func TestTracker_NotifiesInSubscriptionOrder(t *testing.T) {
	tr := NewTracker(nil)

	var order []int
	for i := range 8 {
		tr.Subscribe(func(Entry) { order = append(order, i) })
	}
	unsubscribe := tr.Subscribe(func(Entry) { order = append(order, -1) })
	tr.Subscribe(func(Entry) { order = append(order, 8) })
	unsubscribe()

	tr.Record(Entry{Emotion: Happy, Timestamp: time.Now()})

	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	if !slices.Equal(order, want) {
		t.Errorf("notification order = %v, want %v", order, want)
	}
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	tr := NewTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(Entry{Emotion: Neutral})
		}()
	}
	wg.Wait()

	if n := len(tr.Entries()); n != MaxHistory {
		t.Errorf("tracker holds %d entries, want %d", n, MaxHistory)
	}
}
