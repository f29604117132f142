package audit

import (
	"sync"
	"time"
)

// Recorder is a bounded in-memory event log. It keeps at most MaxEvents
// entries and discards entries older than Retention; eviction happens on
// write, so an idle recorder may briefly hold stale events until the next
// Record or read call.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	maxEvents int
	retention time.Duration
	now       func() time.Time
}

func NewRecorder(maxEvents int, retention time.Duration, now func() time.Time) *Recorder {
	if maxEvents <= 0 {
		maxEvents = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		maxEvents: maxEvents,
		retention: retention,
		now:       now,
	}
}

// Record appends event, evicting the oldest entries when the cap or the
// retention window is exceeded.
func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()

	if len(r.events) >= r.maxEvents {
		drop := len(r.events) - r.maxEvents + 1
		r.events = append(r.events[:0], r.events[drop:]...)
	}
	r.events = append(r.events, event)
}

// CountsSince returns the number of recorded events per event type with a
// timestamp at or after cutoff.
func (r *Recorder) CountsSince(cutoff time.Time) map[string]int {
	counts := make(map[string]int)
	if r == nil {
		return counts
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()

	for _, e := range r.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		counts[e.EventType]++
	}
	return counts
}

// EventsSince returns a copy of the recorded events with a timestamp at or
// after cutoff, oldest first.
func (r *Recorder) EventsSince(cutoff time.Time) []Event {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()

	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len reports the number of retained events.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	return len(r.events)
}

func (r *Recorder) pruneLocked() {
	if r.retention <= 0 || len(r.events) == 0 {
		return
	}

	cutoff := r.now().Add(-r.retention)
	idx := 0
	for idx < len(r.events) && r.events[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		r.events = append(r.events[:0], r.events[idx:]...)
	}
}
