package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// eventRepoMem keeps the trail in process memory. Used by tests and local
// tooling in place of a database.
type eventRepoMem struct {
	mu     sync.RWMutex
	events []*Event
}

func NewEventRepoMem() EventRepository {
	return &eventRepoMem{}
}

func copyEvent(ev *Event) *Event {
	out := *ev
	if ev.ActorID != nil {
		id := *ev.ActorID
		out.ActorID = &id
	}
	if ev.PatientID != nil {
		id := *ev.PatientID
		out.PatientID = &id
	}
	return &out
}

func (r *eventRepoMem) Insert(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = uuid.New()
	if ev.Recorded.IsZero() {
		ev.Recorded = time.Now().UTC()
	}
	r.events = append(r.events, copyEvent(ev))
	return nil
}

func (f Filter) matches(ev *Event) bool {
	if f.ActorID != nil && (ev.ActorID == nil || *ev.ActorID != *f.ActorID) {
		return false
	}
	if f.PatientID != nil && (ev.PatientID == nil || *ev.PatientID != *f.PatientID) {
		return false
	}
	if f.Action != "" && ev.Action != f.Action {
		return false
	}
	if f.Since != nil && ev.Recorded.Before(*f.Since) {
		return false
	}
	return true
}

func (r *eventRepoMem) Search(_ context.Context, f Filter, limit, offset int) ([]*Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Insertion order is chronological; walk backwards for newest-first.
	matched := []*Event{}
	for i := len(r.events) - 1; i >= 0; i-- {
		if f.matches(r.events[i]) {
			matched = append(matched, r.events[i])
		}
	}
	total := len(matched)

	if offset >= total {
		return []*Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]*Event, 0, end-offset)
	for _, ev := range matched[offset:end] {
		page = append(page, copyEvent(ev))
	}
	return page, total, nil
}
