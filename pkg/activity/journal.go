package activity

import (
	"context"
	"sync"
)

// Journal is an in-memory hook that keeps node activity in arrival order and
// indexes it per node. The zero value is ready to use.
type Journal struct {
	// Limit caps the retained events. Older events are dropped first. Zero
	// keeps everything.
	Limit int
	// Err is returned from Notify after the event is recorded.
	Err error

	mu     sync.Mutex
	events []Event
}

// Notify records the event.
func (j *Journal) Notify(_ context.Context, event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, NormalizeEvent(event))
	if j.Limit > 0 && len(j.events) > j.Limit {
		j.events = append([]Event(nil), j.events[len(j.events)-j.Limit:]...)
	}
	return j.Err
}

// Events returns a copy of the retained events.
func (j *Journal) Events() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Event(nil), j.events...)
}

// Len reports the number of retained events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}

// Verbs lists the verbs of the retained events in order.
func (j *Journal) Verbs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.events))
	for _, ev := range j.events {
		out = append(out, ev.Verb)
	}
	return out
}

// History returns the events recorded for one node. Nodes saved under an id
// are matched by ObjectID; an empty objectID matches every node of the type.
func (j *Journal) History(objectType, objectID string) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Event
	for _, ev := range j.events {
		if ev.ObjectType != objectType {
			continue
		}
		if objectID != "" && ev.ObjectID != objectID {
			continue
		}
		out = append(out, ev)
	}
	return out
}
