package assoc

import "sync/atomic"

// AllEvents is the catch-all event name. Handlers registered under it receive
// every event fired on the emitter, after the named handlers.
const AllEvents = "all"

// Event is delivered to handlers.
type Event struct {
	Name string
	// Node is the node the event concerns: the node whose attribute changed,
	// the member added to or removed from a collection, or the node that
	// raised a custom event.
	Node *Node
	// Collection is set for structural events (add, remove, reset).
	Collection *Collection
	Value      any
	Err        error
	Args       []any
}

// Handler receives events.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed with Off.
type Subscription struct {
	id   uint64
	name string
}

// Name returns the event name the subscription listens to.
func (s Subscription) Name() string {
	return s.name
}

var subscriptionSeq atomic.Uint64

type handlerEntry struct {
	id   uint64
	fn   Handler
	once bool
}

// Events is a synchronous event emitter. The zero value is ready to use.
type Events struct {
	handlers map[string][]handlerEntry
}

// On registers fn for the named event.
func (e *Events) On(name string, fn Handler) Subscription {
	return e.add(name, fn, false)
}

// Once registers fn for a single delivery of the named event.
func (e *Events) Once(name string, fn Handler) Subscription {
	return e.add(name, fn, true)
}

// Off removes handlers. With no subscriptions it removes every handler for
// name, or every handler on the emitter when name is empty.
func (e *Events) Off(name string, subs ...Subscription) {
	if e.handlers == nil {
		return
	}
	if len(subs) == 0 {
		if name == "" {
			e.handlers = nil
			return
		}
		delete(e.handlers, name)
		return
	}
	ids := make(map[uint64]struct{}, len(subs))
	for _, sub := range subs {
		ids[sub.id] = struct{}{}
	}
	for key, entries := range e.handlers {
		if name != "" && key != name {
			continue
		}
		kept := entries[:0:0]
		for _, entry := range entries {
			if _, drop := ids[entry.id]; !drop {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(e.handlers, key)
			continue
		}
		e.handlers[key] = kept
	}
}

// Trigger fires a custom event on the emitter.
func (e *Events) Trigger(name string, args ...any) {
	e.emit(Event{Name: name, Args: args})
}

func (e *Events) add(name string, fn Handler, once bool) Subscription {
	sub := Subscription{id: subscriptionSeq.Add(1), name: name}
	if fn == nil || name == "" {
		return sub
	}
	if e.handlers == nil {
		e.handlers = map[string][]handlerEntry{}
	}
	e.handlers[name] = append(e.handlers[name], handlerEntry{id: sub.id, fn: fn, once: once})
	return sub
}

func (e *Events) emit(ev Event) {
	if e.handlers == nil {
		return
	}
	e.deliver(ev.Name, ev)
	if ev.Name != AllEvents {
		e.deliver(AllEvents, ev)
	}
}

func (e *Events) deliver(name string, ev Event) {
	entries := e.handlers[name]
	if len(entries) == 0 {
		return
	}
	snapshot := append([]handlerEntry(nil), entries...)
	for _, entry := range snapshot {
		if entry.once {
			e.Off(name, Subscription{id: entry.id, name: name})
		}
		entry.fn(ev)
	}
}

func (e *Events) count(name string) int {
	if e.handlers == nil {
		return 0
	}
	return len(e.handlers[name])
}

// Emitter is the subscription surface shared by nodes and collections.
type Emitter interface {
	On(name string, fn Handler) Subscription
	Once(name string, fn Handler) Subscription
	Off(name string, subs ...Subscription)
}

type listening struct {
	target Emitter
	sub    Subscription
}

// Listener tracks subscriptions made on other emitters so they can be
// released together. The zero value is ready to use.
type Listener struct {
	listening []listening
}

// ListenTo subscribes fn to name on target and remembers the subscription.
func (l *Listener) ListenTo(target Emitter, name string, fn Handler) Subscription {
	if target == nil {
		return Subscription{}
	}
	sub := target.On(name, fn)
	l.listening = append(l.listening, listening{target: target, sub: sub})
	return sub
}

// ListenToOnce is ListenTo for a single delivery.
func (l *Listener) ListenToOnce(target Emitter, name string, fn Handler) Subscription {
	if target == nil {
		return Subscription{}
	}
	sub := target.Once(name, fn)
	l.listening = append(l.listening, listening{target: target, sub: sub})
	return sub
}

// StopListening releases subscriptions. A nil target matches every emitter;
// no names matches every event.
func (l *Listener) StopListening(target Emitter, names ...string) {
	kept := l.listening[:0:0]
	for _, entry := range l.listening {
		if !l.matches(entry, target, names) {
			kept = append(kept, entry)
			continue
		}
		entry.target.Off(entry.sub.name, entry.sub)
	}
	l.listening = kept
}

func (l *Listener) matches(entry listening, target Emitter, names []string) bool {
	if target != nil && entry.target != target {
		return false
	}
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if entry.sub.name == name {
			return true
		}
	}
	return false
}
