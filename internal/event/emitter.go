package event

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/metrics"
)

// Listener handles one event.
type Listener func(Event)

// ListenerID identifies a registered Listener for Off.
type ListenerID uint64

type entry struct {
	id ListenerID
	fn Listener
}

// Emitter keeps ordered listener sets per event type and a set of channel
// subscribers that receive every event.
type Emitter struct {
	mu        sync.RWMutex
	next      ListenerID
	listeners map[Type][]entry
	subs      map[chan Event]struct{}
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[Type][]entry),
		subs:      make(map[chan Event]struct{}),
	}
}

// On appends fn to the listeners of t.
func (e *Emitter) On(t Type, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners[t] = append(e.listeners[t], entry{id: e.next, fn: fn})
	return e.next
}

// Off removes the listener id from t. It reports whether it was registered.
func (e *Emitter) Off(t Type, id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[t]
	for i, l := range list {
		if l.id == id {
			e.listeners[t] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAllListeners drops the listeners of the given types, or of every
// type when none are given. Channel subscribers are kept.
func (e *Emitter) RemoveAllListeners(types ...Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(types) == 0 {
		e.listeners = make(map[Type][]entry)
		return
	}
	for _, t := range types {
		delete(e.listeners, t)
	}
}

// ListenerCount returns the number of listeners registered for t.
func (e *Emitter) ListenerCount(t Type) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[t])
}

// Emit calls every listener of ev.Type in registration order, then offers
// ev to each subscriber. A panicking listener is logged and skipped.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	list := append([]entry(nil), e.listeners[ev.Type]...)
	e.mu.RUnlock()

	metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	for _, l := range list {
		e.call(l, ev)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for ch := range e.subs {
		select {
		case ch <- ev:
		default:
			// subscriber too slow, skip
		}
	}
}

func (e *Emitter) call(l entry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ListenerPanics.Inc()
			log.Error().
				Str("event", string(ev.Type)).
				Uint64("listener", uint64(l.id)).
				Err(fmt.Errorf("%v", r)).
				Msg("Event listener panicked")
		}
	}()
	l.fn(ev)
}

// Subscribe returns a buffered channel that receives every event.
func (e *Emitter) Subscribe() chan Event {
	ch := make(chan Event, 16)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (e *Emitter) Unsubscribe(ch chan Event) {
	e.mu.Lock()
	_, ok := e.subs[ch]
	delete(e.subs, ch)
	e.mu.Unlock()
	if ok {
		close(ch)
	}
}
