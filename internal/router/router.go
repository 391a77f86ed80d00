package router

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nvail/realmsync/internal/transport"
)

// Handler consumes a payload delivered on a named server event.
type Handler func(payload json.RawMessage)

// Subscription identifies one registered handler so it can be removed
// individually.
type Subscription struct {
	Event string
	id    string
}

type entry struct {
	id string
	fn Handler
}

// Router fans a named server event out to zero or more local handlers.
// Handlers run synchronously, in registration order, once per delivered
// message; there is no buffering, so a handler registered after a message
// arrived never sees it. Registrations survive transport reconnects: the
// router taps the channel once per event name and the channel keeps taps
// across Open/Close cycles.
type Router struct {
	ch transport.EventChannel

	mu       sync.Mutex
	handlers map[string][]entry
}

// New creates a router over the given channel.
func New(ch transport.EventChannel) *Router {
	return &Router{
		ch:       ch,
		handlers: make(map[string][]entry),
	}
}

// On registers a handler for a named event and returns its subscription.
func (r *Router) On(event string, h Handler) Subscription {
	sub := Subscription{Event: event, id: uuid.New().String()}

	r.mu.Lock()
	first := len(r.handlers[event]) == 0
	r.handlers[event] = append(r.handlers[event], entry{id: sub.id, fn: h})
	r.mu.Unlock()

	if first {
		r.ch.On(event, func(payload json.RawMessage) {
			r.dispatch(event, payload)
		})
	}
	return sub
}

// Off removes exactly the handler identified by the subscription.
func (r *Router) Off(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[sub.Event]
	for i, e := range entries {
		if e.id == sub.id {
			r.handlers[sub.Event] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	r.pruneLocked(sub.Event)
}

// OffAll removes every handler for a named event.
func (r *Router) OffAll(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
	r.pruneLocked(event)
}

// pruneLocked drops the transport tap once no handlers remain.
func (r *Router) pruneLocked(event string) {
	if len(r.handlers[event]) == 0 {
		delete(r.handlers, event)
		r.ch.Off(event)
	}
}

func (r *Router) dispatch(event string, payload json.RawMessage) {
	r.mu.Lock()
	entries := make([]entry, len(r.handlers[event]))
	copy(entries, r.handlers[event])
	r.mu.Unlock()

	for _, e := range entries {
		r.invoke(event, e, payload)
	}
}

// invoke isolates each handler so one panicking handler cannot abort
// delivery to handlers registered after it.
func (r *Router) invoke(event string, e entry, payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Event handler panicked",
				"event", event, "subscription", e.id, "panic", rec)
		}
	}()
	e.fn(payload)
}
