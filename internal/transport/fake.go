package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Emitted records one outbound event captured by the Fake.
type Emitted struct {
	Event   string
	Payload json.RawMessage
	HasAck  bool
}

// Fake is an in-memory EventChannel for tests and the CLI demo mode. Opens,
// emits and acknowledgments are scripted by the caller; delivery is fully
// synchronous so state machines can be driven deterministically.
type Fake struct {
	mu       sync.Mutex
	hooks    Hooks
	handlers map[string]Handler
	emitted  []Emitted
	pending  []AckFunc
	open     bool

	// OpenErrs is consumed one per Open call; a nil entry (or an empty
	// queue) means the open succeeds.
	OpenErrs []error

	// AutoAck, when set, answers every EmitWithAck immediately.
	AutoAck func(event string, payload json.RawMessage) any

	// Opens counts Open calls, including failed ones.
	Opens int
}

// NewFake creates an empty fake channel.
func NewFake() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// SetHooks implements EventChannel.
func (f *Fake) SetHooks(h Hooks) {
	f.hooks = h
}

// Open implements EventChannel, consuming the next scripted result.
func (f *Fake) Open(ctx context.Context, credential string) error {
	f.mu.Lock()
	f.Opens++
	var err error
	if len(f.OpenErrs) > 0 {
		err = f.OpenErrs[0]
		f.OpenErrs = f.OpenErrs[1:]
	}
	if err == nil {
		f.open = true
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if f.hooks.OnConnected != nil {
		f.hooks.OnConnected()
	}
	return nil
}

// Close implements EventChannel.
func (f *Fake) Close() error {
	f.mu.Lock()
	f.open = false
	f.pending = nil
	f.mu.Unlock()
	return nil
}

// Emit implements EventChannel.
func (f *Fake) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrNotOpen
	}
	f.emitted = append(f.emitted, Emitted{Event: event, Payload: marshal(payload)})
	return nil
}

// EmitWithAck implements EventChannel.
func (f *Fake) EmitWithAck(event string, payload any, ack AckFunc) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return ErrNotOpen
	}
	raw := marshal(payload)
	f.emitted = append(f.emitted, Emitted{Event: event, Payload: raw, HasAck: true})
	auto := f.AutoAck
	if auto == nil {
		f.pending = append(f.pending, ack)
	}
	f.mu.Unlock()

	if auto != nil {
		ack(marshal(auto(event, raw)))
	}
	return nil
}

// On implements EventChannel.
func (f *Fake) On(event string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = h
}

// Off implements EventChannel.
func (f *Fake) Off(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
}

// Deliver pushes a server event to the installed tap, synchronously.
func (f *Fake) Deliver(event string, payload any) {
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	if h != nil {
		h(marshal(payload))
	}
}

// RespondAck answers the oldest pending acknowledgment with the payload.
// It returns false if nothing is pending.
func (f *Fake) RespondAck(payload any) bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	ack := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()

	ack(marshal(payload))
	return true
}

// FireDisconnect simulates the link dropping with the given reason.
func (f *Fake) FireDisconnect(reason DisconnectReason, err error) {
	f.mu.Lock()
	f.open = false
	f.pending = nil
	f.mu.Unlock()
	if f.hooks.OnDisconnected != nil {
		f.hooks.OnDisconnected(reason, err)
	}
}

// EmittedEvents returns a copy of everything emitted so far.
func (f *Fake) EmittedEvents() []Emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Emitted, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// LastEmitted returns the most recent emitted event, or false if none.
func (f *Fake) LastEmitted() (Emitted, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.emitted) == 0 {
		return Emitted{}, false
	}
	return f.emitted[len(f.emitted)-1], true
}

func marshal(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
