package transport

import (
	"context"
	"encoding/json"
)

// Handler consumes a payload delivered on a named event channel.
type Handler func(payload json.RawMessage)

// AckFunc is invoked exactly once with the server's response to an
// acknowledged emit.
type AckFunc func(payload json.RawMessage)

// DisconnectReason classifies why the channel was torn down.
type DisconnectReason int

const (
	// ReasonClientClose means the local side closed the channel.
	ReasonClientClose DisconnectReason = iota

	// ReasonServerClose means the server closed the link.
	ReasonServerClose

	// ReasonTransportError means the link failed unexpectedly.
	ReasonTransportError
)

// String returns the string representation of a DisconnectReason.
func (r DisconnectReason) String() string {
	switch r {
	case ReasonClientClose:
		return "client close"
	case ReasonServerClose:
		return "server close"
	case ReasonTransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Hooks receive channel lifecycle notifications. All fields are optional.
type Hooks struct {
	// OnConnected fires once the channel is open and authenticated.
	OnConnected func()

	// OnDisconnected fires when the channel is torn down, with the reason
	// and the triggering error (nil for clean closes).
	OnDisconnected func(reason DisconnectReason, err error)
}

// EventChannel is the bidirectional named-event channel the sync layer is
// built on. Implementations must keep named-event registrations across
// Open/Close cycles so consumers do not need to re-subscribe after a
// reconnect.
type EventChannel interface {
	// Open dials the server and authenticates with the given credential.
	// On success the OnConnected hook fires before Open returns.
	Open(ctx context.Context, credential string) error

	// Close tears the channel down. Pending acknowledgments are orphaned.
	Close() error

	// Emit sends a fire-and-forget named event.
	Emit(event string, payload any) error

	// EmitWithAck sends a named event carrying a one-shot acknowledgment
	// callback. The callback is invoked at most once, from the channel's
	// read loop, when the server responds.
	EmitWithAck(event string, payload any, ack AckFunc) error

	// On installs the single transport-level tap for a named event,
	// replacing any previous tap for that name. Fan-out to multiple
	// consumers is the router's job, not the transport's.
	On(event string, h Handler)

	// Off removes the tap for a named event.
	Off(event string)

	// SetHooks installs lifecycle hooks. Must be called before Open.
	SetHooks(h Hooks)
}
