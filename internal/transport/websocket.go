package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// frame is the JSON wire shape for named events. Outbound frames carry an
// AckID when an acknowledgment is requested; the server echoes it back on a
// frame with the reserved "ack" event name.
type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	AckID   string          `json:"ackId,omitempty"`
}

const (
	eventAuth = "auth"
	eventAck  = "ack"
)

// ErrNotOpen is returned when emitting on a channel that is not open.
var ErrNotOpen = errors.New("transport: channel not open")

// Socket is the websocket-backed EventChannel. A single read loop dispatches
// inbound frames; writes are serialized with a mutex so that the connection
// has at most one writer.
type Socket struct {
	url   string
	hooks Hooks

	mu       sync.Mutex
	conn     *websocket.Conn
	closing  bool
	handlers map[string]Handler
	pending  map[string]AckFunc
}

// NewSocket creates a websocket channel for the given server URL.
func NewSocket(url string) *Socket {
	return &Socket{
		url:      url,
		handlers: make(map[string]Handler),
		pending:  make(map[string]AckFunc),
	}
}

// SetHooks implements EventChannel.
func (s *Socket) SetHooks(h Hooks) {
	s.hooks = h
}

// Open implements EventChannel. The credential is sent as an auth frame
// immediately after the dial succeeds.
func (s *Socket) Open(ctx context.Context, credential string) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", s.url, err)
	}

	auth, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: credential})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "auth marshal failed")
		return fmt.Errorf("transport: marshal auth: %w", err)
	}
	authFrame, _ := json.Marshal(frame{Event: eventAuth, Payload: auth})
	if err := conn.Write(ctx, websocket.MessageText, authFrame); err != nil {
		conn.Close(websocket.StatusInternalError, "auth write failed")
		return fmt.Errorf("transport: send auth: %w", err)
	}

	s.mu.Lock()
	prev := s.conn
	s.conn = conn
	s.closing = false
	s.mu.Unlock()

	if prev != nil {
		// Replaced without an explicit Close; drop the old link. Its read
		// loop exits without firing hooks.
		prev.Close(websocket.StatusNormalClosure, "superseded")
	}

	if s.hooks.OnConnected != nil {
		s.hooks.OnConnected()
	}

	go s.readPump(conn)
	return nil
}

// Close implements EventChannel.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.closing = true
	s.conn = nil
	// Orphan pending acks; the server response, if any, is discarded.
	s.pending = make(map[string]AckFunc)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "")
}

// Emit implements EventChannel.
func (s *Socket) Emit(event string, payload any) error {
	return s.write(frame{Event: event, Payload: mustMarshal(payload)})
}

// EmitWithAck implements EventChannel.
func (s *Socket) EmitWithAck(event string, payload any, ack AckFunc) error {
	id := uuid.New().String()

	s.mu.Lock()
	s.pending[id] = ack
	s.mu.Unlock()

	if err := s.write(frame{Event: event, Payload: mustMarshal(payload), AckID: id}); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return err
	}
	return nil
}

// On implements EventChannel.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h
}

// Off implements EventChannel.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *Socket) write(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("transport: marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotOpen
	}
	if err := s.conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		return fmt.Errorf("transport: write %s: %w", f.Event, err)
	}
	return nil
}

// readPump dispatches inbound frames until the connection dies. It is the
// only reader on the connection.
func (s *Socket) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			s.handleReadError(conn, err)
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			slog.Error("Dropping malformed frame", "error", err)
			continue
		}

		if f.Event == eventAck && f.AckID != "" {
			s.mu.Lock()
			ack := s.pending[f.AckID]
			delete(s.pending, f.AckID)
			s.mu.Unlock()
			if ack != nil {
				ack(f.Payload)
			}
			continue
		}

		s.mu.Lock()
		h := s.handlers[f.Event]
		s.mu.Unlock()
		if h != nil {
			h(f.Payload)
		} else {
			slog.Debug("No tap for inbound event", "event", f.Event)
		}
	}
}

func (s *Socket) handleReadError(conn *websocket.Conn, err error) {
	s.mu.Lock()
	closing := s.closing
	current := s.conn == conn
	if current {
		s.conn = nil
		s.pending = make(map[string]AckFunc)
	}
	s.mu.Unlock()

	if !current && !closing {
		// A newer connection replaced this one; its read loop owns the
		// lifecycle now.
		return
	}

	reason := ReasonTransportError
	switch {
	case closing:
		reason = ReasonClientClose
		err = nil
	case websocket.CloseStatus(err) != -1:
		// The peer sent a close frame.
		reason = ReasonServerClose
	}

	if reason != ReasonClientClose {
		slog.Info("WebSocket read loop ended", "reason", reason.String(), "error", err)
	}
	if s.hooks.OnDisconnected != nil {
		s.hooks.OnDisconnected(reason, err)
	}
}

func mustMarshal(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal outbound payload", "error", err)
		return nil
	}
	return data
}
