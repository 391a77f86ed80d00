package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nvail/realmsync/internal/connection"
	"github.com/nvail/realmsync/internal/protocol"
)

// JoinResult is the outcome of a join request.
type JoinResult int

const (
	// JoinAccepted means the server acknowledged the join positively.
	JoinAccepted JoinResult = iota

	// JoinRejected means the join was refused, either locally (not
	// connected) or by the server (falsy acknowledgment).
	JoinRejected

	// JoinTimedOut means no acknowledgment arrived within the configured
	// timeout.
	JoinTimedOut
)

// String returns the string representation of a JoinResult.
func (r JoinResult) String() string {
	switch r {
	case JoinAccepted:
		return "accepted"
	case JoinRejected:
		return "rejected"
	case JoinTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Coordinator owns "which session am I in" and the join/leave protocol,
// enforcing at most one active session. Session membership never survives a
// disconnect: any status transition away from connected resets the
// identity, since the server does not persist room membership across a
// dropped socket.
type Coordinator struct {
	conn        *connection.Manager
	joinTimeout time.Duration

	mu        sync.Mutex
	sessionID string
}

// NewCoordinator wires a Coordinator to the connection manager. joinTimeout
// bounds how long Join waits for the server acknowledgment; zero disables
// the timeout.
func NewCoordinator(conn *connection.Manager, joinTimeout time.Duration) *Coordinator {
	c := &Coordinator{
		conn:        conn,
		joinTimeout: joinTimeout,
	}
	conn.OnStatusChange(func(s connection.Status) {
		if s != connection.StatusConnected {
			c.reset()
		}
	})
	return c
}

// SessionID returns the active session identifier, or "" when not in one.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// InGame reports whether a session is active.
func (c *Coordinator) InGame() bool {
	return c.SessionID() != ""
}

// Join requests membership in the given session. It resolves JoinRejected
// immediately, without touching the transport, when the connection is not
// established. If a different session is active, a leave for it is emitted
// first (fire-and-forget). The session identity changes only on
// JoinAccepted.
func (c *Coordinator) Join(ctx context.Context, sessionID string) JoinResult {
	if c.conn.Status() != connection.StatusConnected {
		return JoinRejected
	}

	c.mu.Lock()
	current := c.sessionID
	c.mu.Unlock()
	if current != "" && current != sessionID {
		c.emitLeave(current)
	}

	ackCh := make(chan json.RawMessage, 1)
	err := c.conn.Channel().EmitWithAck(protocol.EventJoinGame,
		protocol.JoinGame{SessionID: sessionID},
		func(payload json.RawMessage) {
			ackCh <- payload
		})
	if err != nil {
		slog.Warn("Join emit failed", "session_id", sessionID, "error", err)
		return JoinRejected
	}

	var timeout <-chan time.Time
	if c.joinTimeout > 0 {
		timer := time.NewTimer(c.joinTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case payload := <-ackCh:
		if !protocol.Truthy(payload) {
			return JoinRejected
		}
		c.mu.Lock()
		c.sessionID = sessionID
		c.mu.Unlock()
		slog.Info("Joined session", "session_id", sessionID)
		return JoinAccepted
	case <-timeout:
		slog.Warn("Join acknowledgment timed out",
			"session_id", sessionID, "timeout", c.joinTimeout)
		return JoinTimedOut
	case <-ctx.Done():
		return JoinTimedOut
	}
}

// Leave emits a leave for the current session and clears the identity
// immediately; leaving is not acknowledgment-gated. It is a no-op when no
// session is active.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	current := c.sessionID
	c.sessionID = ""
	c.mu.Unlock()

	if current == "" {
		return
	}
	c.emitLeave(current)
}

func (c *Coordinator) emitLeave(sessionID string) {
	err := c.conn.Channel().Emit(protocol.EventLeaveGame,
		protocol.LeaveGame{SessionID: sessionID})
	if err != nil {
		slog.Debug("Leave emit failed", "session_id", sessionID, "error", err)
	}
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	cleared := c.sessionID != ""
	c.sessionID = ""
	c.mu.Unlock()
	if cleared {
		slog.Info("Session identity cleared on connection loss")
	}
}
