package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvail/realmsync/internal/transport"
)

// StatusListener receives every status transition. Listeners also receive
// the current status once, immediately, when registered.
type StatusListener func(Status)

type listenerEntry struct {
	id string
	fn StatusListener
}

// Manager owns the transport handle and the connection status state
// machine. It is constructed explicitly and passed by reference to every
// consumer; there is no ambient singleton. The Manager is the only writer
// of the status; everyone else observes it through Status or
// OnStatusChange.
type Manager struct {
	ch     transport.EventChannel
	policy BackoffPolicy

	mu         sync.Mutex
	status     Status
	credential string
	attempts   int
	gen        int
	dialGen    int
	listeners  []listenerEntry
}

// NewManager wires a Manager to the given channel with the given
// reconnection policy. The Manager installs itself as the channel's
// lifecycle hook owner.
func NewManager(ch transport.EventChannel, policy BackoffPolicy) *Manager {
	m := &Manager{
		ch:     ch,
		policy: policy,
		status: StatusDisconnected,
	}
	ch.SetHooks(transport.Hooks{
		OnConnected:    m.handleConnected,
		OnDisconnected: m.handleDisconnected,
	})
	return m
}

// Channel returns the underlying event channel for emitters.
func (m *Manager) Channel() transport.EventChannel {
	return m.ch
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsConnected reports whether the channel is open and authenticated.
func (m *Manager) IsConnected() bool { return m.Status() == StatusConnected }

// IsConnecting reports whether a connection attempt is underway.
func (m *Manager) IsConnecting() bool { return m.Status() == StatusConnecting }

// HasError reports whether bounded reconnection has been exhausted.
func (m *Manager) HasError() bool { return m.Status() == StatusError }

// IsDisconnected reports whether no connection exists.
func (m *Manager) IsDisconnected() bool { return m.Status() == StatusDisconnected }

// OnStatusChange registers a listener, immediately invokes it once with the
// current status, and returns a function that removes exactly this
// listener.
func (m *Manager) OnStatusChange(fn StatusListener) func() {
	id := uuid.New().String()

	m.mu.Lock()
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	current := m.status
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, e := range m.listeners {
			if e.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Connect stores the credential and opens the transport. It is a no-op if a
// connection is already established or underway.
func (m *Manager) Connect(credential string) {
	m.mu.Lock()
	if m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return
	}
	m.credential = credential
	m.attempts = 0
	m.gen++
	gen := m.gen
	notify := m.setStatusLocked(StatusConnecting)
	m.mu.Unlock()
	notify()

	go m.dial(gen)
}

// Disconnect tears the channel down, clears the stored credential and
// suppresses any further automatic reconnection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.credential = ""
	m.gen++
	notify := m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()
	notify()

	if err := m.ch.Close(); err != nil {
		slog.Debug("Error closing channel on disconnect", "error", err)
	}
}

// Reconnect is Disconnect followed by Connect, reusing the stored
// credential unless a new one is supplied. It is a no-op when no credential
// is available.
func (m *Manager) Reconnect(newCredential string) {
	m.mu.Lock()
	cred := m.credential
	m.mu.Unlock()
	if newCredential != "" {
		cred = newCredential
	}
	if cred == "" {
		return
	}

	m.Disconnect()
	m.Connect(cred)
}

// dial drives bounded connection attempts for one connect generation. A
// Disconnect or newer Connect bumps the generation and stops stale loops.
func (m *Manager) dial(gen int) {
	for {
		m.mu.Lock()
		if m.gen != gen || m.credential == "" {
			m.mu.Unlock()
			return
		}
		m.dialGen = gen
		cred := m.credential
		m.mu.Unlock()

		err := m.ch.Open(context.Background(), cred)
		if err == nil {
			// handleConnected already ran via the OnConnected hook, unless
			// a Disconnect or newer Connect superseded this dial while the
			// open was in flight. A superseded open leaves an orphaned
			// connection behind; tear it down instead of keeping it.
			m.mu.Lock()
			superseded := m.gen != gen && m.dialGen == gen
			m.mu.Unlock()
			if superseded {
				if cerr := m.ch.Close(); cerr != nil {
					slog.Debug("Error closing superseded connection", "error", cerr)
				}
			}
			return
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.attempts++
		attempt := m.attempts
		if attempt >= m.policy.MaxAttempts {
			notify := m.setStatusLocked(StatusError)
			m.mu.Unlock()
			notify()
			slog.Error("Reconnection attempts exhausted",
				"event", "connection_failed",
				"attempts", attempt, "error", err)
			return
		}
		m.mu.Unlock()

		delay := m.policy.Delay(attempt - 1)
		slog.Warn("Connection attempt failed, retrying",
			"event", "connect_retry",
			"attempt", attempt, "max_attempts", m.policy.MaxAttempts,
			"delay_ms", delay.Milliseconds(), "error", err)
		time.Sleep(delay)
	}
}

func (m *Manager) handleConnected() {
	m.mu.Lock()
	if m.dialGen != m.gen {
		// The dial this open belongs to was superseded by a Disconnect or
		// a newer Connect; the explicit call wins over the stale open.
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	notify := m.setStatusLocked(StatusConnected)
	m.mu.Unlock()
	notify()
}

func (m *Manager) handleDisconnected(reason transport.DisconnectReason, err error) {
	m.mu.Lock()
	redial := reason == transport.ReasonServerClose && m.credential != ""
	gen := m.gen
	notify := m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()
	notify()

	if err != nil {
		slog.Info("Connection lost", "event", "connection_lost",
			"reason", reason.String(), "error", err)
	}

	if redial {
		// The server closed the link while a credential is still held:
		// request a fresh transport connection. The attempt counter is
		// untouched here; only failed opens count against the ceiling.
		go m.dial(gen)
	}
}

// setStatusLocked updates the status and returns a closure that notifies
// listeners. The caller must hold the lock when calling and release it
// before invoking the closure, so listeners can call back into the
// Manager. An unchanged status returns a no-op closure.
func (m *Manager) setStatusLocked(to Status) func() {
	if m.status == to {
		return func() {}
	}
	m.status = to
	snapshot := make([]listenerEntry, len(m.listeners))
	copy(snapshot, m.listeners)
	return func() {
		for _, e := range snapshot {
			// Re-check registration so a listener unsubscribed after the
			// snapshot was taken receives no further notifications.
			if m.listenerLive(e.id) {
				e.fn(to)
			}
		}
	}
}

func (m *Manager) listenerLive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.listeners {
		if e.id == id {
			return true
		}
	}
	return false
}
