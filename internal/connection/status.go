package connection

// Status represents the current state of the server connection. Exactly one
// status holds at any time; it is owned and mutated only by the Manager.
type Status int

const (
	// StatusDisconnected means no connection exists.
	StatusDisconnected Status = iota

	// StatusConnecting means a connection attempt is underway.
	StatusConnecting

	// StatusConnected means the channel is open and authenticated.
	StatusConnected

	// StatusError means bounded reconnection was exhausted; recovery
	// requires an explicit Connect or Reconnect call.
	StatusError
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
