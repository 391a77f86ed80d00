package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nvail/realmsync/internal/connection"
	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnected(t *testing.T) (*transport.Fake, *connection.Manager) {
	t.Helper()
	fake := transport.NewFake()
	m := connection.NewManager(fake, connection.BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Multiplier:  1.0,
	})
	m.Connect("token")
	require.Eventually(t, m.IsConnected, time.Second, time.Millisecond)
	return fake, m
}

func ackWith(result any) func(string, json.RawMessage) any {
	return func(event string, payload json.RawMessage) any { return result }
}

func TestJoinRejectedWhenNotConnected(t *testing.T) {
	fake := transport.NewFake()
	m := connection.NewManager(fake, connection.DefaultBackoffPolicy())
	c := NewCoordinator(m, time.Second)

	result := c.Join(context.Background(), "s1")

	assert.Equal(t, JoinRejected, result)
	assert.False(t, c.InGame())
	assert.Empty(t, fake.EmittedEvents(), "a rejected local join must not touch the transport")
}

func TestJoinAcceptedOnTruthyAck(t *testing.T) {
	fake, m := newConnected(t)
	fake.AutoAck = ackWith(map[string]bool{"success": true})
	c := NewCoordinator(m, time.Second)

	result := c.Join(context.Background(), "s1")

	assert.Equal(t, JoinAccepted, result)
	assert.Equal(t, "s1", c.SessionID())
	assert.True(t, c.InGame())

	last, ok := fake.LastEmitted()
	require.True(t, ok)
	assert.Equal(t, protocol.EventJoinGame, last.Event)
	assert.True(t, last.HasAck)
}

func TestJoinRejectedOnFalsyAck(t *testing.T) {
	fake, m := newConnected(t)
	fake.AutoAck = ackWith(map[string]bool{"success": false})
	c := NewCoordinator(m, time.Second)

	result := c.Join(context.Background(), "s1")

	assert.Equal(t, JoinRejected, result)
	assert.False(t, c.InGame())
	assert.Empty(t, c.SessionID(), "identity must be unchanged on rejection")
}

func TestJoinTimesOutWithoutAck(t *testing.T) {
	_, m := newConnected(t)
	c := NewCoordinator(m, 10*time.Millisecond)

	result := c.Join(context.Background(), "s1")

	assert.Equal(t, JoinTimedOut, result)
	assert.False(t, c.InGame())
}

func TestJoinLeavesPreviousSessionFirst(t *testing.T) {
	fake, m := newConnected(t)
	fake.AutoAck = ackWith(true)
	c := NewCoordinator(m, time.Second)

	require.Equal(t, JoinAccepted, c.Join(context.Background(), "s1"))
	require.Equal(t, JoinAccepted, c.Join(context.Background(), "s2"))

	events := fake.EmittedEvents()
	require.Len(t, events, 3)
	assert.Equal(t, protocol.EventJoinGame, events[0].Event)
	assert.Equal(t, protocol.EventLeaveGame, events[1].Event)
	assert.Equal(t, protocol.EventJoinGame, events[2].Event)

	var leave protocol.LeaveGame
	require.NoError(t, json.Unmarshal(events[1].Payload, &leave))
	assert.Equal(t, "s1", leave.SessionID)
	assert.Equal(t, "s2", c.SessionID())
}

func TestLeaveIsFireAndForget(t *testing.T) {
	fake, m := newConnected(t)
	fake.AutoAck = ackWith(true)
	c := NewCoordinator(m, time.Second)

	require.Equal(t, JoinAccepted, c.Join(context.Background(), "s1"))
	c.Leave()

	assert.False(t, c.InGame())
	last, ok := fake.LastEmitted()
	require.True(t, ok)
	assert.Equal(t, protocol.EventLeaveGame, last.Event)
	assert.False(t, last.HasAck)
}

func TestLeaveWithoutSessionIsNoOp(t *testing.T) {
	fake, m := newConnected(t)
	c := NewCoordinator(m, time.Second)

	c.Leave()

	assert.Empty(t, fake.EmittedEvents())
}

func TestIdentityResetsWhenConnectionDrops(t *testing.T) {
	fake, m := newConnected(t)
	fake.AutoAck = ackWith(true)
	c := NewCoordinator(m, time.Second)

	require.Equal(t, JoinAccepted, c.Join(context.Background(), "s1"))
	require.True(t, c.InGame())

	fake.FireDisconnect(transport.ReasonTransportError, errors.New("link reset"))

	assert.False(t, c.InGame())
	assert.Empty(t, c.SessionID())
}

func TestJoinResultString(t *testing.T) {
	assert.Equal(t, "accepted", JoinAccepted.String())
	assert.Equal(t, "rejected", JoinRejected.String())
	assert.Equal(t, "timed out", JoinTimedOut.String())
}
