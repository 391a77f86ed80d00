package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nvail/realmsync/internal/bridge"
	"github.com/nvail/realmsync/internal/combat"
	"github.com/nvail/realmsync/internal/config"
	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/pubsub"
	"github.com/nvail/realmsync/internal/session"
	"github.com/nvail/realmsync/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerURL:            "ws://test.invalid",
		JoinTimeout:          time.Second,
		MaxReconnectAttempts: 3,
		ReconnectBaseDelay:   time.Millisecond,
		ReconnectMaxDelay:    time.Millisecond,
	}
}

// TestFullSessionFlow drives the whole stack through a connect, join and
// combat encounter over the fake channel.
func TestFullSessionFlow(t *testing.T) {
	fake := transport.NewFake()
	fake.AutoAck = func(event string, payload json.RawMessage) any {
		return map[string]bool{"success": true}
	}

	c := New(testConfig(), fake)
	defer c.Close()

	c.Conn.Connect("bearer-token")
	require.Eventually(t, c.Conn.IsConnected, time.Second, time.Millisecond)

	require.Equal(t, session.JoinAccepted, c.Session.Join(context.Background(), "s1"))
	assert.True(t, c.Session.InGame())

	narratives := make(chan protocol.Narrative, 1)
	require.NoError(t, pubsub.Subscribe(context.Background(), c.Bus, bridge.TopicNarrative,
		func(ctx context.Context, n protocol.Narrative) error {
			narratives <- n
			return nil
		}))

	fake.Deliver(protocol.ChannelNarrative, protocol.Narrative{
		Text: "Steel rings against steel.",
		Kind: protocol.NarrationLine,
	})
	select {
	case n := <-narratives:
		assert.Equal(t, "Steel rings against steel.", n.Text)
	case <-time.After(time.Second):
		t.Fatal("narrative never reached the local bus")
	}

	state := combat.State{
		CombatID:     "c1",
		Round:        1,
		Phase:        combat.PhasePlayerTurn,
		IsPlayerTurn: true,
		Player:       combat.Combatant{ID: "hero", CurrentHP: 20, MaxHP: 20},
		Enemies:      []combat.Combatant{{ID: "bandit", CurrentHP: 10, MaxHP: 10}},
	}
	fake.Deliver(protocol.ChannelGameEvent, gameEnvelope(t, "combat:start",
		map[string]any{"combatState": state}))
	require.True(t, c.Combat.InCombat())

	c.Combat.ExecuteAction("attack", "bandit")
	last, ok := fake.LastEmitted()
	require.True(t, ok)
	assert.Equal(t, protocol.EventPlayerAct, last.Event)

	fake.Deliver(protocol.ChannelGameEvent, gameEnvelope(t, "combat:end",
		map[string]any{"result": combat.Result{Outcome: combat.OutcomeVictory}}))
	assert.Equal(t, combat.PhaseVictory, c.Combat.Snapshot().Phase)

	c.Combat.EndCombat()
	assert.Nil(t, c.Combat.Snapshot())
}

func TestDisconnectClearsSessionEverywhere(t *testing.T) {
	fake := transport.NewFake()
	fake.AutoAck = func(string, json.RawMessage) any { return true }

	c := New(testConfig(), fake)
	defer c.Close()

	c.Conn.Connect("bearer-token")
	require.Eventually(t, c.Conn.IsConnected, time.Second, time.Millisecond)
	require.Equal(t, session.JoinAccepted, c.Session.Join(context.Background(), "s1"))

	c.Conn.Disconnect()

	assert.False(t, c.Session.InGame())
	assert.True(t, c.Conn.IsDisconnected())
}

func TestOutboundHelpers(t *testing.T) {
	fake := transport.NewFake()
	c := New(testConfig(), fake)
	defer c.Close()

	c.Conn.Connect("bearer-token")
	require.Eventually(t, c.Conn.IsConnected, time.Second, time.Millisecond)

	require.NoError(t, c.SendMessage("hail and well met"))
	require.NoError(t, c.JoinLocation("tavern"))
	require.NoError(t, c.PlayerAction("rest", nil))

	events := fake.EmittedEvents()
	require.Len(t, events, 3)
	assert.Equal(t, protocol.EventSendMessage, events[0].Event)
	assert.Equal(t, protocol.EventJoinLocation, events[1].Event)
	assert.Equal(t, protocol.EventPlayerAction, events[2].Event)
}

func gameEnvelope(t *testing.T, kind string, payload any) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return protocol.Envelope{Type: kind, Payload: data, Timestamp: time.Now().UnixMilli()}
}
