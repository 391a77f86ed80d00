package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/pubsub"
	"github.com/nvail/realmsync/internal/router"
	"github.com/nvail/realmsync/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records every message published to the bus.
type capturingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *capturingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) all() []pubsub.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]pubsub.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func setup(t *testing.T) (*transport.Fake, *capturingPublisher, *Bridge, *router.Router) {
	t.Helper()
	fake := transport.NewFake()
	require.NoError(t, fake.Open(context.Background(), "token"))
	pub := &capturingPublisher{}
	r := router.New(fake)
	b := New(pub)
	b.Attach(r)
	return fake, pub, b, r
}

func TestBridgeForwardsNarrative(t *testing.T) {
	fake, pub, _, _ := setup(t)

	fake.Deliver(protocol.ChannelNarrative, protocol.Narrative{
		Text: "A cold wind rises.",
		Kind: protocol.NarrationLine,
	})

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicNarrative.Name(), msgs[0].Topic)

	var n protocol.Narrative
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &n))
	assert.Equal(t, "A cold wind rises.", n.Text)
}

func TestBridgeForwardsErrorsVerbatim(t *testing.T) {
	fake, pub, _, _ := setup(t)

	fake.Deliver(protocol.ChannelError, protocol.ErrorEvent{Message: "no such session", Code: "E404"})

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicError.Name(), msgs[0].Topic)

	var e protocol.ErrorEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &e))
	assert.Equal(t, "no such session", e.Message)
	assert.Equal(t, "E404", e.Code)
}

func TestBridgeForwardsResolutionsRaw(t *testing.T) {
	fake, pub, _, _ := setup(t)

	fake.Deliver(protocol.ChannelPlayerResolution, json.RawMessage(`{"roll":17,"dc":15}`))

	msgs := pub.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, TopicResolution.Name(), msgs[0].Topic)
	assert.JSONEq(t, `{"roll":17,"dc":15}`, string(msgs[0].Payload))
}

func TestBridgeDropsUndecodableEvents(t *testing.T) {
	fake, pub, _, _ := setup(t)

	fake.Deliver(protocol.ChannelNarrative, json.RawMessage(`not json`))

	assert.Empty(t, pub.all())
}

func TestBridgeDetachStopsForwarding(t *testing.T) {
	fake, pub, b, r := setup(t)

	b.Detach(r)
	fake.Deliver(protocol.ChannelNarrative, protocol.Narrative{Text: "silence"})

	assert.Empty(t, pub.all())
}

func TestBridgeOverWatermillBus(t *testing.T) {
	fake := transport.NewFake()
	require.NoError(t, fake.Open(context.Background(), "token"))

	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	r := router.New(fake)
	b := New(bus)
	b.Attach(r)

	received := make(chan protocol.PlayerJoined, 1)
	err := pubsub.Subscribe(context.Background(), bus, TopicPlayerJoined,
		func(ctx context.Context, p protocol.PlayerJoined) error {
			received <- p
			return nil
		})
	require.NoError(t, err)

	fake.Deliver(protocol.ChannelPlayerJoined, protocol.PlayerJoined{PlayerID: "p1", Username: "ana"})

	select {
	case got := <-received:
		assert.Equal(t, "ana", got.Username)
	case <-time.After(time.Second):
		t.Fatal("player_joined never reached the local bus")
	}
}
