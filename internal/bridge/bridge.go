// Package bridge forwards routed server events onto local pub/sub topics
// so UI consumers get asynchronous fan-out without registering on the
// router themselves.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/pubsub"
	"github.com/nvail/realmsync/internal/router"
)

// Local bus topics, one per inbound server channel.
var (
	TopicNarrative       = pubsub.NewEvent[protocol.Narrative]("realm.narrative")
	TopicCharacterUpdate = pubsub.NewEvent[protocol.CharacterUpdate]("realm.character.update")
	TopicError           = pubsub.NewEvent[protocol.ErrorEvent]("realm.error")
	TopicPlayerJoined    = pubsub.NewEvent[protocol.PlayerJoined]("realm.presence.joined")
	TopicPlayerLeft      = pubsub.NewEvent[protocol.PlayerLeft]("realm.presence.left")
	TopicGameState       = pubsub.NewEvent[json.RawMessage]("realm.game.state")
	TopicGameEvent       = pubsub.NewEvent[protocol.Envelope]("realm.game.event")
	TopicResolution      = pubsub.NewEvent[json.RawMessage]("realm.player.resolution")
)

// Bridge subscribes to every named server channel on the router and
// re-publishes the decoded events on the local bus.
type Bridge struct {
	publisher pubsub.Publisher
	subs      []router.Subscription
}

// New creates a bridge publishing to the given bus.
func New(publisher pubsub.Publisher) *Bridge {
	return &Bridge{publisher: publisher}
}

// Attach registers the bridge on the router for all inbound channels.
func (b *Bridge) Attach(r *router.Router) {
	channels := []string{
		protocol.ChannelNarrative,
		protocol.ChannelCharacterUpdate,
		protocol.ChannelError,
		protocol.ChannelPlayerJoined,
		protocol.ChannelPlayerLeft,
		protocol.ChannelGameState,
		protocol.ChannelGameEvent,
		protocol.ChannelPlayerResolution,
	}
	for _, channel := range channels {
		ch := channel
		b.subs = append(b.subs, r.On(ch, func(payload json.RawMessage) {
			b.forward(ch, payload)
		}))
	}
}

// Detach removes the bridge's router registrations.
func (b *Bridge) Detach(r *router.Router) {
	for _, sub := range b.subs {
		r.Off(sub)
	}
	b.subs = nil
}

func (b *Bridge) forward(channel string, payload json.RawMessage) {
	ctx := context.Background()

	ev, err := protocol.Decode(channel, payload)
	if err != nil {
		slog.Error("Dropping undecodable server event", "channel", channel, "error", err)
		return
	}

	switch e := ev.(type) {
	case protocol.Narrative:
		err = pubsub.Publish(ctx, b.publisher, TopicNarrative, e)
	case protocol.CharacterUpdate:
		err = pubsub.Publish(ctx, b.publisher, TopicCharacterUpdate, e)
	case protocol.ErrorEvent:
		err = pubsub.Publish(ctx, b.publisher, TopicError, e)
	case protocol.PlayerJoined:
		err = pubsub.Publish(ctx, b.publisher, TopicPlayerJoined, e)
	case protocol.PlayerLeft:
		err = pubsub.Publish(ctx, b.publisher, TopicPlayerLeft, e)
	case protocol.GameState:
		err = pubsub.Publish(ctx, b.publisher, TopicGameState, e.Raw)
	case protocol.Envelope:
		err = pubsub.Publish(ctx, b.publisher, TopicGameEvent, e)
	case protocol.PlayerResolution:
		err = pubsub.Publish(ctx, b.publisher, TopicResolution, e.Raw)
	default:
		return
	}

	if err != nil {
		slog.Error("Failed to publish server event to local bus",
			"channel", channel, "error", err)
	}
}
