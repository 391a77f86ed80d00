// Package client assembles the sync layer: connection manager, router,
// session coordinator, combat controller and the local bus, wired by
// explicit constructor injection.
package client

import (
	"github.com/nvail/realmsync/internal/bridge"
	"github.com/nvail/realmsync/internal/combat"
	"github.com/nvail/realmsync/internal/config"
	"github.com/nvail/realmsync/internal/connection"
	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/pubsub"
	"github.com/nvail/realmsync/internal/router"
	"github.com/nvail/realmsync/internal/session"
	"github.com/nvail/realmsync/internal/transport"
)

// Client owns one fully wired sync stack over a single event channel.
type Client struct {
	Config  *config.Config
	Conn    *connection.Manager
	Router  *router.Router
	Session *session.Coordinator
	Combat  *combat.Controller
	Bus     *pubsub.WatermillBridge
	Bridge  *bridge.Bridge

	ch transport.EventChannel
}

// New wires a client over the given channel. The channel is injected so
// tests and the demo mode can run against the fake transport.
func New(cfg *config.Config, ch transport.EventChannel) *Client {
	policy := connection.DefaultBackoffPolicy()
	policy.MaxAttempts = cfg.MaxReconnectAttempts
	policy.BaseDelay = cfg.ReconnectBaseDelay
	policy.MaxDelay = cfg.ReconnectMaxDelay

	conn := connection.NewManager(ch, policy)
	r := router.New(ch)
	sess := session.NewCoordinator(conn, cfg.JoinTimeout)

	cmb := combat.NewController(ch)
	cmb.Attach(r)

	bus := pubsub.NewWatermillBridge()
	br := bridge.New(bus)
	br.Attach(r)

	return &Client{
		Config:  cfg,
		Conn:    conn,
		Router:  r,
		Session: sess,
		Combat:  cmb,
		Bus:     bus,
		Bridge:  br,
		ch:      ch,
	}
}

// SendMessage emits a chat line into the active session.
func (c *Client) SendMessage(text string) error {
	return c.ch.Emit(protocol.EventSendMessage, protocol.SendMessage{Text: text})
}

// JoinLocation moves the player to a location within the session.
func (c *Client) JoinLocation(locationID string) error {
	return c.ch.Emit(protocol.EventJoinLocation, protocol.JoinLocation{LocationID: locationID})
}

// PlayerAction emits a generic action dispatch.
func (c *Client) PlayerAction(action string, params any) error {
	return c.ch.Emit(protocol.EventPlayerAction, protocol.PlayerAction{Action: action, Params: params})
}

// Close leaves any active session, tears down the connection and stops the
// local bus.
func (c *Client) Close() error {
	c.Session.Leave()
	c.Conn.Disconnect()
	return c.Bus.Close()
}
