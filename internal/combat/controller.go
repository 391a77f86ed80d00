package combat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/router"
)

// Multiplexed combat event kinds carried inside a game event envelope.
const (
	kindStart        = "combat:start"
	kindUpdate       = "combat:update"
	kindEnd          = "combat:end"
	kindActionResult = "combat:action_result"
)

// gameEvent is the closed union of combat events; decodeEvent is the single
// point where envelope payloads become typed values.
type gameEvent interface{ isGameEvent() }

type startEvent struct {
	CombatState State `json:"combatState"`
}

type updateEvent struct {
	CombatState State `json:"combatState"`
}

type endEvent struct {
	Result Result `json:"result"`
}

type actionResultEvent struct {
	Success     bool   `json:"success"`
	CombatState *State `json:"combatState,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (startEvent) isGameEvent()        {}
func (updateEvent) isGameEvent()       {}
func (endEvent) isGameEvent()          {}
func (actionResultEvent) isGameEvent() {}

// decodeEvent returns (nil, nil) for envelope types that are not combat
// events; the controller ignores those.
func decodeEvent(env protocol.Envelope) (gameEvent, error) {
	switch env.Type {
	case kindStart:
		var e startEvent
		return e, unmarshal(env, &e)
	case kindUpdate:
		var e updateEvent
		return e, unmarshal(env, &e)
	case kindEnd:
		var e endEvent
		return e, unmarshal(env, &e)
	case kindActionResult:
		var e actionResultEvent
		return e, unmarshal(env, &e)
	default:
		return nil, nil
	}
}

func unmarshal(env protocol.Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("combat: decode %s: %w", env.Type, err)
	}
	return nil
}

// Emitter sends fire-and-forget named events; satisfied by the transport
// channel.
type Emitter interface {
	Emit(event string, payload any) error
}

// Controller reduces the stream of combat events into a local combat
// snapshot and exposes the action contract to the UI. Terminal phases
// (VICTORY, DEFEAT, FLED) persist, along with the last snapshot and the
// result, until EndCombat acknowledges them.
//
// Events are applied in delivery order; the transport guarantees FIFO per
// named channel and the controller does not reconcile out-of-order or
// duplicate delivery.
type Controller struct {
	emitter Emitter

	// OnCombatStart and OnCombatEnd notify the UI layer. Set before
	// Attach; invoked from the dispatch path.
	OnCombatStart func(State)
	OnCombatEnd   func(Result)

	mu         sync.Mutex
	inCombat   bool
	processing bool
	state      *State
	result     *Result
}

// NewController creates a controller that emits actions on the given
// channel.
func NewController(emitter Emitter) *Controller {
	return &Controller{emitter: emitter}
}

// Attach subscribes the controller to the multiplexed game event channel.
func (c *Controller) Attach(r *router.Router) router.Subscription {
	return r.On(protocol.ChannelGameEvent, func(payload json.RawMessage) {
		ev, err := protocol.Decode(protocol.ChannelGameEvent, payload)
		if err != nil {
			slog.Error("Dropping malformed game event", "error", err)
			return
		}
		env, ok := ev.(protocol.Envelope)
		if !ok {
			return
		}
		c.HandleEnvelope(env)
	})
}

// HandleEnvelope applies one multiplexed game event. Non-combat envelope
// types are ignored.
func (c *Controller) HandleEnvelope(env protocol.Envelope) {
	ev, err := decodeEvent(env)
	if err != nil {
		slog.Error("Dropping malformed combat event", "type", env.Type, "error", err)
		return
	}
	if ev == nil {
		return
	}

	c.mu.Lock()
	var startCb func(State)
	var endCb func(Result)
	var startState State
	var endResult Result

	switch e := ev.(type) {
	case startEvent:
		st := e.CombatState
		c.inCombat = true
		c.processing = false
		c.state = &st
		c.result = nil
		if c.OnCombatStart != nil {
			startCb = c.OnCombatStart
			startState = *st.clone()
		}

	case updateEvent:
		st := e.CombatState
		c.state = &st
		c.processing = false

	case actionResultEvent:
		c.processing = false
		if e.Success && e.CombatState != nil {
			// Authoritative refresh from the action resolution.
			c.state = e.CombatState
		}
		// A rejected action leaves the prior snapshot untouched; the
		// server's error text is a collaborator's concern.

	case endEvent:
		res := e.Result
		c.result = &res
		c.inCombat = false
		c.processing = false
		if c.state != nil {
			// Rewrite the phase but keep the combatant lists so a
			// post-combat screen can still render final HP and loot
			// context.
			switch res.Outcome {
			case OutcomeVictory:
				c.state.Phase = PhaseVictory
			case OutcomeFled:
				c.state.Phase = PhaseFled
			default:
				c.state.Phase = PhaseDefeat
			}
		}
		if c.OnCombatEnd != nil {
			endCb = c.OnCombatEnd
			endResult = res
		}
	}
	c.mu.Unlock()

	if startCb != nil {
		startCb(startState)
	}
	if endCb != nil {
		endCb(endResult)
	}
}

// ExecuteAction emits one combat action. It is a silent no-op when no
// combat snapshot is loaded or another action is already in flight; the
// resolution arrives later via combat:update or combat:action_result.
func (c *Controller) ExecuteAction(actionType, targetID string) {
	c.mu.Lock()
	if c.state == nil || c.processing {
		c.mu.Unlock()
		return
	}
	c.processing = true
	payload := protocol.NewCombatActionEnvelope(
		c.state.CombatID, actionType, c.state.Player.ID, targetID)
	c.mu.Unlock()

	if err := c.emitter.Emit(protocol.EventPlayerAct, payload); err != nil {
		slog.Warn("Combat action emit failed", "action", actionType, "error", err)
		c.mu.Lock()
		c.processing = false
		c.mu.Unlock()
	}
}

// EndCombat acknowledges a finished combat and returns to idle. It is
// purely local and does not notify the server.
func (c *Controller) EndCombat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inCombat = false
	c.processing = false
	c.state = nil
	c.result = nil
}

// InCombat reports whether a combat is active.
func (c *Controller) InCombat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inCombat
}

// IsProcessing reports whether an action is in flight.
func (c *Controller) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// Snapshot returns a read-only copy of the combat state, or nil when none
// is loaded.
func (c *Controller) Snapshot() *State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// LastResult returns the result of the last finished combat, or nil.
func (c *Controller) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil
	}
	res := *c.result
	return &res
}
