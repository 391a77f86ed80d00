package protocol

// Outbound event names emitted by the client.
const (
	EventJoinGame     = "join_game"
	EventLeaveGame    = "leave_game"
	EventPlayerAction = "player_action"
	EventSendMessage  = "send_message"
	EventJoinLocation = "join_location"
	EventPlayerAct    = "player:action"
)

// JoinGame is the payload for a join request; the emit carries a one-shot
// acknowledgment callback answered by the server.
type JoinGame struct {
	SessionID string `json:"sessionId"`
}

// LeaveGame is the fire-and-forget payload for leaving a session.
type LeaveGame struct {
	SessionID string `json:"sessionId"`
}

// PlayerAction is the generic action dispatch payload.
type PlayerAction struct {
	Action string `json:"action"`
	Params any    `json:"params,omitempty"`
}

// SendMessage carries a chat/narrative line from the player.
type SendMessage struct {
	Text string `json:"text"`
}

// JoinLocation moves the player to a location within the session.
type JoinLocation struct {
	LocationID string `json:"locationId"`
}

// CombatActionParams is the params shape of the combat-specific
// player:action envelope.
type CombatActionParams struct {
	CombatID string       `json:"combatId"`
	Action   CombatAction `json:"action"`
}

// CombatAction describes one combat move.
type CombatAction struct {
	Type     string `json:"type"`
	ActorID  string `json:"actorId"`
	TargetID string `json:"targetId,omitempty"`
}

// NewCombatActionEnvelope builds the player:action payload wrapping a
// combat action.
func NewCombatActionEnvelope(combatID, actionType, actorID, targetID string) PlayerAction {
	return PlayerAction{
		Action: "combat_action",
		Params: CombatActionParams{
			CombatID: combatID,
			Action: CombatAction{
				Type:     actionType,
				ActorID:  actorID,
				TargetID: targetID,
			},
		},
	}
}
