package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound channel names pushed by the server. Single-purpose events arrive
// on their own named channel; multiplexed game events arrive wrapped in an
// Envelope on ChannelGameEvent.
const (
	ChannelNarrative        = "narrative"
	ChannelCharacterUpdate  = "character_update"
	ChannelError            = "error"
	ChannelPlayerJoined     = "player_joined"
	ChannelPlayerLeft       = "player_left"
	ChannelGameState        = "game_state"
	ChannelGameEvent        = "game:event"
	ChannelPlayerResolution = "player:resolution"
)

// NarrativeKind classifies a narrative line.
type NarrativeKind string

const (
	NarrationLine NarrativeKind = "narration"
	DialogueLine  NarrativeKind = "dialogue"
	ActionLine    NarrativeKind = "action"
	SystemLine    NarrativeKind = "system"
)

// Narrative is a line of story text from the game master.
type Narrative struct {
	Text    string        `json:"text"`
	Kind    NarrativeKind `json:"type"`
	Speaker string        `json:"speaker,omitempty"`
}

// CharacterUpdate carries partial stat deltas. Nil fields were not sent.
type CharacterUpdate struct {
	HP        *int     `json:"hp,omitempty"`
	MP        *int     `json:"mp,omitempty"`
	XP        *int     `json:"xp,omitempty"`
	Level     *int     `json:"level,omitempty"`
	Gold      *int     `json:"gold,omitempty"`
	Inventory []string `json:"inventory,omitempty"`
}

// ErrorEvent is an application-level error pushed by the server. It is
// delivered verbatim to subscribers; this layer performs no recovery.
type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PlayerJoined announces a player entering the session.
type PlayerJoined struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// PlayerLeft announces a player leaving the session.
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

// GameState is an unstructured world snapshot.
type GameState struct {
	Raw json.RawMessage `json:"-"`
}

// PlayerResolution is an unstructured action-resolution payload.
type PlayerResolution struct {
	Raw json.RawMessage `json:"-"`
}

// Envelope is the generic wrapper for multiplexed game events delivered on
// ChannelGameEvent.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// ServerEvent is the closed union of everything the server can push.
// Decode is the single point where raw payloads become typed values.
type ServerEvent interface{ isServerEvent() }

func (Narrative) isServerEvent()        {}
func (CharacterUpdate) isServerEvent()  {}
func (ErrorEvent) isServerEvent()       {}
func (PlayerJoined) isServerEvent()     {}
func (PlayerLeft) isServerEvent()       {}
func (GameState) isServerEvent()        {}
func (PlayerResolution) isServerEvent() {}
func (Envelope) isServerEvent()         {}

// ErrUnknownChannel is wrapped into errors returned for unrecognized
// channel names.
var ErrUnknownChannel = fmt.Errorf("protocol: unknown channel")

// Decode turns a raw payload from a named channel into its typed event.
func Decode(channel string, payload json.RawMessage) (ServerEvent, error) {
	switch channel {
	case ChannelNarrative:
		var e Narrative
		return e, unmarshal(channel, payload, &e)
	case ChannelCharacterUpdate:
		var e CharacterUpdate
		return e, unmarshal(channel, payload, &e)
	case ChannelError:
		var e ErrorEvent
		return e, unmarshal(channel, payload, &e)
	case ChannelPlayerJoined:
		var e PlayerJoined
		return e, unmarshal(channel, payload, &e)
	case ChannelPlayerLeft:
		var e PlayerLeft
		return e, unmarshal(channel, payload, &e)
	case ChannelGameState:
		return GameState{Raw: payload}, nil
	case ChannelPlayerResolution:
		return PlayerResolution{Raw: payload}, nil
	case ChannelGameEvent:
		var e Envelope
		return e, unmarshal(channel, payload, &e)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
}

func unmarshal(channel string, payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s: %w", channel, err)
	}
	return nil
}

// Truthy reports whether an acknowledgment payload should be treated as a
// positive response. Absent, null, false and malformed payloads are
// negative; an object with a "success" field follows that field's
// truthiness (null, false, "" and 0 are negative, everything else
// positive); any other payload is positive.
func Truthy(payload json.RawMessage) bool {
	if len(payload) == 0 {
		return false
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case map[string]any:
		if success, ok := t["success"]; ok {
			return fieldTruthy(success)
		}
		return true
	default:
		return true
	}
}

func fieldTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
