package combat

// Phase is the server-declared combat phase.
type Phase string

const (
	PhasePlayerTurn Phase = "PLAYER_TURN"
	PhaseEnemyTurn  Phase = "ENEMY_TURN"
	PhaseVictory    Phase = "VICTORY"
	PhaseDefeat     Phase = "DEFEAT"
	PhaseFled       Phase = "FLED"
)

// Outcome is how a combat ended.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeFled    Outcome = "fled"
)

// Combatant is the renderable view of one participant.
type Combatant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	CurrentHP int    `json:"currentHp"`
	MaxHP     int    `json:"maxHp"`
	CurrentMP int    `json:"currentMp"`
	MaxMP     int    `json:"maxMp"`
}

// State is the authoritative combat snapshot. It is replaced wholesale on
// every update; fields are never merged, so the last message wins.
type State struct {
	CombatID         string      `json:"combatId"`
	Round            int         `json:"round"`
	Phase            Phase       `json:"phase"`
	IsPlayerTurn     bool        `json:"isPlayerTurn"`
	Player           Combatant   `json:"player"`
	Enemies          []Combatant `json:"enemies"`
	TurnOrder        []string    `json:"turnOrder"`
	CurrentTurnID    string      `json:"currentTurnId"`
	AvailableActions []string    `json:"availableActions"`
	CombatLog        []string    `json:"combatLog"`
}

// Result summarizes a finished combat. It is produced once per combat and
// retained until EndCombat acknowledges it.
type Result struct {
	Outcome          Outcome  `json:"outcome"`
	Rounds           int      `json:"rounds"`
	Duration         int64    `json:"duration"`
	ExperienceGained int      `json:"experienceGained"`
	GoldGained       int      `json:"goldGained"`
	ItemsLooted      []string `json:"itemsLooted"`
	EnemiesDefeated  int      `json:"enemiesDefeated"`
}

// IsPlayerTurn reports whether the snapshot says it is the player's turn.
// A nil snapshot is never the player's turn.
func IsPlayerTurn(s *State) bool {
	return s != nil && s.IsPlayerTurn
}

// AliveEnemies returns the enemies still standing.
func AliveEnemies(s *State) []Combatant {
	if s == nil {
		return nil
	}
	alive := make([]Combatant, 0, len(s.Enemies))
	for _, e := range s.Enemies {
		if e.CurrentHP > 0 {
			alive = append(alive, e)
		}
	}
	return alive
}

// clone returns a read-only copy with its own slices.
func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Enemies = append([]Combatant(nil), s.Enemies...)
	out.TurnOrder = append([]string(nil), s.TurnOrder...)
	out.AvailableActions = append([]string(nil), s.AvailableActions...)
	out.CombatLog = append([]string(nil), s.CombatLog...)
	return &out
}
