package rules

import (
	"fmt"
	"strings"
)

// Phase represents the state of the round scheduler.
type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseAwaitingInput
	PhaseResolving
	PhaseRoundSummary
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseSetup:         "SETUP",
	PhasePlaying:       "PLAYING",
	PhaseAwaitingInput: "AWAITING_INPUT",
	PhaseResolving:     "RESOLVING",
	PhaseRoundSummary:  "ROUND_SUMMARY",
	PhaseGameOver:      "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for phase, name := range phaseNames {
		if name == s {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// TurnManager tracks turn order, the current participant and pass detection.
// Fields are exported so the owning game state can be copied and serialized.
type TurnManager struct {
	TurnOrder         []string `json:"turn_order"`
	CurrentIndex      int      `json:"current_index"`
	TurnCounter       int      `json:"turn_counter"`
	ConsecutivePasses int      `json:"consecutive_passes"`
	Round             int      `json:"round"`
}

// NewTurnManager creates a turn manager for the given seating order.
func NewTurnManager(order []string) TurnManager {
	cleaned := make([]string, 0, len(order))
	for _, id := range order {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return TurnManager{TurnOrder: cleaned}
}

// Current returns the participant whose turn it is.
func (tm *TurnManager) Current() string {
	if len(tm.TurnOrder) == 0 {
		return ""
	}
	return tm.TurnOrder[tm.CurrentIndex%len(tm.TurnOrder)]
}

// IndexOf returns the seat of a participant, or -1.
func (tm *TurnManager) IndexOf(id string) int {
	for i, seat := range tm.TurnOrder {
		if seat == id {
			return i
		}
	}
	return -1
}

// StartRound resets pass tracking and gives the turn to the starter.
func (tm *TurnManager) StartRound(starter string) {
	tm.Round++
	tm.ConsecutivePasses = 0
	if idx := tm.IndexOf(starter); idx >= 0 {
		tm.CurrentIndex = idx
	}
}

// EndTurn records the end of the current participant's turn. A turn without
// any play counts as a pass; any play resets the pass counter. It reports
// whether the round is over, which happens once every active participant
// has passed in a row.
func (tm *TurnManager) EndTurn(played bool, activeCount int) bool {
	tm.TurnCounter++
	if played {
		tm.ConsecutivePasses = 0
	} else {
		tm.ConsecutivePasses++
	}
	return activeCount > 0 && tm.ConsecutivePasses >= activeCount
}

// Advance moves the turn to the next participant for which active returns
// true and returns it. It returns "" when nobody is active.
func (tm *TurnManager) Advance(active func(id string) bool) string {
	n := len(tm.TurnOrder)
	for step := 1; step <= n; step++ {
		idx := (tm.CurrentIndex + step) % n
		if active == nil || active(tm.TurnOrder[idx]) {
			tm.CurrentIndex = idx
			return tm.TurnOrder[idx]
		}
	}
	return ""
}

// OrderFrom returns the turn order rotated to start at the given participant.
func (tm *TurnManager) OrderFrom(id string) []string {
	start := tm.IndexOf(id)
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(tm.TurnOrder))
	for i := 0; i < len(tm.TurnOrder); i++ {
		out = append(out, tm.TurnOrder[(start+i)%len(tm.TurnOrder)])
	}
	return out
}

// Copy returns a deep copy.
func (tm TurnManager) Copy() TurnManager {
	tm.TurnOrder = append([]string(nil), tm.TurnOrder...)
	return tm
}
