package ai

import (
	"sort"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
)

// Heuristic picks a move for participantID playing for the allegiance team.
// It never mutates state and only proposes moves that are legal for it.
func Heuristic(state *game.GameState, participantID, allegiance string, persona Persona) rules.Action {
	p, ok := state.Participants[participantID]
	if !ok || p.Eliminated {
		return rules.Pass()
	}
	if allegiance == "" {
		allegiance = p.Team
	}
	r := &reading{state: state, allegiance: allegiance, persona: persona}

	values := p.ValueCards()
	if !p.PlayedValueThisTurn && len(p.PlayedValues) < 2 && len(values) >= 2 {
		if r.sideLeads() {
			return rules.PlayValue(cards.LowestValue(values).ID)
		}
		return rules.PlayValue(cards.HighestValue(values).ID)
	}
	if p.PlayedEffectThisTurn {
		return rules.Pass()
	}

	best := option{action: rules.Pass(), gain: persona.MinGain}
	seen := make(map[cards.EffectName]bool)
	for _, c := range p.EffectCards() {
		if seen[c.Effect] {
			continue
		}
		seen[c.Effect] = true
		for _, o := range r.options(c) {
			if o.gain > best.gain {
				best = o
			}
		}
	}
	return best.action
}

type option struct {
	action rules.Action
	gain   float64
}

// reading is the heuristic's view of the table from one side.
type reading struct {
	state      *game.GameState
	allegiance string
	persona    Persona
}

func (r *reading) friendly(p *game.Participant) bool {
	return p.Team == r.allegiance
}

// progress measures how far a participant is along its race.
func (r *reading) progress(p *game.Participant) int {
	s := r.state
	switch {
	case s.Mode.Looping:
		goal := s.Settings.Goal
		if goal <= 0 {
			goal = 10
		}
		return p.Laps*goal + p.Position
	case s.Mode.InvertedGoal:
		return s.Settings.Goal + 1 - p.Position
	default:
		return p.Position
	}
}

func (r *reading) sideLeads() bool {
	ours, theirs := -1, -1
	for _, p := range r.state.Ordered() {
		if p.Eliminated {
			continue
		}
		v := r.progress(p)
		if r.friendly(p) {
			if v > ours {
				ours = v
			}
		} else if v > theirs {
			theirs = v
		}
	}
	return ours > theirs
}

// targets lists active participants: teammates from the furthest behind,
// then opponents from the furthest ahead. Ties keep turn order.
func (r *reading) targets() []*game.Participant {
	var friends, foes []*game.Participant
	for _, p := range r.state.Ordered() {
		if p.Eliminated {
			continue
		}
		if r.friendly(p) {
			friends = append(friends, p)
		} else {
			foes = append(foes, p)
		}
	}
	sort.SliceStable(friends, func(i, j int) bool { return r.progress(friends[i]) < r.progress(friends[j]) })
	sort.SliceStable(foes, func(i, j int) bool { return r.progress(foes[i]) > r.progress(foes[j]) })
	return append(friends, foes...)
}

// weight is how much a unit of gain for p is worth to the bot's side.
func (r *reading) weight(p *game.Participant) float64 {
	if r.friendly(p) {
		return r.persona.Support
	}
	return -r.persona.Aggression
}

func (r *reading) has(p *game.Participant, fx effects.FieldEffect) bool {
	return r.state.FieldEffects.Has(p.ID, fx, r.state.Round)
}

// worth converts an effect on p into score points for p.
func (r *reading) worth(p *game.Participant, name cards.EffectName) float64 {
	penalty := 1.0
	if r.has(p, effects.SuperExposto) {
		penalty = 2
	}
	switch name {
	case cards.EffectMais, cards.EffectMenos, cards.EffectMaisDobro, cards.EffectMenosDobro:
		fx, round := r.state.FieldEffects, r.state.Round
		return float64(game.ScoreWith(p, name, fx, round) - game.ScoreWith(p, cards.EffectNone, fx, round))
	case cards.EffectSobe:
		return r.persona.SpaceValue
	case cards.EffectDesce:
		return -r.persona.SpaceValue * penalty
	case cards.EffectPula:
		if rec := p.Effects[cards.AxisMovement]; rec != nil && rec.PathChoice != nil {
			return r.persona.RedWeight * float64(r.redsAhead(p, p.PathID)-r.redsAhead(p, *rec.PathChoice))
		}
	}
	return 0
}

func (r *reading) current(p *game.Participant, axis cards.Axis) float64 {
	if rec := p.Effects[axis]; rec != nil {
		return r.worth(p, rec.Name)
	}
	return 0
}

func (r *reading) redsAhead(p *game.Participant, pathID int) int {
	path := r.state.Board.Path(pathID)
	if path == nil {
		return 0
	}
	return path.CountAhead(p.Position, board.ColorRed)
}

// resolved is the effect a card turns into when it lands.
func (r *reading) resolved(c *cards.Card) cards.EffectName {
	if r.state.GlobalInversionActive && c.Effect != cards.EffectReversusTotal {
		if inv, ok := cards.Inverse(c.Effect); ok {
			return inv
		}
	}
	return c.Effect
}

func (r *reading) options(c *cards.Card) []option {
	switch c.Effect {
	case cards.EffectReversus:
		return r.reversals(c)
	case cards.EffectReversusTotal:
		out := r.reversals(c)
		if net := r.globalGain(); net >= r.persona.TotalThreshold {
			out = append(out, option{action: rules.PlayEffect(c.ID, ""), gain: net})
		}
		return out
	}

	name := r.resolved(c)
	if name == cards.EffectPula {
		return r.jumps(c)
	}
	axis := cards.AxisOf(name)
	out := make([]option, 0)
	for _, t := range r.targets() {
		if cards.IsPenalty(name) && r.has(t, effects.Imunidade) {
			continue
		}
		gain := r.weight(t) * (r.worth(t, name) - r.current(t, axis))
		out = append(out, option{action: rules.PlayEffect(c.ID, t.ID), gain: gain})
	}
	return out
}

// reversals flips an existing record: a teammate's penalty or an
// opponent's bonus. Cancelling a Pula undoes its path change.
func (r *reading) reversals(c *cards.Card) []option {
	out := make([]option, 0)
	for _, t := range r.targets() {
		for _, axis := range []cards.Axis{cards.AxisScore, cards.AxisMovement} {
			rec := t.Effects[axis]
			if rec == nil {
				continue
			}
			before := r.worth(t, rec.Name)
			after := 0.0
			if inv, ok := cards.Inverse(rec.Name); ok {
				after = r.worth(t, inv)
			}
			out = append(out, option{
				action: rules.PlayReversal(c.ID, t.ID, axis),
				gain:   r.weight(t) * (after - before),
			})
		}
	}
	return out
}

// jumps sends an opponent to the free path with the most red spaces ahead.
func (r *reading) jumps(c *cards.Card) []option {
	reserved := make(map[int]bool, len(r.state.Reserved))
	for path := range r.state.Reserved {
		reserved[path] = true
	}
	free := r.state.Board.FreePaths(reserved)
	out := make([]option, 0)
	for _, t := range r.targets() {
		if r.friendly(t) {
			continue
		}
		for _, path := range free {
			diff := r.redsAhead(t, path) - r.redsAhead(t, t.PathID)
			if diff <= 0 {
				continue
			}
			gain := r.persona.Aggression*r.persona.RedWeight*float64(diff) +
				r.weight(t)*(0-r.current(t, cards.AxisMovement))
			out = append(out, option{action: rules.PlayPula(c.ID, t.ID, path), gain: gain})
		}
	}
	return out
}

// globalGain is the net value of flipping every unlocked record.
func (r *reading) globalGain() float64 {
	net := 0.0
	for _, t := range r.targets() {
		for _, axis := range []cards.Axis{cards.AxisScore, cards.AxisMovement} {
			rec := t.Effects[axis]
			if rec == nil || rec.Locked {
				continue
			}
			inv, ok := cards.Inverse(rec.Name)
			if !ok {
				continue
			}
			net += r.weight(t) * (r.worth(t, inv) - r.worth(t, rec.Name))
		}
	}
	return net
}
