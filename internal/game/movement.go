package game

import (
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// MovementDelta returns how many spaces a participant advances at the end
// of a round. Negative values move back.
func MovementDelta(p *Participant, won bool, fx *effects.Registry, round int) int {
	delta := 0
	if won {
		switch {
		case fx.Has(p.ID, effects.Parada, round):
			delta = 0
		case fx.Has(p.ID, effects.Desafio, round) && !p.PlayedBonus:
			delta = 3
		default:
			delta = 1
		}
	} else {
		if fx.Has(p.ID, effects.Impulso, round) {
			delta++
		}
		if fx.Has(p.ID, effects.Castigo, round) {
			delta -= 3
		}
	}

	if rec := p.Effects[cards.AxisMovement]; rec != nil {
		switch rec.Name {
		case cards.EffectSobe:
			delta++
		case cards.EffectDesce:
			if fx.Has(p.ID, effects.SuperExposto, round) {
				delta -= 2
			} else {
				delta--
			}
		}
	}
	return delta
}

// applyMovement moves every active participant after scoring and returns
// the applied deltas.
func (e *Engine) applyMovement(winners []string) map[string]int {
	s := e.state
	won := make(map[string]bool, len(winners))
	for _, id := range winners {
		won[id] = true
	}

	moves := make(map[string]int)
	for _, p := range s.Ordered() {
		if p.Eliminated {
			continue
		}
		if rec := p.Effects[cards.AxisMovement]; rec != nil && rec.Name == cards.EffectPula && rec.PathChoice != nil {
			e.jump(p, *rec.PathChoice)
		}
		delta := MovementDelta(p, won[p.ID], s.FieldEffects, s.Round)
		e.moveBy(p, delta)
		moves[p.ID] = delta
	}
	return moves
}

// jump relocates a participant to its reserved path, keeping its position.
func (e *Engine) jump(p *Participant, pathID int) {
	s := e.state
	delete(s.Reserved, pathID)
	if err := s.Board.Assign(pathID, p.ID); err != nil {
		e.logger.Warn("pula destination unavailable",
			zap.String("participant", p.ID),
			zap.Int("path", pathID),
			zap.Error(err),
		)
		return
	}
	from := p.PathID
	p.PathID = pathID
	line := e.audit("%s jumped from path %d to path %d", p.Name, from, pathID)
	ev := rules.NewEvent(rules.EventParticipantMoved, p.ID, "")
	ev.Data = "path"
	ev.Amount = pathID
	ev.Description = line
	e.emit(ev)
}

// moveBy advances a participant by delta spaces in its race direction,
// wrapping on looping boards and clamping otherwise.
func (e *Engine) moveBy(p *Participant, delta int) {
	if delta == 0 {
		return
	}
	s := e.state
	goal := s.Settings.Goal
	from := p.Position

	switch {
	case s.Mode.InvertedGoal:
		p.Position = clamp(p.Position-delta, 1, goal)
	case s.Mode.Looping:
		pos := p.Position + delta
		for pos >= goal {
			pos -= goal - 1
			p.Laps++
		}
		p.Position = clamp(pos, 1, goal)
	default:
		p.Position = clamp(p.Position+delta, 1, goal)
	}

	line := e.audit("%s moved %+d (%d -> %d)", p.Name, delta, from, p.Position)
	e.logger.Debug("participant moved",
		zap.String("participant", p.ID),
		zap.Int("delta", delta),
		zap.Int("from", from),
		zap.Int("to", p.Position),
	)
	ev := rules.NewEvent(rules.EventParticipantMoved, p.ID, "")
	ev.Data = "position"
	ev.Amount = p.Position
	ev.Description = line
	e.emit(ev)
}

// finished reports whether a participant has reached its goal.
func (e *Engine) finished(p *Participant) bool {
	s := e.state
	switch {
	case s.Mode.Looping:
		return p.Laps >= s.Settings.LapsToWin
	case s.Mode.InvertedGoal:
		return p.Position <= 1
	default:
		return p.Position >= s.Settings.Goal
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
