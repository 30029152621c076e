package game

import (
	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// runFieldEffects triggers landed spaces in turn order starting at the
// given slot. It stops early when a trade needs a target, leaving the game
// in PhaseAwaitingInput.
func (e *Engine) runFieldEffects(start int) {
	s := e.state
	order := s.OrderFrom(s.StarterID)
	for i := start; i < len(order); i++ {
		if e.triggerSpace(order[i], i) {
			return
		}
		if s.Phase == rules.PhaseGameOver {
			return
		}
	}
	e.finishRound()
}

// triggerSpace resolves the space a participant stands on. It reports
// whether the pipeline is suspended.
func (e *Engine) triggerSpace(participantID string, slot int) bool {
	s := e.state
	p := s.Participants[participantID]
	if p == nil || p.Eliminated || e.finished(p) {
		return false
	}
	path := s.Board.Path(p.PathID)
	if path == nil {
		return false
	}
	space := path.Space(p.Position)
	if space == nil || !space.Colored() || space.Used {
		return false
	}
	space.Used = true

	ev := rules.NewEvent(rules.EventFieldEffectTriggered, p.ID, "")
	ev.Data = string(space.Color)
	ev.Metadata["effect"] = space.Effect
	ev.Amount = space.Position
	e.emit(ev)
	e.logger.Info("field effect triggered",
		zap.String("participant", p.ID),
		zap.String("color", string(space.Color)),
		zap.String("effect", space.Effect),
		zap.Int("path", path.ID),
		zap.Int("position", space.Position),
	)

	switch space.Color {
	case board.ColorBlue, board.ColorRed:
		return e.resolveFieldEffect(p, effects.FieldEffect(space.Effect), slot)
	case board.ColorYellow:
		if p.ID == s.Mode.HomeID {
			e.audit("%s landed on a yellow space and advances", p.Name)
			e.moveBy(p, 1)
		} else {
			e.audit("%s landed on a yellow space and falls back", p.Name)
			e.moveBy(p, -1)
		}
	case board.ColorBlack:
		p.Lives--
		if p.Lives <= 0 {
			p.Lives = 0
			e.eliminate(p, "black space")
		} else {
			e.audit("%s landed on a black space, %d lives left", p.Name, p.Lives)
		}
	case board.ColorStar:
		if len(p.EffectCards()) < s.Settings.EffectCap {
			if c := e.draw(cards.KindEffect); c != nil {
				p.Hand = append(p.Hand, c)
				e.audit("%s landed on a star and drew an effect card", p.Name)
			}
		}
	}
	return false
}

// resolveFieldEffect applies a blue or red space effect.
func (e *Engine) resolveFieldEffect(p *Participant, name effects.FieldEffect, slot int) bool {
	s := e.state
	def, ok := effects.Lookup(string(name))
	if !ok {
		e.logger.Warn("unknown field effect", zap.String("participant", p.ID), zap.String("effect", string(name)))
		return false
	}

	if def.Standing {
		s.FieldEffects.Add(name, p.ID, s.Round+1)
		e.audit("%s gained %s for round %d", p.Name, name, s.Round+1)
		return false
	}

	switch name {
	case effects.CartaMaior:
		e.replaceValueCard(p, cards.LowestValue(p.ValueCards()))
	case effects.CartaMenor:
		e.replaceValueCard(p, cards.HighestValue(p.ValueCards()))
	case effects.OlhoVivo:
		for _, other := range s.Ordered() {
			if other.ID == p.ID || other.Eliminated {
				continue
			}
			ev := rules.NewEvent(rules.EventHandRevealed, other.ID, p.ID)
			ev.Data = string(name)
			e.emit(ev)
		}
		e.audit("%s sees every opponent's hand", p.Name)
	case effects.JogoAberto:
		p.Revealed = true
		ev := rules.NewEvent(rules.EventHandRevealed, p.ID, "")
		ev.Data = string(name)
		e.emit(ev)
		e.audit("%s plays with an open hand", p.Name)
	case effects.CartaExtra:
		if len(p.EffectCards()) >= s.Settings.EffectCap {
			e.audit("%s already holds the maximum effect cards", p.Name)
			break
		}
		if c := e.draw(cards.KindEffect); c != nil {
			p.Hand = append(p.Hand, c)
			e.audit("%s drew an extra effect card", p.Name)
		}
	case effects.Descarte:
		discarded := p.EffectCards()
		for _, c := range discarded {
			p.Hand, _ = cards.Remove(p.Hand, c.ID)
		}
		s.EffectDeck.Put(discarded...)
		e.audit("%s discarded %d effect cards", p.Name, len(discarded))
	case effects.TrocaJusta, effects.TrocaInjusta:
		return e.startTrade(p, name, slot)
	}
	return false
}

// replaceValueCard discards a value card and draws a replacement.
func (e *Engine) replaceValueCard(p *Participant, card *cards.Card) {
	if card == nil {
		return
	}
	p.Hand, _ = cards.Remove(p.Hand, card.ID)
	e.state.ValueDeck.Put(card)
	if c := e.draw(cards.KindValue); c != nil {
		p.Hand = append(p.Hand, c)
		e.audit("%s swapped value %d for %d", p.Name, card.Value, c.Value)
	}
}

// tradeCandidates lists opponents holding at least one value card.
func (e *Engine) tradeCandidates(p *Participant) []string {
	out := make([]string, 0)
	for _, other := range e.state.Ordered() {
		if other.Eliminated || other.Team == p.Team {
			continue
		}
		if len(other.ValueCards()) > 0 {
			out = append(out, other.ID)
		}
	}
	return out
}

// startTrade trades immediately when there is a single candidate and
// otherwise suspends the pipeline until a target is supplied.
func (e *Engine) startTrade(p *Participant, name effects.FieldEffect, slot int) bool {
	s := e.state
	candidates := e.tradeCandidates(p)
	if len(candidates) == 0 || len(p.ValueCards()) == 0 {
		e.audit("%s: %s has no one to trade with", p.Name, name)
		return false
	}
	if len(candidates) == 1 {
		e.trade(p, s.Participants[candidates[0]], name)
		return false
	}

	pending := PendingInput{
		Kind:          PendingFieldEffectTarget,
		ParticipantID: p.ID,
		Effect:        name,
		Candidates:    candidates,
		NextIndex:     slot + 1,
	}
	s.Pending = &pending
	s.Phase = rules.PhaseAwaitingInput
	if p.Human {
		e.requests = append(e.requests, pending)
	}

	ev := rules.NewEvent(rules.EventTargetRequested, p.ID, "")
	ev.Data = string(name)
	ev.Targets = append([]string(nil), candidates...)
	e.emit(ev)
	e.logger.Info("field effect target requested",
		zap.String("participant", p.ID),
		zap.String("effect", string(name)),
		zap.Strings("candidates", candidates),
	)
	return true
}

// resolvePendingTarget validates a target answer and resumes the pipeline.
func (e *Engine) resolvePendingTarget(participantID, targetID string) error {
	s := e.state
	action := rules.Action{TargetID: targetID}
	if s.Phase != rules.PhaseAwaitingInput || s.Pending == nil {
		return rules.Reject(rules.ReasonNotAwaitingTarget, participantID, action, "")
	}
	pending := s.Pending
	if pending.ParticipantID != participantID {
		return rules.Reject(rules.ReasonNotYourTurn, participantID, action, "awaiting "+pending.ParticipantID)
	}
	valid := false
	for _, c := range pending.Candidates {
		if c == targetID {
			valid = true
			break
		}
	}
	if !valid {
		return rules.Reject(rules.ReasonInvalidTarget, participantID, action, "")
	}

	s.Pending = nil
	s.Phase = rules.PhaseResolving
	e.trade(s.Participants[participantID], s.Participants[targetID], pending.Effect)
	e.runFieldEffects(pending.NextIndex)
	return nil
}

// trade swaps one value card each way. Troca Justa gives the lowest card
// for the opponent's highest; Troca Injusta the highest for their lowest.
func (e *Engine) trade(p, target *Participant, name effects.FieldEffect) {
	var give, take *cards.Card
	if name == effects.TrocaJusta {
		give = cards.LowestValue(p.ValueCards())
		take = cards.HighestValue(target.ValueCards())
	} else {
		give = cards.HighestValue(p.ValueCards())
		take = cards.LowestValue(target.ValueCards())
	}
	if give == nil || take == nil {
		return
	}
	p.Hand, _ = cards.Remove(p.Hand, give.ID)
	target.Hand, _ = cards.Remove(target.Hand, take.ID)
	p.Hand = append(p.Hand, take)
	target.Hand = append(target.Hand, give)

	line := e.audit("%s (%s) traded %d for %s's %d", p.Name, name, give.Value, target.Name, take.Value)
	e.logger.Info("value cards traded",
		zap.String("participant", p.ID),
		zap.String("target", target.ID),
		zap.String("effect", string(name)),
		zap.Int("gave", give.Value),
		zap.Int("took", take.Value),
	)
	ev := rules.NewEvent(rules.EventFieldEffectTriggered, p.ID, target.ID)
	ev.Data = string(name)
	ev.Description = line
	e.emit(ev)
}

// eliminate removes a participant from play. Its cards go to the discard
// pools and its path is freed.
func (e *Engine) eliminate(p *Participant, reason string) {
	s := e.state
	s.ValueDeck.Put(cards.Filter(p.Hand, cards.KindValue)...)
	s.EffectDeck.Put(cards.Filter(p.Hand, cards.KindEffect)...)
	p.Hand = nil
	s.ValueDeck.Put(p.PlayedValues...)
	p.PlayedValues = nil
	s.ValueDeck.Put(p.Resto, p.NextResto)
	p.Resto, p.NextResto = nil, nil
	e.retireAll(p)
	for path, id := range s.Reserved {
		if id == p.ID {
			delete(s.Reserved, path)
		}
	}
	s.Board.Release(p.ID)
	s.FieldEffects.RemoveParticipant(p.ID)
	p.Eliminated = true

	line := e.audit("%s was eliminated (%s)", p.Name, reason)
	e.logger.Info("participant eliminated", zap.String("participant", p.ID), zap.String("reason", reason))
	ev := rules.NewEvent(rules.EventParticipantEliminated, p.ID, "")
	ev.Description = line
	e.emit(ev)
}
