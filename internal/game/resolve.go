package game

import (
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// applyEffect resolves a validated effect card. The card has already left
// the caster's hand; it ends up either in an ActiveEffect record or in the
// effect discard pool.
func (e *Engine) applyEffect(caster *Participant, card *cards.Card, target *Participant, action rules.Action) {
	s := e.state

	if target == nil {
		e.toggleGlobal(caster, card)
		return
	}

	name := card.Effect
	if s.GlobalInversionActive && name != cards.EffectReversusTotal {
		if inv, ok := cards.Inverse(name); ok {
			name = inv
		}
	}

	if resolved := e.outcome(target, name, action.Axis); cards.IsPenalty(resolved) && e.immune(target) {
		s.EffectDeck.Put(card)
		line := e.audit("%s played %s on %s: %s blocked by %s", caster.Name, card.Effect, target.Name, resolved, effects.Imunidade)
		e.logger.Info("effect blocked by immunity",
			zap.String("caster", caster.ID),
			zap.String("card", card.ID),
			zap.String("target", target.ID),
			zap.String("effect", resolved.String()),
		)
		e.emitApplied(caster, card, target, cards.EffectNone, line)
		return
	}

	switch name {
	case cards.EffectMais, cards.EffectMenos, cards.EffectMaisDobro, cards.EffectMenosDobro,
		cards.EffectSobe, cards.EffectDesce:
		e.setEffect(target, &ActiveEffect{Card: card, Name: name, CasterID: caster.ID})
	case cards.EffectPula:
		choice := *action.PathChoice
		e.setEffect(target, &ActiveEffect{Card: card, Name: name, CasterID: caster.ID, PathChoice: &choice})
		s.Reserved[choice] = target.ID
	case cards.EffectReversus:
		name = e.reverse(target, action.Axis, card, false)
	case cards.EffectReversusTotal:
		name = e.reverse(target, action.Axis, card, true)
	default:
		s.EffectDeck.Put(card)
		e.logger.Warn("effect has no resolution", zap.String("card", card.ID), zap.String("effect", name.String()))
		return
	}

	if cards.IsBonus(name) && card.Effect != cards.EffectReversus && card.Effect != cards.EffectReversusTotal {
		caster.PlayedBonus = true
	}

	line := e.audit("%s played %s on %s: %s", caster.Name, card.Effect, target.Name, describe(target, name))
	e.logger.Info("effect applied",
		zap.String("caster", caster.ID),
		zap.String("card", card.ID),
		zap.String("target", target.ID),
		zap.String("effect", name.String()),
		zap.Bool("global_inversion", s.GlobalInversionActive),
	)
	e.emitApplied(caster, card, target, name, line)
}

// outcome is the effect a resolved card leaves on target: the card's own
// name, or for a reversal the inverse of the record it flips.
func (e *Engine) outcome(target *Participant, name cards.EffectName, axis cards.Axis) cards.EffectName {
	if name != cards.EffectReversus && name != cards.EffectReversusTotal {
		return name
	}
	rec := target.Effects[axis]
	if rec == nil {
		return cards.EffectNone
	}
	if inv, ok := cards.Inverse(rec.Name); ok {
		return inv
	}
	return cards.EffectNone
}

func (e *Engine) immune(p *Participant) bool {
	return e.state.FieldEffects.Has(p.ID, effects.Imunidade, e.state.Round)
}

// setEffect installs a record on its axis, retiring whatever was there.
func (e *Engine) setEffect(target *Participant, rec *ActiveEffect) {
	axis := cards.AxisOf(rec.Name)
	if prev := target.Effects[axis]; prev != nil {
		e.retire(prev)
	}
	target.Effects[axis] = rec
}

// reverse flips the target's effect on an axis and keeps the reversal card
// with the record. Pula has no inverse and is cancelled instead. It returns
// the resulting effect name, EffectNone after a cancellation.
func (e *Engine) reverse(target *Participant, axis cards.Axis, card *cards.Card, lock bool) cards.EffectName {
	rec := target.Effects[axis]
	if rec.Name == cards.EffectPula {
		delete(target.Effects, axis)
		e.retire(rec)
		e.state.EffectDeck.Put(card)
		return cards.EffectNone
	}
	if inv, ok := cards.Inverse(rec.Name); ok {
		rec.Name = inv
	}
	rec.Modifiers = append(rec.Modifiers, card)
	if lock {
		rec.Locked = true
	}
	return rec.Name
}

// toggleGlobal flips global inversion and every unlocked score and movement
// record. A record that would turn into a penalty on an immune participant
// keeps its name. The card is kept in the caster's global slot.
func (e *Engine) toggleGlobal(caster *Participant, card *cards.Card) {
	s := e.state
	s.GlobalInversionActive = !s.GlobalInversionActive

	flipped := 0
	for _, p := range s.Ordered() {
		if p.Eliminated {
			continue
		}
		for _, axis := range []cards.Axis{cards.AxisScore, cards.AxisMovement} {
			rec := p.Effects[axis]
			if rec == nil || rec.Locked {
				continue
			}
			inv, ok := cards.Inverse(rec.Name)
			if !ok || (cards.IsPenalty(inv) && e.immune(p)) {
				continue
			}
			rec.Name = inv
			flipped++
		}
	}
	e.setEffect(caster, &ActiveEffect{Card: card, Name: cards.EffectReversusTotal, CasterID: caster.ID})

	state := "off"
	if s.GlobalInversionActive {
		state = "on"
	}
	line := e.audit("%s played %s: global inversion %s, %d effects flipped", caster.Name, card.Effect, state, flipped)
	e.logger.Info("global inversion toggled",
		zap.String("caster", caster.ID),
		zap.String("card", card.ID),
		zap.Bool("active", s.GlobalInversionActive),
		zap.Int("flipped", flipped),
	)
	e.emitApplied(caster, card, nil, cards.EffectReversusTotal, line)
}

// retire moves a record's cards to the effect discard pool and releases
// the path a pending Pula reserved.
func (e *Engine) retire(rec *ActiveEffect) {
	if rec.Name == cards.EffectPula && rec.PathChoice != nil {
		delete(e.state.Reserved, *rec.PathChoice)
	}
	e.state.EffectDeck.Put(rec.Card)
	e.state.EffectDeck.Put(rec.Modifiers...)
}

// retireAll retires every record a participant holds, in axis order so the
// discard pool stays reproducible.
func (e *Engine) retireAll(p *Participant) {
	for _, axis := range []cards.Axis{cards.AxisScore, cards.AxisMovement, cards.AxisGlobal, cards.AxisNone} {
		if rec := p.Effects[axis]; rec != nil {
			e.retire(rec)
		}
	}
	p.Effects = make(map[cards.Axis]*ActiveEffect)
}

func (e *Engine) emitApplied(caster *Participant, card *cards.Card, target *Participant, result cards.EffectName, line string) {
	targetID := ""
	if target != nil {
		targetID = target.ID
	}
	ev := rules.NewEvent(rules.EventEffectApplied, caster.ID, targetID)
	ev.CardID = card.ID
	ev.Data = result.String()
	ev.Description = line
	e.emit(ev)
}

func describe(target *Participant, name cards.EffectName) string {
	if name == cards.EffectNone {
		return "Pula cancelled"
	}
	rec := target.Effects[cards.AxisOf(name)]
	if rec != nil && rec.Locked {
		return name.String() + " (locked)"
	}
	return name.String()
}
