package game

import (
	"fmt"

	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// submit validates and applies an action. Every check runs before the
// first mutation. Callers hold e.mu.
func (e *Engine) submit(participantID string, action rules.Action) error {
	p, err := e.actor(participantID, action)
	if err != nil {
		return err
	}
	card, target, err := e.validate(p, action)
	if err != nil {
		return err
	}

	switch action.Kind {
	case rules.ActionPlayValue:
		e.playValue(p, card)
	case rules.ActionPlayEffect:
		e.playEffect(p, card, target, action)
	case rules.ActionPass:
		e.pass(p)
	}
	return nil
}

// CheckAction reports whether an action would be accepted in the given
// state, without applying it.
func CheckAction(state *GameState, participantID string, action rules.Action) error {
	e := &Engine{state: state}
	p, err := e.actor(participantID, action)
	if err != nil {
		return err
	}
	_, _, err = e.validate(p, action)
	return err
}

// actor returns the participant allowed to act now.
func (e *Engine) actor(participantID string, action rules.Action) (*Participant, error) {
	s := e.state
	if s.Phase != rules.PhasePlaying {
		return nil, rules.Reject(rules.ReasonWrongPhase, participantID, action, "phase "+s.Phase.String())
	}
	p, ok := s.Participants[participantID]
	if !ok {
		return nil, rules.Reject(rules.ReasonUnknownParticipant, participantID, action, "")
	}
	if p.Eliminated {
		return nil, rules.Reject(rules.ReasonEliminated, participantID, action, "")
	}
	if s.Current() != participantID {
		return nil, rules.Reject(rules.ReasonNotYourTurn, participantID, action, "current turn: "+s.Current())
	}
	return p, nil
}

// validate checks an action and returns the card it plays and its target.
func (e *Engine) validate(p *Participant, action rules.Action) (*cards.Card, *Participant, error) {
	switch action.Kind {
	case rules.ActionPlayValue:
		card, err := e.validateValue(p, action)
		return card, nil, err
	case rules.ActionPlayEffect:
		return e.validateEffect(p, action)
	case rules.ActionPass:
		if e.mustPlayValue(p) {
			return nil, nil, rules.Reject(rules.ReasonMustPlayValue, p.ID, action, "")
		}
		return nil, nil, nil
	default:
		return nil, nil, rules.Reject(rules.ReasonUnknownAction, p.ID, action, string(action.Kind))
	}
}

// mustPlayValue reports whether the participant owes a value card this
// turn: two or more in hand and none played yet.
func (e *Engine) mustPlayValue(p *Participant) bool {
	return !p.PlayedValueThisTurn && len(p.PlayedValues) < 2 && len(p.ValueCards()) >= 2
}

func (e *Engine) validateValue(p *Participant, action rules.Action) (*cards.Card, error) {
	idx := cards.IndexOf(p.Hand, action.CardID)
	if idx < 0 {
		return nil, rules.Reject(rules.ReasonCardNotOwned, p.ID, action, "")
	}
	card := p.Hand[idx]
	if !card.IsValue() {
		return nil, rules.Reject(rules.ReasonWrongCardKind, p.ID, action, "expected a value card")
	}
	if p.PlayedValueThisTurn {
		return nil, rules.Reject(rules.ReasonValueAlreadyPlayed, p.ID, action, "")
	}
	if len(p.PlayedValues) >= 2 {
		return nil, rules.Reject(rules.ReasonPlayedValuesFull, p.ID, action, "")
	}
	if len(p.ValueCards()) < 2 {
		return nil, rules.Reject(rules.ReasonLastValueCard, p.ID, action, "")
	}
	return card, nil
}

func (e *Engine) playValue(p *Participant, card *cards.Card) {
	p.Hand, _ = cards.Remove(p.Hand, card.ID)
	p.PlayedValues = append(p.PlayedValues, card)
	p.PlayedValueThisTurn = true

	line := e.audit("%s played value %d", p.Name, card.Value)
	e.logger.Info("value played",
		zap.String("participant", p.ID),
		zap.String("card", card.ID),
		zap.Int("value", card.Value),
	)
	ev := rules.NewEvent(rules.EventCardPlayed, p.ID, "")
	ev.CardID = card.ID
	ev.Amount = card.Value
	ev.Description = line
	e.emit(ev)
}

func (e *Engine) playEffect(p *Participant, card *cards.Card, target *Participant, action rules.Action) {
	p.Hand, _ = cards.Remove(p.Hand, card.ID)
	p.PlayedEffectThisTurn = true

	targetID := ""
	if target != nil {
		targetID = target.ID
	}
	ev := rules.NewEvent(rules.EventCardPlayed, p.ID, targetID)
	ev.CardID = card.ID
	ev.Data = card.Effect.String()
	e.emit(ev)

	e.applyEffect(p, card, target, action)
}

// validateEffect checks an effect play and returns the card and its target.
// The target is nil for a global Reversus Total.
func (e *Engine) validateEffect(p *Participant, action rules.Action) (*cards.Card, *Participant, error) {
	s := e.state
	if e.mustPlayValue(p) {
		return nil, nil, rules.Reject(rules.ReasonMustPlayValue, p.ID, action, "")
	}
	idx := cards.IndexOf(p.Hand, action.CardID)
	if idx < 0 {
		return nil, nil, rules.Reject(rules.ReasonCardNotOwned, p.ID, action, "")
	}
	card := p.Hand[idx]
	if !card.IsEffect() {
		return nil, nil, rules.Reject(rules.ReasonWrongCardKind, p.ID, action, "expected an effect card")
	}
	if p.PlayedEffectThisTurn {
		return nil, nil, rules.Reject(rules.ReasonEffectAlreadyPlayed, p.ID, action, "")
	}

	if isGlobalToggle(card, action) {
		return card, nil, nil
	}

	targetID := action.TargetID
	if targetID == "" {
		targetID = p.ID
	}
	target, ok := s.Participants[targetID]
	if !ok || target.Eliminated {
		return nil, nil, rules.Reject(rules.ReasonInvalidTarget, p.ID, action, "")
	}

	switch card.Effect {
	case cards.EffectReversus, cards.EffectReversusTotal:
		if action.Axis != cards.AxisScore && action.Axis != cards.AxisMovement {
			return nil, nil, rules.Reject(rules.ReasonInvalidAxis, p.ID, action, "reversal needs the score or movement axis")
		}
		if target.Effects[action.Axis] == nil {
			return nil, nil, rules.Reject(rules.ReasonNothingToReverse, p.ID, action, "")
		}
	case cards.EffectPula:
		reserved := e.reservedPaths()
		if len(s.Board.FreePaths(reserved)) == 0 {
			return nil, nil, rules.Reject(rules.ReasonNoFreePath, p.ID, action, "")
		}
		if action.PathChoice == nil || !s.Board.IsFree(*action.PathChoice, reserved) {
			detail := "no path chosen"
			if action.PathChoice != nil {
				detail = fmt.Sprintf("path %d", *action.PathChoice)
			}
			return nil, nil, rules.Reject(rules.ReasonInvalidPath, p.ID, action, detail)
		}
	}
	return card, target, nil
}

// isGlobalToggle reports whether a Reversus Total play flips global
// inversion rather than reversing one target.
func isGlobalToggle(card *cards.Card, action rules.Action) bool {
	return card.Effect == cards.EffectReversusTotal &&
		(action.Axis == cards.AxisNone || action.Axis == cards.AxisGlobal)
}

func (e *Engine) reservedPaths() map[int]bool {
	out := make(map[int]bool, len(e.state.Reserved))
	for path := range e.state.Reserved {
		out[path] = true
	}
	return out
}

// pass ends the current turn. A turn without plays counts towards the
// round-ending pass streak.
func (e *Engine) pass(p *Participant) {
	s := e.state
	played := p.PlayedValueThisTurn || p.PlayedEffectThisTurn
	p.PlayedValueThisTurn = false
	p.PlayedEffectThisTurn = false
	roundOver := s.EndTurn(played, s.ActiveCount())

	ev := rules.NewEvent(rules.EventTurnPassed, p.ID, "")
	ev.Amount = s.ConsecutivePasses
	e.emit(ev)
	e.logger.Debug("turn ended",
		zap.String("participant", p.ID),
		zap.Bool("played", played),
		zap.Int("consecutive_passes", s.ConsecutivePasses),
	)

	if roundOver {
		e.resolveRound()
		return
	}
	s.Advance(s.Active)
}
