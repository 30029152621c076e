package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reversus/reversus-server-go/internal/game/cards"
)

// ActionKind is the type of a submitted action.
type ActionKind string

const (
	ActionPlayValue  ActionKind = "PLAY_VALUE"
	ActionPlayEffect ActionKind = "PLAY_EFFECT"
	ActionPass       ActionKind = "PASS"
)

// Action is a single move submitted by a participant.
type Action struct {
	Kind     ActionKind `json:"kind"`
	CardID   string     `json:"card_id,omitempty"`
	TargetID string     `json:"target_id,omitempty"`
	// Axis selects the reversed slot for Reversus, or a targeted
	// Reversus Total. AxisNone on Reversus Total toggles global inversion.
	Axis cards.Axis `json:"axis,omitempty"`
	// PathChoice is the destination path for Pula.
	PathChoice *int `json:"path_choice,omitempty"`
}

// PlayValue builds a value-card action.
func PlayValue(cardID string) Action {
	return Action{Kind: ActionPlayValue, CardID: cardID}
}

// PlayEffect builds an effect-card action.
func PlayEffect(cardID, targetID string) Action {
	return Action{Kind: ActionPlayEffect, CardID: cardID, TargetID: targetID}
}

// PlayReversal builds a Reversus (or targeted Reversus Total) action.
func PlayReversal(cardID, targetID string, axis cards.Axis) Action {
	return Action{Kind: ActionPlayEffect, CardID: cardID, TargetID: targetID, Axis: axis}
}

// PlayPula builds a Pula action with its destination path.
func PlayPula(cardID, targetID string, path int) Action {
	return Action{Kind: ActionPlayEffect, CardID: cardID, TargetID: targetID, PathChoice: &path}
}

// Pass ends the current turn.
func Pass() Action {
	return Action{Kind: ActionPass}
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if a.CardID != "" {
		b.WriteString(" card=" + a.CardID)
	}
	if a.TargetID != "" {
		b.WriteString(" target=" + a.TargetID)
	}
	if a.Axis != cards.AxisNone {
		b.WriteString(" axis=" + a.Axis.String())
	}
	if a.PathChoice != nil {
		b.WriteString(fmt.Sprintf(" path=%d", *a.PathChoice))
	}
	return b.String()
}

// Reason explains why an action was rejected.
type Reason string

const (
	ReasonWrongPhase          Reason = "wrong phase"
	ReasonNotYourTurn         Reason = "not your turn"
	ReasonUnknownParticipant  Reason = "unknown participant"
	ReasonEliminated          Reason = "participant eliminated"
	ReasonCardNotOwned        Reason = "card not in hand"
	ReasonWrongCardKind       Reason = "wrong card kind"
	ReasonMustPlayValue       Reason = "a value card must be played first"
	ReasonLastValueCard       Reason = "the last value card is kept as resto"
	ReasonValueAlreadyPlayed  Reason = "a value card was already played this turn"
	ReasonEffectAlreadyPlayed Reason = "an effect card was already played this turn"
	ReasonPlayedValuesFull    Reason = "no more value cards may be played this round"
	ReasonInvalidTarget       Reason = "invalid target"
	ReasonInvalidAxis         Reason = "invalid axis"
	ReasonNothingToReverse    Reason = "target has no effect on that axis"
	ReasonNoFreePath          Reason = "no free path"
	ReasonInvalidPath         Reason = "destination path is not free"
	ReasonUnknownAction       Reason = "unknown action"
	ReasonNotAwaitingTarget   Reason = "no target is being requested"
)

// ErrIllegalAction is the sentinel wrapped by every IllegalActionError.
var ErrIllegalAction = errors.New("illegal action")

// IllegalActionError rejects an action synchronously. The game state is
// unchanged when it is returned.
type IllegalActionError struct {
	Reason        Reason
	ParticipantID string
	CardID        string
	TargetID      string
	Detail        string
}

func (e *IllegalActionError) Error() string {
	msg := fmt.Sprintf("illegal action by %s: %s", e.ParticipantID, e.Reason)
	if e.CardID != "" {
		msg += " (card " + e.CardID + ")"
	}
	if e.TargetID != "" {
		msg += " (target " + e.TargetID + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap lets errors.Is match ErrIllegalAction.
func (e *IllegalActionError) Unwrap() error {
	return ErrIllegalAction
}

// Reject builds an IllegalActionError for an action.
func Reject(reason Reason, participantID string, action Action, detail string) *IllegalActionError {
	return &IllegalActionError{
		Reason:        reason,
		ParticipantID: participantID,
		CardID:        action.CardID,
		TargetID:      action.TargetID,
		Detail:        detail,
	}
}

// ReasonOf extracts the rejection reason from an error, if any.
func ReasonOf(err error) (Reason, bool) {
	var illegal *IllegalActionError
	if errors.As(err, &illegal) {
		return illegal.Reason, true
	}
	return "", false
}
