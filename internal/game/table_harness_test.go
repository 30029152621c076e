package game

import (
	"testing"

	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TableHarness sets up games with hand-picked cards for rule scenarios.
type TableHarness struct {
	t      *testing.T
	engine *Engine
}

// NewTableHarness creates a seeded game that waits in PhaseSetup.
func NewTableHarness(t *testing.T, mode Mode, seats []Seat, tweak func(*Settings), opts ...Option) *TableHarness {
	t.Helper()
	settings := DefaultSettings()
	settings.Seed = 42
	settings.AutoContinue = false
	if tweak != nil {
		tweak(&settings)
	}
	e, err := NewGame(settings, mode, seats, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return &TableHarness{t: t, engine: e}
}

func soloSeats(ids ...string) []Seat {
	seats := make([]Seat, 0, len(ids))
	for _, id := range ids {
		seats = append(seats, Seat{ID: id, Name: id, Human: true})
	}
	return seats
}

func (h *TableHarness) state() *GameState {
	return h.engine.state
}

func (h *TableHarness) participant(id string) *Participant {
	p, ok := h.engine.state.Participants[id]
	require.True(h.t, ok, "participant %s", id)
	return p
}

// ClearTable returns every hand, resto and record to the draw piles.
func (h *TableHarness) ClearTable() {
	s := h.state()
	for _, p := range s.Participants {
		for _, c := range p.Hand {
			s.Deck(c.Kind).Cards = append(s.Deck(c.Kind).Cards, c)
		}
		p.Hand = nil
		for _, c := range []*cards.Card{p.Resto, p.NextResto} {
			if c != nil {
				s.ValueDeck.Cards = append(s.ValueDeck.Cards, c)
			}
		}
		p.Resto, p.NextResto = nil, nil
		s.ValueDeck.Cards = append(s.ValueDeck.Cards, p.PlayedValues...)
		p.PlayedValues = nil
		for axis, rec := range p.Effects {
			s.EffectDeck.Cards = append(s.EffectDeck.Cards, rec.Card)
			s.EffectDeck.Cards = append(s.EffectDeck.Cards, rec.Modifiers...)
			delete(p.Effects, axis)
		}
	}
}

// WhiteBoard removes every colored space.
func (h *TableHarness) WhiteBoard() {
	for _, path := range h.state().Board.Paths {
		for _, space := range path.Spaces {
			space.Color = board.ColorWhite
			space.Effect = ""
		}
	}
}

// Paint colors the space a participant would land on.
func (h *TableHarness) Paint(participantID string, position int, color board.Color, effect string) {
	path := h.state().Board.Path(h.participant(participantID).PathID)
	space := path.Space(position)
	require.NotNil(h.t, space)
	space.Color = color
	space.Effect = effect
	space.Used = false
}

func (h *TableHarness) takeValue(v int) *cards.Card {
	return h.take(cards.KindValue, func(c *cards.Card) bool { return c.Value == v })
}

func (h *TableHarness) takeEffect(name cards.EffectName) *cards.Card {
	return h.take(cards.KindEffect, func(c *cards.Card) bool { return c.Effect == name })
}

func (h *TableHarness) take(kind cards.Kind, match func(*cards.Card) bool) *cards.Card {
	h.t.Helper()
	deck := h.state().Deck(kind)
	for _, pile := range []*[]*cards.Card{&deck.Cards, &deck.Discard} {
		for _, c := range *pile {
			if match(c) {
				*pile, _ = cards.Remove(*pile, c.ID)
				return c
			}
		}
	}
	h.t.Fatalf("no matching %s card left in the deck", kind)
	return nil
}

// Deal gives a participant exactly the listed cards.
func (h *TableHarness) Deal(participantID string, values []int, effectNames ...cards.EffectName) {
	p := h.participant(participantID)
	for _, v := range values {
		p.Hand = append(p.Hand, h.takeValue(v))
	}
	for _, name := range effectNames {
		p.Hand = append(p.Hand, h.takeEffect(name))
	}
}

// SetResto gives a participant a resto card.
func (h *TableHarness) SetResto(participantID string, v int) {
	p := h.participant(participantID)
	if p.Resto != nil {
		h.state().ValueDeck.Cards = append(h.state().ValueDeck.Cards, p.Resto)
	}
	p.Resto = h.takeValue(v)
}

// Played puts value cards straight onto a participant's played pile.
func (h *TableHarness) Played(participantID string, values ...int) {
	p := h.participant(participantID)
	for _, v := range values {
		p.PlayedValues = append(p.PlayedValues, h.takeValue(v))
	}
}

// Record installs an active effect record on a participant.
func (h *TableHarness) Record(participantID string, name cards.EffectName, locked bool) *ActiveEffect {
	p := h.participant(participantID)
	rec := &ActiveEffect{Card: h.takeEffect(name), Name: name, CasterID: participantID, Locked: locked}
	p.Effects[cards.AxisOf(name)] = rec
	return rec
}

// Start begins the first round with the given starter.
func (h *TableHarness) Start(starter string) {
	h.state().StarterID = starter
	require.NoError(h.t, h.engine.Start())
}

func (h *TableHarness) Submit(participantID string, action rules.Action) {
	h.t.Helper()
	require.NoError(h.t, h.engine.SubmitAction(participantID, action), "%s %s", participantID, action)
}

func (h *TableHarness) Reject(participantID string, action rules.Action, want rules.Reason) {
	h.t.Helper()
	err := h.engine.SubmitAction(participantID, action)
	require.Error(h.t, err)
	reason, ok := rules.ReasonOf(err)
	require.True(h.t, ok, "expected an illegal action, got %v", err)
	require.Equal(h.t, want, reason)
}

func (h *TableHarness) handCard(participantID string, match func(*cards.Card) bool) *cards.Card {
	for _, c := range h.participant(participantID).Hand {
		if match(c) {
			return c
		}
	}
	h.t.Fatalf("%s holds no matching card", participantID)
	return nil
}

func (h *TableHarness) valueCard(participantID string, v int) string {
	return h.handCard(participantID, func(c *cards.Card) bool { return c.IsValue() && c.Value == v }).ID
}

func (h *TableHarness) effectCard(participantID string, name cards.EffectName) string {
	return h.handCard(participantID, func(c *cards.Card) bool { return c.IsEffect() && c.Effect == name }).ID
}

func (h *TableHarness) checksum() string {
	sum, err := newSnapshot(h.state()).ComputeChecksum()
	require.NoError(h.t, err)
	return sum.Hash
}

func (h *TableHarness) requireConserved(valueTotal, effectTotal int) {
	h.t.Helper()
	require.Equal(h.t, valueTotal, h.state().CardCount(cards.KindValue), "value cards")
	require.Equal(h.t, effectTotal, h.state().CardCount(cards.KindEffect), "effect cards")
}
