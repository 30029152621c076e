package game

import (
	"sort"

	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
)

// ActiveEffect is the played-card record on one axis of a participant.
// Reversals that flipped it are kept as Modifiers so they are discarded
// together with the record.
type ActiveEffect struct {
	Card       *cards.Card      `json:"card"`
	Name       cards.EffectName `json:"name"`
	CasterID   string           `json:"caster_id"`
	Locked     bool             `json:"locked,omitempty"`
	Modifiers  []*cards.Card    `json:"modifiers,omitempty"`
	PathChoice *int             `json:"path_choice,omitempty"`
}

// Copy returns a deep copy of the record.
func (a *ActiveEffect) Copy() *ActiveEffect {
	if a == nil {
		return nil
	}
	out := *a
	out.Card = a.Card.Copy()
	out.Modifiers = cards.CopyAll(a.Modifiers)
	if a.PathChoice != nil {
		choice := *a.PathChoice
		out.PathChoice = &choice
	}
	return &out
}

// Participant is one seat at the table.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team"`
	Human   bool   `json:"human"`
	Persona string `json:"persona,omitempty"`

	Hand         []*cards.Card                `json:"hand"`
	Resto        *cards.Card                  `json:"resto,omitempty"`
	NextResto    *cards.Card                  `json:"next_resto,omitempty"`
	PlayedValues []*cards.Card                `json:"played_values"`
	Effects      map[cards.Axis]*ActiveEffect `json:"effects"`

	Position   int  `json:"position"`
	PathID     int  `json:"path_id"`
	Eliminated bool `json:"eliminated,omitempty"`
	Lives      int  `json:"lives,omitempty"`
	Laps       int  `json:"laps,omitempty"`

	PlayedValueThisTurn  bool `json:"played_value_this_turn"`
	PlayedEffectThisTurn bool `json:"played_effect_this_turn"`
	// PlayedBonus is set once the participant casts Mais, MaisDobro or Sobe
	// during the round.
	PlayedBonus bool `json:"played_bonus,omitempty"`
	// Revealed hands are visible to every other participant.
	Revealed bool `json:"revealed,omitempty"`
}

// ValueCards returns the value cards in hand.
func (p *Participant) ValueCards() []*cards.Card {
	return cards.Filter(p.Hand, cards.KindValue)
}

// EffectCards returns the effect cards in hand.
func (p *Participant) EffectCards() []*cards.Card {
	return cards.Filter(p.Hand, cards.KindEffect)
}

// RestoValue is the face value of the carried card, zero without one.
func (p *Participant) RestoValue() int {
	if p.Resto == nil {
		return 0
	}
	return p.Resto.Value
}

// PlayedTotal sums the played value cards.
func (p *Participant) PlayedTotal() int {
	total := 0
	for _, c := range p.PlayedValues {
		total += c.Value
	}
	return total
}

// Effect returns the active record on an axis, nil if none.
func (p *Participant) Effect(axis cards.Axis) *ActiveEffect {
	return p.Effects[axis]
}

// Copy returns a deep copy of the participant.
func (p *Participant) Copy() *Participant {
	out := *p
	out.Hand = cards.CopyAll(p.Hand)
	out.Resto = p.Resto.Copy()
	out.NextResto = p.NextResto.Copy()
	out.PlayedValues = cards.CopyAll(p.PlayedValues)
	out.Effects = make(map[cards.Axis]*ActiveEffect, len(p.Effects))
	for axis, rec := range p.Effects {
		out.Effects[axis] = rec.Copy()
	}
	return &out
}

// PendingKind names what an AwaitingInput phase waits for.
type PendingKind string

const PendingFieldEffectTarget PendingKind = "FIELD_EFFECT_TARGET"

// PendingInput is the continuation of a suspended field-effect pipeline.
type PendingInput struct {
	Kind          PendingKind         `json:"kind"`
	ParticipantID string              `json:"participant_id"`
	Effect        effects.FieldEffect `json:"effect"`
	Candidates    []string            `json:"candidates"`
	// NextIndex is the turn-order slot the pipeline resumes from once the
	// target is resolved.
	NextIndex int `json:"next_index"`
}

// Copy returns a copy of the pending input.
func (p *PendingInput) Copy() *PendingInput {
	if p == nil {
		return nil
	}
	out := *p
	out.Candidates = append([]string(nil), p.Candidates...)
	return &out
}

// RoundResult summarizes a resolved round.
type RoundResult struct {
	Round       int            `json:"round"`
	Scores      map[string]int `json:"scores"`
	TeamScores  map[string]int `json:"team_scores"`
	Winners     []string       `json:"winners"`
	Moves       map[string]int `json:"moves"`
	RestoValues map[string]int `json:"resto_values"`
	Audit       []string       `json:"audit"`
}

// Copy returns a deep copy of the result.
func (r *RoundResult) Copy() *RoundResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Scores = copyIntMap(r.Scores)
	out.TeamScores = copyIntMap(r.TeamScores)
	out.Moves = copyIntMap(r.Moves)
	out.RestoValues = copyIntMap(r.RestoValues)
	out.Winners = append([]string(nil), r.Winners...)
	out.Audit = append([]string(nil), r.Audit...)
	return &out
}

// GameResult describes how a game ended.
type GameResult struct {
	WinningTeam string   `json:"winning_team"`
	Winners     []string `json:"winners"`
	Reason      string   `json:"reason"`
	Round       int      `json:"round"`
}

// GameState is the authoritative state of one game. It is owned by an
// Engine; callers only ever see copies.
type GameState struct {
	ID           string                  `json:"id"`
	Mode         Mode                    `json:"mode"`
	Settings     Settings                `json:"-"`
	Participants map[string]*Participant `json:"participants"`
	rules.TurnManager
	Phase                 rules.Phase       `json:"phase"`
	GlobalInversionActive bool              `json:"global_inversion_active"`
	ValueDeck             *cards.Deck       `json:"value_deck"`
	EffectDeck            *cards.Deck       `json:"effect_deck"`
	FieldEffects          *effects.Registry `json:"field_effects"`
	Board                 *board.Board      `json:"board"`
	// Reserved maps a path chosen by a pending Pula to its participant.
	Reserved  map[int]string `json:"reserved"`
	Pending   *PendingInput  `json:"pending,omitempty"`
	StarterID string         `json:"starter_id"`
	Audit     []string       `json:"audit"`
	LastRound *RoundResult   `json:"last_round,omitempty"`
	Result    *GameResult    `json:"result,omitempty"`
	Seed      int64          `json:"seed"`
}

// Participant returns a participant by id.
func (s *GameState) Participant(id string) (*Participant, bool) {
	p, ok := s.Participants[id]
	return p, ok
}

// Active reports whether a participant exists and is not eliminated.
func (s *GameState) Active(id string) bool {
	p, ok := s.Participants[id]
	return ok && !p.Eliminated
}

// ActiveCount counts participants still in the game.
func (s *GameState) ActiveCount() int {
	n := 0
	for _, p := range s.Participants {
		if !p.Eliminated {
			n++
		}
	}
	return n
}

// Ordered returns participants in turn order.
func (s *GameState) Ordered() []*Participant {
	out := make([]*Participant, 0, len(s.TurnOrder))
	for _, id := range s.TurnOrder {
		if p, ok := s.Participants[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Teams groups participant ids by team, each sorted by turn order.
func (s *GameState) Teams() map[string][]string {
	teams := make(map[string][]string)
	for _, id := range s.TurnOrder {
		p := s.Participants[id]
		teams[p.Team] = append(teams[p.Team], id)
	}
	return teams
}

// Teammates reports whether two participants share a side.
func (s *GameState) Teammates(a, b string) bool {
	pa, okA := s.Participants[a]
	pb, okB := s.Participants[b]
	return okA && okB && pa.Team == pb.Team
}

// Deck returns the deck for a card kind.
func (s *GameState) Deck(kind cards.Kind) *cards.Deck {
	if kind == cards.KindEffect {
		return s.EffectDeck
	}
	return s.ValueDeck
}

// CardCount counts every card of a kind wherever it is. The total never
// changes during a game.
func (s *GameState) CardCount(kind cards.Kind) int {
	deck := s.Deck(kind)
	total := len(deck.Cards) + len(deck.Discard)
	for _, p := range s.Participants {
		total += cards.Count(p.Hand, kind)
		total += cards.Count(p.PlayedValues, kind)
		for _, c := range []*cards.Card{p.Resto, p.NextResto} {
			if c != nil && c.Kind == kind {
				total++
			}
		}
		for _, rec := range p.Effects {
			if rec.Card != nil && rec.Card.Kind == kind {
				total++
			}
			total += cards.Count(rec.Modifiers, kind)
		}
	}
	return total
}

// Copy returns a deep copy of the state.
func (s *GameState) Copy() *GameState {
	out := *s
	out.Participants = make(map[string]*Participant, len(s.Participants))
	for id, p := range s.Participants {
		out.Participants[id] = p.Copy()
	}
	out.TurnManager = s.TurnManager.Copy()
	out.ValueDeck = s.ValueDeck.Copy()
	out.EffectDeck = s.EffectDeck.Copy()
	out.FieldEffects = s.FieldEffects.Copy()
	out.Board = s.Board.Copy()
	out.Reserved = make(map[int]string, len(s.Reserved))
	for path, id := range s.Reserved {
		out.Reserved[path] = id
	}
	out.Pending = s.Pending.Copy()
	out.Audit = append([]string(nil), s.Audit...)
	out.LastRound = s.LastRound.Copy()
	if s.Result != nil {
		result := *s.Result
		result.Winners = append([]string(nil), s.Result.Winners...)
		out.Result = &result
	}
	return &out
}

// ViewFor returns a copy in which hands of other participants are hidden
// unless revealed, and deck contents are reduced to their sizes.
func (s *GameState) ViewFor(viewerID string) *GameState {
	out := s.Copy()
	for id, p := range out.Participants {
		if id == viewerID || p.Revealed {
			continue
		}
		hidden := make([]*cards.Card, len(p.Hand))
		for i, c := range p.Hand {
			hidden[i] = &cards.Card{ID: "hidden", Kind: c.Kind}
		}
		p.Hand = hidden
		p.NextResto = nil
	}
	for _, deck := range []*cards.Deck{out.ValueDeck, out.EffectDeck} {
		for i, c := range deck.Cards {
			deck.Cards[i] = &cards.Card{ID: "hidden", Kind: c.Kind}
		}
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
