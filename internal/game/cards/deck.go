package cards

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// ErrDeckExhausted is returned by Draw when both the deck and its discard
// pool are empty.
var ErrDeckExhausted = errors.New("deck exhausted")

// Entry describes how many copies of a card the deck holds.
type Entry struct {
	Value  int        `mapstructure:"value" json:"value,omitempty"`
	Effect EffectName `mapstructure:"-" json:"effect,omitempty"`
	Name   string     `mapstructure:"effect" json:"-"`
	Count  int        `mapstructure:"count" json:"count"`
}

// DefaultValueEntries is the standard value deck: four copies of 2 through 10.
func DefaultValueEntries() []Entry {
	entries := make([]Entry, 0, 9)
	for v := 2; v <= 10; v++ {
		entries = append(entries, Entry{Value: v, Count: 4})
	}
	return entries
}

// DefaultEffectEntries is the standard effect deck.
func DefaultEffectEntries() []Entry {
	return []Entry{
		{Effect: EffectMais, Count: 4},
		{Effect: EffectMenos, Count: 4},
		{Effect: EffectSobe, Count: 4},
		{Effect: EffectDesce, Count: 4},
		{Effect: EffectPula, Count: 4},
		{Effect: EffectReversus, Count: 4},
		{Effect: EffectReversusTotal, Count: 1},
	}
}

// BattleEffectEntries extends the standard effect deck with the doubled
// scoring pair.
func BattleEffectEntries() []Entry {
	return append(DefaultEffectEntries(),
		Entry{Effect: EffectMaisDobro, Count: 2},
		Entry{Effect: EffectMenosDobro, Count: 2},
	)
}

// Resolve fills Effect from Name for entries decoded from configuration.
func (e Entry) Resolve() (Entry, error) {
	if e.Effect == EffectNone && strings.TrimSpace(e.Name) != "" {
		name, err := ParseEffectName(e.Name)
		if err != nil {
			return e, err
		}
		e.Effect = name
	}
	return e, nil
}

// BuildDeck expands entries into concrete cards with unique IDs.
// No ordering is guaranteed before Shuffle.
func BuildDeck(entries []Entry, kind Kind) ([]*Card, error) {
	out := make([]*Card, 0)
	seen := make(map[string]int)
	for _, raw := range entries {
		entry, err := raw.Resolve()
		if err != nil {
			return nil, err
		}
		if entry.Count <= 0 {
			return nil, fmt.Errorf("invalid count %d for deck entry", entry.Count)
		}
		for i := 0; i < entry.Count; i++ {
			var card *Card
			switch kind {
			case KindValue:
				if entry.Value <= 0 {
					return nil, fmt.Errorf("value deck entry requires a positive value")
				}
				key := fmt.Sprintf("v-%d", entry.Value)
				seen[key]++
				card = &Card{ID: fmt.Sprintf("%s-%d", key, seen[key]), Kind: KindValue, Value: entry.Value}
			case KindEffect:
				if entry.Effect == EffectNone {
					return nil, fmt.Errorf("effect deck entry requires an effect name")
				}
				key := "e-" + strings.ToLower(entry.Effect.String())
				seen[key]++
				card = &Card{ID: fmt.Sprintf("%s-%d", key, seen[key]), Kind: KindEffect, Effect: entry.Effect}
			default:
				return nil, fmt.Errorf("unknown deck kind %q", kind)
			}
			out = append(out, card)
		}
	}
	return out, nil
}

// Shuffle performs an in-place Fisher-Yates shuffle.
func Shuffle(list []*Card, rng *rand.Rand) {
	for i := len(list) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		list[i], list[j] = list[j], list[i]
	}
}

// Deck is a draw pile with its discard pool.
type Deck struct {
	Kind    Kind    `json:"kind"`
	Cards   []*Card `json:"cards"`
	Discard []*Card `json:"discard"`
	Entries []Entry `json:"entries"`
	// Generation counts regenerations so rebuilt cards keep unique IDs.
	Generation int `json:"generation"`
}

// NewDeck builds and shuffles a deck from entries.
func NewDeck(kind Kind, entries []Entry, rng *rand.Rand) (*Deck, error) {
	built, err := BuildDeck(entries, kind)
	if err != nil {
		return nil, fmt.Errorf("build %s deck: %w", strings.ToLower(string(kind)), err)
	}
	Shuffle(built, rng)
	return &Deck{
		Kind:    kind,
		Cards:   built,
		Discard: make([]*Card, 0, len(built)),
		Entries: append([]Entry(nil), entries...),
	}, nil
}

// Draw pops the top card. An empty deck is refilled from the shuffled
// discard pool first.
func (d *Deck) Draw(rng *rand.Rand) (*Card, error) {
	if len(d.Cards) == 0 {
		if len(d.Discard) == 0 {
			return nil, ErrDeckExhausted
		}
		d.Cards = d.Discard
		d.Discard = make([]*Card, 0, len(d.Cards))
		Shuffle(d.Cards, rng)
	}
	idx := len(d.Cards) - 1
	card := d.Cards[idx]
	d.Cards = d.Cards[:idx]
	return card, nil
}

// Regenerate rebuilds the draw pile from the original entries. Only used
// when Draw reports ErrDeckExhausted.
func (d *Deck) Regenerate(rng *rand.Rand) error {
	built, err := BuildDeck(d.Entries, d.Kind)
	if err != nil {
		return err
	}
	d.Generation++
	for _, c := range built {
		c.ID = fmt.Sprintf("g%d-%s", d.Generation, c.ID)
	}
	Shuffle(built, rng)
	d.Cards = built
	return nil
}

// Put moves cards onto the discard pool. Nil cards are ignored.
func (d *Deck) Put(list ...*Card) {
	for _, c := range list {
		if c != nil {
			d.Discard = append(d.Discard, c)
		}
	}
}

// Size returns cards in the draw pile and discard pool.
func (d *Deck) Size() int {
	return len(d.Cards) + len(d.Discard)
}

// Copy returns a deep copy of the deck.
func (d *Deck) Copy() *Deck {
	if d == nil {
		return nil
	}
	return &Deck{
		Kind:       d.Kind,
		Cards:      CopyAll(d.Cards),
		Discard:    CopyAll(d.Discard),
		Entries:    append([]Entry(nil), d.Entries...),
		Generation: d.Generation,
	}
}
