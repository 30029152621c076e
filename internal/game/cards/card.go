// Package cards models value and effect cards and the decks they are drawn from.
package cards

import (
	"fmt"
	"strings"
)

// Kind separates the two decks.
type Kind string

const (
	KindValue  Kind = "VALUE"
	KindEffect Kind = "EFFECT"
)

// Card is a single physical card. Cards are never destroyed, only moved
// between deck, hand, played records and discard.
type Card struct {
	ID     string     `json:"id"`
	Kind   Kind       `json:"kind"`
	Value  int        `json:"value,omitempty"`
	Effect EffectName `json:"effect,omitempty"`
}

// IsValue reports whether the card is a value card.
func (c *Card) IsValue() bool {
	return c != nil && c.Kind == KindValue
}

// IsEffect reports whether the card is an effect card.
func (c *Card) IsEffect() bool {
	return c != nil && c.Kind == KindEffect
}

func (c *Card) String() string {
	if c == nil {
		return "<nil>"
	}
	if c.Kind == KindValue {
		return fmt.Sprintf("%d", c.Value)
	}
	return c.Effect.String()
}

// Copy returns a copy of the card.
func (c *Card) Copy() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// CopyAll copies a slice of cards.
func CopyAll(list []*Card) []*Card {
	if list == nil {
		return nil
	}
	out := make([]*Card, len(list))
	for i, c := range list {
		out[i] = c.Copy()
	}
	return out
}

// IndexOf returns the index of the card with the given ID, or -1.
func IndexOf(list []*Card, id string) int {
	id = strings.TrimSpace(id)
	for i, c := range list {
		if c != nil && c.ID == id {
			return i
		}
	}
	return -1
}

// Remove removes the card with the given ID from the list.
func Remove(list []*Card, id string) ([]*Card, *Card) {
	idx := IndexOf(list, id)
	if idx < 0 {
		return list, nil
	}
	card := list[idx]
	return append(list[:idx], list[idx+1:]...), card
}

// Count returns how many cards of a kind the list holds.
func Count(list []*Card, kind Kind) int {
	n := 0
	for _, c := range list {
		if c != nil && c.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the cards of a kind, preserving order.
func Filter(list []*Card, kind Kind) []*Card {
	out := make([]*Card, 0, len(list))
	for _, c := range list {
		if c != nil && c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// LowestValue returns the lowest value card in the list, or nil.
func LowestValue(list []*Card) *Card {
	var best *Card
	for _, c := range list {
		if c.IsValue() && (best == nil || c.Value < best.Value) {
			best = c
		}
	}
	return best
}

// HighestValue returns the highest value card in the list, or nil.
func HighestValue(list []*Card) *Card {
	var best *Card
	for _, c := range list {
		if c.IsValue() && (best == nil || c.Value > best.Value) {
			best = c
		}
	}
	return best
}
