package ai

import (
	"fmt"
	"testing"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seats(ids ...string) []game.Seat {
	out := make([]game.Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, game.Seat{ID: id, Name: id})
	}
	return out
}

// table returns the state of a started game with every hand and record
// cleared and every resto set to 5.
func table(t *testing.T, mode game.Mode, ids ...string) *game.GameState {
	t.Helper()
	settings := game.DefaultSettings()
	settings.Seed = 42
	e, err := game.NewGame(settings, mode, seats(ids...), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	s := e.State()
	for _, p := range s.Participants {
		p.Hand = nil
		p.Effects = make(map[cards.Axis]*game.ActiveEffect)
		p.Resto = valueCard(p.ID+"-resto", 5)
	}
	for _, path := range s.Board.Paths {
		for _, space := range path.Spaces {
			space.Color = board.ColorWhite
		}
	}
	return s
}

func valueCard(id string, v int) *cards.Card {
	return &cards.Card{ID: id, Kind: cards.KindValue, Value: v}
}

func effectCard(id string, name cards.EffectName) *cards.Card {
	return &cards.Card{ID: id, Kind: cards.KindEffect, Effect: name}
}

// turnTo makes pid the current participant with its value play done.
func turnTo(s *game.GameState, pid string) *game.Participant {
	s.CurrentIndex = s.IndexOf(pid)
	p := s.Participants[pid]
	p.Hand = append(p.Hand, valueCard(pid+"-spare", 4))
	p.PlayedValueThisTurn = true
	return p
}

func record(s *game.GameState, pid string, name cards.EffectName) *game.ActiveEffect {
	rec := &game.ActiveEffect{Card: effectCard(pid+"-rec", name), Name: name, CasterID: pid}
	s.Participants[pid].Effects[cards.AxisOf(name)] = rec
	return rec
}

func TestHeuristicMandatoryValue(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	s.CurrentIndex = s.IndexOf("p1")
	p1 := s.Participants["p1"]
	p1.Hand = []*cards.Card{valueCard("low", 3), valueCard("high", 9), effectCard("mais", cards.EffectMais)}

	assert.Equal(t, rules.PlayValue("high"), Heuristic(s, "p1", "", DefaultPersona()), "behind plays high")

	p1.Position = 5
	assert.Equal(t, rules.PlayValue("low"), Heuristic(s, "p1", "", DefaultPersona()), "leading plays low")
	require.NoError(t, game.CheckAction(s, "p1", rules.PlayValue("low")))
}

func TestHeuristicBuffsLaggingTeammate(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeDuo}, "p1", "p2", "p3", "p4")
	p1 := turnTo(s, "p1")
	p1.Position = 3
	p1.Hand = append(p1.Hand, effectCard("mais", cards.EffectMais))

	action := Heuristic(s, "p1", "", DefaultPersona())
	assert.Equal(t, rules.PlayEffect("mais", "p3"), action)
	require.NoError(t, game.CheckAction(s, "p1", action))
}

func TestHeuristicDebuffsLeader(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2", "p3")
	p1 := turnTo(s, "p1")
	p1.Hand = append(p1.Hand, effectCard("menos", cards.EffectMenos))
	s.Participants["p2"].Position = 6
	s.Participants["p3"].Position = 2

	assert.Equal(t, rules.PlayEffect("menos", "p2"), Heuristic(s, "p1", "", DefaultPersona()))

	s.FieldEffects.Add(effects.Imunidade, "p2", s.Round)
	assert.Equal(t, rules.PlayEffect("menos", "p3"), Heuristic(s, "p1", "", DefaultPersona()))
}

func TestHeuristicUnderGlobalInversion(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	p1 := turnTo(s, "p1")
	p1.Hand = append(p1.Hand, effectCard("mais", cards.EffectMais))
	s.GlobalInversionActive = true

	assert.Equal(t, rules.PlayEffect("mais", "p2"), Heuristic(s, "p1", "", DefaultPersona()))
}

func TestHeuristicCountersTeammatePenalty(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeDuo}, "p1", "p2", "p3", "p4")
	p1 := turnTo(s, "p1")
	p1.Hand = append(p1.Hand, effectCard("rev", cards.EffectReversus))
	record(s, "p3", cards.EffectMenos)

	action := Heuristic(s, "p1", "", DefaultPersona())
	assert.Equal(t, rules.PlayReversal("rev", "p3", cards.AxisScore), action)
	require.NoError(t, game.CheckAction(s, "p1", action))
}

func TestHeuristicGlobalReversusTotal(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	p1 := turnTo(s, "p1")
	p1.Hand = append(p1.Hand, effectCard("rt", cards.EffectReversusTotal))
	record(s, "p1", cards.EffectMenos)
	record(s, "p2", cards.EffectMais)

	action := Heuristic(s, "p1", "", DefaultPersona())
	assert.Equal(t, rules.ActionPlayEffect, action.Kind)
	assert.Equal(t, "rt", action.CardID)
	assert.Empty(t, action.TargetID)
	assert.Equal(t, cards.AxisNone, action.Axis)
	require.NoError(t, game.CheckAction(s, "p1", action))

	cautious := DefaultPersona()
	cautious.TotalThreshold = 100
	action = Heuristic(s, "p1", "", cautious)
	assert.Equal(t, cards.AxisScore, action.Axis, "falls back to a targeted reversal")
	assert.NotEmpty(t, action.TargetID)
}

func TestHeuristicPulaTowardsRed(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	p1 := turnTo(s, "p1")
	p1.Hand = append(p1.Hand, effectCard("pula", cards.EffectPula))
	p2 := s.Participants["p2"]

	var dest *board.Path
	for _, path := range s.Board.Paths {
		if path.OccupantID == "" {
			dest = path
		}
	}
	require.NotNil(t, dest)
	dest.Space(4).Color = board.ColorRed
	dest.Space(6).Color = board.ColorRed

	action := Heuristic(s, "p1", "", DefaultPersona())
	require.NotNil(t, action.PathChoice)
	assert.Equal(t, "p2", action.TargetID)
	assert.Equal(t, dest.ID, *action.PathChoice)
	assert.NotEqual(t, p2.PathID, *action.PathChoice)
	require.NoError(t, game.CheckAction(s, "p1", action))
}

func TestHeuristicPasses(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	p1 := turnTo(s, "p1")
	assert.Equal(t, rules.Pass(), Heuristic(s, "p1", "", DefaultPersona()), "nothing to play")

	p1.Hand = append(p1.Hand, effectCard("mais", cards.EffectMais))
	p1.PlayedEffectThisTurn = true
	assert.Equal(t, rules.Pass(), Heuristic(s, "p1", "", DefaultPersona()), "effect already played")

	p1.PlayedEffectThisTurn = false
	record(s, "p1", cards.EffectMais)
	assert.Equal(t, rules.Pass(), Heuristic(s, "p1", "", DefaultPersona()), "no gain over the current record")

	assert.Equal(t, rules.Pass(), Heuristic(s, "ghost", "", DefaultPersona()))
}

func TestHeuristicAlwaysLegal(t *testing.T) {
	modes := []game.Mode{
		{Kind: game.ModeSolo},
		{Kind: game.ModeDuo},
		{Kind: game.ModeSolo, InvertedGoal: true},
		{Kind: game.ModeSolo, Looping: true},
	}
	for _, mode := range modes {
		for seed := int64(1); seed <= 20; seed++ {
			t.Run(fmt.Sprintf("%s/%d", mode.Kind, seed), func(t *testing.T) {
				settings := game.DefaultSettings()
				settings.Seed = seed
				e, err := game.NewGame(settings, mode, seats("a", "b", "c", "d"), zaptest.NewLogger(t))
				require.NoError(t, err)
				require.NoError(t, e.Start())

				for step := 0; step < 40; step++ {
					s := e.State()
					if s.Phase != rules.PhasePlaying {
						return
					}
					pid := s.Current()
					for _, persona := range BuiltinPersonas() {
						action := Heuristic(s, pid, "", persona)
						require.NoError(t, game.CheckAction(s, pid, action), "%s %s", persona.Name, action)
					}
					require.NoError(t, e.SubmitAction(pid, Heuristic(s, pid, "", DefaultPersona())))
				}
			})
		}
	}
}
