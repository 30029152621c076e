package game

import (
	"testing"

	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
)

func scoringParticipant(effect cards.EffectName, resto int, played ...int) *Participant {
	p := &Participant{ID: "p", Effects: make(map[cards.Axis]*ActiveEffect)}
	for _, v := range played {
		p.PlayedValues = append(p.PlayedValues, &cards.Card{Kind: cards.KindValue, Value: v})
	}
	if resto > 0 {
		p.Resto = &cards.Card{Kind: cards.KindValue, Value: resto}
	}
	if effect != cards.EffectNone {
		p.Effects[cards.AxisOf(effect)] = &ActiveEffect{Name: effect}
	}
	return p
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		effect cards.EffectName
		field  []effects.FieldEffect
		want   int
	}{
		{"plain", cards.EffectNone, nil, 10},
		{"mais", cards.EffectMais, nil, 20},
		{"menos", cards.EffectMenos, nil, 0},
		{"mais dobro", cards.EffectMaisDobro, nil, 100},
		{"menos dobro", cards.EffectMenosDobro, nil, 1},
		{"mais dobro resto menor", cards.EffectMaisDobro, []effects.FieldEffect{effects.RestoMenor}, 20},
		{"menos dobro resto menor", cards.EffectMenosDobro, []effects.FieldEffect{effects.RestoMenor}, 5},
		{"resto maior", cards.EffectMais, []effects.FieldEffect{effects.RestoMaior}, 20},
		{"resto menor", cards.EffectMais, []effects.FieldEffect{effects.RestoMenor}, 12},
		{"resto menor wins", cards.EffectMais, []effects.FieldEffect{effects.RestoMaior, effects.RestoMenor}, 12},
		{"super exposto", cards.EffectMenos, []effects.FieldEffect{effects.SuperExposto}, -10},
		{"super exposto dobro", cards.EffectMenosDobro, []effects.FieldEffect{effects.SuperExposto}, 0},
		{"super exposto spares bonus", cards.EffectMais, []effects.FieldEffect{effects.SuperExposto}, 20},
		{"resto ignored without score effect", cards.EffectNone, []effects.FieldEffect{effects.RestoMaior}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := effects.NewRegistry()
			for _, f := range tt.field {
				fx.Add(f, "p", 1)
			}
			p := scoringParticipant(tt.effect, 10, 4, 6)
			assert.Equal(t, tt.want, Score(p, fx, 1))
		})
	}
}

func TestBattlePairWithoutResto(t *testing.T) {
	fx := effects.NewRegistry()
	assert.Equal(t, 9, Score(scoringParticipant(cards.EffectMaisDobro, 0, 4, 5), fx, 1))
	assert.Equal(t, 9, Score(scoringParticipant(cards.EffectMenosDobro, 0, 4, 5), fx, 1))
	assert.Equal(t, 3, Score(scoringParticipant(cards.EffectMenosDobro, 3, 4, 5), fx, 1), "integer division")
}

func TestScoreWithIgnoresMovementNames(t *testing.T) {
	p := scoringParticipant(cards.EffectMais, 10, 4, 6)
	assert.Equal(t, 10, ScoreWith(p, cards.EffectSobe, effects.NewRegistry(), 1))
}

func TestScoreIgnoresOtherRounds(t *testing.T) {
	fx := effects.NewRegistry()
	fx.Add(effects.RestoMaior, "p", 2)
	p := scoringParticipant(cards.EffectMais, 3, 4)
	assert.Equal(t, 7, Score(p, fx, 1))
	assert.Equal(t, 14, Score(p, fx, 2))
}

func TestDetermineWinners(t *testing.T) {
	state := &GameState{
		Participants: map[string]*Participant{
			"a": {ID: "a", Team: "red"},
			"b": {ID: "b", Team: "blue"},
			"c": {ID: "c", Team: "red"},
			"d": {ID: "d", Team: "blue"},
		},
		TurnManager: rules.NewTurnManager([]string{"a", "b", "c", "d"}),
	}

	teams, winners := DetermineWinners(state, map[string]int{"a": 5, "b": 9, "c": 6, "d": 1})
	assert.Equal(t, map[string]int{"red": 11, "blue": 10}, teams)
	assert.Equal(t, []string{"a", "c"}, winners)

	_, winners = DetermineWinners(state, map[string]int{"a": 5, "b": 5, "c": 5, "d": 5})
	assert.Empty(t, winners)

	state.Participants["c"].Eliminated = true
	teams, winners = DetermineWinners(state, map[string]int{"a": 5, "b": 3, "c": 20, "d": 3})
	assert.Equal(t, 5, teams["red"], "eliminated scores do not count")
	assert.Equal(t, []string{"b", "d"}, winners)
}

func TestDetermineWinnersSolo(t *testing.T) {
	state := &GameState{
		Participants: map[string]*Participant{
			"a": {ID: "a", Team: "a"},
			"b": {ID: "b", Team: "b"},
			"c": {ID: "c", Team: "c"},
		},
		TurnManager: rules.NewTurnManager([]string{"a", "b", "c"}),
	}
	_, winners := DetermineWinners(state, map[string]int{"a": 12, "b": 12, "c": 3})
	assert.Empty(t, winners)
	_, winners = DetermineWinners(state, map[string]int{"a": 12, "b": 11, "c": 3})
	assert.Equal(t, []string{"a"}, winners)
}

func TestMovementDelta(t *testing.T) {
	tests := []struct {
		name     string
		won      bool
		bonus    bool
		movement cards.EffectName
		field    []effects.FieldEffect
		want     int
	}{
		{"winner", true, false, cards.EffectNone, nil, 1},
		{"loser", false, false, cards.EffectNone, nil, 0},
		{"parada", true, false, cards.EffectNone, []effects.FieldEffect{effects.Parada}, 0},
		{"desafio clean", true, false, cards.EffectNone, []effects.FieldEffect{effects.Desafio}, 3},
		{"desafio with bonus", true, true, cards.EffectNone, []effects.FieldEffect{effects.Desafio}, 1},
		{"parada beats desafio", true, false, cards.EffectNone, []effects.FieldEffect{effects.Parada, effects.Desafio}, 0},
		{"impulso", false, false, cards.EffectNone, []effects.FieldEffect{effects.Impulso}, 1},
		{"castigo", false, false, cards.EffectNone, []effects.FieldEffect{effects.Castigo}, -3},
		{"castigo spares winner", true, false, cards.EffectNone, []effects.FieldEffect{effects.Castigo}, 1},
		{"sobe", false, false, cards.EffectSobe, nil, 1},
		{"winner with sobe", true, false, cards.EffectSobe, nil, 2},
		{"desce", true, false, cards.EffectDesce, nil, 0},
		{"desce exposed", false, false, cards.EffectDesce, []effects.FieldEffect{effects.SuperExposto}, -2},
		{"pula adds nothing", true, false, cards.EffectPula, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := effects.NewRegistry()
			for _, f := range tt.field {
				fx.Add(f, "p", 1)
			}
			p := scoringParticipant(tt.movement, 0)
			p.PlayedBonus = tt.bonus
			assert.Equal(t, tt.want, MovementDelta(p, tt.won, fx, 1))
		})
	}
}

func TestMoveByModes(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2"), nil)
	p := h.participant("p1")

	p.Position = 9
	h.engine.moveBy(p, 3)
	assert.Equal(t, 10, p.Position)
	assert.True(t, h.engine.finished(p))

	p.Position = 2
	h.engine.moveBy(p, -3)
	assert.Equal(t, 1, p.Position)

	h.state().Mode.InvertedGoal = true
	p.Position = 3
	h.engine.moveBy(p, 1)
	assert.Equal(t, 2, p.Position)
	h.engine.moveBy(p, 5)
	assert.Equal(t, 1, p.Position)
	assert.True(t, h.engine.finished(p))
	h.engine.moveBy(p, -20)
	assert.Equal(t, h.state().Settings.Goal, p.Position)

	h.state().Mode.InvertedGoal = false
	h.state().Mode.Looping = true
	p.Position = 9
	h.engine.moveBy(p, 2)
	assert.Equal(t, 2, p.Position)
	assert.Equal(t, 1, p.Laps)
	assert.False(t, h.engine.finished(p))
	p.Position = 8
	h.engine.moveBy(p, 2)
	assert.Equal(t, 1, p.Position)
	assert.Equal(t, 2, p.Laps)
	assert.True(t, h.engine.finished(p))
}
