package game

import (
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
)

const (
	restoMaiorValue = 10
	restoMenorValue = 2
)

// EffectiveResto returns the resto value used for scoring after Resto
// Maior and Resto Menor overrides. Resto Menor wins when both apply.
func EffectiveResto(p *Participant, fx *effects.Registry, round int) int {
	v := p.RestoValue()
	if fx.Has(p.ID, effects.RestoMaior, round) {
		v = restoMaiorValue
	}
	if fx.Has(p.ID, effects.RestoMenor, round) {
		v = restoMenorValue
	}
	return v
}

// Score computes a participant's round score: played values adjusted by
// the score-axis effect and standing field effects.
func Score(p *Participant, fx *effects.Registry, round int) int {
	name := cards.EffectNone
	if rec := p.Effects[cards.AxisScore]; rec != nil {
		name = rec.Name
	}
	return ScoreWith(p, name, fx, round)
}

// ScoreWith computes the score p would have with name on its score axis.
// Mais and Menos add or subtract the resto; the battle pair multiplies or
// divides the played total by it. A missing resto leaves the battle pair
// without effect. Super Exposto doubles whichever penalty applies.
func ScoreWith(p *Participant, name cards.EffectName, fx *effects.Registry, round int) int {
	total := p.PlayedTotal()
	if cards.AxisOf(name) != cards.AxisScore {
		return total
	}
	resto := EffectiveResto(p, fx, round)
	penalty := 1
	if fx.Has(p.ID, effects.SuperExposto, round) {
		penalty = 2
	}
	switch name {
	case cards.EffectMais:
		total += resto
	case cards.EffectMenos:
		total -= resto * penalty
	case cards.EffectMaisDobro:
		if resto > 0 {
			total *= resto
		}
	case cards.EffectMenosDobro:
		if resto > 0 {
			total /= resto * penalty
		}
	}
	return total
}

// DetermineWinners sums scores per team and returns the team sums and the
// members of the single best team, in turn order. A tie for the best sum
// yields no winners.
func DetermineWinners(s *GameState, scores map[string]int) (map[string]int, []string) {
	teamScores := make(map[string]int)
	for _, p := range s.Ordered() {
		if p.Eliminated {
			continue
		}
		teamScores[p.Team] += scores[p.ID]
	}

	bestTeam := ""
	best := 0
	tied := false
	for _, team := range sortedKeys(teamScores) {
		score := teamScores[team]
		switch {
		case bestTeam == "" || score > best:
			bestTeam, best, tied = team, score, false
		case score == best:
			tied = true
		}
	}
	if bestTeam == "" || tied {
		return teamScores, nil
	}

	winners := make([]string, 0, 2)
	for _, p := range s.Ordered() {
		if !p.Eliminated && p.Team == bestTeam {
			winners = append(winners, p.ID)
		}
	}
	return teamScores, winners
}
