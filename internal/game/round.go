package game

import (
	"fmt"
	"strings"

	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// resolveRound scores the finished round, moves participants, cleans up,
// redeals and runs the field-effect pipeline. Callers hold e.mu.
func (e *Engine) resolveRound() {
	s := e.state
	s.Phase = rules.PhaseResolving

	scores := make(map[string]int)
	restos := make(map[string]int)
	for _, p := range s.Ordered() {
		if p.Eliminated {
			continue
		}
		scores[p.ID] = Score(p, s.FieldEffects, s.Round)
		restos[p.ID] = p.RestoValue()
		e.audit("%s scored %d", p.Name, scores[p.ID])
	}
	teamScores, winners := DetermineWinners(s, scores)
	if len(winners) == 0 {
		e.audit("round %d tied, nobody advances", s.Round)
	} else {
		e.audit("round %d won by %s", s.Round, strings.Join(winners, ", "))
	}

	moves := e.applyMovement(winners)
	s.LastRound = &RoundResult{
		Round:       s.Round,
		Scores:      scores,
		TeamScores:  teamScores,
		Winners:     winners,
		Moves:       moves,
		RestoValues: restos,
	}

	e.logger.Info("round resolved",
		zap.Int("round", s.Round),
		zap.Any("scores", scores),
		zap.Strings("winners", winners),
	)
	ev := rules.NewEvent(rules.EventRoundResolved, "", "")
	ev.Scores = copyIntMap(scores)
	ev.Targets = append([]string(nil), winners...)
	ev.Description = fmt.Sprintf("round %d resolved", s.Round)
	e.emit(ev)

	if e.checkGameOver(winners) {
		return
	}
	e.cleanupRound()
	e.runFieldEffects(0)
}

// cleanupRound discards played cards, sets aside each participant's
// unplayed value card as the next resto and redeals up to the caps.
func (e *Engine) cleanupRound() {
	s := e.state
	for _, p := range s.Ordered() {
		s.ValueDeck.Put(p.PlayedValues...)
		p.PlayedValues = nil
		e.retireAll(p)
		p.Revealed = false
		if p.Eliminated {
			continue
		}

		if values := p.ValueCards(); len(values) > 0 {
			keep := cards.HighestValue(values)
			p.Hand, _ = cards.Remove(p.Hand, keep.ID)
			p.NextResto = keep
			if len(values) > 1 {
				e.logger.Warn("more than one unplayed value card at round end",
					zap.String("participant", p.ID),
					zap.Int("count", len(values)),
				)
			}
		}
	}
	s.GlobalInversionActive = false
	s.Reserved = make(map[int]string)
	if n := s.FieldEffects.Expire(s.Round); n > 0 {
		e.logger.Debug("field effects expired", zap.Int("round", s.Round), zap.Int("count", n))
	}
	for _, p := range s.Ordered() {
		if !p.Eliminated {
			e.refill(p)
		}
	}
}

// finishRound closes the field-effect pipeline: checks termination again,
// picks the next starter and enters the round summary.
func (e *Engine) finishRound() {
	s := e.state
	winners := s.LastRound.Winners
	if e.checkGameOver(winners) {
		return
	}
	s.StarterID = e.nextStarter(s.LastRound)
	s.LastRound.Audit = append([]string(nil), s.Audit...)
	s.Phase = rules.PhaseRoundSummary
	e.logger.Debug("round summary", zap.Int("round", s.Round), zap.String("next_starter", s.StarterID))
}

// nextStarter returns the sole winner, or among several winners the one
// with the highest resto, with remaining ties drawn at random. Without a
// winner the previous starter keeps the lead.
func (e *Engine) nextStarter(result *RoundResult) string {
	s := e.state
	candidates := make([]string, 0, len(result.Winners))
	for _, id := range result.Winners {
		if s.Active(id) {
			candidates = append(candidates, id)
		}
	}

	switch len(candidates) {
	case 0:
		if s.Active(s.StarterID) {
			return s.StarterID
		}
		for _, id := range s.OrderFrom(s.StarterID) {
			if s.Active(id) {
				return id
			}
		}
		return s.StarterID
	case 1:
		return candidates[0]
	}

	best := -1
	var tied []string
	for _, id := range candidates {
		v := result.RestoValues[id]
		switch {
		case v > best:
			best = v
			tied = []string{id}
		case v == best:
			tied = append(tied, id)
		}
	}
	return tied[e.rng.Intn(len(tied))]
}

// checkGameOver ends the game when a participant reached its goal or only
// one side is left. Round winners decide between sides that finished
// together.
func (e *Engine) checkGameOver(winners []string) bool {
	s := e.state
	finishedTeams := make(map[string]bool)
	var firstTeam string
	for _, p := range s.Ordered() {
		if !p.Eliminated && e.finished(p) {
			if firstTeam == "" {
				firstTeam = p.Team
			}
			finishedTeams[p.Team] = true
		}
	}

	if len(finishedTeams) > 0 {
		team := firstTeam
		for _, id := range winners {
			if p := s.Participants[id]; p != nil && finishedTeams[p.Team] {
				team = p.Team
				break
			}
		}
		e.endGame(team, "goal reached")
		return true
	}

	standing := make(map[string]bool)
	for _, p := range s.Participants {
		if !p.Eliminated {
			standing[p.Team] = true
		}
	}
	switch len(standing) {
	case 0:
		e.endGame("", "everyone eliminated")
		return true
	case 1:
		for team := range standing {
			e.endGame(team, "last team standing")
		}
		return true
	}
	return false
}

func (e *Engine) endGame(team, reason string) {
	s := e.state
	members := make([]string, 0, 2)
	if team != "" {
		for _, p := range s.Ordered() {
			if p.Team == team {
				members = append(members, p.ID)
			}
		}
	}
	s.Result = &GameResult{WinningTeam: team, Winners: members, Reason: reason, Round: s.Round}
	s.Phase = rules.PhaseGameOver
	if s.LastRound != nil {
		s.LastRound.Audit = append([]string(nil), s.Audit...)
	}
	if e.recorder != nil {
		e.recorder.Finish(s.ID, newSnapshot(s), s.Result)
	}

	e.logger.Info("game over",
		zap.String("winning_team", team),
		zap.Strings("winners", members),
		zap.String("reason", reason),
		zap.Int("round", s.Round),
	)
	ev := rules.NewEvent(rules.EventGameOver, "", "")
	ev.Targets = append([]string(nil), members...)
	ev.Data = team
	ev.Description = reason
	e.emit(ev)
}
