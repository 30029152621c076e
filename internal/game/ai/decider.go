package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a remote suggestion when none is configured.
const DefaultTimeout = 2 * time.Second

var _ game.DecisionMaker = (*Decider)(nil)

// Decider produces bot moves. When a Source is configured its suggestions
// are tried first; errors, timeouts and illegal suggestions fall back to
// the heuristic.
type Decider struct {
	logger   *zap.Logger
	source   Source
	timeout  time.Duration
	personas Personas
	failures atomic.Int64
}

// DeciderOption configures a Decider.
type DeciderOption func(*Decider)

// WithSource consults src before the heuristic, waiting at most timeout.
func WithSource(src Source, timeout time.Duration) DeciderOption {
	return func(d *Decider) {
		d.source = src
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithPersonas replaces the bundled persona weights.
func WithPersonas(ps Personas) DeciderOption {
	return func(d *Decider) {
		if len(ps) > 0 {
			d.personas = ps
		}
	}
}

// NewDecider creates a decider.
func NewDecider(logger *zap.Logger, opts ...DeciderOption) *Decider {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Decider{
		logger:   logger,
		timeout:  DefaultTimeout,
		personas: BuiltinPersonas(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Failures returns how many suggestions were discarded.
func (d *Decider) Failures() int64 {
	return d.failures.Load()
}

// Decide implements game.DecisionMaker.
func (d *Decider) Decide(ctx context.Context, state *game.GameState, participantID string) rules.Action {
	p, ok := state.Participants[participantID]
	if !ok {
		return rules.Pass()
	}
	fallback := Heuristic(state, participantID, p.Team, d.personas.Lookup(p.Persona))
	if d.source == nil {
		return fallback
	}

	resp, err := d.ask(ctx, &Request{
		Kind:          RequestAction,
		GameID:        state.ID,
		ParticipantID: participantID,
		Allegiance:    p.Team,
		State:         state.ViewFor(participantID),
	})
	if err == nil && resp.Action == nil {
		err = errors.New("empty suggestion")
	}
	if err == nil {
		err = game.CheckAction(state, participantID, *resp.Action)
	}
	if err != nil {
		d.fail(participantID, string(RequestAction), err)
		return fallback
	}
	return *resp.Action
}

// ChooseTarget implements game.DecisionMaker. Troca Justa takes from the
// opponent furthest ahead, Troca Injusta gives to the one furthest behind.
func (d *Decider) ChooseTarget(ctx context.Context, state *game.GameState, participantID string, effect effects.FieldEffect, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	p, ok := state.Participants[participantID]
	if !ok {
		return candidates[0]
	}
	fallback := heuristicTarget(state, p, effect, candidates)
	if d.source == nil {
		return fallback
	}

	resp, err := d.ask(ctx, &Request{
		Kind:          RequestTarget,
		GameID:        state.ID,
		ParticipantID: participantID,
		Allegiance:    p.Team,
		Effect:        string(effect),
		Candidates:    candidates,
		State:         state.ViewFor(participantID),
	})
	if err == nil && !contains(candidates, resp.Target) {
		err = errors.New("target is not a candidate: " + resp.Target)
	}
	if err != nil {
		d.fail(participantID, string(RequestTarget), err)
		return fallback
	}
	return resp.Target
}

func (d *Decider) ask(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.source.Suggest(ctx, req)
}

func (d *Decider) fail(participantID, kind string, err error) {
	d.failures.Add(1)
	d.logger.Warn("DecisionSourceFailure",
		zap.String("participant", participantID),
		zap.String("request", kind),
		zap.Error(err),
	)
}

func heuristicTarget(state *game.GameState, p *game.Participant, effect effects.FieldEffect, candidates []string) string {
	r := &reading{state: state, allegiance: p.Team}
	ordered := make([]string, 0, len(candidates))
	for _, t := range r.targets() {
		if contains(candidates, t.ID) {
			ordered = append(ordered, t.ID)
		}
	}
	if len(ordered) == 0 {
		return candidates[0]
	}
	if effect == effects.TrocaInjusta {
		return ordered[len(ordered)-1]
	}
	return ordered[0]
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
