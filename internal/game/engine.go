package game

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reversus/reversus-server-go/internal/game/board"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// DecisionMaker produces moves for non-human participants. Implementations
// receive a copy of the state and may block until ctx is done.
type DecisionMaker interface {
	Decide(ctx context.Context, state *GameState, participantID string) rules.Action
	ChooseTarget(ctx context.Context, state *GameState, participantID string, effect effects.FieldEffect, candidates []string) string
}

// TargetRequester is notified when a human participant must pick the
// target of a field effect. The answer arrives through
// Engine.ResolveFieldEffectTarget.
type TargetRequester func(gameID string, request PendingInput)

// Option configures an Engine.
type Option func(*Engine)

// WithDecisionMaker sets the move source for non-human participants.
func WithDecisionMaker(dm DecisionMaker) Option {
	return func(e *Engine) { e.decider = dm }
}

// WithTargetRequester registers the field-effect target callback.
func WithTargetRequester(fn TargetRequester) Option {
	return func(e *Engine) { e.requestTarget = fn }
}

// WithEventBus publishes game events on an existing bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithReplayRecorder records a snapshot at the start of every round.
func WithReplayRecorder(rec *ReplayRecorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// Engine owns one GameState and runs its round state machine.
type Engine struct {
	logger *zap.Logger
	mu     sync.Mutex

	state *GameState
	rng   *rand.Rand

	bus           *rules.EventBus
	decider       DecisionMaker
	requestTarget TargetRequester
	recorder      *ReplayRecorder

	// roundStart is the immutable snapshot RestartRound restores.
	roundStart *Snapshot

	queued   []rules.Event
	requests []PendingInput
}

// NewGame validates the seating, builds decks and board, deals the
// opening hands and picks the first starter. The game waits in PhaseSetup
// until Start is called.
func NewGame(settings Settings, mode Mode, seats []Seat, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode.Kind == "" {
		mode.Kind = ModeSolo
	}
	teams, err := assignTeams(&mode, seats)
	if err != nil {
		return nil, err
	}
	settings = settings.withDefaults(mode)
	if len(seats) > settings.Paths {
		return nil, fmt.Errorf("%w: %d participants but only %d paths", ErrInvalidConfiguration, len(seats), settings.Paths)
	}
	if mode.Looping && mode.InvertedGoal {
		return nil, fmt.Errorf("%w: looping boards cannot use an inverted goal", ErrInvalidConfiguration)
	}

	seed := settings.Seed
	if seed == 0 {
		seed = newSeed()
	}
	rng := rand.New(rand.NewSource(seed))

	b, err := board.Generate(settings.layout(mode), rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	valueDeck, err := cards.NewDeck(cards.KindValue, settings.ValueDeck, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	effectDeck, err := cards.NewDeck(cards.KindEffect, settings.EffectDeck, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if need := len(seats) * (settings.ValueCap + 2); valueDeck.Size() < need {
		return nil, fmt.Errorf("%w: value deck has %d cards, need at least %d", ErrInvalidConfiguration, valueDeck.Size(), need)
	}

	order := make([]string, 0, len(seats))
	for _, seat := range seats {
		order = append(order, seat.ID)
	}

	state := &GameState{
		ID:           uuid.NewString(),
		Mode:         mode,
		Settings:     settings,
		Participants: make(map[string]*Participant, len(seats)),
		TurnManager:  rules.NewTurnManager(order),
		Phase:        rules.PhaseSetup,
		ValueDeck:    valueDeck,
		EffectDeck:   effectDeck,
		FieldEffects: effects.NewRegistry(),
		Board:        b,
		Reserved:     make(map[int]string),
		Seed:         seed,
	}

	for i, seat := range seats {
		name := seat.Name
		if name == "" {
			name = seat.ID
		}
		p := &Participant{
			ID:       seat.ID,
			Name:     name,
			Team:     teams[seat.ID],
			Human:    seat.Human,
			Persona:  seat.Persona,
			Effects:  make(map[cards.Axis]*ActiveEffect),
			Position: startPosition(mode, settings.Goal),
			PathID:   i,
		}
		if mode.Hazard {
			p.Lives = settings.Lives
		}
		if err := b.Assign(i, seat.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		state.Participants[seat.ID] = p
	}

	e := &Engine{
		logger: logger.With(zap.String("game_id", state.ID)),
		state:  state,
		rng:    rng,
		bus:    rules.NewEventBus(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, p := range state.Ordered() {
		p.Resto = e.draw(cards.KindValue)
		e.refill(p)
	}
	state.StarterID = e.openingStarter()

	e.logger.Info("game created",
		zap.String("mode", string(mode.Kind)),
		zap.Int64("seed", seed),
		zap.Strings("participants", order),
		zap.String("starter", state.StarterID),
	)
	return e, nil
}

// ID returns the game id.
func (e *Engine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ID
}

// Events returns the bus game events are published on.
func (e *Engine) Events() *rules.EventBus {
	return e.bus
}

// State returns a deep copy of the full game state.
func (e *Engine) State() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Copy()
}

// View returns the state as seen by one participant.
func (e *Engine) View(participantID string) *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ViewFor(participantID)
}

// Start begins the first round.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state.Phase != rules.PhaseSetup {
		phase := e.state.Phase
		e.mu.Unlock()
		return fmt.Errorf("game already started (phase %s)", phase)
	}
	if e.recorder != nil {
		e.recorder.Begin(e.state)
	}
	e.beginRound()
	e.unlockAndPublish()
	return nil
}

// SubmitAction applies a participant's move. A rejected move returns a
// *rules.IllegalActionError and leaves the state untouched.
func (e *Engine) SubmitAction(participantID string, action rules.Action) error {
	e.mu.Lock()
	err := e.submit(participantID, action)
	if err != nil {
		e.logger.Debug("action rejected",
			zap.String("participant", participantID),
			zap.String("action", action.String()),
			zap.Error(err),
		)
	}
	e.unlockAndPublish()
	return err
}

// ResolveFieldEffectTarget answers a pending field-effect target request
// and resumes the suspended pipeline.
func (e *Engine) ResolveFieldEffectTarget(participantID, targetID string) error {
	e.mu.Lock()
	err := e.resolvePendingTarget(participantID, targetID)
	e.unlockAndPublish()
	return err
}

// StartNextRound leaves the round summary and deals into the next round.
func (e *Engine) StartNextRound() error {
	e.mu.Lock()
	s := e.state
	if s.Phase != rules.PhaseRoundSummary {
		phase := s.Phase
		e.mu.Unlock()
		return rules.Reject(rules.ReasonWrongPhase, "", rules.Action{}, "phase "+phase.String())
	}
	for _, p := range s.Ordered() {
		if p.NextResto != nil {
			s.ValueDeck.Put(p.Resto)
			p.Resto = p.NextResto
			p.NextResto = nil
		}
	}
	e.beginRound()
	e.unlockAndPublish()
	return nil
}

// RestartRound restores the snapshot captured when the current round began.
// A finished game stays finished.
func (e *Engine) RestartRound() error {
	e.mu.Lock()
	if phase := e.state.Phase; phase == rules.PhaseSetup || phase == rules.PhaseGameOver || e.roundStart == nil {
		e.mu.Unlock()
		return rules.Reject(rules.ReasonWrongPhase, "", rules.Action{}, "phase "+phase.String())
	}
	snap := e.roundStart
	e.state = snap.State.Copy()
	e.rng = rand.New(rand.NewSource(roundSeed(e.state.Seed, e.state.Round)))
	e.logger.Info("round restarted", zap.Int("round", e.state.Round))
	e.emit(rules.NewEvent(rules.EventRoundRestarted, "", ""))
	e.unlockAndPublish()
	return nil
}

// Advance plays every pending non-human move until a human must act, the
// game ends or ctx is done. Rounds are continued automatically when the
// settings allow it.
func (e *Engine) Advance(ctx context.Context) error {
	const maxSteps = 10000
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		s := e.state
		phase := s.Phase
		auto := s.Settings.AutoContinue
		var actor string
		var pending *PendingInput
		switch phase {
		case rules.PhasePlaying:
			actor = s.Current()
		case rules.PhaseAwaitingInput:
			pending = s.Pending.Copy()
			if pending != nil {
				actor = pending.ParticipantID
			}
		}
		human := actor != "" && s.Participants[actor].Human
		view := s.Copy()
		e.mu.Unlock()

		switch {
		case phase == rules.PhaseRoundSummary && auto:
			if err := e.StartNextRound(); err != nil {
				return err
			}
		case phase == rules.PhasePlaying && actor != "" && !human:
			e.playBot(ctx, view, actor)
		case phase == rules.PhaseAwaitingInput && pending != nil && !human:
			target := e.botTarget(ctx, view, pending)
			if err := e.ResolveFieldEffectTarget(actor, target); err != nil {
				return fmt.Errorf("resolve bot target: %w", err)
			}
		default:
			return nil
		}
	}
	return fmt.Errorf("advance did not settle after %d steps", maxSteps)
}

func (e *Engine) playBot(ctx context.Context, view *GameState, participantID string) {
	if e.decider != nil {
		action := e.decider.Decide(ctx, view, participantID)
		err := e.SubmitAction(participantID, action)
		if err == nil {
			return
		}
		e.logger.Warn("decision rejected, using fallback",
			zap.String("participant", participantID),
			zap.String("action", action.String()),
			zap.Error(err),
		)
	}
	e.mu.Lock()
	fallback := e.fallbackAction(participantID)
	e.mu.Unlock()
	if err := e.SubmitAction(participantID, fallback); err != nil {
		e.logger.Error("fallback action rejected",
			zap.String("participant", participantID),
			zap.String("action", fallback.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) botTarget(ctx context.Context, view *GameState, pending *PendingInput) string {
	if e.decider != nil {
		target := e.decider.ChooseTarget(ctx, view, pending.ParticipantID, pending.Effect, pending.Candidates)
		for _, c := range pending.Candidates {
			if c == target {
				return target
			}
		}
		e.logger.Warn("decision returned an invalid target",
			zap.String("participant", pending.ParticipantID),
			zap.String("target", target),
		)
	}
	return pending.Candidates[0]
}

// fallbackAction is the simplest legal move: the lowest value card when
// one is owed, otherwise a pass.
func (e *Engine) fallbackAction(participantID string) rules.Action {
	p, ok := e.state.Participants[participantID]
	if ok && e.mustPlayValue(p) {
		if low := cards.LowestValue(p.ValueCards()); low != nil {
			return rules.PlayValue(low.ID)
		}
	}
	return rules.Pass()
}

// beginRound starts the round for the current starter and captures the
// restart snapshot. Callers hold e.mu.
func (e *Engine) beginRound() {
	s := e.state
	s.StartRound(s.StarterID)
	e.rng = rand.New(rand.NewSource(roundSeed(s.Seed, s.Round)))
	for _, p := range s.Participants {
		p.PlayedValueThisTurn = false
		p.PlayedEffectThisTurn = false
		p.PlayedBonus = false
	}
	s.GlobalInversionActive = false
	s.Pending = nil
	s.Audit = nil
	s.Phase = rules.PhasePlaying

	e.roundStart = newSnapshot(s)
	if e.recorder != nil {
		e.recorder.Capture(s.ID, e.roundStart)
	}

	e.logger.Info("round started",
		zap.Int("round", s.Round),
		zap.String("starter", s.StarterID),
	)
	ev := rules.NewEvent(rules.EventRoundStarted, s.StarterID, "")
	ev.Description = fmt.Sprintf("round %d", s.Round)
	e.emit(ev)
}

// openingStarter picks the participant with the highest resto, breaking
// ties at random.
func (e *Engine) openingStarter() string {
	s := e.state
	best := -1
	var tied []string
	for _, p := range s.Ordered() {
		v := p.RestoValue()
		switch {
		case v > best:
			best = v
			tied = []string{p.ID}
		case v == best:
			tied = append(tied, p.ID)
		}
	}
	if len(tied) == 0 {
		return ""
	}
	return tied[e.rng.Intn(len(tied))]
}

// draw takes a card from a deck, regenerating it when both the deck and
// its discard pool are empty.
func (e *Engine) draw(kind cards.Kind) *cards.Card {
	deck := e.state.Deck(kind)
	card, err := deck.Draw(e.rng)
	if errors.Is(err, cards.ErrDeckExhausted) {
		e.logger.Warn("deck exhausted, regenerating from entries",
			zap.String("kind", string(kind)),
			zap.Int("generation", deck.Generation+1),
		)
		if err = deck.Regenerate(e.rng); err == nil {
			card, err = deck.Draw(e.rng)
		}
	}
	if err != nil {
		e.logger.Error("draw failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	return card
}

// refill draws until the participant's hand reaches the caps.
func (e *Engine) refill(p *Participant) {
	caps := e.state.Settings
	for len(p.ValueCards()) < caps.ValueCap {
		c := e.draw(cards.KindValue)
		if c == nil {
			break
		}
		p.Hand = append(p.Hand, c)
	}
	for len(p.EffectCards()) < caps.EffectCap {
		c := e.draw(cards.KindEffect)
		if c == nil {
			break
		}
		p.Hand = append(p.Hand, c)
	}
}

// emit queues an event for publication once e.mu is released.
func (e *Engine) emit(ev rules.Event) {
	ev.GameID = e.state.ID
	ev.Round = e.state.Round
	e.queued = append(e.queued, ev)
}

// audit records a line of the round's audit trail.
func (e *Engine) audit(format string, args ...interface{}) string {
	line := fmt.Sprintf(format, args...)
	e.state.Audit = append(e.state.Audit, line)
	return line
}

// unlockAndPublish releases e.mu and then delivers queued events and
// target requests, so listeners may call back into the engine.
func (e *Engine) unlockAndPublish() {
	events := e.queued
	requests := e.requests
	gameID := e.state.ID
	e.queued = nil
	e.requests = nil
	e.mu.Unlock()

	for _, ev := range events {
		e.bus.Publish(ev)
	}
	if e.requestTarget != nil {
		for _, req := range requests {
			e.requestTarget(gameID, req)
		}
	}
}

// startPosition puts inverted-goal participants on the goal space so both
// directions cover the same distance.
func startPosition(mode Mode, goal int) int {
	if mode.InvertedGoal {
		return goal
	}
	return 1
}

func roundSeed(seed int64, round int) int64 {
	return seed + int64(round)*7919
}

func newSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}
