package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

var (
	// ErrTableNotFound is returned for unknown table ids.
	ErrTableNotFound = errors.New("table not found")
	// ErrSpectator is returned when a connection without a seat tries to act.
	ErrSpectator = errors.New("spectators cannot act")
	// ErrUnknownMessage is returned for inbound messages of an unknown type.
	ErrUnknownMessage = errors.New("unknown message type")
)

// ResultSink receives every engine the manager creates so it can persist
// the outcome.
type ResultSink interface {
	Attach(e *game.Engine) int
}

// CreateTableRequest seats a new game.
type CreateTableRequest struct {
	Mode  game.Mode   `json:"mode"`
	Seats []game.Seat `json:"seats"`
	// Seed overrides the configured seed when non-zero.
	Seed int64 `json:"seed,omitempty"`
}

// TableSummary describes a table for listings.
type TableSummary struct {
	ID           string        `json:"id"`
	GameID       string        `json:"game_id"`
	Mode         game.ModeKind `json:"mode"`
	Phase        string        `json:"phase"`
	Round        int           `json:"round"`
	Participants []string      `json:"participants"`
	Humans       []string      `json:"humans"`
	Connections  int           `json:"connections"`
	CreateTime   time.Time     `json:"create_time"`
}

// Table is one running game and the sockets attached to it.
type Table struct {
	ID         string
	Engine     *game.Engine
	CreateTime time.Time

	logger *zap.Logger

	// advanceMu serializes bot turns started by different connections.
	advanceMu sync.Mutex

	mu      sync.RWMutex
	clients map[*client]bool
}

// Summary returns a listing entry for the table.
func (t *Table) Summary() TableSummary {
	s := t.Engine.State()
	sum := TableSummary{
		ID:         t.ID,
		GameID:     s.ID,
		Mode:       s.Mode.Kind,
		Phase:      s.Phase.String(),
		Round:      s.Round,
		CreateTime: t.CreateTime,
	}
	for _, p := range s.Ordered() {
		sum.Participants = append(sum.Participants, p.ID)
		if p.Human {
			sum.Humans = append(sum.Humans, p.ID)
		}
	}
	t.mu.RLock()
	sum.Connections = len(t.clients)
	t.mu.RUnlock()
	return sum
}

// Seated reports whether participantID plays at this table.
func (t *Table) Seated(participantID string) bool {
	_, ok := t.Engine.State().Participant(participantID)
	return ok
}

// Handle applies an inbound message from participantID, then lets bots
// play until a human has to act again.
func (t *Table) Handle(ctx context.Context, participantID string, msg Inbound) error {
	if msg.Type != MessageState && participantID == "" {
		return ErrSpectator
	}

	var err error
	switch msg.Type {
	case MessageState:
	case MessagePlayValue:
		err = t.Engine.SubmitAction(participantID, rules.PlayValue(msg.CardID))
	case MessagePlayEffect:
		err = t.Engine.SubmitAction(participantID, msg.effectAction())
	case MessagePass:
		err = t.Engine.SubmitAction(participantID, rules.Pass())
	case MessageTarget:
		err = t.Engine.ResolveFieldEffectTarget(participantID, msg.TargetID)
	case MessageNextRound:
		err = t.Engine.StartNextRound()
	case MessageRestartRound:
		err = t.Engine.RestartRound()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		return err
	}
	return t.Advance(ctx)
}

// Advance runs bot turns and pushes fresh views to every connection.
func (t *Table) Advance(ctx context.Context) error {
	t.advanceMu.Lock()
	err := t.Engine.Advance(ctx)
	t.advanceMu.Unlock()
	t.pushViews()
	return err
}

func (t *Table) addClient(c *client) {
	t.mu.Lock()
	t.clients[c] = true
	t.mu.Unlock()
}

func (t *Table) removeClient(c *client) {
	t.mu.Lock()
	if _, ok := t.clients[c]; ok {
		delete(t.clients, c)
		c.close()
	}
	t.mu.Unlock()
}

func (t *Table) snapshotClients() []*client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*client, 0, len(t.clients))
	for c := range t.clients {
		out = append(out, c)
	}
	return out
}

func (t *Table) broadcast(msg Outbound) {
	msg.TableID = t.ID
	for _, c := range t.snapshotClients() {
		if !c.enqueue(msg) {
			t.logger.Warn("dropping slow connection", zap.String("participant", c.participantID))
			t.removeClient(c)
		}
	}
}

func (t *Table) sendTo(participantID string, msg Outbound) {
	msg.TableID = t.ID
	for _, c := range t.snapshotClients() {
		if c.participantID == participantID && !c.enqueue(msg) {
			t.removeClient(c)
		}
	}
}

func (t *Table) pushViews() {
	for _, c := range t.snapshotClients() {
		t.pushView(c)
	}
}

func (t *Table) pushView(c *client) {
	msg := Outbound{Type: OutboundState, TableID: t.ID, State: t.Engine.View(c.participantID)}
	if !c.enqueue(msg) {
		t.removeClient(c)
	}
}

func (t *Table) closeClients() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.clients {
		c.close()
		delete(t.clients, c)
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDecider sets the decision maker bots use on every table.
func WithDecider(dm game.DecisionMaker) ManagerOption {
	return func(m *Manager) { m.decider = dm }
}

// WithReplayRecorder records every table's rounds.
func WithReplayRecorder(rec *game.ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = rec }
}

// WithResultSink persists finished games.
func WithResultSink(sink ResultSink) ManagerOption {
	return func(m *Manager) { m.results = sink }
}

// Manager owns every table.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table

	defaults    game.Settings
	defaultMode game.ModeKind
	decider     game.DecisionMaker
	recorder    *game.ReplayRecorder
	results     ResultSink
	logger      *zap.Logger
}

// NewManager creates a manager whose tables start from defaults.
func NewManager(defaults game.Settings, defaultMode game.ModeKind, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMode == "" {
		defaultMode = game.ModeSolo
	}
	m := &Manager{
		tables:      make(map[string]*Table),
		defaults:    defaults,
		defaultMode: defaultMode,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTable builds and starts a game, then plays any opening bot turns.
func (m *Manager) CreateTable(ctx context.Context, req CreateTableRequest) (*Table, error) {
	settings := m.defaults
	if req.Seed != 0 {
		settings.Seed = req.Seed
	}
	mode := req.Mode
	if mode.Kind == "" {
		mode.Kind = m.defaultMode
	}

	t := &Table{
		ID:         uuid.New().String(),
		CreateTime: time.Now(),
		clients:    make(map[*client]bool),
	}
	t.logger = m.logger.With(zap.String("table_id", t.ID))

	opts := []game.Option{
		game.WithTargetRequester(func(_ string, req game.PendingInput) {
			t.sendTo(req.ParticipantID, Outbound{Type: OutboundTargetRequest, Pending: &req})
		}),
	}
	if m.decider != nil {
		opts = append(opts, game.WithDecisionMaker(m.decider))
	}
	if m.recorder != nil {
		opts = append(opts, game.WithReplayRecorder(m.recorder))
	}

	engine, err := game.NewGame(settings, mode, req.Seats, t.logger, opts...)
	if err != nil {
		return nil, err
	}
	t.Engine = engine
	engine.Events().Subscribe(func(ev rules.Event) {
		t.broadcast(Outbound{Type: OutboundEvent, Event: &ev})
	})
	if m.results != nil {
		m.results.Attach(engine)
	}
	if m.recorder != nil {
		engine.Events().SubscribeTyped(rules.EventGameOver, func(ev rules.Event) {
			if err := m.recorder.SaveReplay(ev.GameID); err != nil {
				t.logger.Warn("failed to save replay", zap.String("game_id", ev.GameID), zap.Error(err))
			}
		})
	}

	if err := engine.Start(); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}

	m.mu.Lock()
	m.tables[t.ID] = t
	m.mu.Unlock()

	t.logger.Info("table created",
		zap.String("game_id", engine.ID()),
		zap.String("mode", string(mode.Kind)),
		zap.Int("seats", len(req.Seats)),
	)

	if err := t.Advance(ctx); err != nil {
		return t, fmt.Errorf("advance new table: %w", err)
	}
	return t, nil
}

// GetTable returns a table by id.
func (m *Manager) GetTable(id string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	return t, ok
}

// ListTables returns summaries ordered by creation time.
func (m *Manager) ListTables() []TableSummary {
	m.mu.RLock()
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.RUnlock()

	sort.Slice(tables, func(i, j int) bool {
		return tables[i].CreateTime.Before(tables[j].CreateTime)
	})
	out := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Summary())
	}
	return out
}

// RemoveTable closes a table's connections and forgets it.
func (m *Manager) RemoveTable(id string) error {
	m.mu.Lock()
	t, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if !ok {
		return ErrTableNotFound
	}
	t.closeClients()
	m.logger.Info("table removed", zap.String("table_id", id))
	return nil
}

// Replay returns a game's replay, from memory while it is running and from
// disk once it has been saved.
func (m *Manager) Replay(gameID string) (*game.Replay, error) {
	if m.recorder == nil {
		return nil, errors.New("replays are not recorded")
	}
	if replay, ok := m.recorder.Replay(gameID); ok {
		return replay, nil
	}
	return m.recorder.LoadReplay(gameID)
}

// CloseAll disconnects every table.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	tables := m.tables
	m.tables = make(map[string]*Table)
	m.mu.Unlock()
	for _, t := range tables {
		t.closeClients()
	}
}
