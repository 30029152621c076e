package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// DefaultSaveTimeout bounds a result write triggered by a game event.
const DefaultSaveTimeout = 5 * time.Second

// Execer runs a statement. *pgxpool.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Standing is a participant's final position.
type Standing struct {
	ParticipantID string
	Team          string
	Position      int
	Laps          int
	Eliminated    bool
}

// GameRecord is what gets stored for a finished game.
type GameRecord struct {
	GameID      string
	Mode        game.ModeKind
	Seed        int64
	WinningTeam string
	Winners     []string
	Reason      string
	Rounds      int
	Audit       []string
	Standings   []Standing
	FinishedAt  time.Time
}

// RecordFromState builds a record from a finished game state.
func RecordFromState(s *game.GameState) (*GameRecord, error) {
	if s == nil || s.Result == nil {
		return nil, fmt.Errorf("game is not over")
	}
	rec := &GameRecord{
		GameID:      s.ID,
		Mode:        s.Mode.Kind,
		Seed:        s.Seed,
		WinningTeam: s.Result.WinningTeam,
		Winners:     append([]string{}, s.Result.Winners...),
		Reason:      s.Result.Reason,
		Rounds:      s.Result.Round,
		Audit:       append([]string{}, s.Audit...),
		FinishedAt:  time.Now().UTC(),
	}
	for _, p := range s.Ordered() {
		rec.Standings = append(rec.Standings, Standing{
			ParticipantID: p.ID,
			Team:          p.Team,
			Position:      p.Position,
			Laps:          p.Laps,
			Eliminated:    p.Eliminated,
		})
	}
	return rec, nil
}

// ResultStore writes finished games.
type ResultStore struct {
	db      Execer
	logger  *zap.Logger
	timeout time.Duration
}

// NewResultStore creates a store on db.
func NewResultStore(db Execer, logger *zap.Logger) *ResultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultStore{db: db, logger: logger, timeout: DefaultSaveTimeout}
}

// SaveResult stores rec. Saving the same game twice keeps the first row.
func (rs *ResultStore) SaveResult(ctx context.Context, rec *GameRecord) error {
	audit, err := json.Marshal(rec.Audit)
	if err != nil {
		return fmt.Errorf("encode audit: %w", err)
	}
	tag, err := rs.db.Exec(ctx,
		`INSERT INTO game_results
			(game_id, mode, seed, winning_team, winners, reason, rounds, audit, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id) DO NOTHING`,
		rec.GameID, string(rec.Mode), rec.Seed, rec.WinningTeam, rec.Winners,
		rec.Reason, rec.Rounds, audit, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result %s: %w", rec.GameID, err)
	}
	if tag.RowsAffected() == 0 {
		rs.logger.Debug("game result already stored", zap.String("game_id", rec.GameID))
		return nil
	}

	for _, st := range rec.Standings {
		if _, err := rs.db.Exec(ctx,
			`INSERT INTO game_standings
				(game_id, participant, team, position, laps, eliminated)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.GameID, st.ParticipantID, st.Team, st.Position, st.Laps, st.Eliminated,
		); err != nil {
			return fmt.Errorf("insert standing %s/%s: %w", rec.GameID, st.ParticipantID, err)
		}
	}

	rs.logger.Info("game result stored",
		zap.String("game_id", rec.GameID),
		zap.String("winning_team", rec.WinningTeam),
		zap.Int("rounds", rec.Rounds),
	)
	return nil
}

// Attach saves the game when it ends. It returns the subscription handle.
func (rs *ResultStore) Attach(e *game.Engine) int {
	return e.Events().SubscribeTyped(rules.EventGameOver, func(rules.Event) {
		rec, err := RecordFromState(e.State())
		if err != nil {
			rs.logger.Warn("skipping game result", zap.String("game_id", e.ID()), zap.Error(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
		defer cancel()
		if err := rs.SaveResult(ctx, rec); err != nil {
			rs.logger.Error("failed to store game result", zap.String("game_id", rec.GameID), zap.Error(err))
		}
	})
}
