package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrReplayCorrupt is returned when a stored frame no longer matches the
// checksum recorded with it.
var ErrReplayCorrupt = errors.New("replay is corrupt")

const replayVersion = 2

// Replay is the history of one game: the state at the start of every round
// and, once the game is over, its final state. Each frame keeps the
// checksum computed when it was captured.
type Replay struct {
	GameID string
	Seed   int64
	Mode   ModeKind
	Result *GameResult

	mu        sync.RWMutex
	frames    []*Snapshot
	checksums []string
}

// NewReplay creates an empty replay.
func NewReplay(gameID string, seed int64, mode ModeKind) *Replay {
	return &Replay{GameID: gameID, Seed: seed, Mode: mode}
}

// Record appends a frame.
func (r *Replay) Record(snap *Snapshot) error {
	sum, err := snap.ComputeChecksum()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, snap)
	r.checksums = append(r.checksums, sum.Hash)
	return nil
}

// Len returns the number of frames.
func (r *Replay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// At returns the frame at index and its checksum, or nil.
func (r *Replay) At(index int) (*Snapshot, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.frames) {
		return nil, ""
	}
	return r.frames[index], r.checksums[index]
}

// Round returns the state captured at the start of a round.
func (r *Replay) Round(round int) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, snap := range r.frames {
		if snap.Round == round {
			return snap, true
		}
	}
	return nil, false
}

// Final returns the game-over frame of a finished replay.
func (r *Replay) Final() (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Result == nil || len(r.frames) == 0 {
		return nil, false
	}
	return r.frames[len(r.frames)-1], true
}

// Verify recomputes every frame's checksum.
func (r *Replay) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, snap := range r.frames {
		ok, err := snap.VerifyChecksum(&Checksum{Hash: r.checksums[i], Version: 1})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: frame %d (round %d)", ErrReplayCorrupt, i, snap.Round)
		}
	}
	return nil
}

type replayHeader struct {
	Version   int
	GameID    string
	Seed      int64
	Mode      ModeKind
	Result    *GameResult
	Saved     time.Time
	Checksums []string
}

func replayPath(dir, gameID string) string {
	return filepath.Join(dir, gameID+".replay")
}

// SaveToFile writes the replay as gzipped gob to <dir>/<game>.replay.
func (r *Replay) SaveToFile(dir string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	file, err := os.Create(replayPath(dir, r.GameID))
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	header := replayHeader{
		Version:   replayVersion,
		GameID:    r.GameID,
		Seed:      r.Seed,
		Mode:      r.Mode,
		Result:    r.Result,
		Saved:     time.Now(),
		Checksums: r.checksums,
	}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("encode replay header: %w", err)
	}
	for i, snap := range r.frames {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
	}
	return zw.Close()
}

// LoadReplayFromFile reads a replay written by SaveToFile and checks every
// frame against its stored checksum.
func LoadReplayFromFile(dir, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(dir, gameID))
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	defer zr.Close()
	dec := gob.NewDecoder(zr)

	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("decode replay header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version %d", header.Version)
	}

	replay := NewReplay(header.GameID, header.Seed, header.Mode)
	replay.Result = header.Result
	replay.checksums = header.Checksums
	for i := range header.Checksums {
		var snap Snapshot
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", i, err)
		}
		replay.frames = append(replay.frames, &snap)
	}
	if err := replay.Verify(); err != nil {
		return nil, err
	}
	return replay, nil
}

// ReplayRecorder keeps the replays of running games and writes finished
// ones to disk.
type ReplayRecorder struct {
	logger *zap.Logger
	dir    string

	mu   sync.RWMutex
	live map[string]*Replay
}

// NewReplayRecorder creates a recorder saving into dir.
func NewReplayRecorder(logger *zap.Logger, dir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger: logger,
		dir:    dir,
		live:   make(map[string]*Replay),
	}
}

// Begin starts recording a game.
func (rr *ReplayRecorder) Begin(s *GameState) {
	rr.mu.Lock()
	rr.live[s.ID] = NewReplay(s.ID, s.Seed, s.Mode.Kind)
	rr.mu.Unlock()
	rr.logger.Debug("recording game", zap.String("game_id", s.ID), zap.Int64("seed", s.Seed))
}

// Capture records a round-start frame. Finished or unknown games are
// ignored.
func (rr *ReplayRecorder) Capture(gameID string, snap *Snapshot) {
	replay, ok := rr.Replay(gameID)
	if !ok || !rr.Recording(gameID) {
		return
	}
	if err := replay.Record(snap); err != nil {
		rr.logger.Warn("failed to capture round", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	rr.logger.Debug("captured round",
		zap.String("game_id", gameID),
		zap.Int("round", snap.Round),
		zap.Int("frames", replay.Len()),
	)
}

// Finish records the final frame and closes the replay to further rounds.
// It stays in memory until SaveReplay.
func (rr *ReplayRecorder) Finish(gameID string, final *Snapshot, result *GameResult) {
	replay, ok := rr.Replay(gameID)
	if !ok {
		return
	}
	replay.mu.Lock()
	replay.Result = result
	replay.mu.Unlock()
	if err := replay.Record(final); err != nil {
		rr.logger.Warn("failed to capture final state", zap.String("game_id", gameID), zap.Error(err))
	}
}

// Replay returns the in-memory replay of a game.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	replay, ok := rr.live[gameID]
	return replay, ok
}

// Recording reports whether a game is still capturing rounds.
func (rr *ReplayRecorder) Recording(gameID string) bool {
	replay, ok := rr.Replay(gameID)
	if !ok {
		return false
	}
	replay.mu.RLock()
	defer replay.mu.RUnlock()
	return replay.Result == nil
}

// SaveReplay writes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, ok := rr.live[gameID]
	if !ok {
		rr.mu.Unlock()
		return fmt.Errorf("no replay for game %s", gameID)
	}
	delete(rr.live, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.dir); err != nil {
		return fmt.Errorf("save replay: %w", err)
	}
	rr.logger.Info("saved replay",
		zap.String("game_id", gameID),
		zap.Int("frames", replay.Len()),
		zap.String("dir", rr.dir),
	)
	return nil
}

// LoadReplay reads a saved replay.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.dir, gameID)
}
