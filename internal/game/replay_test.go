package game

import (
	"compress/gzip"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReplayFrames(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2"), nil)
	h.Start("p1")

	replay := NewReplay(h.state().ID, h.state().Seed, ModeSolo)
	assert.Equal(t, 0, replay.Len())
	require.NoError(t, replay.Record(newSnapshot(h.state())))
	h.state().Round = 2
	require.NoError(t, replay.Record(newSnapshot(h.state())))
	require.Equal(t, 2, replay.Len())

	snap, sum := replay.At(1)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Round)
	assert.Len(t, sum, 64)
	snap, sum = replay.At(2)
	assert.Nil(t, snap)
	assert.Empty(t, sum)

	first, ok := replay.Round(1)
	require.True(t, ok)
	assert.Equal(t, 1, first.Round)
	_, ok = replay.Round(7)
	assert.False(t, ok)

	_, ok = replay.Final()
	assert.False(t, ok, "running games have no final frame")
	require.NoError(t, replay.Verify())

	first.State.Participants["p1"].Position = 6
	assert.ErrorIs(t, replay.Verify(), ErrReplayCorrupt)
}

func TestReplaySaveAndLoad(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeDuo}, soloSeats("p1", "p2", "p3", "p4"), nil)
	h.ClearTable()
	h.Start("p1")
	rec := h.Record("p2", cards.EffectPula, false)
	path := 5
	rec.PathChoice = &path
	h.state().Reserved[path] = "p2"

	replay := NewReplay(h.state().ID, h.state().Seed, ModeDuo)
	require.NoError(t, replay.Record(newSnapshot(h.state())))
	replay.Result = &GameResult{WinningTeam: "red", Winners: []string{"p1", "p3"}, Reason: "goal reached", Round: 1}

	dir := filepath.Join(t.TempDir(), "nested", "replays")
	require.NoError(t, replay.SaveToFile(dir))
	_, err := os.Stat(filepath.Join(dir, replay.GameID+".replay"))
	require.NoError(t, err)

	loaded, err := LoadReplayFromFile(dir, replay.GameID)
	require.NoError(t, err)
	assert.Equal(t, replay.GameID, loaded.GameID)
	assert.Equal(t, replay.Seed, loaded.Seed)
	assert.Equal(t, ModeDuo, loaded.Mode)
	require.NotNil(t, loaded.Result)
	assert.Equal(t, []string{"p1", "p3"}, loaded.Result.Winners)

	final, ok := loaded.Final()
	require.True(t, ok)
	got := final.State.Participants["p2"].Effect(cards.AxisMovement)
	require.NotNil(t, got)
	require.NotNil(t, got.PathChoice)
	assert.Equal(t, 5, *got.PathChoice)
	assert.Equal(t, "p2", final.State.Reserved[5])

	_, want := replay.At(0)
	_, have := loaded.At(0)
	assert.Equal(t, want, have)
}

func TestReplayLoadRejectsTamperedFile(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2"), nil)
	h.Start("p1")
	dir := t.TempDir()

	snap := newSnapshot(h.state())
	sum, err := snap.ComputeChecksum()
	require.NoError(t, err)
	snap.State.Participants["p2"].Position = 8

	file, err := os.Create(filepath.Join(dir, snap.GameID+".replay"))
	require.NoError(t, err)
	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	require.NoError(t, enc.Encode(&replayHeader{Version: replayVersion, GameID: snap.GameID, Checksums: []string{sum.Hash}}))
	require.NoError(t, enc.Encode(snap))
	require.NoError(t, zw.Close())
	require.NoError(t, file.Close())

	_, err = LoadReplayFromFile(dir, snap.GameID)
	assert.ErrorIs(t, err, ErrReplayCorrupt)
}

func TestReplayLoadNonexistentFile(t *testing.T) {
	_, err := LoadReplayFromFile(t.TempDir(), "nonexistent")
	assert.Error(t, err)
}

func TestReplayRecorder(t *testing.T) {
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2"), nil)
	h.Start("p1")
	s := h.state()
	recorder := NewReplayRecorder(zap.NewNop(), t.TempDir())

	recorder.Begin(s)
	assert.True(t, recorder.Recording(s.ID))
	recorder.Capture(s.ID, newSnapshot(s))
	recorder.Capture("unknown", newSnapshot(s))

	replay, ok := recorder.Replay(s.ID)
	require.True(t, ok)
	assert.Equal(t, 1, replay.Len())

	result := &GameResult{WinningTeam: "p1", Winners: []string{"p1"}, Reason: "goal reached", Round: 1}
	recorder.Finish(s.ID, newSnapshot(s), result)
	assert.False(t, recorder.Recording(s.ID))
	assert.Equal(t, 2, replay.Len(), "final frame is kept")
	recorder.Capture(s.ID, newSnapshot(s))
	assert.Equal(t, 2, replay.Len(), "ignored after finish")

	require.NoError(t, recorder.SaveReplay(s.ID))
	_, ok = recorder.Replay(s.ID)
	assert.False(t, ok)

	loaded, err := recorder.LoadReplay(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, result.Winners, loaded.Result.Winners)

	assert.Error(t, recorder.SaveReplay("unknown"))
}

func TestEngineRecordsRounds(t *testing.T) {
	recorder := NewReplayRecorder(zap.NewNop(), t.TempDir())
	h := NewTableHarness(t, Mode{Kind: ModeSolo}, soloSeats("p1", "p2"), nil, WithReplayRecorder(recorder))
	h.ClearTable()
	h.WhiteBoard()
	h.Deal("p1", []int{6, 2})
	h.Deal("p2", []int{8, 3})
	h.Start("p1")
	gameID := h.state().ID
	assert.True(t, recorder.Recording(gameID))

	playOpeningRound(h, "p1", "p2")
	require.Equal(t, rules.PhaseRoundSummary, h.state().Phase)
	require.NoError(t, h.engine.StartNextRound())

	replay, ok := recorder.Replay(gameID)
	require.True(t, ok)
	require.Equal(t, 2, replay.Len())
	first, _ := replay.At(0)
	second, _ := replay.At(1)
	assert.Equal(t, 1, first.Round)
	assert.Equal(t, 2, second.Round)
	assert.Equal(t, h.state().Seed, replay.Seed)
}
