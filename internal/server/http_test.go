package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reversus/reversus-server-go/internal/config"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type replayBody struct {
	GameID string           `json:"game_id"`
	Seed   int64            `json:"seed"`
	Result *game.GameResult `json:"result"`
	Rounds []struct {
		Round    int             `json:"round"`
		Checksum string          `json:"checksum"`
		State    *game.GameState `json:"state"`
	} `json:"rounds"`
}

func getReplay(t *testing.T, url string) (int, replayBody) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body replayBody
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestReplayEndpoint(t *testing.T) {
	recorder := game.NewReplayRecorder(zaptest.NewLogger(t), t.TempDir())
	mgr := newTestManager(t, WithReplayRecorder(recorder))
	srv := httptest.NewServer(NewHandler(context.Background(), mgr, config.WebSocketConfig{WriteTimeout: time.Second}, zaptest.NewLogger(t)))
	defer srv.Close()

	tbl, err := mgr.CreateTable(context.Background(), CreateTableRequest{
		Seats: []game.Seat{{ID: "b1"}, {ID: "b2"}, {ID: "b3"}},
	})
	require.NoError(t, err)
	s := tbl.Engine.State()
	require.Equal(t, rules.PhaseGameOver, s.Phase)

	_, inMemory := recorder.Replay(s.ID)
	assert.False(t, inMemory, "finished replays are written to disk")

	status, body := getReplay(t, srv.URL+"/replays/"+s.ID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, s.ID, body.GameID)
	assert.Equal(t, s.Seed, body.Seed)
	require.NotNil(t, body.Result)
	assert.Equal(t, s.Result.Winners, body.Result.Winners)
	require.NotEmpty(t, body.Rounds)
	assert.Equal(t, 1, body.Rounds[0].Round)
	assert.Len(t, body.Rounds[0].Checksum, 64)
	assert.Nil(t, body.Rounds[0].State)

	status, body = getReplay(t, srv.URL+"/replays/"+s.ID+"?round=1")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body.Rounds)
	require.NotNil(t, body.Rounds[0].State)
	for _, p := range body.Rounds[0].State.Participants {
		for _, c := range p.Hand {
			assert.Equal(t, "hidden", c.ID)
		}
	}

	status, _ = getReplay(t, srv.URL+"/replays/"+s.ID+"?round=999")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = getReplay(t, srv.URL+"/replays/"+s.ID+"?round=first")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = getReplay(t, srv.URL+"/replays/unknown-game")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReplayEndpointWithoutRecorder(t *testing.T) {
	srv, _ := newTestServer(t)
	status, _ := getReplay(t, srv.URL+"/replays/any")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCheckOrigin(t *testing.T) {
	h := &Handler{cfg: config.WebSocketConfig{AllowedOrigins: []string{"https://reversus.example"}}}

	req := httptest.NewRequest(http.MethodGet, "/tables/x/ws", nil)
	req.Header.Set("Origin", "https://reversus.example")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://elsewhere.example")
	assert.False(t, h.checkOrigin(req))

	open := &Handler{}
	assert.True(t, open.checkOrigin(req))
}
