package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/effects"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func suggestionServer(t *testing.T, handler func(req Request) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mandatoryState(t *testing.T) *game.GameState {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2")
	s.CurrentIndex = s.IndexOf("p1")
	s.Participants["p1"].Hand = []*cards.Card{valueCard("low", 3), valueCard("high", 9)}
	s.Participants["p2"].Hand = []*cards.Card{valueCard("secret", 7)}
	return s
}

func TestDeciderUsesLegalSuggestion(t *testing.T) {
	var got Request
	srv := suggestionServer(t, func(req Request) (int, any) {
		got = req
		action := rules.PlayValue("low")
		return http.StatusOK, Response{Action: &action}
	})
	d := NewDecider(zaptest.NewLogger(t), WithSource(NewHTTPSource(srv.URL, srv.Client()), time.Second))

	s := mandatoryState(t)
	assert.Equal(t, rules.PlayValue("low"), d.Decide(context.Background(), s, "p1"))
	assert.Zero(t, d.Failures())
	assert.Equal(t, RequestAction, got.Kind)
	assert.Equal(t, "p1", got.ParticipantID)
	require.NotNil(t, got.State)
	assert.Equal(t, "hidden", got.State.Participants["p2"].Hand[0].ID, "opponent hands are hidden")
}

func TestDeciderFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler func(req Request) (int, any)
	}{
		{"server error", func(Request) (int, any) {
			return http.StatusInternalServerError, map[string]string{"error": "boom"}
		}},
		{"illegal suggestion", func(Request) (int, any) {
			action := rules.PlayValue("not-in-hand")
			return http.StatusOK, Response{Action: &action}
		}},
		{"empty suggestion", func(Request) (int, any) {
			return http.StatusOK, Response{}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := suggestionServer(t, tt.handler)
			d := NewDecider(zaptest.NewLogger(t), WithSource(NewHTTPSource(srv.URL, srv.Client()), time.Second))

			assert.Equal(t, rules.PlayValue("high"), d.Decide(context.Background(), mandatoryState(t), "p1"))
			assert.Equal(t, int64(1), d.Failures())
		})
	}
}

func TestDeciderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	d := NewDecider(zaptest.NewLogger(t), WithSource(NewHTTPSource(srv.URL, srv.Client()), 50*time.Millisecond))
	start := time.Now()
	action := d.Decide(context.Background(), mandatoryState(t), "p1")
	assert.Equal(t, rules.PlayValue("high"), action)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int64(1), d.Failures())
}

func TestDeciderChooseTarget(t *testing.T) {
	s := table(t, game.Mode{Kind: game.ModeSolo}, "p1", "p2", "p3")
	s.Participants["p2"].Position = 2
	s.Participants["p3"].Position = 6
	candidates := []string{"p2", "p3"}

	d := NewDecider(zaptest.NewLogger(t))
	assert.Equal(t, "p3", d.ChooseTarget(context.Background(), s, "p1", effects.TrocaJusta, candidates))
	assert.Equal(t, "p2", d.ChooseTarget(context.Background(), s, "p1", effects.TrocaInjusta, candidates))

	srv := suggestionServer(t, func(req Request) (int, any) {
		if req.Effect == string(effects.TrocaJusta) {
			return http.StatusOK, Response{Target: "p2"}
		}
		return http.StatusOK, Response{Target: "p1"}
	})
	d = NewDecider(zaptest.NewLogger(t), WithSource(NewHTTPSource(srv.URL, nil), time.Second))
	assert.Equal(t, "p2", d.ChooseTarget(context.Background(), s, "p1", effects.TrocaJusta, candidates))
	assert.Equal(t, "p2", d.ChooseTarget(context.Background(), s, "p1", effects.TrocaInjusta, candidates), "non-candidate answer")
	assert.Equal(t, int64(1), d.Failures())
}

func TestPersonaLookup(t *testing.T) {
	ps := BuiltinPersonas()
	assert.Equal(t, "aggressive", ps.Lookup(" Aggressive ").Name)
	assert.Equal(t, DefaultPersona(), ps.Lookup("unknown"))

	custom := Personas{"bold": {Name: "bold", Aggression: 3}}
	d := NewDecider(nil, WithPersonas(custom))
	assert.Equal(t, 3.0, d.personas.Lookup("bold").Aggression)
}

func TestDeciderDrivesAFullGame(t *testing.T) {
	settings := game.DefaultSettings()
	settings.Seed = 2024
	settings.Goal = 6
	mode := game.Mode{Kind: game.ModeTwoVsTwo, Hazard: true, Challenge: true}
	seating := []game.Seat{
		{ID: "a1", Name: "a1", Team: "A", Persona: "aggressive"},
		{ID: "b1", Name: "b1", Team: "B", Persona: "supportive"},
		{ID: "a2", Name: "a2", Team: "A", Persona: "cautious"},
		{ID: "b2", Name: "b2", Team: "B"},
	}
	d := NewDecider(zaptest.NewLogger(t))
	e, err := game.NewGame(settings, mode, seating, zaptest.NewLogger(t), game.WithDecisionMaker(d))
	require.NoError(t, err)
	require.NoError(t, e.Start())

	e.Events().Subscribe(func(ev rules.Event) {
		if ev.Type == rules.EventRoundStarted {
			s := e.State()
			assert.Equal(t, 36, s.CardCount(cards.KindValue))
			assert.Equal(t, 25, s.CardCount(cards.KindEffect))
		}
	})
	require.NoError(t, e.Advance(context.Background()))

	s := e.State()
	require.Equal(t, rules.PhaseGameOver, s.Phase)
	require.NotNil(t, s.Result)
	assert.NotEmpty(t, s.Result.Reason)
	if s.Result.WinningTeam != "" {
		assert.Contains(t, []string{"A", "B"}, s.Result.WinningTeam)
	}
}
