package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reversus/reversus-server-go/internal/config"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Handler serves the table HTTP and socket endpoints.
type Handler struct {
	manager  *Manager
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
	ctx      context.Context
}

// NewHandler creates the HTTP handler. ctx bounds bot turns started from
// sockets and is usually the server's lifetime.
func NewHandler(ctx context.Context, manager *Manager, cfg config.WebSocketConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{manager: manager, cfg: cfg, logger: logger, ctx: ctx}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.ReadBufferSize,
		CheckOrigin:     h.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /tables", h.listTables)
	mux.HandleFunc("POST /tables", h.createTable)
	mux.HandleFunc("GET /tables/{id}", h.getTable)
	mux.HandleFunc("DELETE /tables/{id}", h.deleteTable)
	mux.HandleFunc("GET /tables/{id}/ws", h.serveSocket)
	mux.HandleFunc("GET /replays/{game}", h.getReplay)
	return mux
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listTables(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.ListTables())
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, err := h.manager.CreateTable(h.ctx, req)
	if err != nil {
		if t == nil {
			writeError(w, httpStatus(err), err)
			return
		}
		h.logger.Warn("table created with errors", zap.String("table_id", t.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, t.Summary())
}

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	t, ok := h.manager.GetTable(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrTableNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t.Summary())
}

func (h *Handler) deleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.RemoveTable(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// replayRound lists one recorded round. State is the spectator view and
// is only filled when a single round is requested.
type replayRound struct {
	Round     int             `json:"round"`
	Timestamp time.Time       `json:"timestamp"`
	Checksum  string          `json:"checksum"`
	State     *game.GameState `json:"state,omitempty"`
}

func (h *Handler) getReplay(w http.ResponseWriter, r *http.Request) {
	replay, err := h.manager.Replay(r.PathValue("game"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	out := make([]replayRound, 0, replay.Len())
	if raw := r.URL.Query().Get("round"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("round must be a number"))
			return
		}
		snap, ok := replay.Round(n)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("round %d was not recorded", n))
			return
		}
		sum, err := snap.ComputeChecksum()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, replayRound{Round: n, Timestamp: snap.Timestamp, Checksum: sum.Hash, State: snap.State.ViewFor("")})
	} else {
		for i := 0; i < replay.Len(); i++ {
			snap, sum := replay.At(i)
			out = append(out, replayRound{Round: snap.Round, Timestamp: snap.Timestamp, Checksum: sum})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": replay.GameID,
		"seed":    replay.Seed,
		"mode":    replay.Mode,
		"result":  replay.Result,
		"rounds":  out,
	})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidConfiguration), errors.Is(err, rules.ErrIllegalAction):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": CodeOf(err).String()})
}

// StartWebSocketServer serves the handler on cfg.Address until ctx is done.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, manager *Manager, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           NewHandler(ctx, manager, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting WebSocket server", zap.String("address", cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.CloseAll()
		return srv.Shutdown(shutdownCtx)
	}
}
