package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/cards"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// Inbound message types.
const (
	MessageState        = "state"
	MessagePlayValue    = "play_value"
	MessagePlayEffect   = "play_effect"
	MessagePass         = "pass"
	MessageTarget       = "target"
	MessageNextRound    = "next_round"
	MessageRestartRound = "restart_round"
)

// Outbound message types.
const (
	OutboundState         = "state"
	OutboundEvent         = "event"
	OutboundTargetRequest = "target_request"
	OutboundError         = "error"
)

const (
	sendBuffer   = 256
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 16 << 10
)

// Inbound is a message sent by a seated participant.
type Inbound struct {
	Type     string     `json:"type"`
	CardID   string     `json:"card_id,omitempty"`
	TargetID string     `json:"target_id,omitempty"`
	Axis     cards.Axis `json:"axis,omitempty"`
	Path     *int       `json:"path,omitempty"`
}

func (m Inbound) effectAction() rules.Action {
	return rules.Action{
		Kind:       rules.ActionPlayEffect,
		CardID:     m.CardID,
		TargetID:   m.TargetID,
		Axis:       m.Axis,
		PathChoice: m.Path,
	}
}

// Outbound is pushed to connections.
type Outbound struct {
	Type    string             `json:"type"`
	TableID string             `json:"table_id"`
	Event   *rules.Event       `json:"event,omitempty"`
	State   *game.GameState    `json:"state,omitempty"`
	Pending *game.PendingInput `json:"pending,omitempty"`
	Error   string             `json:"error,omitempty"`
	Code    string             `json:"code,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

func errorMessage(err error) Outbound {
	msg := Outbound{Type: OutboundError, Error: err.Error(), Code: CodeOf(err).String()}
	if reason, ok := rules.ReasonOf(err); ok {
		msg.Reason = string(reason)
	}
	return msg
}

type client struct {
	conn          *websocket.Conn
	send          chan Outbound
	participantID string
	writeTimeout  time.Duration

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, participantID string, writeTimeout time.Duration) *client {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &client{
		conn:          conn,
		send:          make(chan Outbound, sendBuffer),
		participantID: participantID,
		writeTimeout:  writeTimeout,
	}
}

// enqueue never blocks; it reports false when the buffer is full.
func (c *client) enqueue(msg Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Debug("write failed", zap.String("participant", c.participantID), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(ctx context.Context, t *Table, logger *zap.Logger) {
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("connection closed", zap.String("participant", c.participantID), zap.Error(err))
			}
			return
		}
		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(errorMessage(fmt.Errorf("decode message: %w", err)))
			continue
		}
		if err := t.Handle(ctx, c.participantID, msg); err != nil {
			logger.Debug("message rejected",
				zap.String("participant", c.participantID),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
			c.enqueue(errorMessage(err))
			if msg.Type == MessageState || errors.Is(err, ErrSpectator) {
				continue
			}
			t.pushView(c)
		}
	}
}

func (h *Handler) serveSocket(w http.ResponseWriter, r *http.Request) {
	t, ok := h.manager.GetTable(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrTableNotFound)
		return
	}
	participantID := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participantID != "" && !t.Seated(participantID) {
		writeError(w, http.StatusForbidden, errors.New("participant is not seated at this table"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	logger := t.logger.With(zap.String("participant", participantID))
	c := newClient(conn, participantID, h.cfg.WriteTimeout)
	t.addClient(c)
	go c.writePump(logger)

	t.pushView(c)
	if s := t.Engine.State(); s.Pending != nil && participantID != "" && s.Pending.ParticipantID == participantID {
		c.enqueue(Outbound{Type: OutboundTargetRequest, TableID: t.ID, Pending: s.Pending})
	}
	logger.Info("connection opened")

	c.readPump(h.ctx, t, logger)
	t.removeClient(c)
	logger.Info("connection closed")
}
