package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
)

// ErrDecisionSource wraps every failure of a suggestion source.
var ErrDecisionSource = errors.New("decision source failure")

// RequestKind tells the source what is being asked.
type RequestKind string

const (
	RequestAction RequestKind = "action"
	RequestTarget RequestKind = "target"
)

// Request is sent to a suggestion source. State is the participant's own
// view of the table.
type Request struct {
	Kind          RequestKind     `json:"kind"`
	GameID        string          `json:"game_id"`
	ParticipantID string          `json:"participant_id"`
	Allegiance    string          `json:"allegiance"`
	Effect        string          `json:"effect,omitempty"`
	Candidates    []string        `json:"candidates,omitempty"`
	State         *game.GameState `json:"state"`
}

// Response carries a suggested action or target.
type Response struct {
	Action *rules.Action `json:"action,omitempty"`
	Target string        `json:"target,omitempty"`
}

// Source suggests moves. Implementations must honor ctx.
type Source interface {
	Suggest(ctx context.Context, req *Request) (*Response, error)
}

const maxResponseBytes = 1 << 20

// HTTPSource posts requests as JSON to a suggestion service.
type HTTPSource struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSource creates a source for endpoint. A nil client uses
// http.DefaultClient; deadlines come from the request context.
func NewHTTPSource(endpoint string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{endpoint: endpoint, client: client}
}

// Suggest implements Source.
func (s *HTTPSource) Suggest(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrDecisionSource, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrDecisionSource, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecisionSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDecisionSource, resp.StatusCode)
	}
	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDecisionSource, err)
	}
	return &out, nil
}
