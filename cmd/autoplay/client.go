package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
)

// APIError is a non-2xx answer from the game server
type APIError struct {
	Status  int
	Message string
	Reason  string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client drives one session through the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is bound to
func (c *Client) SessionID() string { return c.sessionID }

// CreateSession opens a session with the given rule set and binds the client to it
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"config_id": configID}, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

// Resume binds the client to an existing session
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.GameView, error) {
	c.sessionID = sessionID
	return c.State(ctx)
}

func (c *Client) AddPlayer(ctx context.Context, name string) (*service.PlayerResult, error) {
	var result service.PlayerResult
	if err := c.do(ctx, http.MethodPost, c.path("/players"), map[string]string{"name": name}, &result); err != nil {
		return nil, fmt.Errorf("add player %s: %w", name, err)
	}
	return &result, nil
}

func (c *Client) StartGame(ctx context.Context) (*engine.GameView, error) {
	var view engine.GameView
	if err := c.do(ctx, http.MethodPost, c.path("/start"), nil, &view); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	return &view, nil
}

func (c *Client) State(ctx context.Context) (*engine.GameView, error) {
	var view engine.GameView
	if err := c.do(ctx, http.MethodGet, c.path("/state"), nil, &view); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &view, nil
}

// Propose starts an action for the current player and returns its targets
func (c *Client) Propose(ctx context.Context, action engine.ActionType) ([]engine.Position, error) {
	var result service.ProposeResult
	if err := c.do(ctx, http.MethodPost, c.path("/actions"), map[string]string{"type": string(action)}, &result); err != nil {
		return nil, fmt.Errorf("propose %s: %w", action, err)
	}
	return result.ValidPositions, nil
}

func (c *Client) Commit(ctx context.Context, target engine.Position) (*service.ActionResult, error) {
	var result service.ActionResult
	body := map[string]engine.Position{"target": target}
	if err := c.do(ctx, http.MethodPost, c.path("/actions/commit"), body, &result); err != nil {
		return nil, fmt.Errorf("commit (%d,%d,%d): %w", target.X, target.Y, target.Z, err)
	}
	return &result, nil
}

func (c *Client) Cancel(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, c.path("/actions"), nil, nil); err != nil {
		return fmt.Errorf("cancel action: %w", err)
	}
	return nil
}

func (c *Client) EndTurn(ctx context.Context) (*engine.GameView, error) {
	var view engine.GameView
	if err := c.do(ctx, http.MethodPost, c.path("/end-turn"), nil, &view); err != nil {
		return nil, fmt.Errorf("end turn: %w", err)
	}
	return &view, nil
}

func (c *Client) path(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var payload struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error, Reason: payload.Reason}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
