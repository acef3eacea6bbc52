package service

import (
	"time"

	"github.com/wricardo/cubeclash/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameView   `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// PlayerResult is returned after seating a player
type PlayerResult struct {
	Player    engine.Player    `json:"player"`
	GameState *engine.GameView `json:"game_state"`
}

// ProposeResult lists the legal targets of a started action
type ProposeResult struct {
	Action         engine.ActionType `json:"action"`
	ValidPositions []engine.Position `json:"valid_positions"`
	GameState      *engine.GameView  `json:"game_state"`
}

// ActionResult reports a committed move or build
type ActionResult struct {
	Success   bool              `json:"success"`
	Action    engine.ActionType `json:"action"`
	Target    engine.Position   `json:"target"`
	GameState *engine.GameView  `json:"game_state"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// RollResult reports a dice roll
type RollResult struct {
	Outcome   engine.RollOutcome `json:"outcome"`
	Message   string             `json:"message"`
	GameState *engine.GameView   `json:"game_state"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // engine event type, e.g. "action_committed", "turn_ended", "game_over"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	PlayerID  int              `json:"player_id,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveRecord `json:"moves"`
	TotalMoves  int                 `json:"total_moves"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	BoardSize    int    `json:"board_size"`
	WinCondition string `json:"win_condition"`
}
