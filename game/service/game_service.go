package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/cubeclash/game/engine"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfigNotFound is returned for an unknown rule set.
	ErrConfigNotFound = errors.New("configuration not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Setup
	AddPlayer(ctx context.Context, sessionID, name string) (*PlayerResult, error)
	StartGame(ctx context.Context, sessionID string) (*engine.GameView, error)
	NewGame(ctx context.Context, sessionID string) (*engine.GameView, error)

	// Turn actions
	ProposeAction(ctx context.Context, sessionID string, actionType engine.ActionType, source *engine.Position) (*ProposeResult, error)
	CommitAction(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error)
	CancelAction(ctx context.Context, sessionID string) (*engine.GameView, error)
	EndTurn(ctx context.Context, sessionID string) (*engine.GameView, error)
	RollDice(ctx context.Context, sessionID string) (*RollResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameView, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Save slots
	SaveGame(ctx context.Context, sessionID, name string) error
	LoadGame(ctx context.Context, sessionID, name string) (*engine.GameView, error)
	ListSaves(ctx context.Context, sessionID string) ([]string, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
	ListSaves(id string) ([]string, error)
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Broadcaster pushes messages to clients watching a session
type Broadcaster interface {
	BroadcastToSession(sessionID, messageType string, payload any)
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
