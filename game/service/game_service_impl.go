package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/cubeclash/game/engine"
)

// Message types pushed to session watchers
const (
	MessageStateUpdate = "state_update"
	MessageRoll        = "roll_result"
)

// ErrSaveUnavailable is returned when a named slot cannot be loaded
var ErrSaveUnavailable = errors.New("save not found or unreadable")

type watch struct {
	engine *engine.GameEngine
	cancel func()
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	configs     ConfigManager
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
	watches     map[string]watch
	mu          sync.Mutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithBroadcaster forwards engine events and state updates to clients
func WithBroadcaster(b Broadcaster) Option {
	return func(s *gameServiceImpl) { s.broadcaster = b }
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = logger }
}

// WithClock overrides the event timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *gameServiceImpl) { s.now = now }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		now:      time.Now,
		watches:  make(map[string]watch),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// session fetches a session, marks it accessed and makes sure its engine
// events reach the broadcaster. Callers hold s.mu.
func (s *gameServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		s.logger.Debug("last-accessed update failed", zap.String("session", sess.ID), zap.Error(err))
	}
	s.watch(sess)
	return sess, nil
}

// watch subscribes to a session's engine once. A session reloaded from the
// store carries a new engine and is subscribed again.
func (s *gameServiceImpl) watch(sess *Session) {
	if s.broadcaster == nil {
		return
	}
	if w, ok := s.watches[sess.ID]; ok {
		if w.engine == sess.Engine {
			return
		}
		w.cancel()
	}

	id, eng := sess.ID, sess.Engine
	cancel := eng.Subscribe(func(e engine.Event) {
		switch e.Type {
		case engine.EventStateChanged:
			view := eng.View()
			s.broadcaster.BroadcastToSession(id, MessageStateUpdate, &view)
		case engine.EventPhaseExited:
		default:
			s.broadcaster.BroadcastToSession(id, string(e.Type), e)
		}
	})
	s.watches[sess.ID] = watch{engine: eng, cancel: cancel}
}

func (s *gameServiceImpl) unwatch(id string) {
	if w, ok := s.watches[id]; ok {
		w.cancel()
		delete(s.watches, id)
	}
}

// record runs fn and returns the engine events it produced
func (s *gameServiceImpl) record(sess *Session, fn func() error) ([]GameEvent, error) {
	var events []GameEvent
	cancel := sess.Engine.Subscribe(func(e engine.Event) {
		if ev, ok := s.describe(e); ok {
			events = append(events, ev)
		}
	})
	defer cancel()

	err := fn()
	return events, err
}

// describe turns an engine event into a client-facing message. Bookkeeping
// events are dropped.
func (s *gameServiceImpl) describe(e engine.Event) (GameEvent, bool) {
	ev := GameEvent{Type: string(e.Type), Timestamp: s.now(), PlayerID: e.PlayerID, Position: e.Position}
	switch e.Type {
	case engine.EventActionCommitted:
		switch e.Action {
		case engine.ActionMove:
			ev.Message = fmt.Sprintf("Player %d moved to %s", e.PlayerID, formatPosition(e.Position))
		case engine.ActionBuild:
			ev.Message = fmt.Sprintf("Player %d built at %s", e.PlayerID, formatPosition(e.Position))
		default:
			ev.Message = fmt.Sprintf("Player %d finished %s", e.PlayerID, e.Action)
		}
	case engine.EventDiceRolled:
		if e.Roll == nil {
			return GameEvent{}, false
		}
		ev.Message = describeRoll(*e.Roll)
	case engine.EventTurnEnded:
		ev.Message = fmt.Sprintf("Player %d ended their turn", e.PlayerID)
	case engine.EventGameOver:
		if e.Winner > 0 {
			ev.Message = fmt.Sprintf("Game over! Player %d wins", e.Winner)
		} else {
			ev.Message = "Game over"
		}
	case engine.EventPhaseEntered:
		ev.Message = fmt.Sprintf("Phase is now %s", e.Phase)
	case engine.EventPlayerAdded:
		ev.Message = fmt.Sprintf("Player %d joined", e.PlayerID)
	default:
		return GameEvent{}, false
	}
	return ev, true
}

func formatPosition(p *engine.Position) string {
	if p == nil {
		return "(?)"
	}
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

func describeRoll(o engine.RollOutcome) string {
	switch o.Effect {
	case engine.EffectGrapple:
		return fmt.Sprintf("Player %d rolled %d: grapple lifted them %d", o.PlayerID, o.Value, o.Lift)
	case engine.EffectGrappleFailed:
		return fmt.Sprintf("Player %d rolled %d: the grapple slipped", o.PlayerID, o.Value)
	case engine.EffectWind:
		dir := "nowhere"
		if o.Direction != nil {
			dir = o.Direction.Name
		}
		if len(o.Pushed) == 0 {
			return fmt.Sprintf("Player %d rolled %d: wind blew %s, nobody moved", o.PlayerID, o.Value, dir)
		}
		return fmt.Sprintf("Player %d rolled %d: wind blew %s and pushed players %v", o.PlayerID, o.Value, dir, o.Pushed)
	default:
		return fmt.Sprintf("Player %d rolled %d: nothing happened", o.PlayerID, o.Value)
	}
}

func view(sess *Session) *engine.GameView {
	v := sess.Engine.View()
	return &v
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      view(sess),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := configName
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, err, configIDs)
				}
				return nil, fmt.Errorf("config '%s': %w. Use /api/configs to list available configurations", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.watch(sess)
	s.logger.Info("session ready", zap.String("session", sess.ID), zap.String("config", configID))
	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.unwatch(sess.ID)
	return s.sessions.Delete(sess.ID)
}

// AddPlayer seats a player during setup
func (s *gameServiceImpl) AddPlayer(ctx context.Context, sessionID, name string) (*PlayerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	player, err := sess.Engine.AddPlayer(name)
	if err != nil {
		return nil, err
	}
	return &PlayerResult{Player: player, GameState: view(sess)}, nil
}

// StartGame leaves setup once enough players are seated
func (s *gameServiceImpl) StartGame(ctx context.Context, sessionID string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.StartGame(); err != nil {
		return nil, err
	}
	return view(sess), nil
}

// NewGame returns the session to setup with a fresh board
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.StartNewGame(); err != nil {
		return nil, err
	}
	return view(sess), nil
}

// ProposeAction starts an action and returns its legal targets
func (s *gameServiceImpl) ProposeAction(ctx context.Context, sessionID string, actionType engine.ActionType, source *engine.Position) (*ProposeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	targets, err := sess.Engine.ProposeAction(actionType, source)
	if err != nil {
		return nil, err
	}
	if targets == nil {
		targets = []engine.Position{}
	}
	return &ProposeResult{Action: actionType, ValidPositions: targets, GameState: view(sess)}, nil
}

// CommitAction applies the pending action at target
func (s *gameServiceImpl) CommitAction(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	pending := sess.Engine.ActionState().Type
	events, err := s.record(sess, func() error { return sess.Engine.CommitAction(target) })
	if err != nil {
		return nil, err
	}
	return &ActionResult{
		Success:   true,
		Action:    pending,
		Target:    target,
		GameState: view(sess),
		Events:    events,
	}, nil
}

// CancelAction drops the pending action
func (s *gameServiceImpl) CancelAction(ctx context.Context, sessionID string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Engine.ClearAction()
	return view(sess), nil
}

// EndTurn passes the turn to the next player
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.EndTurn(); err != nil {
		return nil, err
	}
	return view(sess), nil
}

// RollDice resolves the current player's roll
func (s *gameServiceImpl) RollDice(ctx context.Context, sessionID string) (*RollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	var outcome engine.RollOutcome
	events, err := s.record(sess, func() error {
		var rollErr error
		outcome, rollErr = sess.Engine.RollDice()
		return rollErr
	})
	if err != nil {
		return nil, err
	}
	result := &RollResult{
		Outcome:   outcome,
		Message:   describeRoll(outcome),
		GameState: view(sess),
		Events:    events,
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSession(sess.ID, MessageRoll, result)
	}
	return result, nil
}

// GetGameState returns the current view of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return view(sess), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.History()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveRecord{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// SaveGame writes the session to a named slot
func (s *gameServiceImpl) SaveGame(ctx context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return sess.Engine.SaveAs(name)
}

// LoadGame restores a named slot and makes it the new autosave
func (s *gameServiceImpl) LoadGame(ctx context.Context, sessionID, name string) (*engine.GameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Engine.LoadPersistedState(name) {
		return nil, fmt.Errorf("save %q: %w", name, ErrSaveUnavailable)
	}
	sess.Engine.Machine().UpdateStateData()
	return view(sess), nil
}

// ListSaves returns the slots stored for a session
func (s *gameServiceImpl) ListSaves(ctx context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessions.ListSaves(sess.ID)
}

// ListConfigs returns available rule sets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific rule set
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a rule set to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}
