package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidName          = errors.New("invalid session or slot name")
)

// EngineOptions returns extra engine options for a session, such as a
// highlighter bound to the session's clients
type EngineOptions func(sessionID string) []engine.Option

// Manager handles game session lifecycle
type Manager struct {
	sessions      map[string]*service.Session
	store         SnapshotStore
	configs       service.ConfigManager
	engineOptions EngineOptions
	logger        *zap.Logger
	now           func() time.Time
	mu            sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithStore enables persistence. configs resolves the rule set of sessions
// loaded back from the store.
func WithStore(store SnapshotStore, configs service.ConfigManager) Option {
	return func(m *Manager) {
		m.store = store
		m.configs = configs
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithEngineOptions adds per-session engine options
func WithEngineOptions(fn EngineOptions) Option {
	return func(m *Manager) { m.engineOptions = fn }
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id, configID string, config *engine.GameConfig) (*service.Session, error) {
	if id == "" {
		id = m.generateSessionID()
	}
	if err := ValidateName(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionExists(id) || (m.store != nil && m.store.Exists(id)) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := m.newEngine(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := m.now()
	session := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[strings.ToLower(id)] = session
	m.persistMeta(session)
	m.logger.Info("session created", zap.String("session", id), zap.String("config", configID))
	return session, nil
}

func (m *Manager) newEngine(id string, config *engine.GameConfig) (*engine.GameEngine, error) {
	opts := []engine.Option{engine.WithLogger(m.logger.With(zap.String("session", id)))}
	if m.store != nil {
		opts = append(opts, engine.WithStore(NewScopedStore(m.store, id)))
	}
	if m.engineOptions != nil {
		opts = append(opts, m.engineOptions(id)...)
	}
	return engine.NewEngine(config, opts...)
}

// Get retrieves a session by ID (case-insensitive), loading it from the
// store when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if exists {
		return session, nil
	}

	if m.store == nil || !m.store.Exists(id) {
		return nil, ErrSessionNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, exists := m.sessions[strings.ToLower(id)]; exists {
		return session, nil
	}
	session, err := m.restore(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	m.sessions[strings.ToLower(id)] = session
	return session, nil
}

// restore rebuilds a session from its stored meta and autosave slot
func (m *Manager) restore(id string) (*service.Session, error) {
	meta, err := m.store.LoadMeta(id)
	if err != nil {
		return nil, err
	}

	config, err := m.configs.LoadConfig(meta.ConfigID)
	if err != nil {
		m.logger.Warn("stored config unavailable, using default",
			zap.String("session", id), zap.String("config", meta.ConfigID), zap.Error(err))
		config = m.configs.GetDefault()
	}

	eng, err := m.newEngine(meta.ID, config)
	if err != nil {
		return nil, err
	}
	if !eng.LoadPersistedState(engine.AutoSaveSlot) {
		m.logger.Info("session has no usable autosave, starting fresh", zap.String("session", id))
	}

	return &service.Session{
		ID:             meta.ID,
		ConfigID:       meta.ConfigID,
		Engine:         eng,
		Config:         config,
		CreatedAt:      meta.CreatedAt,
		LastAccessedAt: meta.LastAccessedAt,
	}, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session from memory and the store
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	_, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)

	if m.store != nil && m.store.Exists(id) {
		if err := m.store.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only (not from the store)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = m.now()
	m.persistMeta(session)
	return nil
}

// Save writes the session record and its current state to the autosave slot
func (m *Manager) Save(id string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	session, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	if err := m.store.SaveMeta(metaOf(session)); err != nil {
		return err
	}
	return m.store.Save(session.ID, engine.AutoSaveSlot, session.Engine.Machine().Snapshot())
}

// ListSaves returns the snapshot slots stored for a session
func (m *Manager) ListSaves(id string) ([]string, error) {
	session, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if m.store == nil {
		return []string{}, nil
	}
	return m.store.ListSlots(session.ID)
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired sessions evicted", zap.Int("count", removed))
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.store == nil {
		return nil
	}

	ids, err := m.store.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}
		session, err := m.restore(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", zap.String("session", id), zap.Error(err))
			continue
		}
		m.sessions[strings.ToLower(id)] = session
		loaded++
	}
	if loaded > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loaded))
	}
	return nil
}

// SaveAllSessions saves all in-memory sessions to the store
func (m *Manager) SaveAllSessions() error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for _, session := range m.sessions {
		ids = append(ids, session.ID)
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, id := range ids {
		if err := m.Save(id); err != nil {
			m.logger.Warn("failed to save session", zap.String("session", id), zap.Error(err))
			errorCount++
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}
	return nil
}

func (m *Manager) persistMeta(session *service.Session) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveMeta(metaOf(session)); err != nil {
		m.logger.Warn("failed to persist session meta", zap.String("session", session.ID), zap.Error(err))
	}
}

func metaOf(session *service.Session) Meta {
	return Meta{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
	}
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
