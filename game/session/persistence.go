package session

import (
	"fmt"
	"regexp"
	"time"

	"github.com/wricardo/cubeclash/game/engine"
)

// SnapshotStore persists session metadata and named snapshot slots
type SnapshotStore interface {
	// SaveMeta writes the session record
	SaveMeta(meta Meta) error

	// LoadMeta reads the session record, ErrSessionNotFound when absent
	LoadMeta(sessionID string) (Meta, error)

	// Save writes a snapshot into a slot of a session
	Save(sessionID, slot string, snap engine.Snapshot) error

	// Load reads a slot, engine.ErrSnapshotNotFound when absent
	Load(sessionID, slot string) (engine.Snapshot, error)

	// ListSlots returns the slot names of a session, sorted
	ListSlots(sessionID string) ([]string, error)

	// ListSessions returns every stored session id
	ListSessions() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(sessionID string) bool

	// Delete removes a session and all its slots
	Delete(sessionID string) error

	Close() error
}

// Meta is the stored record of a session
type Meta struct {
	ID             string    `json:"id"`
	ConfigID       string    `json:"config_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateName rejects session ids and slot names that are unsafe as file names
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ScopedStore binds a SnapshotStore to one session so it satisfies engine.Store
type ScopedStore struct {
	store     SnapshotStore
	sessionID string
}

// NewScopedStore creates the engine-facing view of store for sessionID
func NewScopedStore(store SnapshotStore, sessionID string) *ScopedStore {
	return &ScopedStore{store: store, sessionID: sessionID}
}

func (s *ScopedStore) Save(slot string, snap engine.Snapshot) error {
	return s.store.Save(s.sessionID, slot, snap)
}

func (s *ScopedStore) Load(slot string) (engine.Snapshot, error) {
	return s.store.Load(s.sessionID, slot)
}
