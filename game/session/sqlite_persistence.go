package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/cubeclash/game/engine"
)

// SQLiteStore implements SnapshotStore on a single SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			config_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_accessed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			slot TEXT NOT NULL,
			phase TEXT NOT NULL,
			data TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (session_id, slot)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveMeta(meta Meta) error {
	if err := ValidateName(meta.ID); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO sessions (id, config_id, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config_id = excluded.config_id, last_accessed_at = excluded.last_accessed_at`,
		meta.ID, meta.ConfigID, meta.CreatedAt.UTC().Format(time.RFC3339Nano), meta.LastAccessedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save session meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadMeta(sessionID string) (Meta, error) {
	var meta Meta
	var created, accessed string
	err := s.db.QueryRow(`SELECT id, config_id, created_at, last_accessed_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&meta.ID, &meta.ConfigID, &created, &accessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, ErrSessionNotFound
		}
		return Meta{}, fmt.Errorf("failed to load session meta: %w", err)
	}
	if meta.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Meta{}, fmt.Errorf("bad created_at for %s: %w", sessionID, err)
	}
	if meta.LastAccessedAt, err = time.Parse(time.RFC3339Nano, accessed); err != nil {
		return Meta{}, fmt.Errorf("bad last_accessed_at for %s: %w", sessionID, err)
	}
	return meta, nil
}

// Save upserts a slot. The session row must exist.
func (s *SQLiteStore) Save(sessionID, slot string, snap engine.Snapshot) error {
	if err := ValidateName(slot); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO snapshots (session_id, slot, phase, data, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, slot) DO UPDATE SET phase = excluded.phase, data = excluded.data, saved_at = excluded.saved_at`,
		sessionID, slot, snap.CurrentState, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(sessionID, slot string) (engine.Snapshot, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE session_id = ? AND slot = ?`, sessionID, slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.Snapshot{}, engine.ErrSnapshotNotFound
		}
		return engine.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return DecodeSnapshot([]byte(data))
}

func (s *SQLiteStore) ListSlots(sessionID string) ([]string, error) {
	if !s.Exists(sessionID) {
		return nil, ErrSessionNotFound
	}
	rows, err := s.db.Query(`SELECT slot FROM snapshots WHERE session_id = ? ORDER BY slot`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *SQLiteStore) ListSessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *SQLiteStore) Exists(sessionID string) bool {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM sessions WHERE id = ?`, sessionID).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

func (s *SQLiteStore) Delete(sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
