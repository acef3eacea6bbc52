package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/cubeclash/game/engine"
)

const (
	metaFile      = "meta.json"
	slotsDir      = "slots"
	jsonExt       = ".json"
	compressedExt = ".json.zst"
)

// FileStore implements SnapshotStore on the file system:
// <dir>/<session>/meta.json plus one slots/<slot>.json or slots/<slot>.json.zst
// per slot. Slots live apart from meta.json so no slot name can shadow it.
type FileStore struct {
	dir      string
	compress bool
}

// NewFileStore creates a file store rooted at dir. With compress set, slots are
// written zstd-compressed; both forms are always readable.
func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FileStore{dir: dir, compress: compress}, nil
}

// SaveMeta writes meta.json for the session
func (fs *FileStore) SaveMeta(meta Meta) error {
	if err := ValidateName(meta.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session meta: %w", err)
	}
	if err := os.MkdirAll(fs.sessionDir(meta.ID), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(fs.sessionDir(meta.ID), metaFile), data); err != nil {
		return fmt.Errorf("failed to write session meta: %w", err)
	}
	return nil
}

// LoadMeta reads meta.json for the session
func (fs *FileStore) LoadMeta(sessionID string) (Meta, error) {
	if err := ValidateName(sessionID); err != nil {
		return Meta{}, err
	}
	data, err := os.ReadFile(filepath.Join(fs.sessionDir(sessionID), metaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, ErrSessionNotFound
		}
		return Meta{}, fmt.Errorf("failed to read session meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("failed to unmarshal session meta: %w", err)
	}
	return meta, nil
}

// Save writes a snapshot slot, replacing any previous form of it
func (fs *FileStore) Save(sessionID, slot string, snap engine.Snapshot) error {
	if err := ValidateName(sessionID); err != nil {
		return err
	}
	if err := ValidateName(slot); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(fs.slotDir(sessionID), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	path, stale := fs.slotPath(sessionID, slot, jsonExt), fs.slotPath(sessionID, slot, compressedExt)
	if fs.compress {
		path, stale = stale, path
		if data, err = compress(data); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	_ = os.Remove(stale)
	return nil
}

// Load reads a slot in whichever form exists
func (fs *FileStore) Load(sessionID, slot string) (engine.Snapshot, error) {
	if err := ValidateName(sessionID); err != nil {
		return engine.Snapshot{}, err
	}
	if err := ValidateName(slot); err != nil {
		return engine.Snapshot{}, err
	}

	data, err := os.ReadFile(fs.slotPath(sessionID, slot, compressedExt))
	if err == nil {
		if data, err = decompress(data); err != nil {
			return engine.Snapshot{}, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		data, err = os.ReadFile(fs.slotPath(sessionID, slot, jsonExt))
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine.Snapshot{}, engine.ErrSnapshotNotFound
		}
		return engine.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return DecodeSnapshot(data)
}

// ListSlots returns the slot names stored for a session
func (fs *FileStore) ListSlots(sessionID string) ([]string, error) {
	if err := ValidateName(sessionID); err != nil {
		return nil, err
	}
	if _, err := os.Stat(fs.sessionDir(sessionID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}
	entries, err := os.ReadDir(fs.slotDir(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read slots directory: %w", err)
	}

	seen := map[string]bool{}
	slots := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		var slot string
		switch {
		case strings.HasSuffix(name, compressedExt):
			slot = strings.TrimSuffix(name, compressedExt)
		case strings.HasSuffix(name, jsonExt):
			slot = strings.TrimSuffix(name, jsonExt)
		default:
			continue
		}
		if !seen[slot] {
			seen[slot] = true
			slots = append(slots, slot)
		}
	}
	sort.Strings(slots)
	return slots, nil
}

// ListSessions returns all persisted session IDs
func (fs *FileStore) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && fs.Exists(entry.Name()) {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// Exists checks if a session has a meta file
func (fs *FileStore) Exists(sessionID string) bool {
	if ValidateName(sessionID) != nil {
		return false
	}
	_, err := os.Stat(filepath.Join(fs.sessionDir(sessionID), metaFile))
	return err == nil
}

// Delete removes the session directory
func (fs *FileStore) Delete(sessionID string) error {
	if !fs.Exists(sessionID) {
		return ErrSessionNotFound
	}
	if err := os.RemoveAll(fs.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) sessionDir(id string) string {
	return filepath.Join(fs.dir, id)
}

func (fs *FileStore) slotDir(id string) string {
	return filepath.Join(fs.sessionDir(id), slotsDir)
}

func (fs *FileStore) slotPath(id, slot, ext string) string {
	return filepath.Join(fs.slotDir(id), slot+ext)
}

// DecodeSnapshot parses a snapshot document, compressed or not
func DecodeSnapshot(data []byte) (engine.Snapshot, error) {
	if IsCompressed(data) {
		var err error
		if data, err = decompress(data); err != nil {
			return engine.Snapshot{}, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsCompressed reports whether data starts with the zstd frame magic
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == string(zstdMagic)
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// writeFileAtomic writes through a temp file so readers never see a torn slot
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
