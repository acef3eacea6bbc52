package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Extensions lists the rule-set file extensions in lookup order
var Extensions = []string{".json", ".yaml", ".yml"}

//go:embed schema.json
var schemaJSON string

var ruleSchema = jsonschema.MustCompileString("cubeclash-rules.json", schemaJSON)

// Manager handles rule-set loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	logger        *zap.Logger
	mu            sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a new configuration manager
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a rule set by name. The name may carry its extension.
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

func (m *Manager) loadLocked(id string) (*engine.GameConfig, error) {
	if config, exists := m.configs[id]; exists {
		return config, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, ErrConfigNotFound
	}

	path, ok := m.find(id)
	if !ok {
		return nil, ErrConfigNotFound
	}
	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	m.logger.Debug("rule set loaded", zap.String("config", id), zap.String("path", path))
	return config, nil
}

// find returns the first existing file for id in extension order
func (m *Manager) find(id string) (string, bool) {
	for _, ext := range Extensions {
		path := filepath.Join(m.configDir, id+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ListConfigs returns information about all loadable rule sets. Files that
// fail validation are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	seen := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() || !IsRuleFile(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(id)
		if err != nil {
			m.logger.Warn("skipping invalid rule set", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		seen[id] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:     entry.Name(),
			ConfigID:     id,
			Name:         config.Name,
			Description:  config.Description,
			BoardSize:    config.BoardSize,
			WinCondition: config.WinCondition.Type,
		})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default rule set
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default rule set by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached rule set and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, then the first loadable file, then the
// built-in rule set
func (m *Manager) loadDefaultConfig() {
	config, err := m.LoadConfig("classic")
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr == nil && len(configs) > 0 {
			config, err = m.LoadConfig(configs[0].ConfigID)
		}
	}
	if err != nil || config == nil {
		m.logger.Info("no rule set on disk, using built-in classic", zap.String("dir", m.configDir))
		config = engine.DefaultGameConfig()
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig validates a rule set and writes it to disk. The extension of
// name picks the format; bare names are written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	id := configID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: bad rule-set name %q", ErrInvalidConfig, name)
	}
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	// written files must pass the schema on the next load
	normalized := *config
	if normalized.StartingHand == nil {
		normalized.StartingHand = []string{}
	}
	if normalized.WinCondition.Type == "" {
		normalized.WinCondition.Type = engine.WinNone
	}
	config = &normalized

	ext := strings.ToLower(filepath.Ext(name))
	var (
		data []byte
		err  error
	)
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		ext = ".json"
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// an older file in another format would shadow or duplicate the new one
	for _, other := range Extensions {
		if other != ext {
			_ = os.Remove(filepath.Join(m.configDir, id+other))
		}
	}
	if err := os.WriteFile(filepath.Join(m.configDir, id+ext), data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configs[id] = config
	m.logger.Info("rule set saved", zap.String("config", id), zap.String("format", strings.TrimPrefix(ext, ".")))
	return nil
}

// Count returns the number of cached rule sets
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// IsRuleFile reports whether name has a rule-set extension
func IsRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func configID(name string) string {
	if IsRuleFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// LoadFile reads, schema-checks and validates one rule-set file
func LoadFile(path string) (*engine.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a rule set in the format named by ext (".json", ".yaml" or
// ".yml"), checks it against the rule-set schema and validates it
func Parse(data []byte, ext string) (*engine.GameConfig, error) {
	doc, err := toJSON(data, strings.ToLower(ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var generic any
	if err := json.Unmarshal(doc, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := ruleSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var config engine.GameConfig
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// toJSON normalizes YAML documents to JSON so one schema covers both formats
func toJSON(data []byte, ext string) ([]byte, error) {
	switch ext {
	case ".json", "":
		return data, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported rule-set format %q", ext)
	}
}
