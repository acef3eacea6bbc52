package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"
)

// Store kinds accepted by the store setting
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Settings holds the process configuration
type Settings struct {
	Addr        string        `mapstructure:"addr"`
	ConfigDir   string        `mapstructure:"config_dir"`
	Store       string        `mapstructure:"store"`
	SessionsDir string        `mapstructure:"sessions_dir"`
	Compress    bool          `mapstructure:"compress"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	Debug       bool          `mapstructure:"debug"`
	APIURL      string        `mapstructure:"api_url"`
	Ngrok       NgrokSettings `mapstructure:"ngrok"`
}

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authtoken"`
	Domain    string `mapstructure:"domain"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("config_dir", "configs")
	v.SetDefault("store", StoreFile)
	v.SetDefault("sessions_dir", "sessions")
	v.SetDefault("compress", false)
	v.SetDefault("sqlite_path", "cubeclash.db")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("debug", false)
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authtoken", "")
	v.SetDefault("ngrok.domain", "")
}

// flagKeys maps command-line flags to setting keys
var flagKeys = map[string]string{
	"addr":         "addr",
	"config-dir":   "config_dir",
	"store":        "store",
	"sessions-dir": "sessions_dir",
	"compress":     "compress",
	"sqlite-path":  "sqlite_path",
	"session-ttl":  "session_ttl",
	"debug":        "debug",
	"api-url":      "api_url",
	"ngrok":        "ngrok.enabled",
	"ngrok-auth":   "ngrok.authtoken",
	"ngrok-domain": "ngrok.domain",
}

// loadSettings layers defaults, the settings file, CUBECLASH_* environment
// variables and explicitly set flags, in that order
func loadSettings(cmd *cli.Command) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CUBECLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := cmd.String("settings"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
	} else {
		v.SetConfigName("cubeclash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("failed to read cubeclash.yaml: %w", err)
			}
		}
	}

	for flag, key := range flagKeys {
		if !cmd.IsSet(flag) {
			continue
		}
		switch flag {
		case "compress", "debug", "ngrok":
			v.Set(key, cmd.Bool(flag))
		case "session-ttl":
			v.Set(key, cmd.Duration(flag))
		default:
			v.Set(key, cmd.String(flag))
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, s.validate()
}

func (s Settings) validate() error {
	switch s.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (use %s, %s or %s)", s.Store, StoreFile, StoreSQLite, StoreMemory)
	}
	if s.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if s.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must not be negative, got %s", s.SessionTTL)
	}
	return nil
}
