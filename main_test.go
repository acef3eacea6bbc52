package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// settingsFor runs the root command with args and returns the loaded settings
func settingsFor(t *testing.T, args ...string) (Settings, error) {
	t.Helper()
	var (
		got     Settings
		loadErr error
	)
	app := newApp()
	app.Commands = nil
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		got, loadErr = loadSettings(cmd)
		return nil
	}
	require.NoError(t, app.Run(context.Background(), append([]string{"cubeclash"}, args...)))
	return got, loadErr
}

func TestSettingsDefaults(t *testing.T) {
	s, err := settingsFor(t)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", s.Addr)
	assert.Equal(t, StoreFile, s.Store)
	assert.Equal(t, "sessions", s.SessionsDir)
	assert.Equal(t, 24*time.Hour, s.SessionTTL)
	assert.False(t, s.Debug)
	assert.False(t, s.Ngrok.Enabled)
}

func TestSettingsLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: "0.0.0.0:9000"
store: sqlite
sqlite_path: /tmp/from-file.db
ngrok:
  domain: from-file.ngrok.app
`), 0o644))

	t.Setenv("CUBECLASH_SQLITE_PATH", "/tmp/from-env.db")
	t.Setenv("CUBECLASH_SESSION_TTL", "2h")

	s, err := settingsFor(t, "--settings", path, "--addr", "127.0.0.1:9999", "--debug")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", s.Addr, "flag beats file")
	assert.Equal(t, StoreSQLite, s.Store, "file beats default")
	assert.Equal(t, "/tmp/from-env.db", s.SQLitePath, "env beats file")
	assert.Equal(t, 2*time.Hour, s.SessionTTL)
	assert.Equal(t, "from-file.ngrok.app", s.Ngrok.Domain)
	assert.True(t, s.Debug)
}

func TestSettingsValidation(t *testing.T) {
	_, err := settingsFor(t, "--store", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")

	_, err = settingsFor(t, "--settings", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(context.Background(), []string{"cubeclash", "version"}))
	assert.Equal(t, AppName+" v"+Version+"\n", out.String())
}

func testSettings(t *testing.T, store string) Settings {
	t.Helper()
	dir := t.TempDir()
	s := Settings{
		Addr:        "127.0.0.1:0",
		ConfigDir:   filepath.Join(dir, "configs"),
		Store:       store,
		SessionsDir: filepath.Join(dir, "sessions"),
		SQLitePath:  filepath.Join(dir, "cubeclash.db"),
	}
	require.NoError(t, os.MkdirAll(s.ConfigDir, 0o755))
	return s
}

func TestInitializeServices(t *testing.T) {
	for _, store := range []string{StoreFile, StoreSQLite, StoreMemory} {
		t.Run(store, func(t *testing.T) {
			s := testSettings(t, store)
			svc, err := initializeServices(s, zap.NewNop())
			require.NoError(t, err)
			defer svc.Close(zap.NewNop())

			assert.Equal(t, store == StoreMemory, svc.store == nil)
			info, err := svc.game.CreateSession(context.Background(), "")
			require.NoError(t, err)
			assert.Equal(t, "classic", info.GameState.ConfigName)
		})
	}
}

func TestInitializeServicesMissingConfigDir(t *testing.T) {
	s := testSettings(t, StoreMemory)
	s.ConfigDir = "/non/existent/path"
	_, err := initializeServices(s, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeServicesRestoresSessions(t *testing.T) {
	s := testSettings(t, StoreFile)

	first, err := initializeServices(s, zap.NewNop())
	require.NoError(t, err)
	info, err := first.game.CreateSession(context.Background(), "")
	require.NoError(t, err)
	_, err = first.game.AddPlayer(context.Background(), info.ID, "Ada")
	require.NoError(t, err)
	first.Close(zap.NewNop())

	second, err := initializeServices(s, zap.NewNop())
	require.NoError(t, err)
	defer second.Close(zap.NewNop())
	state, err := second.game.GetGameState(context.Background(), info.ID)
	require.NoError(t, err)
	require.Len(t, state.Data.Players, 1)
	assert.Equal(t, "Ada", state.Data.Players[0].Name)
}

func TestRouter(t *testing.T) {
	svc, err := initializeServices(testSettings(t, StoreMemory), zap.NewNop())
	require.NoError(t, err)
	defer svc.Close(zap.NewNop())

	server := httptest.NewServer(newRouter(svc, zap.NewNop(), "http://127.0.0.1:1"))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/mcp")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(server.URL+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestPruneOrphans(t *testing.T) {
	s := testSettings(t, StoreFile)
	svc, err := initializeServices(s, zap.NewNop())
	require.NoError(t, err)
	defer svc.Close(zap.NewNop())

	kept, err := svc.game.CreateSession(context.Background(), "")
	require.NoError(t, err)
	gone, err := svc.game.CreateSession(context.Background(), "")
	require.NoError(t, err)

	assert.Zero(t, pruneOrphans(svc.sessions, svc.store, zap.NewNop()))

	require.NoError(t, os.RemoveAll(filepath.Join(s.SessionsDir, gone.ID)))
	assert.Equal(t, 1, pruneOrphans(svc.sessions, svc.store, zap.NewNop()))
	assert.Equal(t, 1, svc.sessions.Count())
	_, err = svc.sessions.Get(kept.ID)
	assert.NoError(t, err)
}

func TestAPIAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.True(t, apiAvailable(context.Background(), server.URL))
	assert.False(t, apiAvailable(context.Background(), "http://127.0.0.1:1"))
}
