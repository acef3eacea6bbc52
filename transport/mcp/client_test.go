package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/cubeclash/api"
	"github.com/wricardo/cubeclash/game/config"
	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
	"github.com/wricardo/cubeclash/game/session"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	configDir := t.TempDir()
	data, err := json.Marshal(engine.DefaultGameConfig())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "classic.json"), data, 0o644))

	configs, err := config.NewManager(configDir)
	require.NoError(t, err)
	store, err := session.NewFileStore(t.TempDir(), false)
	require.NoError(t, err)

	sessions := session.NewManager(session.WithStore(store, configs))
	server := httptest.NewServer(api.NewServer(service.NewGameService(sessions, configs), nil, nil))
	t.Cleanup(server.Close)
	return server
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestToolsList(t *testing.T) {
	client := NewClient("http://localhost:8080")
	ctx := context.Background()

	client.GetMCPServer().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))
	resp := client.GetMCPServer().HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	names := []string{}
	for _, tool := range decoded.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"create_session", "list_sessions", "get_session",
		"add_player", "start_game", "new_game",
		"game_state", "propose_action", "commit_action", "cancel_action",
		"end_turn", "roll_dice", "move_history",
		"save_game", "load_game", "list_configs", "game_instructions",
	}, names)
}

func TestAPICallErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rule":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"(3,3) holds a player","reason":"occupied_by_player"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}
	}))
	defer server.Close()
	client := NewClient(server.URL)

	err := client.apiCall(context.Background(), "GET", "/rule", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "(3,3) holds a player (occupied_by_player)", err.Error())

	err = client.apiCall(context.Background(), "GET", "/boom", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error: 500")

	bad := NewClient("http://127.0.0.1:1")
	assert.Error(t, bad.apiCall(context.Background(), "GET", "/", nil, nil))
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"a": float64(-3), "b": 4, "c": json.Number("7"), "d": "x"}
	v, ok := intArg(args, "a")
	assert.True(t, ok)
	assert.Equal(t, -3, v)
	v, ok = intArg(args, "b")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	v, ok = intArg(args, "c")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok = intArg(args, "d")
	assert.False(t, ok)
	_, ok = intArg(args, "missing")
	assert.False(t, ok)
}

func TestPlayThroughTools(t *testing.T) {
	server := newAPI(t)
	client := NewClient(server.URL)

	text, isErr := call(t, client.handleCreateSession, nil)
	require.False(t, isErr, text)
	require.True(t, strings.HasPrefix(text, "Created session: "))
	id := strings.TrimSpace(strings.SplitN(strings.TrimPrefix(text, "Created session: "), "\n", 2)[0])
	sid := map[string]any{"session_id": id}

	text, isErr = call(t, client.handleStartGame, sid)
	assert.True(t, isErr)
	assert.Contains(t, text, "insufficient_players")

	for _, name := range []string{"Ada", "Bo"} {
		text, isErr = call(t, client.handleAddPlayer, map[string]any{"session_id": id, "name": name})
		require.False(t, isErr, text)
	}
	assert.Contains(t, text, `player 2 "Bo" (blue) at (3,0,3)`)

	text, isErr = call(t, client.handleStartGame, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Phase: playing")
	assert.Contains(t, text, "▶ 1 Ada")

	text, isErr = call(t, client.handleProposeAction, map[string]any{"session_id": id, "type": "build"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "(-3,0,-4)")
	assert.Contains(t, text, "(-4,0,-3)")

	text, isErr = call(t, client.handleCommitAction, map[string]any{"session_id": id, "x": float64(0), "z": float64(0)})
	assert.True(t, isErr)
	assert.Contains(t, text, "not among the proposed targets")

	// y comes from the proposed targets
	text, isErr = call(t, client.handleCommitAction, map[string]any{"session_id": id, "x": float64(-3), "z": float64(-4)})
	require.False(t, isErr, text)
	assert.Contains(t, text, "build committed at (-3,0,-4)")
	assert.Contains(t, text, "Player 1 built at (-3,0,-4)")

	text, isErr = call(t, client.handleProposeAction, map[string]any{"session_id": id, "type": "move"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "(-3,1,-4)")

	text, isErr = call(t, client.handleCancelAction, sid)
	require.False(t, isErr, text)
	assert.NotContains(t, text, "Pending action")

	text, isErr = call(t, client.handleGameState, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "  R  1")

	text, isErr = call(t, client.handleSaveGame, map[string]any{"session_id": id, "name": "first"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "first")

	text, isErr = call(t, client.handleEndTurn, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Player 2 is up")

	text, isErr = call(t, client.handleRollDice, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Player 2 rolled")

	text, isErr = call(t, client.handleMoveHistory, map[string]any{"session_id": id, "limit": float64(1)})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Total: 2 moves")
	assert.Contains(t, text, "player 2 roll")
	assert.Contains(t, text, "More moves available")

	text, isErr = call(t, client.handleLoadGame, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "- first")

	text, isErr = call(t, client.handleLoadGame, map[string]any{"session_id": id, "name": "first"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "▶ 1 Ada")

	text, isErr = call(t, client.handleListSessions, nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Active Sessions (1)")

	text, isErr = call(t, client.handleNewGame, sid)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Phase: setup")
}

func TestInfoTools(t *testing.T) {
	server := newAPI(t)
	client := NewClient(server.URL)

	text, isErr := call(t, client.handleListConfigs, nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "config_id: classic")
	assert.Contains(t, text, "Board: 8x8")

	text, isErr = call(t, client.handleGameInstructions, nil)
	require.False(t, isErr)
	assert.Contains(t, text, "ROLLING")

	text, isErr = call(t, client.handleGetSession, map[string]any{"session_id": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "session not found")

	text, isErr = call(t, client.handleCreateSession, map[string]any{"config_id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "classic")
}

func TestFormatBoard(t *testing.T) {
	view := &engine.GameView{
		BoardSize: 4,
		Data: engine.GameStateData{
			Players: []engine.Player{{ID: 1, Color: "red", Position: engine.Position{X: -2, Z: -2}}},
			Board: []engine.BoardEntry{
				{ID: "c1", Kind: engine.KindCube, Position: engine.Position{X: 0, Y: 0, Z: 1}},
				{ID: "c2", Kind: engine.KindCube, Position: engine.Position{X: 0, Y: 1, Z: 1}},
			},
		},
	}
	board := formatBoard(view)
	lines := strings.Split(board, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "      -2 -1  0  1  x", lines[0])
	assert.Equal(t, "  -2   R  .  .  .", lines[1])
	assert.Equal(t, "   1   .  .  2  .", lines[4])
}
