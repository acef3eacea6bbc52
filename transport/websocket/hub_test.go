package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/cubeclash/game/engine"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, hub *Hub, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount(sessionID)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount(sessionID) == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.logger)
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 1)}
	b := &Client{hub: hub, sessionID: "s1", send: make(chan []byte, 1)}

	hub.registerClient(a)
	hub.registerClient(b)
	assert.Equal(t, 2, hub.ClientCount("s1"))

	hub.unregisterClient(a)
	assert.Equal(t, 1, hub.ClientCount("s1"))
	_, open := <-a.send
	assert.False(t, open, "send channel closed on unregister")

	hub.unregisterClient(b)
	assert.Zero(t, hub.ClientCount("s1"))
	assert.NotContains(t, hub.sessions, "s1")

	// second unregister is a no-op
	hub.unregisterClient(b)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "s1", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s1", Event: "turn_ended"})
	assert.Zero(t, hub.ClientCount("s1"))
}

func TestBroadcastQueueNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// nothing drains the queue, so the overflow is dropped
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.BroadcastToSession("s1", "turn_ended", i)
	}
	assert.Len(t, hub.broadcast, broadcastBuffer)
}

func TestWebSocketStateUpdate(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, "ab12")
	other := dial(t, hub, server, "cd34")

	view := &engine.GameView{Phase: engine.PhasePlaying, ConfigName: "classic", BoardSize: 8}
	hub.BroadcastToSession("ab12", EventStateUpdate, view)

	msg := readMessage(t, conn)
	assert.Equal(t, "ab12", msg.SessionID)
	assert.Equal(t, EventStateUpdate, msg.Event)
	require.NotNil(t, msg.GameState)
	assert.Equal(t, engine.PhasePlaying, msg.GameState.Phase)
	assert.Nil(t, msg.Data)

	// the other session hears nothing
	require.NoError(t, other.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketEventsAndHighlights(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, "ab12")

	hub.BroadcastToSession("ab12", "turn_ended", map[string]int{"player_id": 1})
	msg := readMessage(t, conn)
	assert.Equal(t, "turn_ended", msg.Event)
	assert.Nil(t, msg.GameState)
	assert.Equal(t, map[string]any{"player_id": float64(1)}, msg.Data)

	h := NewHighlighter(hub, "ab12")
	h.ShowTargets(engine.Highlight{
		Positions: []engine.Position{{X: 1, Z: 2}},
		Color:     "red",
		Style:     engine.StyleMove,
	})
	msg = readMessage(t, conn)
	assert.Equal(t, EventHighlight, msg.Event)
	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "red", data["color"])
	assert.Equal(t, "move", data["style"])

	h.ClearTargets()
	msg = readMessage(t, conn)
	assert.Equal(t, EventHighlightClear, msg.Event)
	assert.Nil(t, msg.Data)
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, "ab12")
	require.Equal(t, 1, hub.ClientCount("ab12"))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("ab12") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHighlighterDrivesEngine(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, "ab12")

	eng, err := engine.NewEngine(engine.DefaultGameConfig(), engine.WithHighlighter(NewHighlighter(hub, "ab12")))
	require.NoError(t, err)
	_, err = eng.AddPlayer("Ada")
	require.NoError(t, err)
	_, err = eng.AddPlayer("Bo")
	require.NoError(t, err)
	require.NoError(t, eng.StartGame())

	targets, err := eng.ProposeAction(engine.ActionMove, nil)
	require.NoError(t, err)

	// starting an action first clears whatever was highlighted before
	msg := readMessage(t, conn)
	require.Equal(t, EventHighlightClear, msg.Event)
	msg = readMessage(t, conn)
	require.Equal(t, EventHighlight, msg.Event)
	data := msg.Data.(map[string]any)
	assert.Len(t, data["positions"], len(targets))
	assert.Equal(t, "red", data["color"])
}
