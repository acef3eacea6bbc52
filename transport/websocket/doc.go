// Package websocket provides the push channel for CubeClash clients.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every committed change
//   - Target highlights for the pending action
//   - Connection lifecycle management
//
// Architecture:
//
// A central Hub owns every connection. Its Run loop is the only goroutine
// that touches the session map; registrations and broadcasts reach it over
// channels. Each client has a read pump (close detection and keepalive) and
// a write pump.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per frame:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "highlight", "data": {"positions": [...], "color": "red", "style": "move"}}
//	{"session_id": "ab12", "event": "turn_ended", "data": {...}}
//
// Clients do not send game commands over the socket; they use the REST API.
//
// Session Integration:
//
// Clients pass the session ID as a query parameter (?session=ab12). Hub
// implements service.Broadcaster, and Highlighter implements
// engine.Highlighter for one session.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	sessions := session.NewManager(session.WithEngineOptions(func(id string) []engine.Option {
//		return []engine.Option{engine.WithHighlighter(websocket.NewHighlighter(hub, id))}
//	}))
//	svc := service.NewGameService(sessions, configs, service.WithBroadcaster(hub))
package websocket
