// Package api provides the HTTP REST API for CubeClash.
//
// The api package implements:
//   - Session management endpoints
//   - Turn actions (propose, commit, cancel, roll, end turn)
//   - Save slots per session
//   - Rule-set listing and upload
//   - WebSocket upgrade for session watchers
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Setup:
//   - POST /api/sessions/{id}/players - Seat a player ({"name": "Ada"})
//   - POST /api/sessions/{id}/start - Leave setup and start playing
//   - POST /api/sessions/{id}/new-game - Return to setup with a fresh board
//
// Turns:
//   - GET /api/sessions/{id}/state - Current game view
//   - POST /api/sessions/{id}/actions - Start an action ({"type": "move"}), returns legal targets
//   - POST /api/sessions/{id}/actions/commit - Commit the pending action ({"target": {"x":-3,"y":0,"z":-4}})
//   - DELETE /api/sessions/{id}/actions - Cancel the pending action
//   - POST /api/sessions/{id}/roll - Roll the die
//   - POST /api/sessions/{id}/end-turn - Pass the turn
//   - GET /api/sessions/{id}/history - Move history (?page=1&limit=20&order=desc)
//
// Saves:
//   - GET /api/sessions/{id}/saves - List slots
//   - POST /api/sessions/{id}/saves - Save to a slot ({"name": "opening"})
//   - POST /api/sessions/{id}/saves/{name}/load - Restore a slot
//
// Rule sets:
//   - GET /api/configs - List rule sets
//   - POST /api/configs - Validate and store a rule set
//   - GET /api/configs/{name} - Get one rule set
//
// Errors:
//
// Failed requests return {"error": "...", "reason": "..."}. Rule rejections
// carry the engine reason (e.g. "occupied_by_player") and map to 422, phase
// and turn-order rejections to 409, unknown sessions, rule sets and slots to
// 404, malformed input to 400.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, logger)
//	http.ListenAndServe(":8080", server)
package api
