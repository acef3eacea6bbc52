// Package mcp exposes CubeClash to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package, and the JSON answer is rendered as text an agent can read,
// including an ASCII map of stack heights and player markers.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - add_player, start_game, new_game
//   - game_state, propose_action, commit_action, cancel_action
//   - roll_dice, end_turn, move_history
//   - save_game, load_game
//   - list_configs, game_instructions
//
// commit_action accepts x and z alone and fills in the height from the
// targets returned by the last propose_action.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
