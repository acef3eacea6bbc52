package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/cubeclash/game/engine"
	"github.com/wricardo/cubeclash/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"CubeClash",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`CubeClash - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Two to four players share a square board. On your turn you may move once,
build once and roll once, in any order, then end your turn.

TYPICAL TURN:
- propose_action with type "move" to see where you can go
- commit_action with one of the listed targets
- propose_action with type "build", then commit_action
- roll_dice (optional)
- end_turn

Call game_instructions for the full rules.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional rule set selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": map[string]any{
					"type":        "string",
					"description": "Rule set to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(sessionTool("get_session", "Get details of a specific session"), c.handleGetSession)

	// Setup
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_player",
		Description: "Seat a player on the next free corner (setup only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"name": map[string]any{
					"type":        "string",
					"description": "Player name",
				},
			},
			Required: []string{"session_id", "name"},
		},
	}, c.handleAddPlayer)

	c.mcpServer.AddTool(sessionTool("start_game", "Start playing once at least two players are seated"), c.handleStartGame)
	c.mcpServer.AddTool(sessionTool("new_game", "Return to setup with an empty board and roster"), c.handleNewGame)

	// Turns
	c.mcpServer.AddTool(sessionTool("game_state", "Get the current game state with a board map"), c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "propose_action",
		Description: "Start an action for the current player and list its legal targets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"type": map[string]any{
					"type":        "string",
					"enum":        []string{"move", "build", "roll", "none"},
					"description": "Action to start",
				},
			},
			Required: []string{"session_id", "type"},
		},
	}, c.handleProposeAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "commit_action",
		Description: "Commit the pending move or build at a target cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"x": map[string]any{
					"type":        "integer",
					"description": "Target column",
				},
				"z": map[string]any{
					"type":        "integer",
					"description": "Target row",
				},
				"y": map[string]any{
					"type":        "integer",
					"description": "Target height (optional, taken from the proposed targets when omitted)",
				},
			},
			Required: []string{"session_id", "x", "z"},
		},
	}, c.handleCommitAction)

	c.mcpServer.AddTool(sessionTool("cancel_action", "Cancel the pending action"), c.handleCancelAction)
	c.mcpServer.AddTool(sessionTool("end_turn", "Pass the turn to the next player"), c.handleEndTurn)
	c.mcpServer.AddTool(sessionTool("roll_dice", "Roll the die: 1-2 grapple, 3 wind, 4-6 nothing"), c.handleRollDice)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Moves per page (default 20)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Saves
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_game",
		Description: "Save the session to a named slot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"name": map[string]any{
					"type":        "string",
					"description": "Slot name (letters, digits, '-' and '_')",
				},
			},
			Required: []string{"session_id", "name"},
		},
	}, c.handleSaveGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "load_game",
		Description: "Restore a named slot; omit name to list the slots",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProperty(),
				"name": map[string]any{
					"type":        "string",
					"description": "Slot name",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleLoadGame)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rule sets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete game rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		switch {
		case errResp.Error != "" && errResp.Reason != "":
			return fmt.Errorf("%s (%s)", errResp.Error, errResp.Reason)
		case errResp.Error != "":
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// intArg reads a JSON number argument
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := stringArg(arguments(request), "config_id"); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nRule set: %s\nNext: add_player at least twice, then start_game.\n", session.ID, session.ConfigName)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		phase := engine.Phase("?")
		if s.GameState != nil {
			phase = s.GameState.Phase
		}
		fmt.Fprintf(&b, "- %s (Rule set: %s, Phase: %s, Created: %s)\n",
			s.ID, s.ConfigName, phase, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleAddPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	var result service.PlayerResult
	body := map[string]string{"name": stringArg(args, "name")}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/players"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := result.Player
	text := fmt.Sprintf("Seated player %d %q (%s) at %s\n", p.ID, p.Name, p.Color, formatPosition(p.Position))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameView
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/start"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Game started!\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Message string           `json:"message"`
		State   *engine.GameView `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/new-game"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameView
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleProposeAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	var result service.ProposeResult
	body := map[string]string{"type": stringArg(args, "type")}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/actions"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatProposeResult(&result)), nil
}

func (c *Client) handleCommitAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	x, okX := intArg(args, "x")
	z, okZ := intArg(args, "z")
	if !okX || !okZ {
		return mcp.NewToolResultError("x and z are required"), nil
	}
	target := engine.Position{X: x, Z: z}

	if y, ok := intArg(args, "y"); ok {
		target.Y = y
	} else {
		// take the height from the pending action's targets
		var state engine.GameView
		if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		found := false
		for _, p := range state.Action.ValidPositions {
			if p.X == x && p.Z == z {
				target.Y, found = p.Y, true
				break
			}
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("(%d,%d) is not among the proposed targets; call propose_action first", x, z)), nil
		}
	}

	var result service.ActionResult
	body := map[string]any{"target": target}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/actions/commit"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleCancelAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameView
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, "/actions"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Action cancelled.\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.GameView
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/end-turn"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Turn ended. Player %d is up.\n\n%s", state.Data.CurrentPlayerID, formatGameState(&state))), nil
}

func (c *Client) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var result service.RollResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/roll"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("🎲 %s\n\n%s", result.Message, formatGameState(result.GameState))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleSaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	var response struct {
		Message string `json:"message"`
	}
	body := map[string]string{"name": stringArg(args, "name")}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/saves"), body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleLoadGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	name := stringArg(args, "name")

	if name == "" {
		var response struct {
			Saves []string `json:"saves"`
		}
		if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/saves"), nil, &response); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(response.Saves) == 0 {
			return mcp.NewToolResultText("No saves for this session."), nil
		}
		return mcp.NewToolResultText("Saves:\n- " + strings.Join(response.Saves, "\n- ")), nil
	}

	var state engine.GameView
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/saves/"+url.PathEscape(name)+"/load"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %s.\n\n%s", name, formatGameState(&state))), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Rule Sets:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Win: %s\n\n",
			config.Name, config.ConfigID, config.Description, config.BoardSize, config.BoardSize, config.WinCondition)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `CubeClash - Complete Instructions

GAME OBJECTIVE:
Outmaneuver your opponents on a square board by moving, stacking cubes and
climbing. Rule sets decide how a game ends: by reaching a height, after a
number of moves, or never (play until you call it).

COORDINATES:
• x runs west to east, z runs north to south, y is height
• A board of size N spans -N/2 .. N/2-1 on both x and z
• y of a cell is the height you stand at: 0 on the ground, 1 on one cube

SETUP:
• create_session, then add_player two to four times
• Players are seated on corners in order: red, blue, green, yellow
• start_game hands the first turn to player 1

YOUR TURN:
• You get one move, one build and one roll, in any order
• propose_action lists legal targets; commit_action picks one
• A rejected target keeps the action pending, so you can try another
• end_turn passes to the next player

MOVING:
• Step one cell in an allowed direction (the rule set lists them)
• You may climb at most max_climb levels and drop at most max_descend
  (0 means unlimited)
• You cannot enter a cell another player stands on

BUILDING:
• Place a cube on top of a stack or on the ground next to a cube or
  next to yourself
• With build_adjacency on, the cube must be next to you
• Stacks cannot reach max_build_height

ROLLING:
• 1-2 Grapple: a coin flip; on success you are lifted in place by the value
• 3 Wind: every player is pushed one cell the same way when the cell is free
• 4-6 Nothing happens

BOARD MAP (game_state):
• digits are stack heights, '.' is bare ground
• R B G Y mark the red, blue, green and yellow players

TIPS:
• Call game_state often; the map shows heights at a glance
• Omit y in commit_action and the proposed height is used
• save_game before risky plays; load_game restores a slot`

func formatPosition(p engine.Position) string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

func formatSessionInfo(session *service.SessionInfo) string {
	text := fmt.Sprintf("Session: %s\nRule set: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		text += "\n" + formatGameState(session.GameState)
	}
	return text
}

var colorMarks = map[string]string{"red": "R", "blue": "B", "green": "G", "yellow": "Y"}

// formatBoard draws the board with z rows and x columns
func formatBoard(state *engine.GameView) string {
	if state.BoardSize <= 0 {
		return ""
	}
	heights := engine.StackHeights(state.Data.Board)
	marks := map[engine.Position]string{}
	for _, p := range state.Data.Players {
		mark := colorMarks[p.Color]
		if mark == "" {
			mark = fmt.Sprint(p.ID)
		}
		marks[engine.Position{X: p.Position.X, Z: p.Position.Z}] = mark
	}

	lo, hi := -state.BoardSize/2, state.BoardSize/2-1
	var b strings.Builder
	b.WriteString("     ")
	for x := lo; x <= hi; x++ {
		fmt.Fprintf(&b, "%3d", x)
	}
	b.WriteString("  x\n")
	for z := lo; z <= hi; z++ {
		fmt.Fprintf(&b, "%4d ", z)
		for x := lo; x <= hi; x++ {
			cell := engine.Position{X: x, Z: z}
			switch {
			case marks[cell] != "":
				fmt.Fprintf(&b, "%3s", marks[cell])
			case heights[cell] > 0:
				fmt.Fprintf(&b, "%3d", heights[cell])
			default:
				b.WriteString("  .")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("   z\n")
	return b.String()
}

func formatGameState(state *engine.GameView) string {
	if state == nil {
		return "No game state available\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== CubeClash (%s) ===\n", state.ConfigName)
	fmt.Fprintf(&b, "Phase: %s\n", state.Phase)
	if state.Phase == engine.PhaseGameOver {
		if state.Winner > 0 {
			fmt.Fprintf(&b, "🏆 Player %d wins!\n", state.Winner)
		} else {
			b.WriteString("Game over, no winner.\n")
		}
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range state.Data.Players {
		turn := "  "
		if p.ID == state.Data.CurrentPlayerID && state.Phase == engine.PhasePlaying {
			turn = "▶ "
		}
		var left []string
		if p.CanMove {
			left = append(left, "move")
		}
		if p.CanBuild {
			left = append(left, "build")
		}
		if p.CanRoll {
			left = append(left, "roll")
		}
		if len(left) == 0 {
			left = append(left, "nothing")
		}
		fmt.Fprintf(&b, "%s%d %s (%s) at %s, can: %s\n", turn, p.ID, p.Name, p.Color, formatPosition(p.Position), strings.Join(left, ", "))
	}

	if state.Action.Type != "" && state.Action.Type != engine.ActionNone {
		fmt.Fprintf(&b, "\nPending action: %s with %d targets\n", state.Action.Type, len(state.Action.ValidPositions))
	}

	b.WriteString("\n")
	b.WriteString(formatBoard(state))
	return b.String()
}

func formatProposeResult(result *service.ProposeResult) string {
	if len(result.ValidPositions) == 0 {
		switch result.Action {
		case engine.ActionRoll:
			return "Roll ready, call roll_dice.\n"
		case engine.ActionNone:
			return "Action cleared.\n"
		}
		return fmt.Sprintf("No legal targets for %s. Try another action or end_turn.\n", result.Action)
	}
	targets := make([]string, len(result.ValidPositions))
	for i, p := range result.ValidPositions {
		targets[i] = formatPosition(p)
	}
	return fmt.Sprintf("Legal %s targets (x,y,z):\n%s\n\nCall commit_action with one of them.\n",
		result.Action, strings.Join(targets, "\n"))
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s committed at %s\n", result.Action, formatPosition(result.Target))
	for _, e := range result.Events {
		fmt.Fprintf(&b, "• %s\n", e.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d, Total: %d moves):\n\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		fmt.Fprintf(&b, "- player %d %s %s at %s\n", m.PlayerID, m.Action, formatPosition(m.Position),
			time.UnixMilli(m.Timestamp).UTC().Format("15:04:05.000"))
	}
	if history.HasNext {
		b.WriteString("\nMore moves available, request the next page.\n")
	}
	return b.String()
}
