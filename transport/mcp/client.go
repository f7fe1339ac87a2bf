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

	"github.com/inconshreveable/log15/v3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
	"github.com/wricardo/mcp-training/goodiegrid/game/service"
)

var log = log15.New("module", "mcp")

var directions = []string{engine.DirUp, engine.DirDown, engine.DirLeft, engine.DirRight}

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
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
		"Goodie Grid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Goodie Grid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Walk your player around a tile grid and eat goodies. Every move costs
energy, every goodie gives energy back. A player at 0 energy is defeated.

AVAILABLE TOOLS:
- create_session, list_sessions, get_session: manage game sessions
- game_state: board, players, goodies and energy outlook
- move: one step up/down/left/right, or by a dx/dy delta
- move_to: jump straight to a tile
- bulk_move: several steps at once, stops when the player is defeated
- create_board, add_goodies, add_player, set_active_player: build a board
- save_game, load_game: save to the server and restore later
- reset_game: replay the session's scenario from the start
- move_history: past moves
- list_configs: available scenarios
- game_instructions: rules in detail
- describe_tile: what is on one tile

NOTE: The 'intent' parameter on move/bulk_move tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func sessionProps(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{"session_id": stringProp("Session ID")}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional scenario selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": stringProp("Scenario to use, see list_configs (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: sessionProps(nil),
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, players, goodies and energy outlook",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: sessionProps(nil),
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the active player one tile in a direction, or by a dx/dy delta",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directions,
					"description": "Direction to move",
				},
				"dx":     intProp("Column delta, used when direction is empty"),
				"dy":     intProp("Row delta, used when direction is empty"),
				"intent": stringProp("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)"),
				"reset":  boolProp("Reset before moving"),
			}),
			Required: []string{"session_id"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_to",
		Description: "Move the active player straight to a tile. Costs one move worth of energy.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"x":      intProp("Target column (0-based)"),
				"y":      intProp("Target row (0-based)"),
				"intent": stringProp("Why this tile"),
			}),
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleMoveTo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": directions,
					},
					"description": "Array of moves",
				},
				"intent": stringProp("Brief explanation of the intent behind this sequence of moves (serves as a rubber duck to help explain your reasoning)"),
				"reset":  boolProp("Reset before moving"),
			}),
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	// Board setup
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_board",
		Description: "Replace the board with an empty one. Only allowed before any player joins.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"width":  intProp("Board width in tiles"),
				"height": intProp("Board height in tiles"),
			}),
			Required: []string{"session_id", "width", "height"},
		},
	}, c.handleCreateBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_goodies",
		Description: "Scatter goodies on random free tiles, or put one on a given tile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"count":  intProp("How many goodies to scatter"),
				"type":   stringProp("Visual type, e.g. apple or cake"),
				"energy": intProp(fmt.Sprintf("Energy each goodie gives (default %d)", engine.DefaultGoodieValue)),
				"sound":  stringProp("Sound played when eaten"),
				"x":      intProp("Column for a single goodie (optional)"),
				"y":      intProp("Row for a single goodie (optional)"),
			}),
			Required: []string{"session_id"},
		},
	}, c.handleAddGoodies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_player",
		Description: "Add a player and make it active. Without x/y it starts on a random free tile.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"name": stringProp("Player name"),
				"type": stringProp("Player type, e.g. knight"),
				"x":    intProp("Start column (optional)"),
				"y":    intProp("Start row (optional)"),
			}),
			Required: []string{"session_id"},
		},
	}, c.handleAddPlayer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_active_player",
		Description: "Choose which player move commands apply to",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"index": intProp("Player index (0-based)"),
			}),
			Required: []string{"session_id", "index"},
		},
	}, c.handleSetActivePlayer)

	// Save and restore
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_game",
		Description: "Save the game on the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: sessionProps(nil),
			Required:   []string{"session_id"},
		},
	}, c.handleSaveGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "load_game",
		Description: "Restore the last saved game, or a snapshot passed as JSON text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"snapshot": stringProp("Snapshot JSON (optional)"),
			}),
			Required: []string{"session_id"},
		},
	}, c.handleLoadGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to the start of its scenario",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: sessionProps(nil),
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"page":  intProp("Page number"),
				"limit": intProp("Items per page"),
			}),
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Describe what is on one tile: a goodie, players or nothing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: sessionProps(map[string]interface{}{
				"x": intProp("Column (0-based)"),
				"y": intProp("Row (0-based)"),
			}),
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeTile)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio serves the tools over stdin and stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
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
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		log.Debug("api call failed", "method", method, "path", path, "status", resp.StatusCode)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/api/sessions/" + url.PathEscape(sessionID)
	if len(parts) > 0 {
		p += "/" + strings.Join(parts, "/")
	}
	return p
}

// argsOf returns the tool arguments, empty when none were sent
func argsOf(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// optionalInt returns the argument as an int when present
func optionalInt(args map[string]interface{}, key string) (*int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return &v, nil
}

// requiredInt returns the argument as an int or an error naming it
func requiredInt(args map[string]interface{}, key string) (int, error) {
	v, err := optionalInt(args, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%s is required", key)
	}
	return *v, nil
}

// optionalPosition reads an x/y pair. Both or neither must be given.
func optionalPosition(args map[string]interface{}) (*engine.Position, error) {
	x, err := optionalInt(args, "x")
	if err != nil {
		return nil, err
	}
	y, err := optionalInt(args, "y")
	if err != nil {
		return nil, err
	}
	if x == nil && y == nil {
		return nil, nil
	}
	if x == nil || y == nil {
		return nil, fmt.Errorf("x and y must be given together")
	}
	return &engine.Position{X: *x, Y: *y}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	configID := cast.ToString(args["config_id"])
	if configID == "" {
		configID = cast.ToString(args["config_name"])
	}

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
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
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s)\n", s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(argsOf(request)["session_id"])

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(argsOf(request)["session_id"])

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	body := map[string]interface{}{
		"reset": cast.ToBool(args["reset"]),
	}
	if direction := cast.ToString(args["direction"]); direction != "" {
		body["direction"] = direction
	} else {
		dx, err := optionalInt(args, "dx")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dy, err := optionalInt(args, "dy")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if dx == nil && dy == nil {
			return mcp.NewToolResultError("direction or dx/dy is required"), nil
		}
		if dx != nil {
			body["dx"] = *dx
		}
		if dy != nil {
			body["dy"] = *dy
		}
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleMoveTo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])
	x, err := requiredInt(args, "x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := requiredInt(args, "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "move-to"), map[string]int{"x": x, "y": y}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])
	moves := cast.ToStringSlice(args["moves"])
	if len(moves) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array of directions"), nil
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": cast.ToBool(args["reset"]),
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleCreateBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])
	width, err := requiredInt(args, "width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	height, err := requiredInt(args, "height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "board"), map[string]int{"width": width, "height": height}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleAddGoodies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])

	pos, err := optionalPosition(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := service.AddGoodiesRequest{
		Count:    cast.ToInt(args["count"]),
		Type:     cast.ToString(args["type"]),
		Energy:   cast.ToInt(args["energy"]),
		Sound:    cast.ToString(args["sound"]),
		Position: pos,
	}
	if req.Position == nil && req.Count <= 0 {
		return mcp.NewToolResultError("count must be positive, or give x and y"), nil
	}

	var result service.GoodiesResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "goodies"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Placed %d of %d goodies", result.Placed, result.Requested)
	if result.GridFull {
		b.WriteString(" (board is full)")
	}
	b.WriteString("\n")
	for _, g := range result.Goodies {
		fmt.Fprintf(&b, "- %s worth %d at (%d,%d)\n", goodieLabel(g), g.Value, g.Position.X, g.Position.Y)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleAddPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])

	pos, err := optionalPosition(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := service.AddPlayerRequest{
		Name:     cast.ToString(args["name"]),
		Type:     cast.ToString(args["type"]),
		Position: pos,
	}

	var result service.PlayerResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "players"), req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p := result.Player
	text := fmt.Sprintf("Added %s (#%d) at (%d,%d) with %d energy\n\n%s",
		p.Name, p.Index, p.Position.X, p.Position.Y, p.Health, formatGameState(result.GameState))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleSetActivePlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])
	index, err := requiredInt(args, "index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "PUT", sessionPath(sessionID, "active-player"), map[string]int{"index": index}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleSaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(argsOf(request)["session_id"])

	var result service.SaveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "save"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved session %s (%d bytes) under %s", result.SessionID, result.Bytes, result.Key)), nil
}

func (c *Client) handleLoadGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])

	var body interface{}
	if snapshot := strings.TrimSpace(cast.ToString(args["snapshot"])); snapshot != "" {
		if !json.Valid([]byte(snapshot)) {
			return mcp.NewToolResultError("snapshot is not valid JSON"), nil
		}
		body = json.RawMessage(snapshot)
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "load"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(argsOf(request)["session_id"])

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])

	query := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		query.Set("page", cast.ToString(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		query.Set("limit", cast.ToString(limit))
	}
	path := sessionPath(sessionID, "history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Board: %dx%d, Goodies: %d, Players: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Goodies, config.Players)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := fmt.Sprintf(`Goodie Grid - Complete Instructions

GAME OBJECTIVE:
Move your player around the board and eat goodies before your energy runs out.

BOARD:
• The board is a grid of tiles, x grows to the right and y grows downwards
• (0,0) is the top left tile
• A tile holds at most one goodie. Players stand on tiles without taking them.

ENERGY:
• Every player starts with the scenario's start energy (default %d)
• Every move costs move_energy (default %d), even onto a goodie
• Eating a goodie adds its value (default %d) to the player's energy
• A player at 0 energy or below is defeated and can no longer move

MOVES:
• move: up, down, left or right one tile; the player turns to face that way
• move with dx/dy: jump by a delta
• move_to: jump straight to a tile, still one move's worth of energy
• bulk_move: up to %d moves, stops as soon as the player is defeated
• Moves off the board do nothing and cost nothing

BUILDING A BOARD:
• create_board replaces the board, only before any player joins
• add_goodies scatters goodies on free tiles or puts one on a tile
• add_player adds a player and makes it active
• set_active_player switches who move commands apply to

SAVING:
• save_game stores the board on the server, load_game brings it back
• reset_game replays the session's scenario from the start

BOARD LEGEND (game_state):
• .  empty tile
• *  goodie
• @  active player
• 1-9 other players by index

Good luck and eat well!`,
		engine.DefaultStartEnergy, engine.DefaultMoveEnergy, engine.DefaultGoodieValue, engine.MaxBulkMoves)

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(request)
	sessionID := cast.ToString(args["session_id"])
	x, err := requiredInt(args, "x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := requiredInt(args, "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if x < 0 || x >= state.Width || y < 0 || y >= state.Height {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Board is %dx%d (x 0-%d, y 0-%d)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)), nil
	}

	return mcp.NewToolResultText(describeTile(&state, x, y)), nil
}
