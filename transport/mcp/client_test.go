package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/mcp-training/goodiegrid/api"
	"github.com/wricardo/mcp-training/goodiegrid/game/config"
	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
	"github.com/wricardo/mcp-training/goodiegrid/game/service"
	"github.com/wricardo/mcp-training/goodiegrid/game/session"
	"github.com/wricardo/mcp-training/goodiegrid/game/storage"
)

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func sampleState() *engine.GameState {
	return &engine.GameState{
		Phase:       engine.PhaseInProgress,
		Width:       4,
		Height:      3,
		MoveEnergy:  20,
		StartEnergy: 100,
		Players: []engine.PlayerView{
			{Index: 0, Name: "Alice", Position: engine.Position{X: 0, Y: 0}, Health: 80, Active: true},
			{Index: 1, Name: "Bob", Position: engine.Position{X: 3, Y: 2}, Health: 0, Defeated: true},
		},
		Goodies: []engine.GoodieView{
			{ID: "g1", Kind: engine.Food, Visual: "apple", Value: 40, Position: engine.Position{X: 2, Y: 0}},
		},
		ActivePlayer: 0,
	}
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL + "/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "test-session"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	err := client.apiCall(context.Background(), "POST", "/api/sessions", map[string]string{"config_id": "classic"}, &response)
	if err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "test-session" {
		t.Errorf("Expected id test-session, got %v", response["id"])
	}
	if gotMethod != "POST" || gotPath != "/api/sessions" {
		t.Errorf("Expected POST /api/sessions, got %s %s", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}
	if gotBody["config_id"] != "classic" {
		t.Errorf("Expected config_id in body, got %v", gotBody)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"plain body", http.StatusInternalServerError, "Internal Server Error", "API error: 500"},
		{"error field", http.StatusNotFound, `{"error":"session not found"}`, "session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestHandleCreateSession(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:         "abcd",
			ConfigName: "Classic",
			GameState:  sampleState(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callRequest(map[string]interface{}{"config_id": "classic"}))
	if err != nil {
		t.Fatalf("handleCreateSession() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got %q", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Created session: abcd") {
		t.Errorf("Expected session ID in result, got %q", text)
	}
	if gotBody["config_id"] != "classic" {
		t.Errorf("Expected config_id forwarded, got %v", gotBody)
	}
}

func TestHandleMove_Arguments(t *testing.T) {
	var gotBody map[string]interface{}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = nil
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(service.MoveResult{Success: true, GameState: sampleState()})
	}))
	defer server.Close()
	client := NewClient(server.URL)

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantError bool
		check     func(t *testing.T)
	}{
		{
			name: "direction",
			args: map[string]interface{}{"session_id": "s1", "direction": "up", "intent": "explore"},
			check: func(t *testing.T) {
				if gotBody["direction"] != "up" {
					t.Errorf("Expected direction up, got %v", gotBody)
				}
			},
		},
		{
			name: "delta from strings",
			args: map[string]interface{}{"session_id": "s1", "dx": "2", "dy": -1.0},
			check: func(t *testing.T) {
				if gotBody["dx"] != 2.0 || gotBody["dy"] != -1.0 {
					t.Errorf("Expected dx=2 dy=-1, got %v", gotBody)
				}
				if _, ok := gotBody["direction"]; ok {
					t.Errorf("Expected no direction, got %v", gotBody)
				}
			},
		},
		{
			name:      "nothing to do",
			args:      map[string]interface{}{"session_id": "s1"},
			wantError: true,
		},
		{
			name:      "bad delta",
			args:      map[string]interface{}{"session_id": "s1", "dx": "left"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotPath = ""
			result, err := client.handleMove(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handleMove() error = %v", err)
			}
			if result.IsError != tt.wantError {
				t.Fatalf("IsError = %v, want %v (%s)", result.IsError, tt.wantError, resultText(t, result))
			}
			if tt.wantError {
				if gotPath != "" {
					t.Errorf("Expected no API call, got %s", gotPath)
				}
				return
			}
			if gotPath != "/api/sessions/s1/move" {
				t.Errorf("Expected move path, got %s", gotPath)
			}
			tt.check(t)
		})
	}
}

func TestHandleBulkMove_RequiresMoves(t *testing.T) {
	client := NewClient("http://localhost:1")
	result, err := client.handleBulkMove(context.Background(), callRequest(map[string]interface{}{"session_id": "s1"}))
	if err != nil {
		t.Fatalf("handleBulkMove() error = %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result without moves")
	}
}

func TestHandleAddGoodies_PositionPair(t *testing.T) {
	client := NewClient("http://localhost:1")
	result, err := client.handleAddGoodies(context.Background(), callRequest(map[string]interface{}{"session_id": "s1", "x": 1}))
	if err != nil {
		t.Fatalf("handleAddGoodies() error = %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "together") {
		t.Errorf("Expected x/y pairing error, got %q", resultText(t, result))
	}
}

func TestHandleLoadGame_InvalidSnapshot(t *testing.T) {
	client := NewClient("http://localhost:1")
	result, err := client.handleLoadGame(context.Background(), callRequest(map[string]interface{}{
		"session_id": "s1",
		"snapshot":   "{not json",
	}))
	if err != nil {
		t.Fatalf("handleLoadGame() error = %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result for invalid JSON")
	}
}

func TestHandleLoadGame_ForwardsSnapshot(t *testing.T) {
	var got []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(service.ActionResult{Message: "Game loaded", GameState: sampleState()})
	}))
	defer server.Close()

	snapshot := `{"version":1,"width":4,"height":3,"tiles":{},"players":[]}`
	result, err := NewClient(server.URL).handleLoadGame(context.Background(), callRequest(map[string]interface{}{
		"session_id": "s1",
		"snapshot":   snapshot,
	}))
	if err != nil {
		t.Fatalf("handleLoadGame() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got %q", resultText(t, result))
	}
	if string(got) != snapshot {
		t.Errorf("Expected raw snapshot body %s, got %s", snapshot, got)
	}
}

func TestHandleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:1")
	result, err := client.handleGameInstructions(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handleGameInstructions() error = %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"GAME OBJECTIVE", "bulk_move: up to 50 moves"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected instructions to contain %q", want)
		}
	}
}

func TestRenderBoard(t *testing.T) {
	got := renderBoard(sampleState())
	want := "@.*.\n....\n...1\n"
	if got != want {
		t.Errorf("renderBoard() = %q, want %q", got, want)
	}

	if got := renderBoard(&engine.GameState{}); got != "(no board)\n" {
		t.Errorf("renderBoard(empty) = %q", got)
	}
}

func TestFormatGameState(t *testing.T) {
	text := formatGameState(sampleState())
	for _, want := range []string{
		"Board: 4x3",
		"Active: Alice (#0) at (0,0), energy 80, 4 moves left",
		"Player 1: Bob at (3,2), energy 0 DEFEATED",
		"Goodies left: 1 (worth 40)",
		"Nearest goodie: apple at (2,0), 2 moves away",
		"Energy risk: SAFE",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	if formatGameState(nil) != "No game state" {
		t.Error("Expected placeholder for nil state")
	}
}

func TestFormatMoveResult(t *testing.T) {
	consumed := engine.GoodieView{Kind: engine.Food, Visual: "cake", Value: 40}
	result := &service.MoveResult{
		Success: true,
		Move: engine.MoveResult{
			Action:       "right",
			Moved:        true,
			From:         engine.Position{X: 0, Y: 0},
			To:           engine.Position{X: 1, Y: 0},
			HealthBefore: 100,
			HealthAfter:  120,
			Consumed:     &consumed,
		},
		GameState:  sampleState(),
		EnergyRisk: "SAFE",
	}

	text := formatMoveResult(result)
	for _, want := range []string{"right: (0,0) -> (1,0), energy 100 -> 120", "Ate cake worth 40", "Risk: SAFE"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	failed := formatMoveResult(&service.MoveResult{Move: engine.MoveResult{Action: "left"}, Message: "Move blocked: out_of_bounds"})
	if !strings.Contains(failed, "❌ left: Move blocked") {
		t.Errorf("Expected failure line, got %q", failed)
	}
}

func TestFormatBulkMoveResult(t *testing.T) {
	result := &service.BulkMoveResult{
		MovesExecuted:  2,
		RequestedMoves: 60,
		StoppedReason:  "player defeated",
		StoppedOnMove:  3,
		Truncated:      true,
		Limit:          50,
		EndHealth:      0,
		Defeated:       true,
	}

	text := formatBulkMoveResult("s1", result)
	for _, want := range []string{"executed 2 of 60 moves", "first 50 moves", "Stopped on move 3: player defeated", "Player defeated"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	history := &service.HistoryResponse{
		Moves: []engine.MoveHistoryEntry{
			{MoveNumber: 2, Player: "Alice", Action: "right", Success: true, ToPosition: engine.Position{X: 1}, Health: 120, Consumed: "g1"},
			{MoveNumber: 1, Player: "Alice", Action: "up", Success: false, Health: 100},
		},
		TotalMoves: 2,
		Page:       1,
		TotalPages: 1,
		HasNext:    true,
	}

	text := formatHistory(history)
	for _, want := range []string{"Page 1/1, Total: 2 moves", "2. ✅ Alice right", "ate a goodie", "1. ❌ Alice up", "next page"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}

func TestDescribeTile(t *testing.T) {
	state := sampleState()

	tests := []struct {
		x, y int
		want string
	}{
		{2, 0, "goodie: apple worth 40 energy"},
		{2, 0, "2 moves from the active player"},
		{0, 0, "player: Alice (#0), energy 80, active"},
		{1, 1, "Tile (1,1) is empty"},
	}
	for _, tt := range tests {
		if got := describeTile(state, tt.x, tt.y); !strings.Contains(got, tt.want) {
			t.Errorf("describeTile(%d,%d) = %q, want it to contain %q", tt.x, tt.y, got, tt.want)
		}
	}
}

// newIntegrationClient serves the real REST API backed by a scenario with one
// player at (0,0) and goodies on the two remaining tiles
func newIntegrationClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	scenario := `name: Line
description: Three tiles in a row
move_energy: 10
start_energy: 100
board:
  width: 3
  height: 1
goodies:
  - count: 2
    type: apple
    energy: 30
players:
  - name: Alice
    position: {x: 0, y: 0}
`
	if err := os.WriteFile(filepath.Join(dir, "line.yaml"), []byte(scenario), 0o644); err != nil {
		t.Fatal(err)
	}

	configs, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}
	store := storage.NewMemoryStore()
	codec, err := session.NewCodec("json")
	if err != nil {
		t.Fatal(err)
	}
	sessions := session.NewManagerWithPersistence(session.NewStorePersistence(store, codec, configs))
	svc := service.NewGameService(sessions, configs, store)

	ts := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestClient_AgainstAPI(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := context.Background()

	var info service.SessionInfo
	if err := client.apiCall(ctx, "POST", "/api/sessions", map[string]string{"config_id": "line"}, &info); err != nil {
		t.Fatalf("create session: %v", err)
	}
	sid := map[string]interface{}{"session_id": info.ID}

	result, _ := client.handleGameState(ctx, callRequest(sid))
	if text := resultText(t, result); !strings.Contains(text, "@**") {
		t.Errorf("Expected board @** in:\n%s", text)
	}

	result, _ = client.handleMove(ctx, callRequest(map[string]interface{}{"session_id": info.ID, "direction": "right"}))
	if result.IsError {
		t.Fatalf("move failed: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "energy 100 -> 120") {
		t.Errorf("Expected energy 100 -> 120 in:\n%s", text)
	}

	result, _ = client.handleSaveGame(ctx, callRequest(sid))
	if result.IsError {
		t.Fatalf("save failed: %s", resultText(t, result))
	}

	result, _ = client.handleBulkMove(ctx, callRequest(map[string]interface{}{
		"session_id": info.ID,
		"moves":      []interface{}{"right", "left"},
	}))
	if text := resultText(t, result); !strings.Contains(text, "executed 2 of 2 moves") {
		t.Errorf("Expected 2 executed moves in:\n%s", text)
	}

	result, _ = client.handleLoadGame(ctx, callRequest(sid))
	if result.IsError {
		t.Fatalf("load failed: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "energy 120") || !strings.Contains(text, ".@*") {
		t.Errorf("Expected the saved board back in:\n%s", text)
	}

	result, _ = client.handleDescribeTile(ctx, callRequest(map[string]interface{}{"session_id": info.ID, "x": 5, "y": 0}))
	if !result.IsError {
		t.Error("Expected out of bounds error")
	}

	result, _ = client.handleMoveHistory(ctx, callRequest(sid))
	if text := resultText(t, result); !strings.Contains(text, "Total: 3 moves") {
		t.Errorf("Expected 3 moves in history:\n%s", text)
	}

	result, _ = client.handleGetSession(ctx, callRequest(map[string]interface{}{"session_id": "missing"}))
	if !result.IsError {
		t.Error("Expected error for unknown session")
	}
}
