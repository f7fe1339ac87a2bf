package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createValidConfig() *GameConfig {
	return &GameConfig{
		Name:        "Test Config",
		Description: "A valid test configuration",
		TileSize:    32,
		MoveEnergy:  10,
		StartEnergy: 50,
		Board:       BoardConfig{Width: 5, Height: 4},
		Goodies: []GoodieBatch{
			{Count: 3, GoodieOptions: GoodieOptions{Type: "apple", Energy: 20}},
			{Count: 1, GoodieOptions: GoodieOptions{Type: "cake", Energy: 60, Sound: "chime"}},
		},
		Players: []PlayerConfig{
			{Name: "Alice", Type: "knight", Position: &Position{X: 0, Y: 0}},
			{Name: "Bob", Type: "wizard"},
		},
	}
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	if err := ValidateGameConfig(createValidConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got: %v", err)
	}
	if err := ValidateGameConfig(DefaultGameConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got: %v", err)
	}
}

func TestValidateGameConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*GameConfig)
		expected string
	}{
		{"missing name", func(c *GameConfig) { c.Name = " " }, "name is required"},
		{"negative tilesize", func(c *GameConfig) { c.TileSize = -1 }, "tilesize must not be negative"},
		{"negative move energy", func(c *GameConfig) { c.MoveEnergy = -5 }, "move_energy must not be negative"},
		{"negative start energy", func(c *GameConfig) { c.StartEnergy = -5 }, "start_energy must not be negative"},
		{"board too large", func(c *GameConfig) { c.Board.Width = MaxBoardDimension + 1 }, "board must be between"},
		{"negative count", func(c *GameConfig) { c.Goodies[0].Count = -1 }, "goodies[0].count must not be negative"},
		{"too many goodies", func(c *GameConfig) { c.Goodies[0].Count = 100 }, "do not fit"},
		{"player without name", func(c *GameConfig) { c.Players[1].Name = "" }, "players[1].name is required"},
		{"player off board", func(c *GameConfig) { c.Players[0].Position = &Position{X: 5, Y: 0} }, "outside the board"},
		{"players share tile", func(c *GameConfig) { c.Players[1].Position = &Position{X: 0, Y: 0} }, "shares position"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createValidConfig()
			test.modify(config)
			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.expected) {
				t.Errorf("expected error containing %q, got: %v", test.expected, err)
			}
		})
	}
}

func TestValidateGameConfig_CollectsAllErrors(t *testing.T) {
	config := createValidConfig()
	config.Name = ""
	config.MoveEnergy = -1
	config.Players[0].Name = ""

	err := ValidateGameConfig(config)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"name is required", "move_energy", "players[0].name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in combined error: %v", want, err)
		}
	}
}

func TestValidateGameConfig_Nil(t *testing.T) {
	if err := ValidateGameConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestBoardSize_Defaults(t *testing.T) {
	config := &GameConfig{Name: "empty"}
	w, h := config.BoardSize()
	if w != DefaultBoardWidth || h != DefaultBoardHeight {
		t.Errorf("expected %dx%d, got %dx%d", DefaultBoardWidth, DefaultBoardHeight, w, h)
	}
}

func TestDecodeGameConfig_YAML(t *testing.T) {
	data := `
name: picnic
description: A small picnic
move_energy: 5
board:
  width: 6
  height: 3
goodies:
  - count: 2
    type: sandwich
    energy: 15
    sound: munch
players:
  - name: Alice
    type: knight
    position: {x: 1, y: 1}
`
	config, err := DecodeGameConfig([]byte(data), "yaml")
	if err != nil {
		t.Fatalf("DecodeGameConfig: %v", err)
	}
	if config.Name != "picnic" || config.MoveEnergy != 5 {
		t.Errorf("unexpected config %+v", config)
	}
	if config.Board.Width != 6 || config.Board.Height != 3 {
		t.Errorf("unexpected board %+v", config.Board)
	}
	if len(config.Goodies) != 1 || config.Goodies[0].Count != 2 || config.Goodies[0].Type != "sandwich" ||
		config.Goodies[0].Energy != 15 || config.Goodies[0].Sound != "munch" {
		t.Errorf("unexpected goodies %+v", config.Goodies)
	}
	if len(config.Players) != 1 || config.Players[0].Position == nil || *config.Players[0].Position != (Position{X: 1, Y: 1}) {
		t.Errorf("unexpected players %+v", config.Players)
	}
}

func TestDecodeGameConfig_JSON(t *testing.T) {
	data := `{"name": "json", "board": {"width": 4, "height": 4}, "goodies": [{"count": 3, "type": "pear", "energy": 30}]}`
	config, err := DecodeGameConfig([]byte(data), "json")
	if err != nil {
		t.Fatalf("DecodeGameConfig: %v", err)
	}
	if len(config.Goodies) != 1 || config.Goodies[0].Type != "pear" || config.Goodies[0].Energy != 30 {
		t.Errorf("unexpected goodies %+v", config.Goodies)
	}

	if _, err := DecodeGameConfig([]byte("{broken"), "json"); err == nil {
		t.Error("expected parse error")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]string{
		"a.json":     "json",
		"a.yaml":     "yaml",
		"dir/b.YML":  "yaml",
		"no_ext":     "json",
		"c.json.bak": "json",
	}
	for path, expected := range tests {
		if got := FormatForPath(path); got != expected {
			t.Errorf("FormatForPath(%q): expected %s, got %s", path, expected, got)
		}
	}
}

func TestLoadGameConfig(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("name: ok\nboard: {width: 3, height: 3}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadGameConfig(valid)
	if err != nil {
		t.Fatalf("LoadGameConfig: %v", err)
	}
	if config.Name != "ok" {
		t.Errorf("unexpected name %q", config.Name)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"name": ""}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGameConfig(invalid); err == nil {
		t.Error("expected validation error")
	}

	if _, err := LoadGameConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewGameFromConfig(t *testing.T) {
	game, err := NewGameFromConfig(createValidConfig(), firstRand{})
	if err != nil {
		t.Fatalf("NewGameFromConfig: %v", err)
	}

	opts := game.Options()
	if opts.TileSize != 32 || opts.MoveEnergy != 10 || opts.StartEnergy != 50 {
		t.Errorf("unexpected options %+v", opts)
	}
	if game.Grid().Width() != 5 || game.Grid().Height() != 4 {
		t.Errorf("unexpected board %dx%d", game.Grid().Width(), game.Grid().Height())
	}
	if len(game.Goodies()) != 4 {
		t.Errorf("expected 4 goodies, got %d", len(game.Goodies()))
	}
	if len(game.Players()) != 2 {
		t.Fatalf("expected 2 players, got %d", len(game.Players()))
	}

	active := game.ActivePlayer()
	if active == nil || active.Name != "Alice" || active.Position() != (Position{X: 0, Y: 0}) {
		t.Errorf("expected Alice active at (0,0), got %+v", active)
	}
	for _, goodie := range game.Goodies() {
		for _, player := range game.Players() {
			if goodie.Position == player.Position() {
				t.Errorf("goodie and player share %+v", goodie.Position)
			}
		}
	}
}

func TestNewGameFromConfig_Default(t *testing.T) {
	game, err := NewGameFromConfig(DefaultGameConfig(), nil)
	if err != nil {
		t.Fatalf("NewGameFromConfig: %v", err)
	}
	state := game.State()
	if state.Width != 20 || state.Height != 10 || len(state.Goodies) != 10 || len(state.Players) != 1 {
		t.Errorf("unexpected default game %dx%d, %d goodies, %d players",
			state.Width, state.Height, len(state.Goodies), len(state.Players))
	}
}
