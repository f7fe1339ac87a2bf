package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// BoardConfig is the board size in tiles
type BoardConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// GoodieBatch describes count goodies placed at scenario start
type GoodieBatch struct {
	Count         int `json:"count" yaml:"count"`
	GoodieOptions `yaml:",inline"`
}

// PlayerConfig describes a player added at scenario start. A nil Position
// places the player on a random free tile.
type PlayerConfig struct {
	Name     string    `json:"name" yaml:"name"`
	Type     string    `json:"type" yaml:"type"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// GameConfig is a scenario loaded from a JSON or YAML file
type GameConfig struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	TileSize    int            `json:"tilesize,omitempty" yaml:"tilesize,omitempty"`
	MoveEnergy  int            `json:"move_energy,omitempty" yaml:"move_energy,omitempty"`
	StartEnergy int            `json:"start_energy,omitempty" yaml:"start_energy,omitempty"`
	Strict      bool           `json:"strict,omitempty" yaml:"strict,omitempty"`
	Board       BoardConfig    `json:"board" yaml:"board"`
	Goodies     []GoodieBatch  `json:"goodies,omitempty" yaml:"goodies,omitempty"`
	Players     []PlayerConfig `json:"players,omitempty" yaml:"players,omitempty"`
}

// Options returns the game options the scenario selects
func (c *GameConfig) Options() Options {
	return Options{
		TileSize:    c.TileSize,
		MoveEnergy:  c.MoveEnergy,
		StartEnergy: c.StartEnergy,
		Strict:      c.Strict,
	}
}

// BoardSize returns the board dimensions, falling back to the defaults
func (c *GameConfig) BoardSize() (width, height int) {
	width, height = c.Board.Width, c.Board.Height
	if width == 0 {
		width = DefaultBoardWidth
	}
	if height == 0 {
		height = DefaultBoardHeight
	}
	return width, height
}

// ValidateGameConfig checks a scenario and reports every problem found
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	var err error
	add := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("config validation: "+format, args...))
	}

	if strings.TrimSpace(config.Name) == "" {
		add("name is required")
	}
	if config.TileSize < 0 {
		add("tilesize must not be negative, got %d", config.TileSize)
	}
	if config.MoveEnergy < 0 {
		add("move_energy must not be negative, got %d", config.MoveEnergy)
	}
	if config.StartEnergy < 0 {
		add("start_energy must not be negative, got %d", config.StartEnergy)
	}

	width, height := config.BoardSize()
	if width < 1 || width > MaxBoardDimension || height < 1 || height > MaxBoardDimension {
		add("board must be between 1x1 and %dx%d, got %dx%d", MaxBoardDimension, MaxBoardDimension, width, height)
	}

	needed := len(config.Players)
	for i, batch := range config.Goodies {
		if batch.Count < 0 {
			add("goodies[%d].count must not be negative, got %d", i, batch.Count)
			continue
		}
		needed += batch.Count
	}
	if needed > width*height {
		add("%d goodies and players do not fit on a %dx%d board", needed, width, height)
	}

	seen := make(map[Position]string)
	for i, p := range config.Players {
		if strings.TrimSpace(p.Name) == "" {
			add("players[%d].name is required", i)
		}
		if p.Position == nil {
			continue
		}
		if p.Position.X < 0 || p.Position.X >= width || p.Position.Y < 0 || p.Position.Y >= height {
			add("players[%d] position (%d,%d) is outside the board", i, p.Position.X, p.Position.Y)
		}
		if other, ok := seen[*p.Position]; ok {
			add("players[%d] shares position (%d,%d) with %s", i, p.Position.X, p.Position.Y, other)
		}
		seen[*p.Position] = p.Name
	}

	return err
}

// DecodeGameConfig parses a scenario. format is "yaml" or "json".
func DecodeGameConfig(data []byte, format string) (*GameConfig, error) {
	var config GameConfig
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse json config: %w", err)
		}
	}
	return &config, nil
}

// FormatForPath returns the scenario format implied by a file name
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// LoadGameConfig loads and validates a scenario file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeGameConfig(data, FormatForPath(filename))
	if err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultGameConfig returns the built-in scenario: a 20x10 board with ten
// apples and one player in the corner
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Collect apples on a 20x10 board before running out of energy",
		TileSize:    DefaultTileSize,
		MoveEnergy:  DefaultMoveEnergy,
		StartEnergy: DefaultStartEnergy,
		Board:       BoardConfig{Width: DefaultBoardWidth, Height: DefaultBoardHeight},
		Goodies: []GoodieBatch{
			{Count: 10, GoodieOptions: GoodieOptions{Type: "apple", Energy: DefaultGoodieValue}},
		},
		Players: []PlayerConfig{
			{Name: "Player 1", Type: "knight", Position: &Position{X: 0, Y: 0}},
		},
	}
}

// NewGameFromConfig builds a game and plays the scenario's setup. The first
// listed player with a fixed position is active afterwards.
func NewGameFromConfig(config *GameConfig, rng Rand) (*Game, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	opts := config.Options()
	opts.Rand = rng
	game := NewGame(opts)

	width, height := config.BoardSize()
	if err := game.CreateBoard(width, height); err != nil {
		return nil, err
	}

	// Players with fixed positions go first so goodies never land on them
	for _, p := range config.Players {
		if p.Position != nil {
			if _, err := game.AddPlayer(p.Name, p.Type, p.Position); err != nil {
				return nil, err
			}
		}
	}
	for _, batch := range config.Goodies {
		if _, err := game.AddGoodies(batch.Count, batch.GoodieOptions); err != nil {
			return nil, err
		}
	}
	for _, p := range config.Players {
		if p.Position == nil {
			if _, err := game.AddPlayer(p.Name, p.Type, nil); err != nil {
				return nil, err
			}
		}
	}
	if len(game.Players()) > 0 {
		if err := game.SetActivePlayer(0); err != nil {
			return nil, err
		}
	}
	return game, nil
}
