package engine

import "time"

const (
	// Option defaults, applied when the corresponding option is zero
	DefaultTileSize    = 50
	DefaultMoveEnergy  = 20
	DefaultStartEnergy = 100
	DefaultGoodieValue = 40

	// Board defaults used when a scenario does not name dimensions
	DefaultBoardWidth  = 20
	DefaultBoardHeight = 10

	// Validation constants
	MaxBoardDimension = 200
	MaxBulkMoves      = 50

	// MaxHistory is how many recent move attempts a game keeps
	MaxHistory = 500

	// ConsumeDelay is how long presentation layers keep a consumed goodie
	// visible before removing it. The model clears the tile immediately.
	ConsumeDelay = 300 * time.Millisecond
)

// GoodieKind is the behavioral category of a goodie
type GoodieKind string

const (
	// Food adjusts the health of the player that steps on it
	Food GoodieKind = "food"
)

// Item kinds used by snapshot descriptors
const (
	ItemPlayer = "player"
	ItemBlock  = "block"
)

// Direction names accepted by Move
const (
	DirUp    = "up"
	DirDown  = "down"
	DirLeft  = "left"
	DirRight = "right"
)

// Phase is the lifecycle state of a Game
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseBoardReady    Phase = "board_ready"
	PhaseInProgress    Phase = "in_progress"
)

// Position represents x,y tile coordinates
type Position struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Add returns p shifted by dx, dy
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// DirectionDelta maps a direction name to its tile delta
func DirectionDelta(direction string) (dx, dy int, ok bool) {
	switch direction {
	case DirUp:
		return 0, -1, true
	case DirDown:
		return 0, 1, true
	case DirLeft:
		return -1, 0, true
	case DirRight:
		return 1, 0, true
	}
	return 0, 0, false
}

// Options configures a Game. Zero values select the defaults.
type Options struct {
	TileSize    int  `json:"tilesize"`
	MoveEnergy  int  `json:"move_energy"`
	StartEnergy int  `json:"start_energy"`
	Strict      bool `json:"strict"`

	// Rand drives free-tile selection. Nil uses a time-seeded source.
	Rand Rand `json:"-"`
}

// Rand is the subset of *math/rand.Rand used for free-tile selection
type Rand interface {
	Intn(n int) int
}

// PlayerView is the read-only projection of a player
type PlayerView struct {
	ID       string   `json:"id"`
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Health   int      `json:"health"`
	Facing   string   `json:"facing,omitempty"`
	Active   bool     `json:"active"`
	Defeated bool     `json:"defeated"`
}

// GoodieView is the read-only projection of a goodie
type GoodieView struct {
	ID       string     `json:"id"`
	Kind     GoodieKind `json:"kind"`
	Visual   string     `json:"visual,omitempty"`
	Value    int        `json:"value"`
	Sound    string     `json:"sound,omitempty"`
	Position Position   `json:"position"`
}

// GameState is a detached view of a game for transports and renderers
type GameState struct {
	Phase        Phase        `json:"phase"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	TileSize     int          `json:"tilesize"`
	MoveEnergy   int          `json:"move_energy"`
	StartEnergy  int          `json:"start_energy"`
	Strict       bool         `json:"strict"`
	Players      []PlayerView `json:"players"`
	Goodies      []GoodieView `json:"goodies"`
	ActivePlayer int          `json:"active_player"`
	TotalMoves   int          `json:"total_moves"` // moves that changed position
	Message      string       `json:"message,omitempty"`
}

// MoveHistoryEntry represents a single move attempt in the game history
type MoveHistoryEntry struct {
	Action       string   `json:"action"`
	Player       string   `json:"player"`
	FromPosition Position `json:"from_position"`
	ToPosition   Position `json:"to_position"`
	Health       int      `json:"health"`
	Timestamp    int64    `json:"timestamp"`
	Success      bool     `json:"success"`
	Consumed     string   `json:"consumed,omitempty"`
	MoveNumber   int      `json:"move_number"`
}
