package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Board and entities
	CreateBoard(width, height int) error
	AddGoodies(count int, opts GoodieOptions) ([]*Goodie, error)
	PlaceGoodie(pos Position, opts GoodieOptions) (*Goodie, error)
	AddPlayer(name, typ string, position *Position) (*Player, error)
	SetActivePlayer(index int) error
	ActivePlayer() *Player

	// Movement operations
	Move(direction string) (MoveResult, error)
	MovePlayer(dx, dy int) (MoveResult, error)
	MovePlayerTo(x, y int) (MoveResult, error)
	MoveLeft() (MoveResult, error)
	MoveRight() (MoveResult, error)
	MoveUp() (MoveResult, error)
	MoveDown() (MoveResult, error)

	// Persistence
	SaveGameState() ([]byte, error)
	LoadGameState(data []byte) error

	// Views
	State() *GameState
	History() []MoveHistoryEntry
}

var _ Engine = (*Game)(nil)

// EventType names a model mutation reported to observers
type EventType string

const (
	EventBoardCreated        EventType = "board_created"
	EventGoodiePlaced        EventType = "goodie_placed"
	EventPlayerAdded         EventType = "player_added"
	EventActivePlayerChanged EventType = "active_player_changed"
	EventPlayerMoved         EventType = "player_moved"
	EventGoodieConsumed      EventType = "goodie_consumed"
	EventStateLoaded         EventType = "state_loaded"
)

// Event describes one model mutation. Presentation adapters use events to
// update their view; the model never depends on them.
type Event struct {
	Type          EventType `json:"type"`
	Message       string    `json:"message"`
	Position      *Position `json:"position,omitempty"`
	PlayerID      string    `json:"player_id,omitempty"`
	GoodieID      string    `json:"goodie_id,omitempty"`
	Health        int       `json:"health,omitempty"`
	RemoveAfterMS int64     `json:"remove_after_ms,omitempty"`
}

// Game owns the grid, the players and the goodies of one game. It is not
// safe for concurrent use; callers serialize access.
type Game struct {
	opts    Options
	rng     Rand
	phase   Phase
	grid    *Grid
	players []*Player
	goodies []*Goodie
	active  int

	history    []MoveHistoryEntry
	attempts   int
	totalMoves int
	message    string

	observers []func(Event)
}

// NewGame creates a game in the uninitialized phase
func NewGame(opts Options) *Game {
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.MoveEnergy == 0 {
		opts.MoveEnergy = DefaultMoveEnergy
	}
	if opts.StartEnergy == 0 {
		opts.StartEnergy = DefaultStartEnergy
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Game{
		opts:    opts,
		rng:     rng,
		phase:   PhaseUninitialized,
		active:  -1,
		history: []MoveHistoryEntry{},
	}
}

// Options returns the resolved options of the game
func (g *Game) Options() Options { return g.opts }

// Phase returns the lifecycle phase
func (g *Game) Phase() Phase { return g.phase }

// Grid returns the board, or nil before CreateBoard
func (g *Game) Grid() *Grid { return g.grid }

// Players returns the players in insertion order
func (g *Game) Players() []*Player { return g.players }

// Goodies returns the goodies still on the board
func (g *Game) Goodies() []*Goodie { return g.goodies }

// ActiveIndex returns the index of the active player, or -1
func (g *Game) ActiveIndex() int { return g.active }

// ActivePlayer returns the player move commands apply to, or nil
func (g *Game) ActivePlayer() *Player {
	if g.active < 0 || g.active >= len(g.players) {
		return nil
	}
	return g.players[g.active]
}

// Observe registers fn to be called after every model mutation
func (g *Game) Observe(fn func(Event)) {
	if fn != nil {
		g.observers = append(g.observers, fn)
	}
}

func (g *Game) emit(ev Event) {
	g.message = ev.Message
	for _, fn := range g.observers {
		fn(ev)
	}
}

// CreateBoard replaces the board with an empty width x height grid. It is
// only allowed before any player joins.
func (g *Game) CreateBoard(width, height int) error {
	if g.phase == PhaseInProgress {
		return fmt.Errorf("create board: %w (%s)", ErrInvalidPhase, g.phase)
	}
	grid, err := NewGrid(width, height)
	if err != nil {
		return err
	}
	g.grid = grid
	g.goodies = nil
	g.phase = PhaseBoardReady
	g.emit(Event{
		Type:    EventBoardCreated,
		Message: fmt.Sprintf("Board created: %dx%d", width, height),
	})
	return nil
}

// AddGoodies places count food goodies on random free tiles. When the board
// runs out of room it keeps what was placed and returns ErrGridFull.
func (g *Game) AddGoodies(count int, opts GoodieOptions) ([]*Goodie, error) {
	if g.grid == nil {
		return nil, ErrBoardNotReady
	}
	if count <= 0 {
		return nil, nil
	}
	if opts.Energy == 0 {
		opts.Energy = DefaultGoodieValue
	}

	placed := make([]*Goodie, 0, count)
	for i := 0; i < count; i++ {
		pos, err := g.randomOpenTile()
		if err != nil {
			return placed, fmt.Errorf("placed %d of %d goodies: %w", len(placed), count, err)
		}

		goodie, err := NewGoodie(Food, g.opts.TileSize, opts)
		if err != nil {
			return placed, err
		}
		goodie.Position = pos
		g.grid.Set(pos.X, pos.Y, goodie)
		g.goodies = append(g.goodies, goodie)
		placed = append(placed, goodie)

		g.emit(Event{
			Type:     EventGoodiePlaced,
			Message:  fmt.Sprintf("Goodie worth %d placed at (%d,%d)", goodie.Value, pos.X, pos.Y),
			Position: &pos,
			GoodieID: goodie.ID,
		})
	}
	return placed, nil
}

// PlaceGoodie puts a single food goodie on a chosen empty tile
func (g *Game) PlaceGoodie(pos Position, opts GoodieOptions) (*Goodie, error) {
	if g.grid == nil {
		return nil, ErrBoardNotReady
	}
	if !g.grid.InBounds(pos.X, pos.Y) {
		return nil, fmt.Errorf("place goodie: %w: (%d,%d)", ErrOutOfBounds, pos.X, pos.Y)
	}
	if !g.grid.IsEmpty(pos.X, pos.Y) || g.playerAt(pos) != nil {
		return nil, fmt.Errorf("place goodie: %w: (%d,%d)", ErrTileOccupied, pos.X, pos.Y)
	}
	if opts.Energy == 0 {
		opts.Energy = DefaultGoodieValue
	}
	goodie, err := NewGoodie(Food, g.opts.TileSize, opts)
	if err != nil {
		return nil, err
	}
	goodie.Position = pos
	g.grid.Set(pos.X, pos.Y, goodie)
	g.goodies = append(g.goodies, goodie)
	g.emit(Event{
		Type:     EventGoodiePlaced,
		Message:  fmt.Sprintf("Goodie worth %d placed at (%d,%d)", goodie.Value, pos.X, pos.Y),
		Position: &pos,
		GoodieID: goodie.ID,
	})
	return goodie, nil
}

// AddPlayer adds a player and makes it the active one. A missing, out of
// bounds or occupied position is replaced by a random free tile.
func (g *Game) AddPlayer(name, typ string, position *Position) (*Player, error) {
	if g.grid == nil {
		return nil, ErrBoardNotReady
	}

	var start Position
	if position != nil && g.grid.IsEmpty(position.X, position.Y) && g.playerAt(*position) == nil {
		start = *position
	} else {
		pos, err := g.randomOpenTile()
		if err != nil {
			return nil, fmt.Errorf("add player %q: %w", name, err)
		}
		start = pos
	}

	player, err := NewPlayer(name, typ, g.opts.TileSize, start, g.opts.StartEnergy)
	if err != nil {
		return nil, err
	}
	g.players = append(g.players, player)
	g.active = len(g.players) - 1
	g.phase = PhaseInProgress

	g.emit(Event{
		Type:     EventPlayerAdded,
		Message:  fmt.Sprintf("%s joined at (%d,%d)", name, start.X, start.Y),
		Position: &start,
		PlayerID: player.ID,
		Health:   player.Health(),
	})
	return player, nil
}

// SetActivePlayer selects the player move commands apply to
func (g *Game) SetActivePlayer(index int) error {
	if index < 0 || index >= len(g.players) {
		return fmt.Errorf("%w: %d (have %d players)", ErrIndexOutOfRange, index, len(g.players))
	}
	g.active = index
	player := g.players[index]
	g.emit(Event{
		Type:     EventActivePlayerChanged,
		Message:  fmt.Sprintf("%s is now active", player.Name),
		PlayerID: player.ID,
		Health:   player.Health(),
	})
	return nil
}

// State returns a detached view of the game
func (g *Game) State() *GameState {
	state := &GameState{
		Phase:        g.phase,
		TileSize:     g.opts.TileSize,
		MoveEnergy:   g.opts.MoveEnergy,
		StartEnergy:  g.opts.StartEnergy,
		Strict:       g.opts.Strict,
		Players:      make([]PlayerView, 0, len(g.players)),
		Goodies:      make([]GoodieView, 0, len(g.goodies)),
		ActivePlayer: g.active,
		TotalMoves:   g.totalMoves,
		Message:      g.message,
	}
	if g.grid != nil {
		state.Width = g.grid.Width()
		state.Height = g.grid.Height()
	}
	for i, p := range g.players {
		state.Players = append(state.Players, PlayerView{
			ID:       p.ID,
			Index:    i,
			Name:     p.Name,
			Type:     p.Type,
			Position: p.Position(),
			Health:   p.Health(),
			Facing:   p.Facing(),
			Active:   i == g.active,
			Defeated: p.Defeated(),
		})
	}
	for _, gd := range g.goodies {
		state.Goodies = append(state.Goodies, gd.view())
	}
	return state
}

// History returns the most recent move attempts, at most MaxHistory
func (g *Game) History() []MoveHistoryEntry {
	return g.history
}

// TotalMoves returns how many moves changed the active player's position
func (g *Game) TotalMoves() int { return g.totalMoves }

// SetHistory replaces the move history and the count of successful moves,
// used when restoring a saved session. totalMoves is raised to the number of
// successful entries when it is lower.
func (g *Game) SetHistory(history []MoveHistoryEntry, totalMoves int) {
	if over := len(history) - MaxHistory; over > 0 {
		history = history[over:]
	}
	g.history = append([]MoveHistoryEntry{}, history...)

	succeeded := 0
	g.attempts = len(g.history)
	for _, entry := range g.history {
		if entry.Success {
			succeeded++
		}
		if entry.MoveNumber > g.attempts {
			g.attempts = entry.MoveNumber
		}
	}
	g.totalMoves = max(totalMoves, succeeded)
}

// LastMove returns the last recorded move, or nil if no moves
func (g *Game) LastMove() *MoveHistoryEntry {
	if len(g.history) == 0 {
		return nil
	}
	return &g.history[len(g.history)-1]
}

// playerAt returns the player standing on pos, if any
func (g *Game) playerAt(pos Position) *Player {
	for _, p := range g.players {
		if p.Position() == pos {
			return p
		}
	}
	return nil
}

// randomOpenTile picks a free tile nobody stands on
func (g *Game) randomOpenTile() (Position, error) {
	return g.grid.RandomFreeTile(g.rng, func(p Position) bool {
		return g.playerAt(p) != nil
	})
}

// removeGoodie drops goodie from the collection
func (g *Game) removeGoodie(goodie *Goodie) {
	for i, gd := range g.goodies {
		if gd == goodie {
			g.goodies = append(g.goodies[:i], g.goodies[i+1:]...)
			return
		}
	}
}
