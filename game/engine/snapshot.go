package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

// SnapshotVersion is the current snapshot format version. Snapshots without
// a version are legacy bare tile maps.
const SnapshotVersion = 1

// TileEntry is one leaf of a snapshot: an empty tile or an item descriptor.
// Empty tiles are written as false.
type TileEntry struct {
	Item   string `json:"item" msgpack:"item"`
	Name   string `json:"name,omitempty" msgpack:"name,omitempty"`
	Type   string `json:"type,omitempty" msgpack:"type,omitempty"`
	Visual string `json:"visual,omitempty" msgpack:"visual,omitempty"`
	Value  int    `json:"value,omitempty" msgpack:"value,omitempty"`
	Sound  string `json:"sound,omitempty" msgpack:"sound,omitempty"`
}

// Empty reports whether the entry marks an empty tile
func (e TileEntry) Empty() bool { return e.Item == "" }

type plainTileEntry TileEntry

// JSONSchema describes a tile leaf as any of the empty markers or an item
func (TileEntry) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("item", &jsonschema.Schema{Type: "string", Enum: []any{ItemBlock, ItemPlayer}})
	props.Set("name", &jsonschema.Schema{Type: "string"})
	props.Set("type", &jsonschema.Schema{Type: "string"})
	props.Set("visual", &jsonschema.Schema{Type: "string"})
	props.Set("value", &jsonschema.Schema{Type: "integer"})
	props.Set("sound", &jsonschema.Schema{Type: "string"})

	return &jsonschema.Schema{
		Description: "An empty tile (false, null, 0 or \"\") or the item standing on it",
		OneOf: []*jsonschema.Schema{
			{Const: false},
			{Type: "null"},
			{Const: 0},
			{Const: ""},
			{
				Type:                 "object",
				Properties:           props,
				Required:             []string{"item"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
		},
	}
}

// MarshalJSON writes false for empty tiles
func (e TileEntry) MarshalJSON() ([]byte, error) {
	if e.Empty() {
		return []byte("false"), nil
	}
	return json.Marshal(plainTileEntry(e))
}

// UnmarshalJSON accepts an item object or any falsy marker
func (e *TileEntry) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "false", "null", "0", `""`:
		*e = TileEntry{}
		return nil
	}
	var plain plainTileEntry
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("tile entry: %w", err)
	}
	*e = TileEntry(plain)
	return nil
}

// PlayerRecord is the persisted form of a player including its position
type PlayerRecord struct {
	Item   string `json:"item" msgpack:"item"`
	Name   string `json:"name" msgpack:"name"`
	Type   string `json:"type" msgpack:"type"`
	X      int    `json:"x" msgpack:"x"`
	Y      int    `json:"y" msgpack:"y"`
	Health int    `json:"health" msgpack:"health"`
	Facing string `json:"facing,omitempty" msgpack:"facing,omitempty"`
}

// Snapshot is the serialized contents of a game. Tiles are keyed by x, then y.
type Snapshot struct {
	Version int                       `json:"version,omitempty" msgpack:"version,omitempty"`
	Width   int                       `json:"width,omitempty" msgpack:"width,omitempty"`
	Height  int                       `json:"height,omitempty" msgpack:"height,omitempty"`
	Tiles   map[int]map[int]TileEntry `json:"tiles" msgpack:"tiles"`
	Players []PlayerRecord            `json:"players" msgpack:"players"`
	Active  *int                      `json:"active,omitempty" msgpack:"active,omitempty"`
}

// Snapshot captures the board contents and the player roster
func (g *Game) Snapshot() *Snapshot {
	snap := &Snapshot{
		Version: SnapshotVersion,
		Tiles:   map[int]map[int]TileEntry{},
		Players: make([]PlayerRecord, 0, len(g.players)),
	}
	if g.grid != nil {
		snap.Width = g.grid.Width()
		snap.Height = g.grid.Height()
		for x := 0; x < snap.Width; x++ {
			column := make(map[int]TileEntry, snap.Height)
			for y := 0; y < snap.Height; y++ {
				if goodie := g.grid.Get(x, y); goodie != nil {
					column[y] = goodie.Descriptor()
				} else {
					column[y] = TileEntry{}
				}
			}
			snap.Tiles[x] = column
		}
	}
	for _, p := range g.players {
		pos := p.Position()
		snap.Players = append(snap.Players, PlayerRecord{
			Item:   ItemPlayer,
			Name:   p.Name,
			Type:   p.Type,
			X:      pos.X,
			Y:      pos.Y,
			Health: p.Health(),
			Facing: p.Facing(),
		})
	}
	if g.active >= 0 {
		active := g.active
		snap.Active = &active
	}
	return snap
}

// SaveGameState serializes the game to its textual snapshot form
func (g *Game) SaveGameState() ([]byte, error) {
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// LoadGameState parses a snapshot and rebuilds the board contents from it
func (g *Game) LoadGameState(data []byte) error {
	snap, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	return g.Restore(snap)
}

// ParseSnapshot decodes a versioned snapshot or a legacy bare tile map
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	if _, ok := probe["tiles"]; ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		return &snap, nil
	}

	var tiles map[int]map[int]TileEntry
	if err := json.Unmarshal(data, &tiles); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return &Snapshot{Tiles: tiles}, nil
}

// Restore replaces the board contents with those of snap. The snapshot is
// fully validated against the current board before anything changes.
func (g *Game) Restore(snap *Snapshot) error {
	if g.grid == nil {
		return ErrBoardNotReady
	}
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if snap.Version < 0 || snap.Version > SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	width, height := snap.Width, snap.Height
	if snap.Version == 0 {
		width, height = legacyDimensions(snap.Tiles)
	}
	if width != g.grid.Width() || height != g.grid.Height() {
		return fmt.Errorf("%w: snapshot is %dx%d, board is %dx%d",
			ErrSnapshotMismatch, width, height, g.grid.Width(), g.grid.Height())
	}

	var goodies []*Goodie
	goodieAt := make(map[Position]bool)
	var tilePlayers []PlayerRecord
	for _, x := range sortedKeys(snap.Tiles) {
		column := snap.Tiles[x]
		for _, y := range sortedKeys(column) {
			if !g.grid.InBounds(x, y) {
				return fmt.Errorf("%w: tile (%d,%d) outside %dx%d board",
					ErrSnapshotMismatch, x, y, width, height)
			}
			entry := column[y]
			switch entry.Item {
			case "":
			case ItemBlock:
				goodie, err := g.goodieFromEntry(entry, snap.Version)
				if err != nil {
					return err
				}
				goodie.Position = Position{X: x, Y: y}
				goodies = append(goodies, goodie)
				goodieAt[goodie.Position] = true
			case ItemPlayer:
				tilePlayers = append(tilePlayers, PlayerRecord{
					Item:   ItemPlayer,
					Name:   entry.Name,
					Type:   entry.Type,
					X:      x,
					Y:      y,
					Health: g.opts.StartEnergy,
				})
			default:
				return fmt.Errorf("%w: unknown item %q at (%d,%d)", ErrInvalidSnapshot, entry.Item, x, y)
			}
		}
	}

	roster := snap.Players
	if roster == nil && len(tilePlayers) > 0 {
		roster = tilePlayers
	}

	var players []*Player
	active := g.active
	if roster != nil {
		players = make([]*Player, 0, len(roster))
		for i, rec := range roster {
			if !g.grid.InBounds(rec.X, rec.Y) {
				return fmt.Errorf("%w: player %d at (%d,%d) outside board", ErrSnapshotMismatch, i, rec.X, rec.Y)
			}
			if goodieAt[Position{X: rec.X, Y: rec.Y}] {
				return fmt.Errorf("%w: player %d shares tile (%d,%d) with a goodie", ErrInvalidSnapshot, i, rec.X, rec.Y)
			}
			player, err := NewPlayer(rec.Name, rec.Type, g.opts.TileSize, Position{X: rec.X, Y: rec.Y}, rec.Health)
			if err != nil {
				return err
			}
			player.Face(rec.Facing)
			players = append(players, player)
		}
		active = len(players) - 1
		if snap.Active != nil {
			if *snap.Active < -1 || *snap.Active >= len(players) {
				return fmt.Errorf("%w: active index %d", ErrIndexOutOfRange, *snap.Active)
			}
			active = *snap.Active
		}
	}

	if err := g.grid.Reset(width, height); err != nil {
		return err
	}
	for _, goodie := range goodies {
		g.grid.Set(goodie.Position.X, goodie.Position.Y, goodie)
	}
	g.goodies = goodies
	if roster != nil {
		g.players = players
		g.active = active
	}
	if len(g.players) > 0 {
		g.phase = PhaseInProgress
	} else {
		g.phase = PhaseBoardReady
	}

	g.emit(Event{
		Type:    EventStateLoaded,
		Message: fmt.Sprintf("Loaded %d goodies and %d players", len(g.goodies), len(g.players)),
	})
	return nil
}

func (g *Game) goodieFromEntry(entry TileEntry, version int) (*Goodie, error) {
	kind := GoodieKind(entry.Type)
	if kind == "" {
		kind = Food
	}
	value := entry.Value
	if version == 0 && value == 0 {
		value = DefaultGoodieValue
	}
	return NewGoodie(kind, g.opts.TileSize, GoodieOptions{
		Type:   entry.Visual,
		Energy: value,
		Sound:  entry.Sound,
	})
}

// legacyDimensions derives the board size from the tile keys of an
// unversioned snapshot
func legacyDimensions(tiles map[int]map[int]TileEntry) (width, height int) {
	width = len(tiles)
	for _, column := range tiles {
		if len(column) > height {
			height = len(column)
		}
	}
	return width, height
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// SnapshotSchema returns the JSON schema of the snapshot format
func SnapshotSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(&Snapshot{})
	schema.Title = "Goodie Grid snapshot"
	schema.Description = "Board contents keyed by x then y. Empty tiles are false."
	return json.MarshalIndent(schema, "", "  ")
}
