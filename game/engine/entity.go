package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Player is a movable entity with health. Its position only changes through
// MoveTo.
type Player struct {
	ID       string
	Name     string
	Type     string
	TileSize int

	pos    Position
	health int
	facing string
}

// NewPlayer creates a player standing on start with the given health
func NewPlayer(name, typ string, tileSize int, start Position, health int) (*Player, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("player %q: %w", name, ErrMissingTileSize)
	}
	return &Player{
		ID:       uuid.NewString(),
		Name:     name,
		Type:     typ,
		TileSize: tileSize,
		pos:      start,
		health:   health,
	}, nil
}

// Position returns the tile the player stands on
func (p *Player) Position() Position { return p.pos }

// Health returns the current health; zero or less means defeated
func (p *Player) Health() int { return p.health }

// Facing returns the last direction the player was turned to
func (p *Player) Facing() string { return p.facing }

// Defeated reports whether health has dropped to zero or below
func (p *Player) Defeated() bool { return p.health <= 0 }

// MoveTo sets the player's position
func (p *Player) MoveTo(x, y int) {
	p.pos = Position{X: x, Y: y}
}

// ApplyEnergyDelta adds amount to health. Health is not clamped.
func (p *Player) ApplyEnergyDelta(amount int) {
	p.health += amount
}

// Face records the direction the player is turned to
func (p *Player) Face(direction string) {
	p.facing = direction
}

// Descriptor returns the minimal persisted form of a player
func (p *Player) Descriptor() TileEntry {
	return TileEntry{Item: ItemPlayer, Name: p.Name, Type: p.Type}
}

// PixelOffset returns the top-left pixel coordinate of the player's tile
func (p *Player) PixelOffset() (left, top int) {
	return p.pos.X * p.TileSize, p.pos.Y * p.TileSize
}

// GoodieOptions configures goodie creation
type GoodieOptions struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Energy int    `json:"energy,omitempty" yaml:"energy,omitempty"`
	Sound  string `json:"sound,omitempty" yaml:"sound,omitempty"`
}

// Goodie is a consumable block with an energy value that occupies one tile
// until a player steps on it
type Goodie struct {
	ID       string
	Kind     GoodieKind
	Visual   string
	Value    int
	Sound    string
	TileSize int
	Position Position
	Consumed bool
}

// NewGoodie creates a goodie of the given kind. opts.Type is the visual
// subtype and opts.Energy its value.
func NewGoodie(kind GoodieKind, tileSize int, opts GoodieOptions) (*Goodie, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("goodie %q: %w", kind, ErrMissingTileSize)
	}
	return &Goodie{
		ID:       uuid.NewString(),
		Kind:     kind,
		Visual:   opts.Type,
		Value:    opts.Energy,
		Sound:    opts.Sound,
		TileSize: tileSize,
	}, nil
}

// Consume marks the goodie inert
func (g *Goodie) Consume() {
	g.Consumed = true
}

// Descriptor returns the persisted form of a goodie
func (g *Goodie) Descriptor() TileEntry {
	return TileEntry{
		Item:   ItemBlock,
		Type:   string(g.Kind),
		Visual: g.Visual,
		Value:  g.Value,
		Sound:  g.Sound,
	}
}

func (g *Goodie) view() GoodieView {
	return GoodieView{
		ID:       g.ID,
		Kind:     g.Kind,
		Visual:   g.Visual,
		Value:    g.Value,
		Sound:    g.Sound,
		Position: g.Position,
	}
}
