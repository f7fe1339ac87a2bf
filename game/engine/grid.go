package engine

import "fmt"

// Grid is a fixed-size board of tiles. A tile is either empty (nil) or holds
// the goodie standing on it. Tiles are stored row-major in a flat slice.
type Grid struct {
	width  int
	height int
	tiles  []*Goodie
}

// NewGrid creates an empty width x height grid
func NewGrid(width, height int) (*Grid, error) {
	g := &Grid{}
	if err := g.Reset(width, height); err != nil {
		return nil, err
	}
	return g, nil
}

// Reset replaces all tile state with a fresh, empty width x height grid
func (g *Grid) Reset(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxBoardDimension || height > MaxBoardDimension {
		return fmt.Errorf("%w: %dx%d (each side must be between 1 and %d)",
			ErrInvalidDimensions, width, height, MaxBoardDimension)
	}
	g.width = width
	g.height = height
	g.tiles = make([]*Goodie, width*height)
	return nil
}

// Width returns the number of columns
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows
func (g *Grid) Height() int { return g.height }

// InBounds reports whether 0 <= x < width and 0 <= y < height
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Get returns the goodie on tile (x, y), or nil when the tile is empty.
// Callers must bounds-check; out-of-bounds coordinates read as empty.
func (g *Grid) Get(x, y int) *Goodie {
	if !g.InBounds(x, y) {
		return nil
	}
	return g.tiles[y*g.width+x]
}

// Set overwrites tile (x, y). Out-of-bounds writes are dropped.
func (g *Grid) Set(x, y int, goodie *Goodie) {
	if !g.InBounds(x, y) {
		return
	}
	g.tiles[y*g.width+x] = goodie
}

// IsEmpty reports whether an in-bounds tile holds nothing
func (g *Grid) IsEmpty(x, y int) bool {
	return g.InBounds(x, y) && g.tiles[y*g.width+x] == nil
}

// Occupied returns the number of non-empty tiles
func (g *Grid) Occupied() int {
	count := 0
	for _, t := range g.tiles {
		if t != nil {
			count++
		}
	}
	return count
}

// FreeTiles lists every empty tile in row-major order
func (g *Grid) FreeTiles() []Position {
	free := make([]Position, 0, len(g.tiles))
	for i, t := range g.tiles {
		if t == nil {
			free = append(free, Position{X: i % g.width, Y: i / g.width})
		}
	}
	return free
}

// RandomFreeTile picks uniformly among empty tiles for which exclude returns
// false. exclude may be nil. It fails with ErrGridFull when no tile qualifies.
func (g *Grid) RandomFreeTile(rng Rand, exclude func(Position) bool) (Position, error) {
	free := g.FreeTiles()
	if exclude != nil {
		kept := free[:0]
		for _, p := range free {
			if !exclude(p) {
				kept = append(kept, p)
			}
		}
		free = kept
	}
	if len(free) == 0 {
		return Position{}, ErrGridFull
	}
	return free[rng.Intn(len(free))], nil
}
