package engine

import (
	"errors"
	"testing"
)

// firstRand always picks the first candidate
type firstRand struct{}

func (firstRand) Intn(n int) int { return 0 }

// lastRand always picks the last candidate
type lastRand struct{}

func (lastRand) Intn(n int) int { return n - 1 }

func TestNewGrid_AllTilesEmpty(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {5, 5}, {20, 10}, {3, 7}}
	for _, size := range sizes {
		grid, err := NewGrid(size.w, size.h)
		if err != nil {
			t.Fatalf("NewGrid(%d, %d): %v", size.w, size.h, err)
		}
		for x := 0; x < size.w; x++ {
			for y := 0; y < size.h; y++ {
				if !grid.IsEmpty(x, y) {
					t.Errorf("%dx%d: tile (%d,%d) not empty", size.w, size.h, x, y)
				}
			}
		}
		if grid.Occupied() != 0 {
			t.Errorf("%dx%d: expected 0 occupied tiles, got %d", size.w, size.h, grid.Occupied())
		}
		if len(grid.FreeTiles()) != size.w*size.h {
			t.Errorf("%dx%d: expected %d free tiles, got %d", size.w, size.h, size.w*size.h, len(grid.FreeTiles()))
		}
	}
}

func TestNewGrid_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 5},
		{"zero height", 5, 0},
		{"negative", -1, -1},
		{"too wide", MaxBoardDimension + 1, 5},
		{"too tall", 5, MaxBoardDimension + 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewGrid(test.w, test.h)
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("expected ErrInvalidDimensions, got %v", err)
			}
		})
	}
}

func TestGrid_InBounds(t *testing.T) {
	grid, _ := NewGrid(4, 3)

	tests := []struct {
		x, y     int
		expected bool
	}{
		{0, 0, true},
		{3, 2, true},
		{4, 0, false},
		{0, 3, false},
		{-1, 0, false},
		{0, -1, false},
	}
	for _, test := range tests {
		if got := grid.InBounds(test.x, test.y); got != test.expected {
			t.Errorf("InBounds(%d, %d): expected %v, got %v", test.x, test.y, test.expected, got)
		}
	}
}

func TestGrid_SetGetOutOfBounds(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	goodie := &Goodie{Kind: Food, Value: 40}

	grid.Set(1, 1, goodie)
	if grid.Get(1, 1) != goodie {
		t.Error("expected goodie at (1,1)")
	}

	grid.Set(5, 5, goodie)
	if grid.Get(5, 5) != nil {
		t.Error("out of bounds read should be empty")
	}
	if grid.Occupied() != 1 {
		t.Errorf("out of bounds write should be dropped, occupied = %d", grid.Occupied())
	}
}

func TestGrid_RandomFreeTile(t *testing.T) {
	grid, _ := NewGrid(3, 1)
	grid.Set(0, 0, &Goodie{Kind: Food})

	pos, err := grid.RandomFreeTile(firstRand{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != (Position{X: 1, Y: 0}) {
		t.Errorf("expected (1,0), got %+v", pos)
	}

	pos, err = grid.RandomFreeTile(firstRand{}, func(p Position) bool { return p.X == 1 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos != (Position{X: 2, Y: 0}) {
		t.Errorf("expected excluded tile to be skipped, got %+v", pos)
	}
}

func TestGrid_RandomFreeTileAlwaysEmpty(t *testing.T) {
	grid, _ := NewGrid(4, 4)
	for i := 0; i < 16; i++ {
		pos, err := grid.RandomFreeTile(lastRand{}, nil)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !grid.IsEmpty(pos.X, pos.Y) {
			t.Fatalf("iteration %d: returned occupied tile %+v", i, pos)
		}
		grid.Set(pos.X, pos.Y, &Goodie{Kind: Food})
	}

	if _, err := grid.RandomFreeTile(lastRand{}, nil); !errors.Is(err, ErrGridFull) {
		t.Errorf("expected ErrGridFull on a full grid, got %v", err)
	}
}

func TestGrid_Reset(t *testing.T) {
	grid, _ := NewGrid(2, 2)
	grid.Set(0, 0, &Goodie{Kind: Food})

	if err := grid.Reset(3, 4); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if grid.Width() != 3 || grid.Height() != 4 {
		t.Errorf("expected 3x4, got %dx%d", grid.Width(), grid.Height())
	}
	if grid.Occupied() != 0 {
		t.Error("expected reset grid to be empty")
	}
}
