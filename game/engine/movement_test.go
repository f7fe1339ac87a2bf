package engine

import (
	"errors"
	"testing"
)

// setupScenario builds a 5x5 board with one player at (0,0) and a food
// goodie worth 40 at (1,0)
func setupScenario(t *testing.T, opts Options) (*Game, *Player, *Goodie) {
	t.Helper()
	game := newTestGame(t, 5, 5, opts)
	goodie, err := game.PlaceGoodie(Position{X: 1, Y: 0}, GoodieOptions{Type: "apple", Energy: 40})
	if err != nil {
		t.Fatalf("PlaceGoodie: %v", err)
	}
	player, err := game.AddPlayer("Alice", "knight", &Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	return game, player, goodie
}

func TestMovePlayer_EatsGoodie(t *testing.T) {
	game, player, goodie := setupScenario(t, Options{StartEnergy: 100, MoveEnergy: 20})

	result, err := game.MovePlayer(1, 0)
	if err != nil {
		t.Fatalf("MovePlayer: %v", err)
	}
	if !result.Moved {
		t.Fatalf("expected move to succeed, reason %q", result.Reason)
	}
	if player.Position() != (Position{X: 1, Y: 0}) {
		t.Errorf("expected player at (1,0), got %+v", player.Position())
	}
	if player.Health() != 120 {
		t.Errorf("expected health 120, got %d", player.Health())
	}
	if !game.Grid().IsEmpty(1, 0) {
		t.Error("expected tile (1,0) to be empty")
	}
	if len(game.Goodies()) != 0 {
		t.Errorf("expected goodie removed from collection, %d left", len(game.Goodies()))
	}
	if !goodie.Consumed {
		t.Error("expected goodie to be marked consumed")
	}
	if result.Consumed == nil || result.Consumed.ID != goodie.ID {
		t.Error("expected move result to report the consumed goodie")
	}
}

func TestMovePlayer_EmptyTile(t *testing.T) {
	game, player, _ := setupScenario(t, Options{StartEnergy: 100, MoveEnergy: 20})

	result, err := game.MovePlayer(0, 1)
	if err != nil {
		t.Fatalf("MovePlayer: %v", err)
	}
	if !result.Moved || result.Consumed != nil {
		t.Errorf("unexpected result %+v", result)
	}
	if player.Health() != 80 {
		t.Errorf("expected health 80, got %d", player.Health())
	}
	if player.Position() != (Position{X: 0, Y: 1}) {
		t.Errorf("expected (0,1), got %+v", player.Position())
	}
	if len(game.Goodies()) != 1 || game.Grid().Occupied() != 1 {
		t.Error("moving onto an empty tile should not touch goodies")
	}
}

func TestMovePlayer_LowHealthStillMovesOnce(t *testing.T) {
	game, player, _ := setupScenario(t, Options{StartEnergy: 10, MoveEnergy: 20})

	result, _ := game.MovePlayer(0, 1)
	if !result.Moved {
		t.Fatal("expected move with positive health to proceed")
	}
	if player.Health() != -10 {
		t.Errorf("expected health -10, got %d", player.Health())
	}

	result, err := game.MovePlayer(0, 1)
	if err != nil {
		t.Fatalf("non-strict move should not error, got %v", err)
	}
	if result.Moved || result.Reason != ReasonDefeated {
		t.Errorf("expected defeated no-op, got %+v", result)
	}
	if player.Position() != (Position{X: 0, Y: 1}) || player.Health() != -10 {
		t.Error("defeated player should not move or lose health")
	}
}

func TestMovePlayerTo_OutOfBoundsIsNoOp(t *testing.T) {
	game, player, _ := setupScenario(t, Options{})

	targets := []Position{{X: -1, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 5}, {X: 0, Y: -1}}
	for _, target := range targets {
		result, err := game.MovePlayerTo(target.X, target.Y)
		if err != nil {
			t.Errorf("MovePlayerTo(%d,%d): unexpected error %v", target.X, target.Y, err)
		}
		if result.Moved || result.Reason != ReasonOutOfBounds {
			t.Errorf("MovePlayerTo(%d,%d): expected out_of_bounds no-op, got %+v", target.X, target.Y, result)
		}
	}
	if player.Position() != (Position{}) || player.Health() != DefaultStartEnergy {
		t.Error("out of bounds moves should not change the player")
	}
}

func TestMovePlayerTo_Teleports(t *testing.T) {
	game, player, _ := setupScenario(t, Options{})

	result, err := game.MovePlayerTo(4, 4)
	if err != nil || !result.Moved {
		t.Fatalf("expected move, got %+v, %v", result, err)
	}
	if player.Position() != (Position{X: 4, Y: 4}) {
		t.Errorf("expected (4,4), got %+v", player.Position())
	}
	if player.Health() != DefaultStartEnergy-DefaultMoveEnergy {
		t.Errorf("expected one move cost, health %d", player.Health())
	}
}

func TestMove_NoActivePlayer(t *testing.T) {
	game := newTestGame(t, 3, 3, Options{})

	result, err := game.MoveUp()
	if err != nil {
		t.Errorf("non-strict move should not error, got %v", err)
	}
	if result.Moved || result.Reason != ReasonNoActivePlayer {
		t.Errorf("expected no_active_player no-op, got %+v", result)
	}
	if len(game.History()) != 0 {
		t.Error("moves without a player are not recorded")
	}
}

func TestMove_Directions(t *testing.T) {
	tests := []struct {
		direction string
		move      func(*Game) (MoveResult, error)
		expected  Position
	}{
		{DirUp, (*Game).MoveUp, Position{X: 2, Y: 1}},
		{DirDown, (*Game).MoveDown, Position{X: 2, Y: 3}},
		{DirLeft, (*Game).MoveLeft, Position{X: 1, Y: 2}},
		{DirRight, (*Game).MoveRight, Position{X: 3, Y: 2}},
	}

	for _, test := range tests {
		t.Run(test.direction, func(t *testing.T) {
			game := newTestGame(t, 5, 5, Options{})
			player, _ := game.AddPlayer("Alice", "knight", &Position{X: 2, Y: 2})

			if _, err := test.move(game); err != nil {
				t.Fatalf("move: %v", err)
			}
			if player.Position() != test.expected {
				t.Errorf("expected %+v, got %+v", test.expected, player.Position())
			}
			if player.Facing() != test.direction {
				t.Errorf("expected facing %s, got %s", test.direction, player.Facing())
			}
		})
	}
}

func TestMove_FacingSetEvenWhenBlockedByEdge(t *testing.T) {
	game := newTestGame(t, 3, 3, Options{})
	player, _ := game.AddPlayer("Alice", "knight", &Position{X: 0, Y: 0})

	result, _ := game.MoveLeft()
	if result.Moved {
		t.Error("expected move off the board to fail")
	}
	if player.Facing() != DirLeft {
		t.Errorf("expected facing left, got %q", player.Facing())
	}
}

func TestMove_InvalidDirection(t *testing.T) {
	game, _, _ := setupScenario(t, Options{})
	result, err := game.Move("sideways")
	if err != nil {
		t.Errorf("non-strict move should not error, got %v", err)
	}
	if result.Reason != ReasonInvalidDirection {
		t.Errorf("expected invalid_direction, got %q", result.Reason)
	}
}

func TestStrictMode(t *testing.T) {
	t.Run("no active player", func(t *testing.T) {
		game := newTestGame(t, 3, 3, Options{Strict: true})
		if _, err := game.MoveRight(); !errors.Is(err, ErrNoActivePlayer) {
			t.Errorf("expected ErrNoActivePlayer, got %v", err)
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		game, player, _ := setupScenario(t, Options{Strict: true})
		if _, err := game.MoveUp(); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("expected ErrOutOfBounds, got %v", err)
		}
		if player.Position() != (Position{}) {
			t.Error("failed move changed the position")
		}
	})

	t.Run("defeated", func(t *testing.T) {
		game, _, _ := setupScenario(t, Options{Strict: true, StartEnergy: 20, MoveEnergy: 20})
		if _, err := game.MoveDown(); err != nil {
			t.Fatalf("first move: %v", err)
		}
		if _, err := game.MoveDown(); !errors.Is(err, ErrPlayerDefeated) {
			t.Errorf("expected ErrPlayerDefeated, got %v", err)
		}
	})

	t.Run("invalid direction", func(t *testing.T) {
		game, _, _ := setupScenario(t, Options{Strict: true})
		if _, err := game.Move("north"); !errors.Is(err, ErrInvalidDirection) {
			t.Errorf("expected ErrInvalidDirection, got %v", err)
		}
	})
}

func TestBulkMove_StopsWhenDefeated(t *testing.T) {
	game := newTestGame(t, 5, 5, Options{StartEnergy: 40, MoveEnergy: 20})
	player, _ := game.AddPlayer("Alice", "knight", &Position{X: 0, Y: 0})

	results, err := game.BulkMove([]string{DirRight, DirRight, DirRight, DirRight})
	if err != nil {
		t.Fatalf("BulkMove: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 moves before defeat, got %d", len(results))
	}
	if player.Position() != (Position{X: 2, Y: 0}) {
		t.Errorf("expected (2,0), got %+v", player.Position())
	}
}

func TestBulkMove_StrictStopsOnError(t *testing.T) {
	game := newTestGame(t, 3, 3, Options{Strict: true})
	_, _ = game.AddPlayer("Alice", "knight", &Position{X: 0, Y: 0})

	results, err := game.BulkMove([]string{DirRight, DirUp, DirRight})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestHistory(t *testing.T) {
	game, _, goodie := setupScenario(t, Options{})

	_, _ = game.MoveRight()
	_, _ = game.MoveUp()

	history := game.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if !history[0].Success || history[0].Consumed != goodie.ID || history[0].MoveNumber != 1 {
		t.Errorf("unexpected first entry %+v", history[0])
	}
	if history[1].Success || history[1].MoveNumber != 2 {
		t.Errorf("unexpected second entry %+v", history[1])
	}
	if last := game.LastMove(); last == nil || last.MoveNumber != 2 {
		t.Errorf("unexpected last move %+v", last)
	}
	if game.State().TotalMoves != 1 {
		t.Errorf("refused move must not count, got %d total moves", game.State().TotalMoves)
	}
}

func TestHistory_KeepsRecentAttempts(t *testing.T) {
	game := newTestGame(t, 2, 1, Options{StartEnergy: 1_000_000, MoveEnergy: 1})
	if _, err := game.AddPlayer("Alice", "knight", &Position{X: 0, Y: 0}); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	// Every pair is one real move and one bump into the edge
	for i := 0; i < MaxHistory; i++ {
		if i%2 == 0 {
			_, _ = game.MoveRight()
			_, _ = game.MoveRight()
		} else {
			_, _ = game.MoveLeft()
			_, _ = game.MoveLeft()
		}
	}

	history := game.History()
	if len(history) != MaxHistory {
		t.Fatalf("expected history capped at %d, got %d", MaxHistory, len(history))
	}
	if history[0].MoveNumber != MaxHistory+1 || history[len(history)-1].MoveNumber != 2*MaxHistory {
		t.Errorf("expected the latest attempts kept, got %d..%d", history[0].MoveNumber, history[len(history)-1].MoveNumber)
	}
	if game.TotalMoves() != MaxHistory {
		t.Errorf("expected %d successful moves, got %d", MaxHistory, game.TotalMoves())
	}
}
