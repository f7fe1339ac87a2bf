// Package engine implements the Goodie Grid game model.
//
// A Game owns a fixed-size Grid of tiles, the players walking on it and the
// food goodies placed on its tiles. Move commands apply to the active
// player: every successful move costs MoveEnergy health, and stepping onto a
// goodie adds its value and removes it from the board. A player whose health
// has dropped to zero or below can no longer move.
//
// Invalid moves (no active player, target outside the board, defeated
// player) leave the game unchanged. By default they are silent and only the
// returned MoveResult explains why; with Options.Strict the same cases also
// return ErrNoActivePlayer, ErrOutOfBounds or ErrPlayerDefeated.
//
// The model never renders anything. Presentation layers register with
// Game.Observe and receive an Event after every mutation.
//
// Usage:
//
//	game := engine.NewGame(engine.Options{})
//	if err := game.CreateBoard(20, 10); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := game.AddGoodies(10, engine.GoodieOptions{Type: "apple"}); err != nil {
//		log.Fatal(err)
//	}
//	if _, err := game.AddPlayer("Player 1", "knight", &engine.Position{}); err != nil {
//		log.Fatal(err)
//	}
//	result, _ := game.MoveRight()
//
// Persistence:
//
// SaveGameState writes a versioned JSON Snapshot of the tiles and the player
// roster. LoadGameState accepts that format and the legacy bare tile map, and
// validates the snapshot against the current board before changing anything.
package engine
