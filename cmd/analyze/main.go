// Command analyze prints quick, human-readable heuristics about saved game
// snapshots. It summarizes board size, goodies and players, and highlights
// goodies no living player can reach on its current energy.
//
// Arguments are snapshot files or directories; directories are searched for
// saved games (files named gameState).
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

const saveFileName = "gameState"

// loadSnapshotState rebuilds a game from a snapshot file and returns its view
func loadSnapshotState(path string, opts engine.Options) (*engine.GameState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	snap, err := engine.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}

	width, height := snap.Width, snap.Height
	if snap.Version == 0 {
		width, height = tileExtent(snap.Tiles)
	}

	game := engine.NewGame(opts)
	if err := game.CreateBoard(width, height); err != nil {
		return nil, err
	}
	if err := game.Restore(snap); err != nil {
		return nil, err
	}
	return game.State(), nil
}

// tileExtent sizes a legacy snapshot from its highest tile keys
func tileExtent(tiles map[int]map[int]engine.TileEntry) (width, height int) {
	for x, column := range tiles {
		if x+1 > width {
			width = x + 1
		}
		for y := range column {
			if y+1 > height {
				height = y + 1
			}
		}
	}
	return width, height
}

// unreachableGoodies returns the goodies farther from every living player
// than that player can walk on its current energy
func unreachableGoodies(state *engine.GameState) []engine.GoodieView {
	var out []engine.GoodieView
	for _, goodie := range state.Goodies {
		reachable := false
		for _, p := range state.Players {
			if p.Defeated {
				continue
			}
			moves := engine.MovesLeft(p.Health, state.MoveEnergy)
			if moves < 0 || engine.ManhattanDistance(p.Position, goodie.Position) <= moves {
				reachable = true
				break
			}
		}
		if !reachable {
			out = append(out, goodie)
		}
	}
	return out
}

func analyzeSnapshot(w io.Writer, path string, opts engine.Options) {
	state, err := loadSnapshotState(path, opts)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(w, "Board: %d x %d (%s)\n", state.Width, state.Height, state.Phase)
	fmt.Fprintf(w, "Goodies: %d (worth %d)\n", len(state.Goodies), engine.TotalGoodieValue(state))
	fmt.Fprintf(w, "Players: %d\n", len(state.Players))

	for _, p := range state.Players {
		marker := " "
		if p.Active {
			marker = "*"
		}
		status := fmt.Sprintf("%d moves left", engine.MovesLeft(p.Health, state.MoveEnergy))
		if p.Defeated {
			status = "defeated"
		}
		fmt.Fprintf(w, " %s %s at (%d, %d), energy %d, %s\n", marker, p.Name, p.Position.X, p.Position.Y, p.Health, status)
	}

	if len(state.Players) > 0 {
		fmt.Fprintf(w, "Energy risk: %s\n", engine.AnalyzeEnergyRisk(state))
	}
	if goodie, distance, ok := engine.FindNearestGoodie(state); ok {
		fmt.Fprintf(w, "Nearest goodie to active player: (%d, %d), %d moves away\n", goodie.Position.X, goodie.Position.Y, distance)
	}

	unreachable := unreachableGoodies(state)
	if len(unreachable) == 0 {
		fmt.Fprintf(w, "✅ All goodies are within reach of a living player\n")
		return
	}
	fmt.Fprintf(w, "⚠️  WARNING: %d goodies are out of reach of every living player!\n", len(unreachable))
	for i, g := range unreachable {
		if i == 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(unreachable)-5)
			break
		}
		fmt.Fprintf(w, "   Unreachable: (%d, %d) worth %d\n", g.Position.X, g.Position.Y, g.Value)
	}
}

// collectSnapshots expands directories into the saved games they contain
func collectSnapshots(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && d.Name() == saveFileName {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Summarize saved Goodie Grid snapshots",
		ArgsUsage: "[snapshot or directory ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "move-energy",
				Value: engine.DefaultMoveEnergy,
				Usage: "Energy a move costs in the analyzed games",
			},
			&cli.IntFlag{
				Name:  "start-energy",
				Value: engine.DefaultStartEnergy,
				Usage: "Energy of players restored from legacy snapshots",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				paths = []string{"data"}
			}
			files, err := collectSnapshots(paths)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(out, "No snapshots found")
				return nil
			}

			opts := engine.Options{
				MoveEnergy:  cmd.Int("move-energy"),
				StartEnergy: cmd.Int("start-energy"),
			}
			for _, file := range files {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", file)
				analyzeSnapshot(out, file, opts)
			}
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
