// Command validate checks Goodie Grid scenario files (JSON or YAML) in a
// config directory. It reports:
//   - decoding problems and every field error found by the engine
//   - how many tiles each fixed-position player can reach before eating
//   - whether the scenario's goodies can feed the players at all
//
// Energy findings are warnings unless --strict is given.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors fail the file; Warnings fail it only in strict mode; Info lines
// describe a valid scenario.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single scenario file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeGameConfig(data, engine.FormatForPath(filePath))
	if err != nil {
		result.fail("%v", err)
		return result
	}

	for _, e := range multierr.Errors(engine.ValidateGameConfig(config)) {
		result.fail("%s", strings.TrimPrefix(e.Error(), "config validation: "))
	}
	if !result.Valid {
		return result
	}

	energy := validateEnergy(config)
	result.Warnings = append(result.Warnings, energy.Warnings...)

	width, height := config.BoardSize()
	opts := config.Options()
	if opts.MoveEnergy == 0 {
		opts.MoveEnergy = engine.DefaultMoveEnergy
	}
	if opts.StartEnergy == 0 {
		opts.StartEnergy = engine.DefaultStartEnergy
	}
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Board: %dx%d", width, height),
		fmt.Sprintf("✓ Goodies: %d (worth %d)", goodieCount(config), goodieValue(config)),
		fmt.Sprintf("✓ Players: %d", len(config.Players)),
		fmt.Sprintf("✓ Energy: start %d, move %d", opts.StartEnergy, opts.MoveEnergy),
	)
	result.Info = append(result.Info, energy.Info...)
	return result
}

func goodieCount(config *engine.GameConfig) int {
	n := 0
	for _, batch := range config.Goodies {
		n += batch.Count
	}
	return n
}

func goodieValue(config *engine.GameConfig) int {
	total := 0
	for _, batch := range config.Goodies {
		value := batch.Energy
		if value == 0 {
			value = engine.DefaultGoodieValue
		}
		total += batch.Count * value
	}
	return total
}

// validateEnergy estimates whether players can reach food before running
// out of energy. Goodies land on random tiles, so reach is reported as the
// share of the board a player covers on its starting energy.
func validateEnergy(config *engine.GameConfig) ValidationResult {
	result := ValidationResult{Valid: true}
	if len(config.Players) == 0 {
		return result
	}

	moveEnergy := config.MoveEnergy
	if moveEnergy == 0 {
		moveEnergy = engine.DefaultMoveEnergy
	}
	startEnergy := config.StartEnergy
	if startEnergy == 0 {
		startEnergy = engine.DefaultStartEnergy
	}
	moves := engine.MovesLeft(startEnergy, moveEnergy)
	width, height := config.BoardSize()
	goodies := goodieCount(config)

	if goodies == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("No goodies: players are defeated after %d moves", moves))
		return result
	}

	if moves < 0 {
		result.Info = append(result.Info, "✓ Moves are free")
		return result
	}

	free := width*height - len(config.Players)
	for _, p := range config.Players {
		if p.Position == nil {
			continue
		}
		reach := reachableTiles(width, height, *p.Position, moves)
		// Expected goodies within reach, with reach excluding the start tile
		expected := float64(goodies) * float64(reach-1) / float64(free)
		if expected < 1 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s reaches %d/%d tiles on %d moves, about %.1f goodies expected in range",
					p.Name, reach, width*height, moves, expected))
			continue
		}
		result.Info = append(result.Info,
			fmt.Sprintf("✓ %s reaches %d/%d tiles before eating", p.Name, reach, width*height))
	}
	return result
}

// reachableTiles counts the tiles a player at start can step to in at most
// moves single-tile moves, start included
func reachableTiles(width, height int, start engine.Position, moves int) int {
	type node struct {
		pos   engine.Position
		depth int
	}

	visited := map[engine.Position]bool{start: true}
	queue := []node{{pos: start}}
	directions := []string{engine.DirUp, engine.DirDown, engine.DirLeft, engine.DirRight}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth == moves {
			continue
		}
		for _, dir := range directions {
			dx, dy, _ := engine.DirectionDelta(dir)
			next := current.pos.Add(dx, dy)
			if next.X < 0 || next.Y < 0 || next.X >= width || next.Y >= height || visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, node{pos: next, depth: current.depth + 1})
		}
	}
	return len(visited)
}

// findConfigs lists the scenario files in dir
func findConfigs(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

var errInvalidConfigs = errors.New("some configurations have errors")

// report prints one block per result and returns errInvalidConfigs when a
// file failed
func report(w io.Writer, results []ValidationResult, strict bool) error {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		valid := result.Valid && (!strict || len(result.Warnings) == 0)
		if valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, e := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+e)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(w, "❌ Some configurations have errors")
		return errInvalidConfigs
	}
	fmt.Fprintln(w, "✅ All configurations are valid!")
	return nil
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate Goodie Grid scenario files",
		ArgsUsage: "[file ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "../configs",
				Usage:   "Directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Treat energy warnings as errors",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				found, err := findConfigs(cmd.String("dir"))
				if err != nil {
					return fmt.Errorf("error finding config files: %w", err)
				}
				files = found
			}
			if len(files) == 0 {
				return fmt.Errorf("no configuration files found in %s", cmd.String("dir"))
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validateConfig(file))
			}
			return report(out, results, cmd.Bool("strict"))
		},
	}
}

// main validates the scenario files and exits with non-zero status if any
// are invalid
func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalidConfigs) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
