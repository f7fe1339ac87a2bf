// Command bruteforcer plays a Goodie Grid session through the REST API. It
// plans a route over the goodies the active player can reach, walks it with
// bulk moves and resets the game for another attempt whenever the player
// runs out of energy.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/inconshreveable/log15/v3"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/goodiegrid/game/engine"
)

var log = log15.New("module", "bruteforcer")

const sessionFile = ".session"

type playOptions struct {
	maxMoves    int
	maxAttempts int
	delay       time.Duration
	verbose     bool
}

// playResult summarizes a run over one or more attempts
type playResult struct {
	Attempts int
	Moves    int
	Eaten    int
	Won      bool
}

// play runs attempts until the board is cleared or the attempts run out.
// Every attempt after the first starts from a reset game.
func play(ctx context.Context, client *Client, state *engine.GameState, opts playOptions) (playResult, error) {
	var res playResult
	for res.Attempts < opts.maxAttempts {
		res.Attempts++
		if res.Attempts > 1 {
			var err error
			if state, err = client.Reset(ctx); err != nil {
				return res, err
			}
		}

		moves, eaten := 0, 0
		for moves < opts.maxMoves {
			if len(state.Goodies) == 0 {
				res.Moves, res.Eaten, res.Won = moves, eaten, true
				log.Info("board cleared", "attempt", res.Attempts, "moves", moves, "eaten", eaten)
				return res, nil
			}
			player, ok := engine.ActivePlayerView(state)
			if !ok || player.Defeated {
				break
			}
			if opts.verbose {
				log.Info("progress", "pos", fmt.Sprintf("(%d,%d)", player.Position.X, player.Position.Y),
					"energy", player.Health, "goodies_left", len(state.Goodies))
			}

			next := NextMoves(state, engine.MaxBulkMoves)
			if left := opts.maxMoves - moves; len(next) > left {
				next = next[:left]
			}
			if len(next) == 0 {
				break
			}

			result, err := client.BulkMove(ctx, next)
			if err != nil {
				return res, err
			}
			moves += result.MovesExecuted
			eaten += result.Consumed
			state = result.GameState
			if result.MovesExecuted == 0 {
				break
			}

			if opts.delay > 0 {
				select {
				case <-ctx.Done():
					return res, ctx.Err()
				case <-time.After(opts.delay):
				}
			}
		}

		res.Moves, res.Eaten = moves, eaten
		log.Info("attempt finished", "attempt", res.Attempts, "moves", moves, "eaten", eaten,
			"goodies_left", len(state.Goodies), "risk", engine.AnalyzeEnergyRisk(state))
	}
	return res, nil
}

// openSession resumes the saved or requested session, or creates a new one
// and remembers it for the next run
func openSession(ctx context.Context, client *Client, resumeID, configID string) (*engine.GameState, error) {
	if resumeID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			resumeID = string(bytes.TrimSpace(data))
		}
	}

	if resumeID != "" {
		state, err := client.Resume(ctx, resumeID)
		if err == nil {
			log.Info("session resumed", "session", resumeID, "board", fmt.Sprintf("%dx%d", state.Width, state.Height))
			return state, nil
		}
		log.Warn("failed to resume session, creating a new one", "session", resumeID, "err", err)
	}

	state, err := client.CreateSession(ctx, configID)
	if err != nil {
		return nil, err
	}
	log.Info("session created", "session", client.SessionID(), "board", fmt.Sprintf("%dx%d", state.Width, state.Height),
		"goodies", len(state.Goodies))
	if err := os.WriteFile(sessionFile, []byte(client.SessionID()), 0644); err != nil {
		log.Warn("failed to save session ID", "err", err)
	}
	return state, nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "bruteforcer",
		Usage: "Play a Goodie Grid session until the board is cleared",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "config", Usage: "Scenario ID (server default when empty)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.IntFlag{Name: "max-moves", Value: 3000, Usage: "Maximum moves per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 100, Usage: "Maximum attempts before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between bulk moves"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Info("connecting to game server", "url", cmd.String("url"))
			client := NewClient(cmd.String("url"))

			state, err := openSession(ctx, client, cmd.String("continue"), cmd.String("config"))
			if err != nil {
				return err
			}

			// Always start from a fresh board
			if state, err = client.Reset(ctx); err != nil {
				return err
			}

			res, err := play(ctx, client, state, playOptions{
				maxMoves:    cmd.Int("max-moves"),
				maxAttempts: cmd.Int("max-attempts"),
				delay:       cmd.Duration("delay"),
				verbose:     cmd.Bool("v"),
			})
			if err != nil {
				return err
			}
			if !res.Won {
				return fmt.Errorf("failed to clear the board after %d attempts (session %s)", res.Attempts, client.SessionID())
			}
			log.Info("victory", "attempt", res.Attempts, "moves", res.Moves, "session", client.SessionID())
			return nil
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Error("exiting", "err", err)
		os.Exit(1)
	}
}
