// Command autoplay seats bot players in a CubeClash session and plays it
// through the REST API until the game ends or the turn cap is hit. Every
// seat is driven by ClimberStrategy.
//
// Usage:
//
//	autoplay --url http://localhost:8080 --config tower --players ada --players bob
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/cubeclash/game/engine"
)

// Options controls a bot run
type Options struct {
	ConfigID string
	Resume   string
	Players  []string
	MaxTurns int
	Delay    time.Duration
}

// Result summarizes a finished run
type Result struct {
	SessionID string
	Phase     engine.Phase
	Winner    int
	Turns     int
	Heights   map[string]int
}

// Run creates (or resumes) a session and plays turns until game over or
// MaxTurns turns have been taken
func Run(ctx context.Context, client *Client, opts Options, logger *zap.Logger) (Result, error) {
	view, err := prepare(ctx, client, opts, logger)
	if err != nil {
		return Result{}, err
	}

	var strategy ClimberStrategy
	turns := 0
	for view.Phase == engine.PhasePlaying && turns < opts.MaxTurns {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if view, err = playTurn(ctx, client, strategy, view, logger); err != nil {
			return Result{}, err
		}
		turns++
		if opts.Delay > 0 {
			time.Sleep(opts.Delay)
		}
	}

	result := Result{
		SessionID: client.SessionID(),
		Phase:     view.Phase,
		Winner:    view.Winner,
		Turns:     turns,
		Heights:   map[string]int{},
	}
	for _, p := range view.Data.Players {
		result.Heights[p.Name] = p.Position.Y
	}
	return result, nil
}

func prepare(ctx context.Context, client *Client, opts Options, logger *zap.Logger) (*engine.GameView, error) {
	if opts.Resume != "" {
		view, err := client.Resume(ctx, opts.Resume)
		if err == nil && view.Phase == engine.PhasePlaying {
			logger.Info("Resumed session", zap.String("session_id", opts.Resume))
			return view, nil
		}
		if err != nil {
			logger.Warn("Failed to resume session, creating a new one", zap.Error(err))
		} else {
			logger.Warn("Session is not being played, creating a new one", zap.String("phase", string(view.Phase)))
		}
	}

	info, err := client.CreateSession(ctx, opts.ConfigID)
	if err != nil {
		return nil, err
	}
	logger.Info("Session created",
		zap.String("session_id", info.ID),
		zap.String("config", info.ConfigName))

	for _, name := range opts.Players {
		result, err := client.AddPlayer(ctx, name)
		if err != nil {
			return nil, err
		}
		logger.Debug("Player seated",
			zap.String("name", name),
			zap.String("color", result.Player.Color))
	}
	return client.StartGame(ctx)
}

// playTurn lets the current player climb and build, then passes the turn
func playTurn(ctx context.Context, client *Client, strategy ClimberStrategy, view *engine.GameView, logger *zap.Logger) (*engine.GameView, error) {
	player, ok := currentPlayer(view)
	if !ok {
		return nil, fmt.Errorf("current player %d is not seated", view.Data.CurrentPlayerID)
	}
	log := logger.With(zap.String("player", player.Name))

	if player.CanMove {
		targets, err := client.Propose(ctx, engine.ActionMove)
		if err != nil {
			return nil, err
		}
		if target, ok := strategy.ChooseMove(player.Position, targets); ok {
			result, err := client.Commit(ctx, target)
			if err != nil {
				return nil, err
			}
			log.Debug("Moved", zap.Int("x", target.X), zap.Int("y", target.Y), zap.Int("z", target.Z))
			view = result.GameState
			if view.Phase != engine.PhasePlaying {
				return view, nil
			}
			player.Position = target
		} else if err := client.Cancel(ctx); err != nil {
			return nil, err
		}
	}

	if player.CanBuild {
		targets, err := client.Propose(ctx, engine.ActionBuild)
		if err != nil {
			return nil, err
		}
		if target, ok := strategy.ChooseBuild(player.Position, targets); ok {
			result, err := client.Commit(ctx, target)
			if err != nil {
				return nil, err
			}
			log.Debug("Built", zap.Int("x", target.X), zap.Int("y", target.Y), zap.Int("z", target.Z))
			view = result.GameState
			if view.Phase != engine.PhasePlaying {
				return view, nil
			}
		} else if err := client.Cancel(ctx); err != nil {
			return nil, err
		}
	}

	// auto_end_turn rule sets may already have passed the turn
	if view.Data.CurrentPlayerID != player.ID {
		return view, nil
	}
	next, err := client.EndTurn(ctx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return client.State(ctx)
	}
	return next, err
}

func currentPlayer(view *engine.GameView) (engine.Player, bool) {
	for _, p := range view.Data.Players {
		if p.ID == view.Data.CurrentPlayerID {
			return p, true
		}
	}
	return engine.Player{}, false
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play a CubeClash session with bot players",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Game server URL"},
			&cli.StringFlag{Name: "config", Value: "classic", Usage: "Rule set to create the session with"},
			&cli.StringFlag{Name: "continue", Usage: "Resume playing an existing session by ID"},
			&cli.StringSliceFlag{Name: "players", Value: []string{"red-bot", "blue-bot"}, Usage: "Bot player names"},
			&cli.IntFlag{Name: "max-turns", Value: 200, Usage: "Maximum turns before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Delay between turns"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log every action"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd.Bool("verbose"))
			defer logger.Sync()

			logger.Info("Connecting to game server", zap.String("url", cmd.String("url")))
			result, err := Run(ctx, NewClient(cmd.String("url")), Options{
				ConfigID: cmd.String("config"),
				Resume:   cmd.String("continue"),
				Players:  cmd.StringSlice("players"),
				MaxTurns: int(cmd.Int("max-turns")),
				Delay:    cmd.Duration("delay"),
			}, logger)
			if err != nil {
				return err
			}

			fields := []zap.Field{
				zap.String("session_id", result.SessionID),
				zap.String("phase", string(result.Phase)),
				zap.Int("turns", result.Turns),
				zap.Any("heights", result.Heights),
			}
			if result.Winner != 0 {
				fields = append(fields, zap.Int("winner", result.Winner))
			}
			logger.Info("Run finished", fields...)
			if result.Phase != engine.PhaseGameOver {
				return cli.Exit("turn cap reached before the game ended", 2)
			}
			return nil
		},
	}
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
