// Package selfplay plays complete games between two engines and turns them
// into store rows.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/game"
	"github.com/brensch/santorini/rules"
	"github.com/brensch/santorini/store"
)

// Config controls a single game.
type Config struct {
	// TimeControl is each side's starting clock.
	TimeControl time.Duration
	Increment   time.Duration
	// MaxPlies stops a game that somehow refuses to end. Every ply builds a
	// level, so a real game cannot outlast 100 plies.
	MaxPlies int
	Clock    engine.Clock
	Logger   *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		TimeControl: time.Minute,
		MaxPlies:    200,
		Clock:       engine.SystemClock{},
		Logger:      slog.Default(),
	}
}

// GameResult describes a finished game.
type GameResult struct {
	GameID  string
	Engines [2]string
	// Decided is false only when MaxPlies cut the game short.
	Decided bool
	Winner  game.Turn
	// Reason is "climb", "stuck" or "max_plies".
	Reason string
	Plies  int
	Final  game.Board
	Rows   []store.TurnRow
}

// Ply is reported after every move of a game.
type Ply struct {
	GameID string
	Ply    int
	Engine string
	Board  game.Board
	Result engine.SearchResult
	Think  time.Duration
	// ClockLeft is the mover's clock after this move.
	ClockLeft time.Duration
}

// RandomStart places the four workers on distinct random squares of a
// flat board with PlayerOne to move.
func RandomStart(rng *rand.Rand) game.Board {
	var b game.Board
	perm := rng.Perm(game.NumSquares)
	for i := range b.Workers {
		b.Workers[i] = game.Square(perm[i])
	}
	return b
}

// PlayGame plays engines[0] as PlayerOne against engines[1] as PlayerTwo
// from start. A side that cannot move loses. Running out of clock does not
// lose: the side simply searches on the time manager's floor. An illegal
// engine move aborts the game with an error.
func PlayGame(ctx context.Context, gameID string, engines [2]engine.Engine, start game.Board, cfg Config, onPly func(Ply)) (GameResult, error) {
	if cfg.Clock == nil {
		cfg.Clock = engine.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxPlies <= 0 {
		cfg.MaxPlies = DefaultConfig().MaxPlies
	}
	if err := start.Validate(); err != nil {
		return GameResult{}, fmt.Errorf("game %s: %w", gameID, err)
	}

	res := GameResult{
		GameID:  gameID,
		Engines: [2]string{engines[0].Info().Name, engines[1].Info().Name},
		Reason:  "max_plies",
		Rows:    make([]store.TurnRow, 0, 64),
	}
	log := cfg.Logger.With("game", gameID)
	clocks := [2]time.Duration{cfg.TimeControl, cfg.TimeControl}
	b := start

	for ply := 0; ply < cfg.MaxPlies; ply++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if w, ok := rules.Winner(&b); ok {
			res.Decided, res.Winner, res.Reason = true, w, "climb"
			break
		}

		side := b.Turn
		eng := engines[side]
		t0 := cfg.Clock.Now()
		sr := eng.GetMove(ctx, engine.Request{Board: b, TimeLeft: clocks[side]})
		think := cfg.Clock.Now().Sub(t0)
		clocks[side] = max(clocks[side]-think, 0) + cfg.Increment

		if sr.Move == nil {
			res.Decided, res.Winner, res.Reason = true, side.Other(), "stuck"
			break
		}
		mv := sr.Move.Internal(&b)
		if err := b.MoveIsLegal(mv); err != nil {
			return res, fmt.Errorf("game %s ply %d: %s played illegal move %s: %w", gameID, ply, res.Engines[side], sr.Move, err)
		}

		res.Rows = append(res.Rows, store.NewTurnRow(gameID, ply, b, res.Engines[side], sr, think))
		if onPly != nil {
			onPly(Ply{GameID: gameID, Ply: ply, Engine: res.Engines[side], Board: b, Result: sr, Think: think, ClockLeft: clocks[side]})
		}
		b.MakeMove(mv)
		res.Plies = ply + 1
	}
	// The loop can exit on MaxPlies right after a winning climb.
	if !res.Decided {
		if w, ok := rules.Winner(&b); ok {
			res.Decided, res.Winner, res.Reason = true, w, "climb"
		}
	}

	res.Final = b
	store.SetOutcomes(res.Rows, rules.GetResult(&b))
	log.Debug("game over", "winner", res.Winner, "decided", res.Decided, "reason", res.Reason, "plies", res.Plies)
	return res, nil
}
