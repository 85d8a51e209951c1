package selfplay

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/santorini/engine"
)

// RunConfig describes a batch of self-play games.
type RunConfig struct {
	Workers int
	// Games to play; zero plays until ctx is cancelled.
	Games int
	// Engines are the names for PlayerOne and PlayerTwo in even games.
	// Odd games swap colours.
	Engines [2]string
	// RunID prefixes game IDs, which are deterministic per index so a rerun
	// with the same RunID can Skip what it already stored.
	RunID  string
	Seed   int64
	Game   Config
	Engine engine.Config
	Skip   func(gameID string) bool
}

func GameID(runID string, index int) string {
	return fmt.Sprintf("%s-%06d", runID, index)
}

// Run plays games on cfg.Workers goroutines and sends each finished game
// to out. It returns when every game is done, on the first game error, or
// with nil once ctx is cancelled. Run never closes out.
func Run(ctx context.Context, cfg RunConfig, out chan<- GameResult) error {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	for _, name := range cfg.Engines {
		if _, err := engine.New(name, cfg.Engine); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; cfg.Games <= 0 || i < cfg.Games; i++ {
			if cfg.Skip != nil && cfg.Skip(GameID(cfg.RunID, i)) {
				continue
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				res, err := playIndex(ctx, cfg, i)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func playIndex(ctx context.Context, cfg RunConfig, i int) (GameResult, error) {
	names := cfg.Engines
	if i%2 == 1 {
		names[0], names[1] = names[1], names[0]
	}
	var engines [2]engine.Engine
	for side, name := range names {
		ecfg := cfg.Engine
		ecfg.Seed = cfg.Seed + int64(2*i+side)
		e, err := engine.New(name, ecfg)
		if err != nil {
			return GameResult{}, err
		}
		engines[side] = e
	}
	rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
	return PlayGame(ctx, GameID(cfg.RunID, i), engines, RandomStart(rng), cfg.Game, nil)
}
