package selfplay

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/game"
	"github.com/brensch/santorini/rules"
)

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func engineConfig(depth int) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.MaxDepth = depth
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func TestRandomStart(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		b := RandomStart(rng)
		if err := b.Validate(); err != nil {
			t.Fatalf("start invalid: %v\n%s", err, b.String())
		}
		if b.Turn != game.PlayerOne {
			t.Fatalf("start turn %s", b.Turn)
		}
	}
}

func TestPlayGame_RandomVsRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		ecfg := engineConfig(1)
		ecfg.Seed = int64(i)
		engines := [2]engine.Engine{engine.NewRandom(ecfg), engine.NewRandom(ecfg)}
		start := RandomStart(rng)

		var plies []Ply
		res, err := PlayGame(context.Background(), "g", engines, start, quietConfig(), func(p Ply) { plies = append(plies, p) })
		if err != nil {
			t.Fatalf("game %d: %v", i, err)
		}
		if !res.Decided {
			t.Fatalf("game %d not decided after %d plies\n%s", i, res.Plies, res.Final.String())
		}
		if len(res.Rows) != res.Plies || len(plies) != res.Plies {
			t.Fatalf("game %d: %d rows, %d callbacks, %d plies", i, len(res.Rows), len(plies), res.Plies)
		}

		switch res.Reason {
		case "climb":
			if w, ok := rules.Winner(&res.Final); !ok || w != res.Winner {
				t.Fatalf("game %d: climb win not visible on final board", i)
			}
		case "stuck":
			if rules.HasMoves(&res.Final) || res.Final.Turn == res.Winner {
				t.Fatalf("game %d: stuck loss but side to move can play", i)
			}
		default:
			t.Fatalf("game %d: reason %q", i, res.Reason)
		}

		// Replaying the rows reproduces the game.
		b := start
		for j, row := range res.Rows {
			rb, err := row.Board()
			if err != nil {
				t.Fatalf("game %d row %d: %v", i, j, err)
			}
			if rb != b {
				t.Fatalf("game %d row %d board mismatch", i, j)
			}
			mv := plies[j].Result.Move.Internal(&b)
			b.MakeMove(mv)

			want := float32(1)
			if row.Side != res.Winner.String() {
				want = -1
			}
			if row.Outcome != want {
				t.Fatalf("game %d row %d outcome %v want %v", i, j, row.Outcome, want)
			}
		}
		if b != res.Final {
			t.Fatalf("game %d: replay differs from final board", i)
		}
	}
}

func TestPlayGame_FlopBeatsRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := quietConfig()
	cfg.TimeControl = 2 * time.Second
	wins := 0
	for i := 0; i < 4; i++ {
		engines := [2]engine.Engine{engine.NewFlop(engineConfig(2)), engine.NewRandom(engineConfig(1))}
		res, err := PlayGame(context.Background(), "g", engines, RandomStart(rng), cfg, nil)
		if err != nil {
			t.Fatalf("game %d: %v", i, err)
		}
		if res.Decided && res.Winner == game.PlayerOne {
			wins++
		}
	}
	if wins < 3 {
		t.Fatalf("flop won only %d of 4 against random", wins)
	}
}

func TestPlayGame_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engines := [2]engine.Engine{engine.NewRandom(engineConfig(1)), engine.NewRandom(engineConfig(1))}
	start := RandomStart(rand.New(rand.NewSource(4)))
	if _, err := PlayGame(ctx, "g", engines, start, quietConfig(), nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRun(t *testing.T) {
	out := make(chan GameResult)
	cfg := RunConfig{
		Workers: 3,
		Games:   6,
		Engines: [2]string{"flop", "random"},
		RunID:   "test",
		Seed:    9,
		Game:    quietConfig(),
		Engine:  engineConfig(1),
		Skip:    func(id string) bool { return id == GameID("test", 2) },
	}
	cfg.Game.TimeControl = time.Second

	var (
		mu      sync.Mutex
		results = map[string]GameResult{}
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		for r := range out {
			mu.Lock()
			results[r.GameID] = r
			mu.Unlock()
		}
	}()
	if err := Run(context.Background(), cfg, out); err != nil {
		t.Fatalf("run: %v", err)
	}
	close(out)
	<-done

	if len(results) != 5 {
		t.Fatalf("got %d games want 5", len(results))
	}
	if _, ok := results[GameID("test", 2)]; ok {
		t.Fatalf("skipped game was played")
	}
	if r := results[GameID("test", 1)]; r.Engines != [2]string{"random", "flop"} {
		t.Fatalf("odd game should swap colours, got %v", r.Engines)
	}
	if r := results[GameID("test", 4)]; r.Engines != [2]string{"flop", "random"} {
		t.Fatalf("even game engines %v", r.Engines)
	}
}

func TestRun_UnknownEngine(t *testing.T) {
	err := Run(context.Background(), RunConfig{Engines: [2]string{"flop", "nope"}, Games: 1}, make(chan GameResult, 1))
	if err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}
