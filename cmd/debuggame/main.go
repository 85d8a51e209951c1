package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/logging"
	"github.com/brensch/santorini/selfplay"
	"github.com/brensch/santorini/store"
)

func main() {
	outDir := flag.String("out-dir", "debug_games", "Output directory for debug games")
	one := flag.String("one", "flop", "Engine playing PlayerOne")
	two := flag.String("two", "random", "Engine playing PlayerTwo")
	algorithm := flag.String("algorithm", "alphabeta", "Search algorithm: alphabeta or negamax")
	maxDepth := flag.Int("max-depth", engine.MaxPly, "Deepest iteration the search may reach")
	timeControl := flag.Duration("time-control", 30*time.Second, "Starting clock per side")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Seed for the start position and random engines")
	showPV := flag.Bool("pv", true, "Print each depth's principal variation as it completes")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()

	logger, err := logging.New(log.Writer(), "pretty", *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	algo, err := engine.ParseAlgorithm(*algorithm)
	if err != nil {
		log.Fatalf("algorithm: %v", err)
	}

	ecfg := engine.DefaultConfig()
	ecfg.Algorithm = algo
	ecfg.MaxDepth = *maxDepth
	ecfg.Logger = logger
	ecfg.Seed = *seed
	if *showPV {
		ecfg.OnIteration = func(it engine.Iteration) {
			fmt.Printf("    depth %2d eval %4d nodes %8d  %s\n", it.Depth, it.Eval, it.Nodes, engine.FormatPV(it.PV))
		}
	}

	var engines [2]engine.Engine
	for i, name := range []string{*one, *two} {
		e, err := engine.New(name, ecfg)
		if err != nil {
			log.Fatalf("engine %q: %v", name, err)
		}
		engines[i] = e
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := selfplay.DefaultConfig()
	cfg.TimeControl = *timeControl
	cfg.Logger = logger

	start := selfplay.RandomStart(rand.New(rand.NewSource(*seed)))
	gameID := fmt.Sprintf("debug-%d", time.Now().Unix())

	log.Printf("Playing %s (X) vs %s (O), seed %d", *one, *two, *seed)
	onPly := func(p selfplay.Ply) {
		fmt.Println(p.Board.String())
		eval := "-"
		if p.Result.Eval != nil {
			eval = fmt.Sprintf("%d", *p.Result.Eval)
		}
		fmt.Printf("  Ply %3d | %-6s | %s | eval %s depth %d nodes %d | %s (clock %s)\n\n",
			p.Ply, p.Engine, p.Result.Move, eval, p.Result.Depth, p.Result.Nodes,
			p.Think.Round(time.Millisecond), p.ClockLeft.Round(time.Millisecond))
	}

	result, err := selfplay.PlayGame(ctx, gameID, engines, start, cfg, onPly)
	if err != nil {
		log.Fatalf("Failed to play debug game: %v", err)
	}

	fmt.Println(result.Final.String())
	if result.Decided {
		log.Printf("Game complete: %d plies, winner %s (%s) by %s", result.Plies, result.Winner, result.Engines[result.Winner], result.Reason)
	} else {
		log.Printf("Game complete: %d plies, undecided", result.Plies)
	}

	parquetPath, err := store.WriteBatchParquetAtomic(*outDir, result.Rows)
	if err != nil {
		log.Fatalf("Failed to write debug game: %v", err)
	}
	log.Printf("Debug game written to: %s", parquetPath)
}
