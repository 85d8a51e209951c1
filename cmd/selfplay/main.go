// Command selfplay pits two engines against each other and writes every
// turn to Parquet batches under -out-dir.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/logging"
	"github.com/brensch/santorini/selfplay"
	"github.com/brensch/santorini/store"
)

var totalGames atomic.Int64
var totalPlies atomic.Int64
var totalRows atomic.Int64

type GameUpdate struct {
	Result selfplay.GameResult
}

func main() {
	outDir := flag.String("out-dir", "data/selfplay", "Output directory for turn parquet batches")
	writtenLog := flag.String("written-log", "", "Game ID log used to skip games on restart (default <out-dir>/written.log)")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of games played in parallel")
	games := flag.Int("games", 100, "Games to play; 0 plays until interrupted")
	engines := flag.String("engines", "flop,random", "Engines for PlayerOne and PlayerTwo, comma separated; odd games swap colours")
	runID := flag.String("run-id", "", "Prefix for game IDs (default run-<unix time>)")
	seed := flag.Int64("seed", 1, "Seed for start positions and random engines")
	timeControl := flag.Duration("time-control", 10*time.Second, "Starting clock per side")
	increment := flag.Duration("increment", 0, "Clock added after every move")
	algorithm := flag.String("algorithm", "alphabeta", "Search algorithm: alphabeta or negamax")
	maxDepth := flag.Int("max-depth", engine.MaxPly, "Deepest iteration the search may reach")
	gamesPerFlush := flag.Int("games-per-flush", 50, "Games buffered per parquet file")
	tui := flag.Bool("tui", false, "Show a live dashboard instead of periodic log lines")
	logFormat := flag.String("log-format", "text", "Log format: text, json or pretty")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	names := strings.Split(*engines, ",")
	if len(names) != 2 {
		log.Fatalf("-engines needs exactly two names, got %q", *engines)
	}
	algo, err := engine.ParseAlgorithm(*algorithm)
	if err != nil {
		log.Fatalf("algorithm: %v", err)
	}

	// The dashboard owns the terminal, so logs go to a file beside the data.
	logOut := os.Stderr
	if *tui {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Fatalf("create out dir: %v", err)
		}
		f, err := os.OpenFile(filepath.Join(*outDir, "selfplay.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logOut, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if *runID == "" {
		*runID = fmt.Sprintf("run-%d", time.Now().Unix())
	}
	if *writtenLog == "" {
		*writtenLog = filepath.Join(*outDir, "written.log")
	}
	written, err := store.OpenWrittenLog(*writtenLog)
	if err != nil {
		log.Fatalf("written log: %v", err)
	}
	defer written.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	gameCfg := selfplay.DefaultConfig()
	gameCfg.TimeControl = *timeControl
	gameCfg.Increment = *increment
	gameCfg.Logger = logger

	engineCfg := engine.DefaultConfig()
	engineCfg.Algorithm = algo
	engineCfg.MaxDepth = *maxDepth
	engineCfg.Logger = logger

	cfg := selfplay.RunConfig{
		Workers: *workers,
		Games:   *games,
		Engines: [2]string{strings.TrimSpace(names[0]), strings.TrimSpace(names[1])},
		RunID:   *runID,
		Seed:    *seed,
		Game:    gameCfg,
		Engine:  engineCfg,
		Skip:    written.Has,
	}

	logger.Info("starting self-play",
		"run_id", cfg.RunID,
		"engines", cfg.Engines,
		"workers", cfg.Workers,
		"games", cfg.Games,
		"already_written", written.Count(),
	)

	results := make(chan selfplay.GameResult, *workers)
	updates := make(chan GameUpdate, *workers)
	runErr := make(chan error, 1)
	go func() {
		runErr <- selfplay.Run(ctx, cfg, results)
		close(results)
	}()

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(logger, *outDir, *gamesPerFlush, written, results, updates)
		close(writerDone)
	}()

	if *tui {
		p := tea.NewProgram(initialModel(updates), tea.WithAltScreen())
		go func() {
			<-writerDone
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			log.Fatal(err)
		}
		cancel()
	} else {
		logProgress(ctx, logger, updates, writerDone)
	}

	<-writerDone
	if err := <-runErr; err != nil {
		log.Fatalf("self-play: %v", err)
	}
	logger.Info("self-play complete",
		"games", totalGames.Load(),
		"plies", totalPlies.Load(),
		"rows", totalRows.Load(),
	)
}

func logProgress(ctx context.Context, logger *slog.Logger, updates <-chan GameUpdate, done <-chan struct{}) {
	startTime := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			logger.Info("shutdown requested; waiting for games in flight")
			<-done
			return
		case u := <-updates:
			r := u.Result
			logger.Info("game finished",
				"game_id", r.GameID,
				"engines", r.Engines,
				"winner", winnerName(r),
				"reason", r.Reason,
				"plies", r.Plies,
			)
		case <-ticker.C:
			elapsed := time.Since(startTime).Seconds()
			logger.Info("progress",
				"games", totalGames.Load(),
				"games_per_sec", float64(totalGames.Load())/elapsed,
				"plies_per_sec", float64(totalPlies.Load())/elapsed,
			)
		}
	}
}

// parquetWriterLoop appends finished games to a BatchWriter and rolls a new
// file every gamesPerFlush games. Game IDs reach the written log only once
// their file is finalized.
func parquetWriterLoop(logger *slog.Logger, outDir string, gamesPerFlush int, written *store.WrittenLog, in <-chan selfplay.GameResult, updates chan<- GameUpdate) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var w *store.BatchWriter
	flush := func() {
		if w == nil {
			return
		}
		ids := w.Games()
		path, rows, err := w.Finalize()
		w = nil
		if err != nil {
			logger.Error("parquet flush failed", "games", len(ids), "error", err)
			return
		}
		if err := written.AddMany(ids); err != nil {
			logger.Error("written log append failed", "error", err)
		}
		logger.Info("parquet flush ok", "path", path, "games", len(ids), "rows", rows)
	}

	for res := range in {
		if w == nil {
			var err error
			w, err = store.NewBatchWriter(outDir)
			if err != nil {
				logger.Error("open batch writer", "error", err)
				continue
			}
		}
		if err := w.WriteGame(res.GameID, res.Rows); err != nil {
			logger.Error("write game", "game_id", res.GameID, "error", err)
			continue
		}

		totalGames.Add(1)
		totalPlies.Add(int64(res.Plies))
		totalRows.Add(int64(len(res.Rows)))

		// Avoid blocking the writer if nobody is reading updates.
		select {
		case updates <- GameUpdate{Result: res}:
		default:
		}

		if len(w.Games()) >= gamesPerFlush {
			flush()
		}
	}
	flush()
}

func winnerName(r selfplay.GameResult) string {
	if !r.Decided {
		return "none"
	}
	return r.Engines[r.Winner]
}
