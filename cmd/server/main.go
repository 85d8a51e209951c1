// Command server serves the santorini engines over HTTP.
//
//	GET  /api/info      default engine metadata
//	GET  /api/engines   every registered engine
//	POST /api/move      pick a move for a board
//	POST /api/legal     check a move and return the next board
//	GET  /ws/analyze    websocket stream of per-depth search progress
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/logging"
	"github.com/brensch/santorini/server"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", getEnvOrDefault("LISTEN", ":8080"), "HTTP listen address")
	engineName := fs.String("engine", getEnvOrDefault("ENGINE", "flop"), "Engine used when a request names none")
	algorithm := fs.String("algorithm", getEnvOrDefault("ALGORITHM", "alphabeta"), "Search algorithm: alphabeta or negamax")
	maxDepth := fs.Int("max-depth", getEnvIntOrDefault("MAX_DEPTH", engine.MaxPly), "Deepest iteration the search may reach")
	timeLeft := fs.Duration("time-left", getEnvDurationOrDefault("TIME_LEFT", time.Minute), "Clock assumed when a request sends no time_left_ms")
	divisor := fs.Int("time-divisor", getEnvIntOrDefault("TIME_DIVISOR", 30), "Remaining clock is divided by this to get thinking time")
	maxThink := fs.Duration("max-think", getEnvDurationOrDefault("MAX_THINK", 10*time.Second), "Upper bound on thinking time per move")
	logFormat := fs.String("log-format", getEnvOrDefault("LOG_FORMAT", "text"), "Log format: text, json or pretty")
	logLevel := fs.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	algo, err := engine.ParseAlgorithm(*algorithm)
	if err != nil {
		log.Fatalf("algorithm: %v", err)
	}

	cfg := server.DefaultConfig()
	cfg.DefaultEngine = *engineName
	cfg.DefaultTimeLeft = *timeLeft
	cfg.Logger = logger
	cfg.Engine.Algorithm = algo
	cfg.Engine.MaxDepth = *maxDepth
	cfg.Engine.Time.Divisor = *divisor
	cfg.Engine.Time.MaxThink = *maxThink

	s, err := server.New(cfg)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *listen, "engine", *engineName, "algorithm", algo.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
	logger.Info("shutdown complete")
}
