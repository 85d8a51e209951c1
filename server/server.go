// Package server exposes the engines over HTTP and a websocket analysis
// stream.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/brensch/santorini/engine"
	"github.com/brensch/santorini/game"
)

type Config struct {
	DefaultEngine string
	// DefaultTimeLeft is used when a request does not send time_left_ms.
	DefaultTimeLeft time.Duration
	Engine          engine.Config
	Logger          *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		DefaultEngine:   "flop",
		DefaultTimeLeft: time.Minute,
		Engine:          engine.DefaultConfig(),
		Logger:          slog.Default(),
	}
}

type Server struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = "flop"
	}
	if _, err := engine.New(cfg.DefaultEngine, cfg.Engine); err != nil {
		return nil, err
	}
	cfg.Engine.Logger = cfg.Logger
	return &Server{cfg: cfg, log: cfg.Logger}, nil
}

// MoveRequest asks an engine for a move. Engine, algorithm and max depth
// fall back to the server's configuration.
type MoveRequest struct {
	Engine     string     `json:"engine,omitempty"`
	Board      game.Board `json:"board"`
	TimeLeftMs *int64     `json:"time_left_ms,omitempty"`
	Algorithm  string     `json:"algorithm,omitempty"`
	MaxDepth   int        `json:"max_depth,omitempty"`
}

type MoveResponse struct {
	Engine string `json:"engine"`
	engine.SearchResult
	ThinkMs int64 `json:"think_ms"`
}

type LegalRequest struct {
	Board game.Board  `json:"board"`
	Move  engine.Move `json:"move"`
}

// LegalResponse names the broken rule when Legal is false and carries the
// resulting position when it is true.
type LegalResponse struct {
	Legal  bool        `json:"legal"`
	Reason string      `json:"reason,omitempty"`
	Win    bool        `json:"win,omitempty"`
	Next   *game.Board `json:"next,omitempty"`
}

type InfoResponse struct {
	DefaultEngine string            `json:"default_engine"`
	Engines       []string          `json:"engines"`
	Info          engine.EngineInfo `json:"info"`
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/info", s.handleInfo)
	r.Get("/api/engines", s.handleEngines)
	r.Post("/api/move", s.handleMove)
	r.Post("/api/legal", s.handleLegal)
	r.Get("/ws/analyze", s.handleAnalyze)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	e, err := engine.New(s.cfg.DefaultEngine, s.cfg.Engine)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		DefaultEngine: s.cfg.DefaultEngine,
		Engines:       engine.Names(),
		Info:          e.Info(),
	})
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	infos := lo.FilterMap(engine.Names(), func(name string, _ int) (engine.EngineInfo, bool) {
		e, err := engine.New(name, s.cfg.Engine)
		if err != nil {
			return engine.EngineInfo{}, false
		}
		return e.Info(), true
	})
	writeJSON(w, http.StatusOK, infos)
}

// prepare validates req and builds the engine that will answer it.
func (s *Server) prepare(req MoveRequest, onIteration func(engine.Iteration)) (engine.Engine, engine.Request, error) {
	if err := req.Board.Validate(); err != nil {
		return nil, engine.Request{}, err
	}
	name := lo.Ternary(req.Engine == "", s.cfg.DefaultEngine, req.Engine)
	cfg := s.cfg.Engine
	if req.Algorithm != "" {
		algo, err := engine.ParseAlgorithm(req.Algorithm)
		if err != nil {
			return nil, engine.Request{}, err
		}
		cfg.Algorithm = algo
	}
	if req.MaxDepth > 0 {
		cfg.MaxDepth = req.MaxDepth
	}
	cfg.OnIteration = onIteration
	e, err := engine.New(name, cfg)
	if err != nil {
		return nil, engine.Request{}, err
	}
	timeLeft := s.cfg.DefaultTimeLeft
	if req.TimeLeftMs != nil {
		timeLeft = time.Duration(*req.TimeLeftMs) * time.Millisecond
	}
	return e, engine.Request{Board: req.Board, TimeLeft: timeLeft}, nil
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode move request: %w", err))
		return
	}
	e, ereq, err := s.prepare(req, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	res := e.GetMove(r.Context(), ereq)
	think := time.Since(start)
	s.log.Info("move",
		"engine", e.Info().Name,
		"turn", ereq.Board.Turn,
		"time_left", ereq.TimeLeft,
		"think", think,
		"depth", res.Depth,
		"nodes", res.Nodes,
		"move", lo.TernaryF(res.Move == nil, func() string { return "none" }, func() string { return res.Move.String() }),
	)
	writeJSON(w, http.StatusOK, MoveResponse{Engine: e.Info().Name, SearchResult: res, ThinkMs: think.Milliseconds()})
}

func (s *Server) handleLegal(w http.ResponseWriter, r *http.Request) {
	var req LegalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode legal request: %w", err))
		return
	}
	if err := req.Board.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	b := req.Board
	mv := req.Move.Internal(&b)
	if err := b.MoveIsLegal(mv); err != nil {
		var me game.MoveError
		if !errors.As(err, &me) {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, LegalResponse{Reason: me.Error()})
		return
	}
	win := b.IsWinningMove(mv)
	b.MakeMove(mv)
	writeJSON(w, http.StatusOK, LegalResponse{Legal: true, Win: win, Next: &b})
}
