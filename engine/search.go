// Package engine implements the flop searcher: a deadline-bounded negamax
// with iterative deepening over an in-place board, plus the evaluator,
// time manager and the engine registry the commands select from.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brensch/santorini/game"
	"github.com/brensch/santorini/rules"
)

// MaxPly is the deepest the search can reach, root included.
const MaxPly = 64

const inf = EvalMax + 1

type Algorithm int

const (
	NegAlphaBeta Algorithm = iota
	NegaMax
)

func (a Algorithm) String() string {
	switch a {
	case NegaMax:
		return "negamax"
	default:
		return "alphabeta"
	}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "alphabeta", "negalphabeta", "ab", "":
		return NegAlphaBeta, nil
	case "negamax", "minimax":
		return NegaMax, nil
	}
	return 0, fmt.Errorf("unknown search algorithm %q", s)
}

// Config controls a search. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Algorithm Algorithm
	MaxDepth  int
	Time      TimeManager
	Clock     Clock
	Logger    *slog.Logger
	// OnIteration is called after every completed depth, on the searching
	// goroutine.
	OnIteration func(Iteration)
	// Seed feeds engines that make random choices.
	Seed int64
}

func DefaultConfig() Config {
	return Config{
		Algorithm: NegAlphaBeta,
		MaxDepth:  MaxPly,
		Time:      DefaultTimeManager(),
		Clock:     SystemClock{},
		Logger:    slog.Default(),
		Seed:      1,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 || c.MaxDepth > MaxPly {
		c.MaxDepth = MaxPly
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Time == (TimeManager{}) {
		c.Time = DefaultTimeManager()
	}
	return c
}

// Iteration reports one completed depth.
type Iteration struct {
	Depth   int           `json:"depth"`
	Eval    int           `json:"eval"`
	Move    Move          `json:"move"`
	PV      []Move        `json:"pv"`
	Nodes   uint64        `json:"nodes"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// SearchResult is what an engine answers for one request. Move is nil when
// the side to move had no legal move or the game was already decided; Eval
// is nil only in the first case and ±EvalMax in the second.
type SearchResult struct {
	Move  *Move  `json:"move"`
	Eval  *int   `json:"eval"`
	PV    []Move `json:"pv,omitempty"`
	Depth int    `json:"depth"`
	Nodes uint64 `json:"nodes"`
}

type Stats struct {
	Nodes   uint64
	Leaves  uint64
	Cutoffs uint64
}

// Searcher owns one board copy for the duration of a single GetMove.
type Searcher struct {
	cfg      Config
	ctx      context.Context
	board    game.Board
	start    time.Time
	deadline time.Time

	// Depth 1 ignores the deadline so there is always a result.
	mustComplete bool
	aborted      bool

	moves [MaxPly + 1][]game.Move
	pv    [MaxPly + 1][MaxPly + 1]game.Move
	pvLen [MaxPly + 1]int

	Stats Stats
}

// NewSearcher copies board; the caller's value is never touched.
func NewSearcher(ctx context.Context, board game.Board, deadline time.Time, cfg Config) *Searcher {
	cfg = cfg.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	return &Searcher{
		cfg:      cfg,
		ctx:      ctx,
		board:    board,
		start:    cfg.Clock.Now(),
		deadline: deadline,
	}
}

func (s *Searcher) timedOut() bool {
	if s.mustComplete {
		return false
	}
	if s.ctx.Err() != nil {
		return true
	}
	return !s.cfg.Clock.Now().Before(s.deadline)
}

func (s *Searcher) buf(ply int) []game.Move {
	if s.moves[ply] == nil {
		s.moves[ply] = make([]game.Move, 0, rules.MaxMoves)
	}
	return s.moves[ply][:0]
}

func (s *Searcher) updatePV(ply int, mv game.Move) {
	s.pv[ply][ply] = mv
	n := s.pvLen[ply+1]
	copy(s.pv[ply][ply+1:n], s.pv[ply+1][ply+1:n])
	s.pvLen[ply] = n
}

// Run performs the iterative deepening loop and returns the result of the
// deepest completed pass.
func (s *Searcher) Run() SearchResult {
	log := s.cfg.Logger
	if res, over := decided(&s.board); over {
		log.Debug("game already decided", "turn", s.board.Turn, "eval", *res.Eval)
		return res
	}
	root := rules.GenerateMoves(&s.board, make([]game.Move, 0, rules.MaxMoves))
	if len(root) == 0 {
		log.Debug("no legal moves", "turn", s.board.Turn)
		return SearchResult{}
	}

	var (
		bestMove game.Move
		bestEval int
		bestPV   []game.Move
		depth    int
	)
	for d := 1; d <= s.cfg.MaxDepth; d++ {
		s.mustComplete = d == 1
		idx, eval, ok := s.searchRoot(root, d)
		if !ok {
			log.Debug("time expired during depth, using previous result", "depth", d, "completed", depth)
			break
		}
		depth = d
		bestMove = root[idx]
		bestEval = eval
		bestPV = append(bestPV[:0], s.pv[0][:s.pvLen[0]]...)

		if s.cfg.OnIteration != nil {
			s.cfg.OnIteration(Iteration{
				Depth:   d,
				Eval:    eval,
				Move:    ToExternal(&s.board, bestMove),
				PV:      ExternalPV(s.board, bestPV),
				Nodes:   s.Stats.Nodes,
				Elapsed: s.cfg.Clock.Now().Sub(s.start),
			})
		}
		if len(root) == 1 || eval > HeuristicMax || eval < -HeuristicMax {
			break
		}
	}

	ext := ToExternal(&s.board, bestMove)
	eval := bestEval
	log.Debug("search complete",
		"depth", depth,
		"move", ext.String(),
		"eval", eval,
		"nodes", s.Stats.Nodes,
		"cutoffs", s.Stats.Cutoffs,
		"algorithm", s.cfg.Algorithm.String(),
	)
	return SearchResult{
		Move:  &ext,
		Eval:  &eval,
		PV:    ExternalPV(s.board, bestPV),
		Depth: depth,
		Nodes: s.Stats.Nodes,
	}
}

// decided reports a board on which a worker already stands on WinHeight.
// There is nothing to play, so the result carries the terminal eval only.
func decided(b *game.Board) (SearchResult, bool) {
	if _, ok := rules.Winner(b); !ok {
		return SearchResult{}, false
	}
	eval := Evaluate(b)
	return SearchResult{Eval: &eval}, true
}

// searchRoot runs one full pass. ok is false if the pass was interrupted,
// in which case nothing it computed may be used.
func (s *Searcher) searchRoot(moves []game.Move, depth int) (best, score int, ok bool) {
	alpha, beta := -inf, inf
	best, score = -1, -inf
	s.pvLen[0] = 0
	for i, mv := range moves {
		u := s.board.MakeMove(mv)
		v := -s.negamax(depth-1, 1, -beta, -alpha)
		s.board.UndoMove(u)
		if s.aborted {
			s.aborted = false
			return 0, 0, false
		}
		// Strict: equal scores keep the earlier move.
		if v > score {
			best, score = i, v
			s.updatePV(0, mv)
			if v > alpha {
				alpha = v
			}
		}
	}
	return best, score, true
}

func (s *Searcher) negamax(depth, ply int, alpha, beta int) int {
	s.pvLen[ply] = ply
	if s.timedOut() {
		s.aborted = true
		return 0
	}
	s.Stats.Nodes++

	if w, ok := rules.Winner(&s.board); ok {
		if w == s.board.Turn {
			return winScore(ply)
		}
		return -winScore(ply)
	}
	if depth == 0 || ply >= MaxPly {
		s.Stats.Leaves++
		if !rules.HasMoves(&s.board) {
			return -winScore(ply)
		}
		return Evaluate(&s.board)
	}

	moves := rules.GenerateMoves(&s.board, s.buf(ply))
	if len(moves) == 0 {
		return -winScore(ply)
	}

	best := -inf
	for _, mv := range moves {
		u := s.board.MakeMove(mv)
		v := -s.negamax(depth-1, ply+1, -beta, -alpha)
		s.board.UndoMove(u)
		if s.aborted {
			return 0
		}
		if v > best {
			best = v
			s.updatePV(ply, mv)
			if s.cfg.Algorithm == NegAlphaBeta {
				if v > alpha {
					alpha = v
				}
				if alpha >= beta {
					s.Stats.Cutoffs++
					break
				}
			}
		}
	}
	return best
}
