package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/brensch/santorini/game"
	"github.com/brensch/santorini/rules"
)

// Request is one move-selection call.
type Request struct {
	Board    game.Board
	TimeLeft time.Duration
}

// EngineInfo is the static metadata an engine registers with.
type EngineInfo struct {
	Name      string   `json:"name"`
	EvalRange [2]int64 `json:"eval_range"`
}

// Engine picks moves. GetMove works on its own copy of the request board
// and is safe to call repeatedly.
type Engine interface {
	Info() EngineInfo
	GetMove(ctx context.Context, req Request) SearchResult
}

var ErrUnknownEngine = errors.New("unknown engine")

var constructors = map[string]func(Config) Engine{
	"flop":   func(cfg Config) Engine { return NewFlop(cfg) },
	"random": func(cfg Config) Engine { return NewRandom(cfg) },
}

// New builds the named engine.
func New(name string, cfg Config) (Engine, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownEngine, name, Names())
	}
	return ctor(cfg), nil
}

// Names lists the registered engines in sorted order.
func Names() []string {
	names := lo.Keys(constructors)
	sort.Strings(names)
	return names
}

// Flop is the searching engine.
type Flop struct {
	cfg Config
}

func NewFlop(cfg Config) *Flop {
	return &Flop{cfg: cfg.withDefaults()}
}

func (f *Flop) Info() EngineInfo {
	return EngineInfo{Name: "flop", EvalRange: [2]int64{-EvalMax, EvalMax}}
}

func (f *Flop) GetMove(ctx context.Context, req Request) SearchResult {
	think := f.cfg.Time.Allot(req.TimeLeft)
	deadline := f.cfg.Clock.Now().Add(think)
	f.cfg.Logger.Debug("thinking", "time_left", req.TimeLeft, "budget", think, "turn", req.Board.Turn)
	return NewSearcher(ctx, req.Board, deadline, f.cfg).Run()
}

// Random plays a uniformly random legal move. It is the baseline opponent
// for self-play.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(cfg Config) *Random {
	return &Random{rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (r *Random) Info() EngineInfo {
	return EngineInfo{Name: "random", EvalRange: [2]int64{-EvalMax, EvalMax}}
}

func (r *Random) GetMove(_ context.Context, req Request) SearchResult {
	b := req.Board
	if res, over := decided(&b); over {
		return res
	}
	moves := rules.GetLegalMoves(&b)
	if len(moves) == 0 {
		return SearchResult{}
	}
	r.mu.Lock()
	mv := moves[r.rng.Intn(len(moves))]
	r.mu.Unlock()

	ext := ToExternal(&b, mv)
	eval := Evaluate(&b)
	return SearchResult{Move: &ext, Eval: &eval, PV: []Move{ext}}
}
