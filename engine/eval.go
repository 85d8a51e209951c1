package engine

import (
	"github.com/brensch/santorini/game"
	"github.com/brensch/santorini/rules"
)

const (
	// EvalMax bounds every score the engine reports.
	EvalMax = 46
	// HeuristicMax bounds the static evaluation of a position nobody has
	// won yet. Anything beyond it is a proven result.
	HeuristicMax = 32

	heightWeight = 5
	threatBonus  = 4
)

// centrality: 2 for C3, 1 for the ring around it, 0 on the edge.
var centrality = [game.NumSquares]int{
	0, 0, 0, 0, 0,
	0, 1, 1, 1, 0,
	0, 1, 2, 1, 0,
	0, 1, 1, 1, 0,
	0, 0, 0, 0, 0,
}

// Evaluate scores b from the side to move's perspective, within
// [-EvalMax, EvalMax]. A worker already standing on WinHeight scores the
// extreme of the range; otherwise the score is within ±HeuristicMax and
// flipping the turn negates it.
func Evaluate(b *game.Board) int {
	if w, ok := rules.Winner(b); ok {
		if w == b.Turn {
			return EvalMax
		}
		return -EvalMax
	}
	return sideScore(b, b.Turn) - sideScore(b, b.Turn.Other())
}

// sideScore is at most 16 per worker: height 2, centre square and an
// open climb next to it.
func sideScore(b *game.Board, side game.Turn) int {
	score := 0
	for _, slot := range side.Slots() {
		sq := b.Workers[slot]
		h := int(b.Blocks[sq])
		if h > 2 {
			h = 2
		}
		score += heightWeight*h + centrality[sq]
		if h == 2 && hasOpenClimb(b, sq) {
			score += threatBonus
		}
	}
	return score
}

func hasOpenClimb(b *game.Board, sq game.Square) bool {
	for _, n := range game.Neighbours(sq) {
		if b.Blocks[n] == game.WinHeight && b.SquareIsFree(n) {
			return true
		}
	}
	return false
}

// winScore is the value of a proven win found ply half-moves from the
// root. Shorter wins score higher but never drop into the heuristic band.
func winScore(ply int) int {
	s := EvalMax - ply
	if s <= HeuristicMax {
		return HeuristicMax + 1
	}
	return s
}
