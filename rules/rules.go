package rules

import (
	"github.com/brensch/santorini/game"
)

// MaxMoves bounds the legal moves in any position: two workers, eight
// destinations, eight builds each.
const MaxMoves = 2 * 8 * 8

// GenerateMoves appends every legal move for the side to move to buf and
// returns the extended slice. Winning climbs come first, then the rest in
// slot order and neighbour order. A winning climb carries its origin as a
// placeholder build.
func GenerateMoves(b *game.Board, buf []game.Move) []game.Move {
	slots := b.Turn.Slots()
	for _, slot := range slots {
		origin := b.Workers[slot]
		for _, to := range game.Neighbours(origin) {
			if b.Blocks[to] == game.WinHeight && canStep(b, origin, to) {
				buf = append(buf, game.Move{From: slot, To: to, Build: origin})
			}
		}
	}
	for _, slot := range slots {
		origin := b.Workers[slot]
		for _, to := range game.Neighbours(origin) {
			if b.Blocks[to] == game.WinHeight || !canStep(b, origin, to) {
				continue
			}
			for _, build := range game.Neighbours(to) {
				if build == origin || b.SquareIsFree(build) {
					buf = append(buf, game.Move{From: slot, To: to, Build: build})
				}
			}
		}
	}
	return buf
}

// GetLegalMoves is GenerateMoves into a fresh slice.
func GetLegalMoves(b *game.Board) []game.Move {
	return GenerateMoves(b, make([]game.Move, 0, MaxMoves))
}

func canStep(b *game.Board, origin, to game.Square) bool {
	return b.SquareIsFree(to) && int(b.Blocks[to])-int(b.Blocks[origin]) <= 1
}

// HasMoves reports whether the side to move has at least one legal move.
func HasMoves(b *game.Board) bool {
	for _, slot := range b.Turn.Slots() {
		origin := b.Workers[slot]
		for _, to := range game.Neighbours(origin) {
			if !canStep(b, origin, to) {
				continue
			}
			// The vacated origin is always a legal build.
			return true
		}
	}
	return false
}

// HasWinningMove reports whether the side to move can climb onto WinHeight.
func HasWinningMove(b *game.Board) bool {
	for _, slot := range b.Turn.Slots() {
		origin := b.Workers[slot]
		for _, to := range game.Neighbours(origin) {
			if b.Blocks[to] == game.WinHeight && canStep(b, origin, to) {
				return true
			}
		}
	}
	return false
}

// Winner returns the side with a worker standing on WinHeight. The player
// who just moved is checked first.
func Winner(b *game.Board) (game.Turn, bool) {
	for _, side := range [2]game.Turn{b.Turn.Other(), b.Turn} {
		for _, slot := range side.Slots() {
			if b.Blocks[b.Workers[slot]] == game.WinHeight {
				return side, true
			}
		}
	}
	return 0, false
}

// IsTerminal reports whether the game is over: someone has climbed to
// WinHeight or the side to move is stuck.
func IsTerminal(b *game.Board) bool {
	if _, ok := Winner(b); ok {
		return true
	}
	return !HasMoves(b)
}

// GetResult scores a finished game from PlayerOne's perspective:
// 1 for a PlayerOne win, -1 for a PlayerTwo win, 0 if not over.
func GetResult(b *game.Board) float32 {
	winner, ok := Winner(b)
	if !ok {
		if HasMoves(b) {
			return 0
		}
		winner = b.Turn.Other()
	}
	if winner == game.PlayerOne {
		return 1
	}
	return -1
}
