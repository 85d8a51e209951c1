// Package game defines the board state for Santorini.
//
// A Board holds the block heights, the four worker squares and the side to
// move. Its legality and mutation methods form the game's transition
// function. Boards are plain values: search code mutates one copy in place
// with MakeMove/UndoMove rather than cloning per node.
package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxHeight is a capped (domed) tower. Nothing may stand or build on it.
	MaxHeight = 4
	// WinHeight is the level a worker must climb onto to win.
	WinHeight = 3
)

// Turn identifies a player. PlayerOne owns worker slots 0 and 1,
// PlayerTwo owns slots 2 and 3.
type Turn uint8

const (
	PlayerOne Turn = iota
	PlayerTwo
)

func (t Turn) Other() Turn { return t ^ 1 }

// Slots returns the two worker slots owned by t.
func (t Turn) Slots() [2]int {
	base := int(t&1) * 2
	return [2]int{base, base + 1}
}

// Owns reports whether worker slot belongs to t.
func (t Turn) Owns(slot int) bool {
	return slot >= 0 && slot < 4 && slot/2 == int(t&1)
}

func (t Turn) String() string {
	if t == PlayerOne {
		return "one"
	}
	return "two"
}

func (t Turn) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Turn) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "one", "1", "first":
		*t = PlayerOne
	case "two", "2", "second":
		*t = PlayerTwo
	default:
		return fmt.Errorf("parse turn %q: want one or two", text)
	}
	return nil
}

// Board is the complete game state.
type Board struct {
	Blocks  [NumSquares]uint8 `json:"blocks"`
	Workers [4]Square         `json:"workers"`
	Turn    Turn              `json:"turn"`
}

// Move is an internal move: a worker slot, its destination and a build
// square. A winning climb still carries a build square (the vacated origin)
// so every move has the same shape; MakeMove does not build for it.
type Move struct {
	From  int    `json:"from"`
	To    Square `json:"to"`
	Build Square `json:"build"`
}

func (m Move) String() string {
	return fmt.Sprintf("w%d-%s-%s", m.From, m.To, m.Build)
}

// Undo is everything UndoMove needs to reverse a MakeMove exactly.
type Undo struct {
	Move   Move
	Origin Square
	Turn   Turn
	Built  bool
}

var ErrInvalidBoard = errors.New("invalid board")

// Validate checks the invariants a board supplied from outside must hold.
func (b *Board) Validate() error {
	if b.Turn > PlayerTwo {
		return fmt.Errorf("%w: turn %d", ErrInvalidBoard, b.Turn)
	}
	for sq, h := range b.Blocks {
		if h > MaxHeight {
			return fmt.Errorf("%w: height %d on %s", ErrInvalidBoard, h, Square(sq))
		}
	}
	for i, w := range b.Workers {
		if !w.Valid() {
			return fmt.Errorf("%w: worker %d off the board", ErrInvalidBoard, i)
		}
		if b.Blocks[w] >= MaxHeight {
			return fmt.Errorf("%w: worker %d on a dome at %s", ErrInvalidBoard, i, w)
		}
		for j := 0; j < i; j++ {
			if b.Workers[j] == w {
				return fmt.Errorf("%w: workers %d and %d share %s", ErrInvalidBoard, j, i, w)
			}
		}
	}
	if b.standsOnWinHeight(PlayerOne) && b.standsOnWinHeight(PlayerTwo) {
		return fmt.Errorf("%w: both sides stand on height %d", ErrInvalidBoard, WinHeight)
	}
	return nil
}

func (b *Board) standsOnWinHeight(side Turn) bool {
	for _, slot := range side.Slots() {
		if b.Blocks[b.Workers[slot]] == WinHeight {
			return true
		}
	}
	return false
}

// WorkerOn returns the slot standing on sq, or -1.
func (b *Board) WorkerOn(sq Square) int {
	for i, w := range b.Workers {
		if w == sq {
			return i
		}
	}
	return -1
}

// SquareIsFree reports whether sq has no worker and is not domed. Squares
// off the board are never free.
func (b *Board) SquareIsFree(sq Square) bool {
	if !sq.Valid() {
		return false
	}
	return b.Workers[0] != sq && b.Workers[1] != sq && b.Workers[2] != sq && b.Workers[3] != sq &&
		b.Blocks[sq] < MaxHeight
}

// Height returns the tower height at sq.
func (b *Board) Height(sq Square) int { return int(b.Blocks[sq]) }

// IsWinningMove reports whether mv climbs onto WinHeight.
func (b *Board) IsWinningMove(mv Move) bool {
	return mv.To.Valid() && b.Blocks[mv.To] == WinHeight
}

// buildIsFree treats the acting worker's origin as vacated.
func (b *Board) buildIsFree(from int, build Square) bool {
	if b.Blocks[build] >= MaxHeight {
		return false
	}
	for i, w := range b.Workers {
		if i != from && w == build {
			return false
		}
	}
	return true
}

// MoveIsLegal returns nil for a legal move, otherwise the single MoveError
// describing the first rule it breaks.
func (b *Board) MoveIsLegal(mv Move) error {
	if !b.Turn.Owns(mv.From) {
		return InvalidFromSquare
	}
	origin := b.Workers[mv.From]
	if !Adjacent(origin, mv.To) {
		return InvalidToSquare
	}
	if !Adjacent(mv.To, mv.Build) {
		return InvalidBuildSquare
	}
	if !b.SquareIsFree(mv.To) {
		return OccupiedToSquare
	}
	if !b.buildIsFree(mv.From, mv.Build) {
		return OccupiedBuildSquare
	}
	// Signed: stepping down any number of levels is fine.
	if int(b.Blocks[mv.To])-int(b.Blocks[origin]) > 1 {
		return HeightDifferenceHigh
	}
	return nil
}

// MakeMove applies mv without checking it and flips the side to move.
func (b *Board) MakeMove(mv Move) Undo {
	u := Undo{Move: mv, Origin: b.Workers[mv.From], Turn: b.Turn}
	win := b.Blocks[mv.To] == WinHeight
	b.Workers[mv.From] = mv.To
	if !win {
		b.Blocks[mv.Build]++
		u.Built = true
	}
	b.Turn = b.Turn.Other()
	return u
}

// UndoMove reverses the MakeMove that produced u. Undos must be applied in
// reverse order of the moves they came from.
func (b *Board) UndoMove(u Undo) {
	if u.Built {
		b.Blocks[u.Move.Build]--
	}
	b.Workers[u.Move.From] = u.Origin
	b.Turn = u.Turn
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// String draws the board rank 5 first. Each cell is its height followed by
// X (player one), O (player two) or '.'.
func (b *Board) String() string {
	var sb strings.Builder
	for rank := Size - 1; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < Size; file++ {
			sq := SquareAt(file, rank)
			mark := byte('.')
			if slot := b.WorkerOn(sq); slot >= 0 {
				mark = 'X'
				if slot >= 2 {
					mark = 'O'
				}
			}
			sb.WriteByte(byte('0' + b.Blocks[sq]))
			sb.WriteByte(mark)
			if file < Size-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  A  B  C  D  E   to move: ")
	sb.WriteString(b.Turn.String())
	sb.WriteByte('\n')
	return sb.String()
}
