package game

import (
	"fmt"
	"strings"
)

const (
	Size       = 5
	NumSquares = Size * Size
)

// Square indexes a cell of the board, row-major from A1.
// Files run A..E left to right and ranks 1..5 bottom to top, so A1=0, E1=4
// and E5=24.
type Square int8

const NoSquare Square = -1

const (
	A1 Square = iota
	B1
	C1
	D1
	E1
	A2
	B2
	C2
	D2
	E2
	A3
	B3
	C3
	D3
	E3
	A4
	B4
	C4
	D4
	E4
	A5
	B5
	C5
	D5
	E5
)

func SquareAt(file, rank int) Square {
	if file < 0 || file >= Size || rank < 0 || rank >= Size {
		return NoSquare
	}
	return Square(rank*Size + file)
}

func (s Square) Valid() bool { return s >= 0 && s < NumSquares }

// File returns the zero-based column (0 = A).
func (s Square) File() int { return int(s) % Size }

// Rank returns the zero-based row (0 = rank 1).
func (s Square) Rank() int { return int(s) / Size }

func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return string([]byte{byte('A' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare reads algebraic notation such as "c3" or "C3".
func ParseSquare(text string) (Square, error) {
	t := strings.ToUpper(strings.TrimSpace(text))
	if len(t) != 2 {
		return NoSquare, fmt.Errorf("parse square %q: want file A-E and rank 1-5", text)
	}
	sq := SquareAt(int(t[0])-'A', int(t[1])-'1')
	if sq == NoSquare {
		return NoSquare, fmt.Errorf("parse square %q: off the board", text)
	}
	return sq, nil
}

func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal square %d: off the board", s)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(text []byte) error {
	sq, err := ParseSquare(string(text))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// Adjacent reports whether a and b are distinct king-move neighbours.
func Adjacent(a, b Square) bool {
	if !a.Valid() || !b.Valid() || a == b {
		return false
	}
	df := a.File() - b.File()
	dr := a.Rank() - b.Rank()
	return df >= -1 && df <= 1 && dr >= -1 && dr <= 1
}

var neighbours = buildNeighbours()

func buildNeighbours() [NumSquares][]Square {
	var out [NumSquares][]Square
	for sq := Square(0); sq < NumSquares; sq++ {
		list := make([]Square, 0, 8)
		for dr := -1; dr <= 1; dr++ {
			for df := -1; df <= 1; df++ {
				if df == 0 && dr == 0 {
					continue
				}
				if n := SquareAt(sq.File()+df, sq.Rank()+dr); n != NoSquare {
					list = append(list, n)
				}
			}
		}
		out[sq] = list
	}
	return out
}

// Neighbours returns the squares adjacent to sq in a fixed order.
// The returned slice is shared and must not be modified.
func Neighbours(sq Square) []Square {
	if !sq.Valid() {
		return nil
	}
	return neighbours[sq]
}
