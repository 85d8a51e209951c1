package engine

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/brensch/santorini/game"
)

// Move is the externally visible form of a move. Build is nil on a
// winning climb.
type Move struct {
	From  int          `json:"from"`
	To    game.Square  `json:"to"`
	Build *game.Square `json:"build,omitempty"`
}

func (m Move) String() string {
	if m.Build == nil {
		return fmt.Sprintf("w%d-%s", m.From, m.To)
	}
	return fmt.Sprintf("w%d-%s-%s", m.From, m.To, *m.Build)
}

// ToExternal converts mv as played from b, dropping the placeholder build
// of a winning climb.
func ToExternal(b *game.Board, mv game.Move) Move {
	out := Move{From: mv.From, To: mv.To}
	if !b.IsWinningMove(mv) {
		build := mv.Build
		out.Build = &build
	}
	return out
}

// Internal converts m back to the engine's form for b. A missing build on
// a winning climb becomes the origin placeholder; a missing build anywhere
// else becomes NoSquare so MoveIsLegal rejects it.
func (m Move) Internal(b *game.Board) game.Move {
	mv := game.Move{From: m.From, To: m.To, Build: game.NoSquare}
	if m.Build != nil {
		mv.Build = *m.Build
		return mv
	}
	if m.From >= 0 && m.From < len(b.Workers) && b.IsWinningMove(mv) {
		mv.Build = b.Workers[m.From]
	}
	return mv
}

// ExternalPV converts a line of internal moves starting from b.
func ExternalPV(b game.Board, pv []game.Move) []Move {
	out := make([]Move, 0, len(pv))
	for _, mv := range pv {
		out = append(out, ToExternal(&b, mv))
		b.MakeMove(mv)
	}
	return out
}

// FormatPV renders a line as space separated moves.
func FormatPV(pv []Move) string {
	return strings.Join(lo.Map(pv, func(m Move, _ int) string { return m.String() }), " ")
}
