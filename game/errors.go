package game

// MoveError is the reason a move is illegal. Exactly one applies to any
// illegal move; see Board.MoveIsLegal for the order they are checked in.
type MoveError uint8

const (
	InvalidFromSquare MoveError = iota + 1
	InvalidToSquare
	InvalidBuildSquare
	OccupiedToSquare
	OccupiedBuildSquare
	HeightDifferenceHigh
)

func (e MoveError) Error() string {
	switch e {
	case InvalidFromSquare:
		return "InvalidFromSquare"
	case InvalidToSquare:
		return "InvalidToSquare"
	case InvalidBuildSquare:
		return "InvalidBuildSquare"
	case OccupiedToSquare:
		return "OccupiedToSquare"
	case OccupiedBuildSquare:
		return "OccupiedBuildSquare"
	case HeightDifferenceHigh:
		return "HeightDifferenceHigh"
	default:
		return "MoveError(unknown)"
	}
}
