package engine

import "time"

// Clock is the only source of time the search reads.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// TimeManager turns the remaining game clock into a thinking budget for
// one move.
type TimeManager struct {
	// Divisor is roughly how many more moves the remaining clock must cover.
	Divisor  int
	MinThink time.Duration
	MaxThink time.Duration
	// Overhead is reserved for transport and move dispatch.
	Overhead time.Duration
}

func DefaultTimeManager() TimeManager {
	return TimeManager{
		Divisor:  30,
		MinThink: 10 * time.Millisecond,
		MaxThink: 10 * time.Second,
	}
}

// Allot returns the thinking time for a move. The result is always
// positive and never exceeds a positive remaining clock. With nothing left
// on the clock it returns the floor so depth 1 still gets searched.
func (tm TimeManager) Allot(remaining time.Duration) time.Duration {
	floor := tm.MinThink
	if floor <= 0 {
		floor = time.Millisecond
	}
	if remaining <= 0 {
		return floor
	}
	div := tm.Divisor
	if div <= 0 {
		div = 1
	}
	think := (remaining - tm.Overhead) / time.Duration(div)
	if tm.MaxThink > 0 && think > tm.MaxThink {
		think = tm.MaxThink
	}
	if think < floor {
		think = floor
	}
	if think > remaining {
		think = remaining
	}
	return think
}
