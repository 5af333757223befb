package history

import (
	"fmt"
	"sort"
)

// BreakPoint records that an attribute took Value from Round onward.
type BreakPoint struct {
	Round uint64 `json:"round"`
	Value Value  `json:"value"`
}

// History is a minimal change log: break-point rounds are strictly
// increasing and no two consecutive break-points store the same value.
// LastRound marks the most recent round the history covers; reads past it
// extend the final value, reads before the first break-point clamp to it.
type History struct {
	points    []BreakPoint
	lastRound uint64
}

// Record extends the history to cover round, appending a break-point only
// when the value actually changed. Rounds must not go backwards.
func (h *History) Record(round uint64, v Value) error {
	if len(h.points) > 0 {
		if round < h.lastRound {
			return fmt.Errorf("history: record round %d before last recorded %d", round, h.lastRound)
		}
		if round == h.points[len(h.points)-1].Round && !h.points[len(h.points)-1].Value.Equal(v) {
			return fmt.Errorf("history: conflicting values for round %d", round)
		}
		if h.points[len(h.points)-1].Value.Equal(v) {
			h.lastRound = round
			return nil
		}
	}
	h.points = append(h.points, BreakPoint{Round: round, Value: v})
	h.lastRound = round
	return nil
}

// ValueAt returns the value in effect at round. Rounds before the first
// break-point clamp to the earliest recorded value; rounds past LastRound
// extend the latest one.
func (h *History) ValueAt(round uint64) (Value, bool) {
	if len(h.points) == 0 {
		return Value{}, false
	}
	i := sort.Search(len(h.points), func(i int) bool {
		return h.points[i].Round > round
	})
	if i == 0 {
		return h.points[0].Value, true
	}
	return h.points[i-1].Value, true
}

// Latest returns the most recently recorded value.
func (h *History) Latest() (Value, bool) {
	if len(h.points) == 0 {
		return Value{}, false
	}
	return h.points[len(h.points)-1].Value, true
}

// FirstRound returns the round of the earliest break-point.
func (h *History) FirstRound() uint64 {
	if len(h.points) == 0 {
		return 0
	}
	return h.points[0].Round
}

func (h *History) LastRound() uint64 { return h.lastRound }

// Points returns a copy of the break-point sequence for persistence.
func (h *History) Points() []BreakPoint {
	out := make([]BreakPoint, len(h.points))
	copy(out, h.points)
	return out
}

// FromPoints rebuilds a history from persisted break-points. The sequence
// must already satisfy the minimality invariants.
func FromPoints(points []BreakPoint, lastRound uint64) (*History, error) {
	h := &History{}
	for i, bp := range points {
		if i > 0 {
			prev := points[i-1]
			if bp.Round <= prev.Round {
				return nil, fmt.Errorf("history: break-point rounds not increasing at %d", i)
			}
			if bp.Value.Equal(prev.Value) {
				return nil, fmt.Errorf("history: consecutive equal values at %d", i)
			}
		}
		h.points = append(h.points, bp)
	}
	if n := len(points); n > 0 && lastRound < points[n-1].Round {
		return nil, fmt.Errorf("history: last round %d precedes final break-point", lastRound)
	}
	h.lastRound = lastRound
	return h, nil
}
