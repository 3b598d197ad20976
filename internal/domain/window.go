package domain

import "github.com/shopspring/decimal"

// DirectionWindow is a fixed-size ring buffer over the directions of the last
// N accepted decisions. The guardian reads it as an advisory signal for
// cascading directional bias; it never vetoes on its own.
type DirectionWindow struct {
	entries []Direction
	next    int
	filled  bool
}

// NewDirectionWindow creates a window of the given capacity.
func NewDirectionWindow(capacity int) *DirectionWindow {
	if capacity < 1 {
		capacity = 20
	}
	return &DirectionWindow{entries: make([]Direction, capacity)}
}

// Push records the direction of an accepted decision.
func (w *DirectionWindow) Push(d Direction) {
	w.entries[w.next] = d
	w.next++
	if w.next == len(w.entries) {
		w.next = 0
		w.filled = true
	}
}

// Len returns the number of recorded decisions, capped at capacity.
func (w *DirectionWindow) Len() int {
	if w.filled {
		return len(w.entries)
	}
	return w.next
}

// Directions returns the recorded directions, oldest first.
func (w *DirectionWindow) Directions() []Direction {
	n := w.Len()
	out := make([]Direction, 0, n)
	if w.filled {
		out = append(out, w.entries[w.next:]...)
	}
	out = append(out, w.entries[:w.next]...)
	return out
}

// DominantFraction returns the most frequent direction in the window and its
// share of recorded decisions. An empty window reports Skip and zero.
func (w *DirectionWindow) DominantFraction() (Direction, decimal.Decimal) {
	n := w.Len()
	if n == 0 {
		return DirectionSkip, decimal.Zero
	}

	counts := map[Direction]int{}
	if w.filled {
		for _, d := range w.entries {
			counts[d]++
		}
	} else {
		for _, d := range w.entries[:w.next] {
			counts[d]++
		}
	}

	dominant, best := DirectionSkip, 0
	for _, d := range []Direction{DirectionUp, DirectionDown} {
		if counts[d] > best {
			dominant, best = d, counts[d]
		}
	}

	return dominant, decimal.NewFromInt(int64(best)).Div(decimal.NewFromInt(int64(n)))
}

// Restore refills the window from a persisted direction list, oldest first.
func (w *DirectionWindow) Restore(directions []Direction) {
	w.next = 0
	w.filled = false
	if len(directions) > len(w.entries) {
		directions = directions[len(directions)-len(w.entries):]
	}
	for _, d := range directions {
		w.Push(d)
	}
}
