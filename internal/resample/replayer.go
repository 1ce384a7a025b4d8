package resample

import "github.com/chidi150c/backtest/internal/bar"

// Replayer shares the Resampler's boundary logic but emits every partial
// state of the open aggregate as a tick-level update — the output feed's
// length only advances when the aggregate finally closes. This lets
// strategies react to intrabar updates.
type Replayer struct {
	r *Resampler
}

// NewReplayer builds a Replayer for the given parameters.
func NewReplayer(p Params) *Replayer {
	return &Replayer{r: New(p)}
}

// Update represents one replay tick: Bar is the current (possibly partial)
// aggregate state, and Closed reports whether this update also finalized
// the aggregate (the output feed's index should advance on Closed updates
// only).
type Update struct {
	Bar    bar.Bar
	Closed bool
}

// Feed folds one input bar and returns the replay update: a partial-state
// tick if the bar extended the current aggregate, or a closing tick if it
// crossed a boundary.
func (rp *Replayer) Feed(b bar.Bar, sessionEnded bool) Update {
	prevLast := rp.r.last
	prevHave := rp.r.have
	closed, didClose := rp.r.Feed(b, sessionEnded)
	if didClose {
		return Update{Bar: closed, Closed: true}
	}
	_ = prevLast
	_ = prevHave
	return Update{Bar: rp.r.agg.Bar(), Closed: false}
}

// Flush finalizes any open aggregate at end of data.
func (rp *Replayer) Flush() (Update, bool) {
	b, ok := rp.r.Flush()
	if !ok {
		return Update{}, false
	}
	return Update{Bar: b, Closed: true}, true
}
