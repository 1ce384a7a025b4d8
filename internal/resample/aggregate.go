package resample

import (
	"time"

	"github.com/chidi150c/backtest/internal/bar"
)

// toTime converts the engine's day-numbered timestamp to a calendar time
// for week/month/year boundary comparisons.
func toTime(ts float64) time.Time {
	return time.Unix(0, int64(ts*float64(time.Hour*24))).UTC()
}

// aggregate accumulates one open output bar: max high, min low, first
// open, last close, summed volume/OI.
type aggregate struct {
	open         bar.Bar
	started      bool
	count        int
	boundaryOf   func(ts float64) int64 // comparable boundary key, nil for sub-day (handled separately)
	lastSeenKey  int64
}

func (a *aggregate) reset() {
	a.open = bar.Bar{}
	a.started = false
	a.count = 0
}

func (a *aggregate) fold(b bar.Bar) {
	if !a.started {
		a.open = b
		a.started = true
		a.count = 1
		return
	}
	if b.High > a.open.High {
		a.open.High = b.High
	}
	if b.Low < a.open.Low {
		a.open.Low = b.Low
	}
	a.open.Close = b.Close
	a.open.Volume += b.Volume
	a.open.OpenInterest += b.OpenInterest
	a.count++
}

// Bar returns the currently accumulated bar, optionally re-stamped to the
// aggregation edge when adjbartime is set (handled by the caller).
func (a *aggregate) Bar() bar.Bar { return a.open }
