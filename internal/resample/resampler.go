package resample

import (
	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/metrics"
)

// Params configures a Resampler or Replayer. No flag sets another, but
// AdjBarTime has no effect unless Bar2Edge is also set.
type Params struct {
	Timeframe   Timeframe
	Compression int
	Bar2Edge    bool // align output bars to calendar boundaries
	AdjBarTime  bool // stamp output bar to the edge rather than the last input bar; only takes effect with Bar2Edge on a sub-day timeframe
	RightEdge   bool // use the closing edge of the bucket rather than the opening edge
	TakeLate    bool // accept (fold) out-of-order/late input instead of dropping it
	BoundOff    int  // offset, in units of Timeframe; stored but not read by the boundary arithmetic
}

// Resampler aggregates TimeFrame x Compression input bars into one output
// bar, emitted only when the aggregate closes. A Replayer
// (replayer.go) reuses this same boundary logic but emits every partial
// state instead.
type Resampler struct {
	p    Params
	agg  aggregate
	last bar.Bar
	have bool
}

// New builds a Resampler for the given parameters.
func New(p Params) *Resampler {
	if p.Compression < 1 {
		p.Compression = 1
	}
	return &Resampler{p: p}
}

// Feed folds one input bar into the resampler. It returns (outputBar, true)
// exactly when the aggregate closes and should be delivered downstream.
func (r *Resampler) Feed(b bar.Bar, sessionEnded bool) (bar.Bar, bool) {
	if r.have && b.Timestamp <= r.last.Timestamp {
		if !r.p.TakeLate {
			return bar.Bar{}, false // drop late data
		}
		b.Timestamp = r.last.Timestamp + lateNudge
		return r.foldLate(b)
	}

	closesExisting := r.have && r.crossesBoundary(r.last.Timestamp, b.Timestamp)
	var out bar.Bar
	var emit bool
	if closesExisting && r.agg.started {
		out = r.finalize()
		emit = true
		r.agg.reset()
	}

	r.agg.fold(b)
	r.last = b
	r.have = true

	if !emit && r.agg.count >= r.p.Compression {
		out = r.finalize()
		emit = true
		r.agg.reset()
	}
	if sessionEnded && r.agg.started {
		// session end always closes the aggregate even mid-compression.
		closed := r.finalize()
		r.agg.reset()
		if !emit {
			out, emit = closed, true
		}
	}
	return out, emit
}

// lateNudge is the "one unit" a late bar's timestamp gets nudged forward
// by, expressed in fractional days (1 millisecond).
const lateNudge = 1.0 / 86400000.0

func (r *Resampler) foldLate(b bar.Bar) (bar.Bar, bool) {
	r.agg.fold(b)
	r.last = b
	if r.agg.count >= r.p.Compression {
		out := r.finalize()
		r.agg.reset()
		return out, true
	}
	return bar.Bar{}, false
}

func (r *Resampler) finalize() bar.Bar {
	out := r.agg.Bar()
	if r.p.AdjBarTime {
		out.Timestamp = r.edgeTimestamp(out.Timestamp)
	}
	metrics.IncResampleBoundary(Label(r.p.Compression, r.p.Timeframe))
	return out
}

// edgeTimestamp re-stamps a closed aggregate to its calendar boundary when
// AdjBarTime is set; RightEdge selects the closing edge of the bucket
// rather than the opening one.
func (r *Resampler) edgeTimestamp(ts float64) float64 {
	if !r.p.Bar2Edge {
		return ts
	}
	u := unitSeconds(r.p.Timeframe)
	if u == 0 {
		return ts // calendar (week/month/year) edges keep the last input's timestamp
	}
	bucket := float64(r.p.Compression) * u / secondsPerDay
	day := float64(int64(ts))
	frac := ts - day
	n := frac / bucket
	edgeN := n
	if r.p.RightEdge {
		edgeN = float64(int64(n)) + 1
	} else {
		edgeN = float64(int64(n))
	}
	return day + edgeN*bucket
}

// crossesBoundary reports whether moving from prevTs to ts crosses a
// compression-sized edge of the configured timeframe.
func (r *Resampler) crossesBoundary(prevTs, ts float64) bool {
	switch r.p.Timeframe {
	case Seconds, Minutes, Hours:
		return CrossesSubDayBoundary(r.p.Timeframe, r.p.Compression, prevTs, ts)
	case Days:
		return int64(ts) != int64(prevTs)
	case Weeks:
		_, w0 := toTime(prevTs).ISOWeek()
		_, w1 := toTime(ts).ISOWeek()
		return w1 != w0 || toTime(ts).Year() != toTime(prevTs).Year()
	case Months:
		t0, t1 := toTime(prevTs), toTime(ts)
		return t1.Month() != t0.Month() || t1.Year() != t0.Year()
	case Years:
		return toTime(ts).Year() != toTime(prevTs).Year()
	default:
		return false
	}
}

// Flush emits whatever partial aggregate remains open ("after the last
// bar the current aggregate is flushed").
func (r *Resampler) Flush() (bar.Bar, bool) {
	if !r.agg.started {
		return bar.Bar{}, false
	}
	out := r.finalize()
	r.agg.reset()
	return out, true
}
