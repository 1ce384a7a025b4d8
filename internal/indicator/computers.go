package indicator

import "github.com/chidi150c/backtest/internal/bar"

// baseComputer gives the event-mode-friendly indicators below a shared
// OwnMinPeriod/RequiresEventMode implementation; each Computer only needs
// to supply Compute.
type baseComputer struct {
	minPeriod int
	eventOnly bool
}

func (b baseComputer) OwnMinPeriod() int      { return b.minPeriod }
func (b baseComputer) RequiresEventMode() bool { return b.eventOnly }

// SMAIndicator computes a simple moving average of a feed's close line.
type SMAIndicator struct {
	baseComputer
	Period int
}

// NewSMA builds an Iterator computing SMA(period) over feed's close line.
func NewSMA(feed *bar.LineSeries, mode bar.ExactBarsMode, period int) *Iterator {
	out := bar.NewLineSeries(mode, period)
	comp := &SMAIndicator{baseComputer{minPeriod: period}, period}
	return &Iterator{Kind: KindIndicator, Inputs: []*bar.LineSeries{feed}, Output: out, Computer: comp}
}

func (s *SMAIndicator) Compute(it *Iterator) {
	clock := it.Clock()
	close := clock.Line(bar.LineClose)
	n := s.Period
	var sum float64
	for o := 0; o < n; o++ {
		sum += close.Get(-o)
	}
	it.Output.Line(bar.LineDateTime).Forward(clock.Line(bar.LineDateTime).Get(0))
	it.Output.Line(bar.LineClose).Forward(sum / float64(n))
}

// EMAIndicator computes an exponential moving average, carrying its
// previous value as path-dependent state — it must run in event mode if
// mixed with indicators that can't be vectorized, but vectorizes cleanly
// on its own since EMA(i) only depends on EMA(i-1).
type EMAIndicator struct {
	baseComputer
	Period int
	prev   float64
	seeded bool
}

// NewEMA builds an Iterator computing EMA(period) over feed's close line.
func NewEMA(feed *bar.LineSeries, mode bar.ExactBarsMode, period int) *Iterator {
	out := bar.NewLineSeries(mode, period)
	comp := &EMAIndicator{baseComputer: baseComputer{minPeriod: 1}, Period: period}
	return &Iterator{Kind: KindIndicator, Inputs: []*bar.LineSeries{feed}, Output: out, Computer: comp}
}

func (e *EMAIndicator) Compute(it *Iterator) {
	clock := it.Clock()
	close := clock.Line(bar.LineClose).Get(0)
	alpha := 2.0 / float64(e.Period+1)
	var v float64
	if !e.seeded {
		v = close
		e.seeded = true
	} else {
		v = alpha*close + (1-alpha)*e.prev
	}
	e.prev = v
	it.Output.Line(bar.LineDateTime).Forward(clock.Line(bar.LineDateTime).Get(0))
	it.Output.Line(bar.LineClose).Forward(v)
}

// RSIIndicator computes Wilder's RSI over a feed's close line, carrying
// smoothed gain/loss state between bars.
type RSIIndicator struct {
	baseComputer
	Period         int
	avgGain, avgLoss float64
	count          int
}

// NewRSI builds an Iterator computing RSI(period) over feed's close line.
func NewRSI(feed *bar.LineSeries, mode bar.ExactBarsMode, period int) *Iterator {
	out := bar.NewLineSeries(mode, period+1)
	comp := &RSIIndicator{baseComputer: baseComputer{minPeriod: period + 1}, Period: period}
	return &Iterator{Kind: KindIndicator, Inputs: []*bar.LineSeries{feed}, Output: out, Computer: comp}
}

func (r *RSIIndicator) Compute(it *Iterator) {
	clock := it.Clock()
	close := clock.Line(bar.LineClose)
	n := r.Period
	val := 50.0
	if close.Get(-1) == close.Get(-1) { // has a previous bar (not NaN)
		d := close.Get(0) - close.Get(-1)
		r.count++
		switch {
		case r.count <= n:
			if d > 0 {
				r.avgGain += d
			} else {
				r.avgLoss -= d
			}
			if r.count == n {
				r.avgGain /= float64(n)
				r.avgLoss /= float64(n)
			}
		default:
			if d > 0 {
				r.avgGain = (r.avgGain*float64(n-1) + d) / float64(n)
				r.avgLoss = (r.avgLoss * float64(n-1)) / float64(n)
			} else {
				r.avgGain = (r.avgGain * float64(n-1)) / float64(n)
				r.avgLoss = (r.avgLoss*float64(n-1) - d) / float64(n)
			}
		}
		if r.count >= n {
			val = rsiFromAvg(r.avgGain, r.avgLoss)
		}
	}
	it.Output.Line(bar.LineDateTime).Forward(clock.Line(bar.LineDateTime).Get(0))
	it.Output.Line(bar.LineClose).Forward(val)
}
