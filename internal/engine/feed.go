package engine

import "github.com/chidi150c/backtest/internal/bar"

// Feed is one data source the engine advances in lockstep with the others
// by timestamp. A backtest feed's Bars are preloaded in full; a live feed
// would instead block in Advance until new data arrives (out of scope
// here).
type Feed struct {
	Index  int
	Name   string
	Series *bar.LineSeries
	Bars   []bar.Bar
	pos    int
}

// NewFeed wraps bars behind a LineSeries of the given mode, with a min
// period of 1.
func NewFeed(index int, name string, mode bar.ExactBarsMode, bars []bar.Bar) *Feed {
	return &Feed{
		Index:  index,
		Name:   name,
		Series: bar.NewLineSeries(mode, 1),
		Bars:   bars,
	}
}

// Done reports whether every bar has been delivered.
func (f *Feed) Done() bool { return f.pos >= len(f.Bars) }

// PeekTimestamp returns the timestamp of the next undelivered bar.
func (f *Feed) PeekTimestamp() (float64, bool) {
	if f.Done() {
		return 0, false
	}
	return f.Bars[f.pos].Timestamp, true
}

// Advance pushes the next bar onto the feed's LineSeries and returns it.
func (f *Feed) Advance() bar.Bar {
	b := f.Bars[f.pos]
	f.pos++
	f.Series.PushBar(b)
	return b
}
