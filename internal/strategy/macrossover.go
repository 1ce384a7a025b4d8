package strategy

import (
	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/indicator"
)

// MACrossover is the reference moving-average crossover strategy: it goes
// long when the fast SMA crosses above
// the slow SMA, and flat when it crosses back below. Besides the two SMA
// iterators it keeps the prior bar's fast-above-slow relationship
// (wasAbove, primed) so it can detect the crossing; the SMA computers
// themselves do not require event mode.
type MACrossover struct {
	BaseStrategy

	FeedIndex int
	Fast      *indicator.Iterator
	Slow      *indicator.Iterator
	Sizer     Sizer

	wasAbove bool
	primed   bool
}

// NewMACrossover builds a MACrossover over feed's close line with the
// given fast/slow SMA periods.
func NewMACrossover(feedIndex int, feed *bar.LineSeries, mode bar.ExactBarsMode, fastPeriod, slowPeriod int, sizer Sizer) *MACrossover {
	return &MACrossover{
		FeedIndex: feedIndex,
		Fast:      indicator.NewSMA(feed, mode, fastPeriod),
		Slow:      indicator.NewSMA(feed, mode, slowPeriod),
		Sizer:     sizer,
	}
}

// Indicators exposes the two SMA iterators so the engine drives them each
// bar before calling Next.
func (m *MACrossover) Indicators() []*indicator.Iterator {
	return []*indicator.Iterator{m.Fast, m.Slow}
}

// Next implements the crossing rule: buy on a cross-above when flat, close
// on a cross-below when holding.
func (m *MACrossover) Next(b Broker) {
	fast := m.Fast.Output.Line(bar.LineClose).Get(0)
	slow := m.Slow.Output.Line(bar.LineClose).Get(0)
	if fast != fast || slow != slow { // NaN guard before both SMAs are primed
		return
	}
	above := fast > slow
	defer func() { m.wasAbove, m.primed = above, true }()
	if !m.primed {
		return
	}
	pos := b.Position(m.FeedIndex)
	switch {
	case above && !m.wasAbove && pos.Size == 0:
		size := m.Sizer.Size(b.Cash(), slow)
		if size > 0 {
			_, _ = b.Buy(m.FeedIndex, size)
		}
	case !above && m.wasAbove && pos.Size > 0:
		_, _ = b.ClosePosition(m.FeedIndex)
	}
}
