package indicator

import "github.com/chidi150c/backtest/internal/bar"

// CashValueObserver is the reference Observer: it republishes cash and
// mark-to-market value as output lines driven by the same clock as every
// other node in the graph, using the OHLCV lines as generic scalar slots
// the way SMA/EMA repurpose LineClose. The engine has no special knowledge
// of it; a strategy records the latest cash/value pair (typically from its
// own NotifyCashValue hook) and lists the returned Iterator in Indicators()
// so it gets driven, and reads back, like any other node.
type CashValueObserver struct {
	baseComputer
	cash, value float64
}

// NewCashValueObserver builds an Observer node clocked off feed.
func NewCashValueObserver(feed *bar.LineSeries, mode bar.ExactBarsMode) *Iterator {
	out := bar.NewLineSeries(mode, 1)
	comp := &CashValueObserver{baseComputer: baseComputer{minPeriod: 1}}
	return &Iterator{Kind: KindObserver, Inputs: []*bar.LineSeries{feed}, Output: out, Computer: comp}
}

// Record stores the cash/value pair the next Compute call publishes.
func (o *CashValueObserver) Record(cash, value float64) { o.cash, o.value = cash, value }

func (o *CashValueObserver) Compute(it *Iterator) {
	clock := it.Clock()
	it.Output.Line(bar.LineDateTime).Forward(clock.Line(bar.LineDateTime).Get(0))
	it.Output.Line(bar.LineOpen).Forward(o.cash)
	it.Output.Line(bar.LineClose).Forward(o.value)
}

// TradeSummaryAnalyzer is the reference Analyzer: a running tally of trade
// count, win/loss split, and cumulative realized P&L, published as output
// lines alongside the usual notification-driven accounting a strategy does
// on its own. RecordTrade is fed from NotifyTrade the same way Record feeds
// CashValueObserver from NotifyCashValue.
type TradeSummaryAnalyzer struct {
	baseComputer
	trades, wins, losses int
	pnl                  float64
}

// NewTradeSummaryAnalyzer builds an Analyzer node clocked off feed.
func NewTradeSummaryAnalyzer(feed *bar.LineSeries, mode bar.ExactBarsMode) *Iterator {
	out := bar.NewLineSeries(mode, 1)
	comp := &TradeSummaryAnalyzer{baseComputer: baseComputer{minPeriod: 1}}
	return &Iterator{Kind: KindObserver, Inputs: []*bar.LineSeries{feed}, Output: out, Computer: comp}
}

// RecordTrade folds one closed trade's realized P&L into the running tally.
func (a *TradeSummaryAnalyzer) RecordTrade(pnl float64) {
	a.trades++
	switch {
	case pnl > 0:
		a.wins++
	case pnl < 0:
		a.losses++
	}
	a.pnl += pnl
}

// Snapshot returns the running totals as of the last RecordTrade call.
func (a *TradeSummaryAnalyzer) Snapshot() (trades, wins, losses int, pnl float64) {
	return a.trades, a.wins, a.losses, a.pnl
}

func (a *TradeSummaryAnalyzer) Compute(it *Iterator) {
	clock := it.Clock()
	it.Output.Line(bar.LineDateTime).Forward(clock.Line(bar.LineDateTime).Get(0))
	it.Output.Line(bar.LineVolume).Forward(float64(a.trades))
	it.Output.Line(bar.LineClose).Forward(a.pnl)
}
