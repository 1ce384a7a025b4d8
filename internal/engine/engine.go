// Package engine implements the outer backtest loop: it advances one or
// more data feeds in lockstep by timestamp, drives each bound strategy's
// indicator graph and prenext/nextstart/next dispatch, and routes broker
// notifications back to strategies in state-transition order. The loop
// shape generalizes a warm-up/step/progress-log pattern from a single
// candle slice to N synchronized feeds.
package engine

import (
	"context"
	"math"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/broker"
	"github.com/chidi150c/backtest/internal/config"
	"github.com/chidi150c/backtest/internal/indicator"
	"github.com/chidi150c/backtest/internal/metrics"
	"github.com/chidi150c/backtest/internal/order"
	"github.com/chidi150c/backtest/internal/strategy"
	"github.com/chidi150c/backtest/internal/xlog"
)

// epsilon is the tolerance two feed timestamps are considered simultaneous
// within, avoiding float-equality comparisons on day-numbered timestamps.
const epsilon = 1e-9

type boundStrategy struct {
	Strategy  strategy.Strategy
	FeedIndex int
	root      *indicator.Iterator
}

// Engine owns the feeds, the broker, and the bound strategies, and drives
// them all through Run. It also satisfies strategy.Broker so strategies
// can act without importing this package.
type Engine struct {
	cfg        config.EngineConfig
	broker     broker.Broker
	feeds      []*Feed
	feedByIdx  map[int]*Feed
	strategies []*boundStrategy
	timers     []Timer
	log        *xlog.Logger

	progressEvery int
}

// New builds an Engine over feeds and broker, using cfg for sync/cheat
// behavior.
func New(cfg config.EngineConfig, br broker.Broker, feeds []*Feed, log *xlog.Logger) *Engine {
	byIdx := make(map[int]*Feed, len(feeds))
	for _, f := range feeds {
		byIdx[f.Index] = f
	}
	if log == nil {
		log = xlog.New("engine")
	}
	return &Engine{cfg: cfg, broker: br, feeds: feeds, feedByIdx: byIdx, log: log, progressEvery: 1000}
}

// AddStrategy binds s to feedIndex, splicing its indicator iterators under
// a synthetic root node whose clock is that feed's LineSeries.
func (e *Engine) AddStrategy(feedIndex int, s strategy.Strategy) error {
	f, ok := e.feedByIdx[feedIndex]
	if !ok {
		return &ConfigError{Reason: "AddStrategy: unknown feed index"}
	}
	root := &indicator.Iterator{
		Kind:     indicator.KindStrategy,
		Inputs:   []*bar.LineSeries{f.Series},
		Children: s.Indicators(),
	}
	e.strategies = append(e.strategies, &boundStrategy{Strategy: s, FeedIndex: feedIndex, root: root})
	return nil
}

// AddTimer registers a periodic callback, fired before or after broker
// matching depending on Timer.Cheat.
func (e *Engine) AddTimer(t Timer) { e.timers = append(e.timers, t) }

// Run drives the event-mode outer loop until every feed is exhausted or
// ctx is canceled: pick the earliest pending timestamp across feeds,
// advance every feed due at that timestamp, fire cheat timers, invoke
// NextOpen on every strategy whose feed advanced when cheat-on-open is
// enabled, let the
// broker match against the new bars, dispatch notifications, fire regular
// timers, then dispatch prenext/nextstart/next to every strategy whose feed
// advanced. With broker_coo also enabled the broker gets one more pass at
// the same bars after Next so orders submitted there get cheat-on-open
// pricing too.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.feeds) == 0 {
		return &ConfigError{Reason: "no feeds registered"}
	}
	for _, bs := range e.strategies {
		bs.Strategy.Start()
	}

	step := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ts, ok := e.earliestPending()
		if !ok {
			break
		}
		due := e.feedsDueAt(ts)
		if len(due) == 0 {
			break
		}

		bars := make(map[int]bar.Bar, len(due))
		for _, f := range due {
			bars[f.Index] = f.Advance()
		}
		step++

		e.fireTimers(ctx, ts, step, true)

		if e.cfg.CheatOnOpen {
			for _, bs := range e.strategies {
				if _, advanced := bars[bs.FeedIndex]; !advanced {
					continue
				}
				bs.Strategy.NextOpen(e)
			}
		}

		notes, err := e.broker.Next(ctx, bars)
		if err != nil {
			return err
		}
		for _, n := range notes {
			e.dispatchNotification(n)
		}

		e.fireTimers(ctx, ts, step, false)

		for _, bs := range e.strategies {
			if _, advanced := bars[bs.FeedIndex]; !advanced {
				continue
			}
			bs.root.NextEvent()
			switch bs.root.Status() {
			case "prenext":
				bs.Strategy.PreNext()
			case "nextstart":
				bs.Strategy.NextStart()
				bs.Strategy.Next(e)
			default:
				bs.Strategy.Next(e)
			}
		}

		// broker_coo: re-evaluate pending orders against the same bar once
		// more after regular Next dispatch, so orders submitted from Next
		// itself also get cheat-on-open pricing instead of waiting for the
		// following bar.
		if e.cfg.CheatOnOpen && e.cfg.BrokerCOO {
			extra, err := e.broker.Next(ctx, bars)
			if err != nil {
				return err
			}
			for _, n := range extra {
				e.dispatchNotification(n)
			}
		}

		marks := make(map[int]float64, len(bars))
		for idx, b := range bars {
			marks[idx] = b.Close
		}
		value := e.broker.Value(marks)
		cash := e.broker.Cash()
		for _, bs := range e.strategies {
			bs.Strategy.NotifyCashValue(cash, value)
		}
		metrics.SetEquity(value)
		metrics.IncBarsProcessed()

		if e.progressEvery > 0 && step%e.progressEvery == 0 {
			e.log.Infof("step=%d ts=%.6f equity=%.2f", step, ts, value)
		}
	}

	for _, bs := range e.strategies {
		bs.Strategy.Stop()
	}
	return nil
}

func (e *Engine) earliestPending() (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, f := range e.feeds {
		if ts, ok := f.PeekTimestamp(); ok && ts < best {
			best = ts
			found = true
		}
	}
	return best, found
}

func (e *Engine) feedsDueAt(ts float64) []*Feed {
	var due []*Feed
	for _, f := range e.feeds {
		if next, ok := f.PeekTimestamp(); ok && math.Abs(next-ts) <= epsilon {
			due = append(due, f)
		}
	}
	return due
}

func (e *Engine) fireTimers(ctx context.Context, ts float64, step int, cheat bool) {
	for _, tm := range e.timers {
		if tm.Cheat != cheat || !tm.due(step) {
			continue
		}
		tm.Fn(ctx, ts)
		for _, bs := range e.strategies {
			bs.Strategy.NotifyTimer(tm.Name, ts)
		}
	}
}

func (e *Engine) dispatchNotification(n broker.Notification) {
	for _, bs := range e.strategies {
		if n.Order != nil && n.Order.FeedIndex == bs.FeedIndex {
			bs.Strategy.NotifyOrder(n.Order)
		}
		if n.Trade != nil && n.Trade.FeedIndex == bs.FeedIndex {
			bs.Strategy.NotifyTrade(n.Trade)
		}
	}
}

// ---- strategy.Broker ----

// Buy submits a Market buy order for size units on feedIndex.
func (e *Engine) Buy(feedIndex int, size float64) (*order.Order, error) {
	return e.submitMarket(feedIndex, order.SideBuy, size)
}

// Sell submits a Market sell order for size units on feedIndex.
func (e *Engine) Sell(feedIndex int, size float64) (*order.Order, error) {
	return e.submitMarket(feedIndex, order.SideSell, size)
}

// ClosePosition submits a Market order that flattens feedIndex's position.
func (e *Engine) ClosePosition(feedIndex int) (*order.Order, error) {
	pos := e.broker.Position(feedIndex)
	if pos.Size == 0 {
		return nil, nil
	}
	side := order.SideSell
	if pos.Size < 0 {
		side = order.SideBuy
	}
	return e.submitMarket(feedIndex, side, math.Abs(pos.Size))
}

func (e *Engine) submitMarket(feedIndex int, side order.Side, size float64) (*order.Order, error) {
	o := order.NewOrder("engine", feedIndex, side, size, order.Market)
	notes, err := e.broker.Submit(o)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		e.dispatchNotification(n)
	}
	return o, nil
}

// Bracket submits a parent entry order plus its OCO stop/limit exits. The
// exits take the opposite side of the parent and only become live once the
// parent fills.
func (e *Engine) Bracket(feedIndex int, side order.Side, size, stopPrice, limitPrice float64) (*order.Bracket, error) {
	exitSide := order.SideSell
	if side == order.SideSell {
		exitSide = order.SideBuy
	}
	parent := order.NewOrder("engine", feedIndex, side, size, order.Market)
	stop := order.NewOrder("engine", feedIndex, exitSide, size, order.Stop)
	stop.Price = stopPrice
	limit := order.NewOrder("engine", feedIndex, exitSide, size, order.Limit)
	limit.Price = limitPrice
	br := order.NewBracket(parent, stop, limit)

	notes, err := e.broker.SubmitBracket(br)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		e.dispatchNotification(n)
	}
	return br, nil
}

// Position returns feedIndex's current position.
func (e *Engine) Position(feedIndex int) order.Position { return e.broker.Position(feedIndex) }

// Cash returns the broker's available cash.
func (e *Engine) Cash() float64 { return e.broker.Cash() }

// Value returns the broker's mark-to-market value given marks.
func (e *Engine) Value(marks map[int]float64) float64 { return e.broker.Value(marks) }
