package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/broker"
	"github.com/chidi150c/backtest/internal/config"
	"github.com/chidi150c/backtest/internal/engine"
	"github.com/chidi150c/backtest/internal/indicator"
	"github.com/chidi150c/backtest/internal/order"
	"github.com/chidi150c/backtest/internal/store"
	"github.com/chidi150c/backtest/internal/strategy"
	"github.com/chidi150c/backtest/internal/xlog"
	"github.com/google/uuid"
)

// Runner wires a loaded bar slice, a broker, and one strategy into an
// Engine and drives it to completion, persisting a summary if a Store is
// attached. Warm-up is delegated to each indicator's own min-period rather
// than a hardcoded bar count, then the engine steps forward logging progress.
type Runner struct {
	Cfg      config.EngineConfig
	Bars     []bar.Bar
	FeedName string
	NewBroker func(config.EngineConfig) broker.Broker
	NewStrategy func(feed *bar.LineSeries) strategy.Strategy
	Store    *store.Store
	Log      *xlog.Logger
}

// DefaultBrokerFactory builds a SimulatedBroker seeded from the engine
// config's start cash; pass to Runner.NewBroker unless a test needs custom
// slippage. Cheat-on-open only reaches the broker when BrokerCOO also
// opts in, per broker_coo's "propagate cheat_on_open to broker" contract.
func DefaultBrokerFactory(cfg config.EngineConfig) broker.Broker {
	return broker.New(broker.Config{
		StartCash:   cfg.StartCash,
		CheatOnOpen: cfg.CheatOnOpen && cfg.BrokerCOO,
	})
}

// Result summarizes one completed run.
type Result struct {
	RunID     string
	BarCount  int
	EndCash   float64
	EndValue  float64
}

// Run executes the backtest end to end.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if len(r.Bars) == 0 {
		return Result{}, fmt.Errorf("backtest: no bars to run")
	}
	runID := uuid.New().String()
	log := r.Log
	if log == nil {
		log = xlog.New("backtest")
	}
	started := time.Now().UTC()

	br := r.NewBroker(r.Cfg)
	feed := engine.NewFeed(0, r.FeedName, r.Cfg.ExactBars, r.Bars)
	eng := engine.New(r.Cfg, br, []*engine.Feed{feed}, log)

	strat := r.NewStrategy(feed.Series)
	cashObsIter := indicator.NewCashValueObserver(feed.Series, r.Cfg.ExactBars)
	analyzerIter := indicator.NewTradeSummaryAnalyzer(feed.Series, r.Cfg.ExactBars)
	rec := &tradeRecorder{
		Strategy:     strat,
		store:        r.Store,
		runID:        runID,
		log:          log,
		cashObsIter:  cashObsIter,
		cashObs:      cashObsIter.Computer.(*indicator.CashValueObserver),
		analyzerIter: analyzerIter,
		analyzer:     analyzerIter.Computer.(*indicator.TradeSummaryAnalyzer),
	}
	strat = rec
	if err := eng.AddStrategy(0, strat); err != nil {
		return Result{}, err
	}

	log.Infof("run=%s bars=%d starting", runID, len(r.Bars))
	if err := eng.Run(ctx); err != nil {
		return Result{}, err
	}

	last := r.Bars[len(r.Bars)-1]
	endValue := eng.Value(map[int]float64{0: last.Close})
	res := Result{RunID: runID, BarCount: len(r.Bars), EndCash: eng.Cash(), EndValue: endValue}
	log.Infof("run=%s complete end_value=%.2f", runID, endValue)

	if r.Store != nil {
		trades, wins, losses, _ := rec.analyzer.Snapshot()
		err := r.Store.SaveRunSummary(store.RunSummary{
			RunID: runID, StartedAt: started, FinishedAt: time.Now().UTC(),
			StartCash: r.Cfg.StartCash, EndValue: endValue,
			TradeCount: trades, WinCount: wins, LossCount: losses,
		})
		if err != nil {
			return res, fmt.Errorf("save run summary: %w", err)
		}
	}
	return res, nil
}

// tradeRecorder wraps a Strategy to splice the two reference
// indicator.KindObserver components into its indicator graph: a
// CashValueObserver fed from NotifyCashValue and a TradeSummaryAnalyzer fed
// from NotifyTrade, which also persists each trade to a Store when one is
// attached. The wrapped strategy never needs to know either exists.
type tradeRecorder struct {
	strategy.Strategy
	store *store.Store
	runID string
	log   *xlog.Logger

	cashObsIter  *indicator.Iterator
	cashObs      *indicator.CashValueObserver
	analyzerIter *indicator.Iterator
	analyzer     *indicator.TradeSummaryAnalyzer
}

// Indicators splices the observer/analyzer nodes alongside whatever the
// wrapped strategy already exposes, so the engine drives them every bar.
func (tr *tradeRecorder) Indicators() []*indicator.Iterator {
	return append(tr.Strategy.Indicators(), tr.cashObsIter, tr.analyzerIter)
}

func (tr *tradeRecorder) NotifyCashValue(cash, value float64) {
	tr.Strategy.NotifyCashValue(cash, value)
	tr.cashObs.Record(cash, value)
}

func (tr *tradeRecorder) NotifyTrade(t *order.Trade) {
	tr.Strategy.NotifyTrade(t)
	if !t.Open {
		tr.analyzer.RecordTrade(t.RealizedPnL)
	}
	if tr.store == nil {
		return
	}
	if err := tr.store.SaveTrade(tr.runID, t); err != nil {
		tr.log.Errorf("save trade: %v", err)
	}
}
