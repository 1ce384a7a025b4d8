package engine

import (
	"context"
	"testing"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/broker"
	"github.com/chidi150c/backtest/internal/config"
	"github.com/chidi150c/backtest/internal/order"
	"github.com/chidi150c/backtest/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(day int, o, h, l, c, v float64) bar.Bar {
	return bar.Bar{Timestamp: float64(day), Open: o, High: h, Low: l, Close: c, Volume: v}
}

// Scenario E groundwork: two feeds at different cadences still advance in
// timestamp lockstep, each only driving strategies bound to it.
func TestEngine_MultiFeedLockstep(t *testing.T) {
	fast := NewFeed(0, "fast", bar.ExactBarsOff, []bar.Bar{
		mkBar(0, 10, 10, 10, 10, 1),
		mkBar(1, 10, 10, 10, 10, 1),
		mkBar(2, 10, 10, 10, 10, 1),
	})
	slow := NewFeed(1, "slow", bar.ExactBarsOff, []bar.Bar{
		mkBar(0, 20, 20, 20, 20, 1),
		mkBar(2, 20, 20, 20, 20, 1),
	})

	br := broker.New(broker.Config{StartCash: 1000})
	eng := New(config.Default(), br, []*Feed{fast, slow}, nil)

	var fastTicks, slowTicks int
	sFast := &countingStrategy{onNext: func() { fastTicks++ }}
	sSlow := &countingStrategy{onNext: func() { slowTicks++ }}
	require.NoError(t, eng.AddStrategy(0, sFast))
	require.NoError(t, eng.AddStrategy(1, sSlow))

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, 3, fastTicks)
	assert.Equal(t, 2, slowTicks)
}

type countingStrategy struct {
	strategy.BaseStrategy
	onNext func()
}

func (c *countingStrategy) Next(b strategy.Broker) { c.onNext() }

// Scenario F groundwork: a Market buy submitted on bar i fills against bar
// i+1's open, and the engine's own Buy/Position/Cash wiring matches what
// the broker reports.
func TestEngine_BuyFillsNextBarOpen(t *testing.T) {
	feed := NewFeed(0, "only", bar.ExactBarsOff, []bar.Bar{
		mkBar(0, 100, 101, 99, 100, 10),
		mkBar(1, 105, 106, 104, 105, 10),
		mkBar(2, 106, 107, 105, 106, 10),
	})
	br := broker.New(broker.Config{StartCash: 10000})
	eng := New(config.Default(), br, []*Feed{feed}, nil)

	s := &buyOnceStrategy{}
	require.NoError(t, eng.AddStrategy(0, s))
	require.NoError(t, eng.Run(context.Background()))

	pos := eng.Position(0)
	assert.Equal(t, 1.0, pos.Size)
	assert.Equal(t, 105.0, pos.AvgPrice)
}

type buyOnceStrategy struct {
	strategy.BaseStrategy
	bought bool
}

func (s *buyOnceStrategy) Next(b strategy.Broker) {
	if s.bought {
		return
	}
	s.bought = true
	_, _ = b.Buy(0, 1)
}

// Scenario F: with cheat_on_open enabled, a Market buy issued from NextOpen
// fills at the same bar's open instead of waiting for the next bar.
func TestEngine_CheatOnOpenFillsSameBarOpen(t *testing.T) {
	feed := NewFeed(0, "only", bar.ExactBarsOff, []bar.Bar{
		mkBar(0, 100, 101, 99, 100, 10),
		mkBar(1, 105, 106, 104, 105, 10),
	})
	br := broker.New(broker.Config{StartCash: 10000, CheatOnOpen: true})
	cfg := config.New(config.WithCheatOnOpen(true))
	eng := New(cfg, br, []*Feed{feed}, nil)

	s := &buyOnOpenStrategy{}
	require.NoError(t, eng.AddStrategy(0, s))
	require.NoError(t, eng.Run(context.Background()))

	pos := eng.Position(0)
	assert.Equal(t, 1.0, pos.Size)
	assert.Equal(t, 100.0, pos.AvgPrice)
}

type buyOnOpenStrategy struct {
	strategy.BaseStrategy
	bought bool
}

func (s *buyOnOpenStrategy) NextOpen(b strategy.Broker) {
	if s.bought {
		return
	}
	s.bought = true
	_, _ = b.Buy(0, 1)
}

// A strategy-level exercise of Bracket: submitted during bar 0, the entry
// fills at bar 1's open, the stop child then fills on bar 2 and cancels the
// limit sibling.
func TestEngine_BracketStopHitCancelsLimit(t *testing.T) {
	feed := NewFeed(0, "only", bar.ExactBarsOff, []bar.Bar{
		mkBar(0, 100, 101, 99, 100, 10),
		mkBar(1, 99, 99.5, 90, 91, 10),
		mkBar(2, 91, 92, 80, 85, 10),
	})
	br := broker.New(broker.Config{StartCash: 10000})
	eng := New(config.Default(), br, []*Feed{feed}, nil)

	s := &bracketOnceStrategy{}
	require.NoError(t, eng.AddStrategy(0, s))
	require.NoError(t, eng.Run(context.Background()))

	require.NotNil(t, s.br)
	assert.Equal(t, order.Completed, s.br.Stop.Status)
	assert.Equal(t, order.Canceled, s.br.Limit.Status)
	assert.Equal(t, 0.0, eng.Position(0).Size)
}

type bracketOnceStrategy struct {
	strategy.BaseStrategy
	placed bool
	br     *order.Bracket
}

func (s *bracketOnceStrategy) Next(b strategy.Broker) {
	if s.placed {
		return
	}
	s.placed = true
	br, err := b.Bracket(0, order.SideBuy, 1, 95, 110)
	if err != nil {
		return
	}
	s.br = br
}
