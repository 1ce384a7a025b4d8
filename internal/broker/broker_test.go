package broker

import (
	"context"
	"testing"
	"time"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dayToTime mirrors the broker's own Timestamp -> time.Time conversion so
// tests can set session-end boundaries in the same units as bar timestamps.
func dayToTime(d float64) time.Time {
	return time.Unix(0, int64(d*float64(time.Hour*24)))
}

func newTestBroker(cash float64) *SimulatedBroker {
	return New(Config{StartCash: cash})
}

// Single Market buy then Market sell. Also asserts every order status a
// strategy observes along the way: Submitted, Accepted, then Completed,
// for each leg.
func TestScenarioA_MarketBuyThenSell(t *testing.T) {
	b := newTestBroker(10_000)
	buy := order.NewOrder("strat", 0, order.SideBuy, 10, order.Market)
	submitNotes, err := b.Submit(buy)
	require.NoError(t, err)
	require.Len(t, submitNotes, 2)
	assert.Equal(t, order.Submitted, submitNotes[0].Order.Status)
	assert.Equal(t, order.Accepted, submitNotes[1].Order.Status)
	assert.Equal(t, order.Accepted, buy.Status)

	notes, err := b.Next(context.Background(), map[int]bar.Bar{0: {Open: 100.5, High: 101, Low: 100, Close: 101}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, order.Completed, buy.Status)
	assert.InDelta(t, 100.5, buy.Executions[0].Price, 1e-9)

	sell := order.NewOrder("strat", 0, order.SideSell, 10, order.Market)
	submitNotes, err = b.Submit(sell)
	require.NoError(t, err)
	require.Len(t, submitNotes, 2)
	assert.Equal(t, order.Submitted, submitNotes[0].Order.Status)
	assert.Equal(t, order.Accepted, submitNotes[1].Order.Status)

	notes, err = b.Next(context.Background(), map[int]bar.Bar{0: {Open: 101.5, High: 102, Low: 101, Close: 102}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, order.Completed, sell.Status)

	pos := b.Position(0)
	assert.Equal(t, 0.0, pos.Size)
	assert.InDelta(t, 10.0, notes[0].Trade.RealizedPnL, 1e-9) // 10 * (101.5-100.5)
}

// Scenario B: Limit order never crossed, expires at session end.
func TestScenarioB_LimitNeverCrossedExpires(t *testing.T) {
	b := newTestBroker(10_000)
	buy := order.NewOrder("strat", 0, order.SideBuy, 10, order.Limit)
	buy.Price = 95
	buy.Valid = order.Validity{EndOfDay: true}
	_, err := b.Submit(buy)
	require.NoError(t, err)
	b.sessionEnd[0] = dayToTime(1)

	notes, err := b.Next(context.Background(), map[int]bar.Bar{0: {Timestamp: 0.5, Open: 100, High: 101, Low: 99, Close: 100}})
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.True(t, buy.Status.Alive())

	notes, err = b.Next(context.Background(), map[int]bar.Bar{0: {Timestamp: 1.5, Open: 100, High: 101, Low: 99, Close: 100}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, order.Expired, buy.Status)
	assert.Equal(t, 0.0, b.Position(0).Size)
}

// Scenario C: bracket where the stop child fills and cancels the limit child.
func TestScenarioC_BracketStopHit(t *testing.T) {
	b := newTestBroker(10_000)
	parent := order.NewOrder("strat", 0, order.SideBuy, 10, order.Limit)
	parent.Price = 99.5
	stop := order.NewOrder("strat", 0, order.SideSell, 10, order.Stop)
	stop.Price = 98
	limit := order.NewOrder("strat", 0, order.SideSell, 10, order.Limit)
	limit.Price = 103
	br := order.NewBracket(parent, stop, limit)
	_, err := b.SubmitBracket(br)
	require.NoError(t, err)

	// bar 0: no fill
	_, err = b.Next(context.Background(), map[int]bar.Bar{0: {Open: 100, High: 101, Low: 99, Close: 100}})
	require.NoError(t, err)
	assert.True(t, parent.Status.Alive())

	// bar 1: parent fills at 99.5 (limit crosses, low=100.5 touches? use low<=99.5)
	_, err = b.Next(context.Background(), map[int]bar.Bar{0: {Open: 101, High: 102, Low: 99, Close: 101.5}})
	require.NoError(t, err)
	require.Equal(t, order.Completed, parent.Status)
	require.True(t, br.Active())

	// bar 2: stop triggers (low=97 <= 98), limit-child canceled
	_, err = b.Next(context.Background(), map[int]bar.Bar{0: {Open: 101.5, High: 101.5, Low: 97, Close: 98}})
	require.NoError(t, err)
	assert.Equal(t, order.Completed, stop.Status)
	assert.Equal(t, order.Canceled, limit.Status)
	assert.Equal(t, 0.0, b.Position(0).Size)
}

func TestSlippage_WorseSideAndClamp(t *testing.T) {
	s := SlippageConfig{Perc: 0.01, SlipMatch: true}
	px := s.Apply(order.SideBuy, 100, 100.5, 99, false)
	assert.InDelta(t, 100.5, px, 1e-9) // 101 clamped to high
	px = s.Apply(order.SideSell, 100, 101, 99.5, false)
	assert.InDelta(t, 99.5, px, 1e-9) // 99 clamped to low
}

func TestSlippage_LimitOrdersExemptByDefault(t *testing.T) {
	s := SlippageConfig{Perc: 0.01}
	px := s.Apply(order.SideBuy, 100, 105, 95, true)
	assert.Equal(t, 100.0, px)
}
