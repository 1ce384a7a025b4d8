package strategy

import (
	"testing"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBroker satisfies strategy.Broker without pulling in internal/engine,
// so MACrossover's Next logic can be exercised directly.
type stubBroker struct {
	cash   float64
	pos    map[int]order.Position
	buys   int
	closes int
}

func newStubBroker(cash float64) *stubBroker {
	return &stubBroker{cash: cash, pos: map[int]order.Position{}}
}

func (s *stubBroker) Buy(feedIndex int, size float64) (*order.Order, error) {
	s.buys++
	p := s.pos[feedIndex]
	p.Size += size
	s.pos[feedIndex] = p
	return order.NewOrder("stub", feedIndex, order.SideBuy, size, order.Market), nil
}

func (s *stubBroker) Sell(feedIndex int, size float64) (*order.Order, error) {
	p := s.pos[feedIndex]
	p.Size -= size
	s.pos[feedIndex] = p
	return order.NewOrder("stub", feedIndex, order.SideSell, size, order.Market), nil
}

func (s *stubBroker) ClosePosition(feedIndex int) (*order.Order, error) {
	s.closes++
	s.pos[feedIndex] = order.Position{}
	return nil, nil
}

func (s *stubBroker) Bracket(feedIndex int, side order.Side, size, stopPrice, limitPrice float64) (*order.Bracket, error) {
	parent := order.NewOrder("stub", feedIndex, side, size, order.Market)
	stop := order.NewOrder("stub", feedIndex, side, size, order.Stop)
	limit := order.NewOrder("stub", feedIndex, side, size, order.Limit)
	return order.NewBracket(parent, stop, limit), nil
}

func (s *stubBroker) Position(feedIndex int) order.Position { return s.pos[feedIndex] }
func (s *stubBroker) Cash() float64                         { return s.cash }
func (s *stubBroker) Value(marks map[int]float64) float64   { return s.cash }

func TestFixedFractionSizer(t *testing.T) {
	sz := FixedFractionSizer{Fraction: 0.5}
	assert.Equal(t, 5.0, sz.Size(1000, 100))
	assert.Equal(t, 0.0, sz.Size(1000, 0))
}

func TestMACrossover_Indicators(t *testing.T) {
	feed := bar.NewLineSeries(bar.ExactBarsOff, 1)
	m := NewMACrossover(0, feed, bar.ExactBarsOff, 2, 4, FixedFractionSizer{Fraction: 0.1})
	assert.Len(t, m.Indicators(), 2)
}

// TestMACrossover_BuysOnCrossAboveAndClosesOnCrossBelow feeds a rising then
// falling close series through the strategy's own SMA iterators directly
// (bypassing the engine) to verify the crossing rule in isolation.
func TestMACrossover_BuysOnCrossAboveAndClosesOnCrossBelow(t *testing.T) {
	feed := bar.NewLineSeries(bar.ExactBarsOff, 1)
	m := NewMACrossover(0, feed, bar.ExactBarsOff, 2, 3, FixedFractionSizer{Fraction: 1.0})
	b := newStubBroker(1000)

	closes := []float64{10, 10, 10, 20, 30, 30, 10, 1, 1}
	for i, c := range closes {
		feed.PushBar(bar.Bar{Timestamp: float64(i), Open: c, High: c, Low: c, Close: c, Volume: 1})
		for _, ind := range m.Indicators() {
			ind.NextEvent()
		}
		m.Next(b)
	}
	require.Equal(t, 1, b.buys)
	require.Equal(t, 1, b.closes)
}
