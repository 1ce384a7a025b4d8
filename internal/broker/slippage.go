package broker

import (
	"math"

	"github.com/chidi150c/backtest/internal/order"
)

// SlippageConfig mirrors the source system's independently-toggleable
// slippage flags: each is checked on its own rather than collapsed into a
// single mode.
type SlippageConfig struct {
	Perc      float64 // fractional slippage applied to the fill price (0.001 == 10bps)
	FixedTick float64 // absolute slippage applied instead of Perc when Perc == 0
	SlipLimit bool    // apply slippage to Limit-type fills at all
	SlipMatch bool    // when true, cap the slipped price at the bar's own high/low
	SlipOut   bool    // when true, allow the slipped price to exceed the bar's high/low
}

// Apply nudges price on the worse side for side, using bar high/low as the
// optional clamp.
func (s SlippageConfig) Apply(side order.Side, price, barHigh, barLow float64, isLimit bool) float64 {
	if isLimit && !s.SlipLimit {
		return price
	}
	delta := s.FixedTick
	if s.Perc > 0 {
		delta = price * s.Perc
	}
	if delta == 0 {
		return price
	}
	worse := price
	if side == order.SideBuy {
		worse = price + delta
	} else {
		worse = price - delta
	}
	if s.SlipMatch && !s.SlipOut {
		worse = math.Min(math.Max(worse, barLow), barHigh)
	}
	return worse
}
