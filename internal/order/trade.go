package order

import "time"

// TradeUpdate is one fill's contribution to a trade's running history.
type TradeUpdate struct {
	Timestamp time.Time
	Size      float64
	Price     float64
	PnL       float64
}

// Trade tracks the life cycle of one (feed, tradeid) position swing: it
// opens on the first non-zero fill from flat, updates on further fills, and
// closes when the position returns to flat.
type Trade struct {
	FeedIndex   int
	TradeID     int
	Open        bool
	Size        float64
	AvgPrice    float64
	Commission  float64
	RealizedPnL float64
	History     []TradeUpdate
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// NewTrade starts a closed (not yet opened) trade tracker for a tradeid.
func NewTrade(feedIndex, tradeID int) *Trade {
	return &Trade{FeedIndex: feedIndex, TradeID: tradeID}
}

// Apply folds one fill (with its position-accounting results) into the
// trade. posSizeAfter and posAvgAfter are the Position's size and average
// price *after* Position.Update was applied for this same fill.
func (t *Trade) Apply(ts time.Time, fillSize, fillPrice, commission, realizedPnL float64, posSizeAfter, posAvgAfter float64) {
	if !t.Open && t.Size == 0 {
		t.Open = true
		t.OpenedAt = ts
	}
	t.Commission += commission
	t.RealizedPnL += realizedPnL
	t.Size = posSizeAfter
	t.AvgPrice = posAvgAfter
	t.History = append(t.History, TradeUpdate{Timestamp: ts, Size: fillSize, Price: fillPrice, PnL: realizedPnL})

	if t.Open && posSizeAfter == 0 {
		t.Open = false
		t.ClosedAt = ts
	}
}
