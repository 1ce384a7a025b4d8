// Package broker implements a simulated exchange: a matching engine over
// the next bar's OHLC, cash/margin accounting, and the abstract Broker
// contract that both the simulated and (future) live brokers conform to.
package broker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/metrics"
	"github.com/chidi150c/backtest/internal/order"
)

// Broker is the abstract exchange contract. SimulatedBroker is the only
// implementation this module provides; live brokers conform to the same
// order state machine but delegate matching externally.
type Broker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Cash() float64
	Value(marks map[int]float64) float64
	Position(feedIndex int) order.Position
	Submit(o *order.Order) ([]Notification, error)
	SubmitBracket(br *order.Bracket) ([]Notification, error)
	Cancel(o *order.Order) error
	Next(ctx context.Context, bars map[int]bar.Bar) ([]Notification, error)
	SetCommission(feedIndex int, c order.CommissionInfo)
}

// Notification is delivered to strategies in state-transition order:
// Submitted before Accepted before Partial before Completed.
type Notification struct {
	Order *order.Order
	Trade *order.Trade
}

// Config carries the broker-level options that apply to matching rather
// than the outer loop: cheat-on-open propagation and slippage policy.
type Config struct {
	CheatOnOpen bool
	Slippage    SlippageConfig
	StartCash   float64
}

// SimulatedBroker matches pending orders against each feed's next bar,
// maintaining cash, positions, trades, and bracket groups.
type SimulatedBroker struct {
	cfg         Config
	cash        float64
	positions   map[int]*order.Position
	commissions map[int]order.CommissionInfo
	pending     map[string]*order.Order
	brackets    map[string]*order.Bracket // keyed by parent ref
	trades      map[tradeKey]*order.Trade
	nextTradeID int
	sessionEnd  map[int]time.Time // per-feed session end for DAY validity

	step        int            // advances once per Next call
	submittedAt map[string]int // order ref -> step value at Submit time
}

type tradeKey struct {
	feedIndex int
	tradeID   int
}

// New builds a SimulatedBroker seeded with StartCash.
func New(cfg Config) *SimulatedBroker {
	return &SimulatedBroker{
		cfg:         cfg,
		cash:        cfg.StartCash,
		positions:   map[int]*order.Position{},
		commissions: map[int]order.CommissionInfo{},
		pending:     map[string]*order.Order{},
		brackets:    map[string]*order.Bracket{},
		trades:      map[tradeKey]*order.Trade{},
		sessionEnd:  map[int]time.Time{},
		submittedAt: map[string]int{},
	}
}

func (b *SimulatedBroker) Start(ctx context.Context) error { return nil }
func (b *SimulatedBroker) Stop(ctx context.Context) error  { return nil }

// Cash returns available cash.
func (b *SimulatedBroker) Cash() float64 { return b.cash }

// Value returns cash plus the mark-to-market value of all open positions,
// given a feedIndex -> last price map.
func (b *SimulatedBroker) Value(marks map[int]float64) float64 {
	v := b.cash
	for idx, pos := range b.positions {
		if px, ok := marks[idx]; ok {
			v += pos.Size * px
		}
	}
	return v
}

// Position returns the current position for feedIndex (zero value if flat).
func (b *SimulatedBroker) Position(feedIndex int) order.Position {
	if p, ok := b.positions[feedIndex]; ok {
		return *p
	}
	return order.Position{}
}

// SetCommission installs the commission model used for feedIndex.
func (b *SimulatedBroker) SetCommission(feedIndex int, c order.CommissionInfo) {
	b.commissions[feedIndex] = c
}

func (b *SimulatedBroker) commissionFor(feedIndex int) order.CommissionInfo {
	if c, ok := b.commissions[feedIndex]; ok {
		return c
	}
	return order.DefaultCommissionInfo()
}

// Submit accepts an order into the pending book, returning a notification
// for each of the Submitted and Accepted transitions in that order. Submit
// does not read Transmit: bracket children stay out of the book because
// SubmitBracket submits only the parent and applyFill submits the children
// once the parent fills.
func (b *SimulatedBroker) Submit(o *order.Order) ([]Notification, error) {
	if err := o.Transition(order.Submitted); err != nil {
		return nil, err
	}
	notes := []Notification{{Order: snapshot(o)}}
	if err := o.Transition(order.Accepted); err != nil {
		return notes, err
	}
	notes = append(notes, Notification{Order: snapshot(o)})
	b.pending[o.Ref] = o
	b.submittedAt[o.Ref] = b.step
	metrics.IncOrderStatus("accepted")
	return notes, nil
}

// snapshot copies an order's current fields so a notification captures the
// status at the moment it was raised, not whatever the live order becomes
// by the time a strategy observes it.
func snapshot(o *order.Order) *order.Order {
	cp := *o
	return &cp
}

// Cancel removes a pending order and transitions it to Canceled.
func (b *SimulatedBroker) Cancel(o *order.Order) error {
	if !o.Status.Alive() {
		return fmt.Errorf("order %s: cannot cancel status %s", o.Ref, o.Status)
	}
	delete(b.pending, o.Ref)
	delete(b.submittedAt, o.Ref)
	if err := o.Transition(order.Canceled); err != nil {
		return err
	}
	metrics.IncOrderStatus("canceled")
	if br, ok := b.brackets[o.Ref]; ok {
		for _, sib := range br.OnParentTerminated() {
			_ = b.Cancel(sib)
		}
	}
	return nil
}

// SubmitBracket submits the parent and registers the group; children are
// submitted once the parent fills.
func (b *SimulatedBroker) SubmitBracket(br *order.Bracket) ([]Notification, error) {
	b.brackets[br.Parent.Ref] = br
	return b.Submit(br.Parent)
}

// Next matches every pending order whose feed produced bars this tick,
// returning notifications in state-transition order. Expired orders are
// checked before matching; Market orders are exempt from expiry.
//
// Orders submitted while this same Next call is matching (in practice the
// bracket children that a parent fill submits) are only eligible for this
// step's match when cfg.CheatOnOpen is set; otherwise they wait for the
// step that follows. Orders submitted between Next calls (from a strategy's
// NextOpen or Next) carry the previous step number and are always eligible.
func (b *SimulatedBroker) Next(ctx context.Context, bars map[int]bar.Bar) ([]Notification, error) {
	b.step++
	var notes []Notification
	for ref, o := range b.pending {
		bb, ok := bars[o.FeedIndex]
		if !ok {
			continue
		}
		if b.submittedAt[ref] == b.step && !b.cfg.CheatOnOpen {
			continue
		}
		if b.checkExpired(o, bb) {
			notes = append(notes, Notification{Order: o})
			delete(b.pending, ref)
			delete(b.submittedAt, ref)
			continue
		}
		filled, fillPrice := b.tryMatch(o, bb)
		if !filled {
			continue
		}
		n, err := b.applyFill(o, bb, fillPrice)
		if err != nil {
			return notes, err
		}
		notes = append(notes, n...)
		if o.Status.Terminal() {
			delete(b.pending, ref)
			delete(b.submittedAt, ref)
		}
	}
	return notes, nil
}

func (b *SimulatedBroker) checkExpired(o *order.Order, bb bar.Bar) bool {
	if o.ExecType == order.Market {
		return false
	}
	if o.Valid.None {
		return false
	}
	ts := time.Unix(0, int64(bb.Timestamp*float64(time.Hour*24)))
	if o.Valid.EndOfDay {
		end, ok := b.sessionEnd[o.FeedIndex]
		if ok && !ts.Before(end) {
			_ = o.Transition(order.Expired)
			metrics.IncOrderStatus("expired")
			return true
		}
		return false
	}
	if !o.Valid.At.IsZero() && ts.After(o.Valid.At) {
		_ = o.Transition(order.Expired)
		metrics.IncOrderStatus("expired")
		return true
	}
	return false
}

// tryMatch implements the per-execution-type matching rules. bb is the
// bar the order's feed just delivered (i.e. "the next
// bar" relative to when the order was submitted, except under
// cheat-on-open where it is the same bar's open the strategy hasn't
// consumed yet).
func (b *SimulatedBroker) tryMatch(o *order.Order, bb bar.Bar) (filled bool, price float64) {
	isBuy := o.Side == order.SideBuy
	switch o.ExecType {
	case order.Market, order.Historical:
		px := bb.Open
		return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, false)
	case order.Close:
		return true, bb.Close
	case order.Limit:
		p := o.Price
		if isBuy && bb.Low <= p {
			px := math.Min(p, bb.Open)
			return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, true)
		}
		if !isBuy && bb.High >= p {
			px := math.Max(p, bb.Open)
			return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, true)
		}
		return false, 0
	case order.Stop:
		p := o.Price
		triggered := (isBuy && bb.High >= p) || (!isBuy && bb.Low <= p)
		if !triggered {
			return false, 0
		}
		px := p
		if isBuy && bb.Open > p {
			px = bb.Open
		}
		if !isBuy && bb.Open < p {
			px = bb.Open
		}
		return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, false)
	case order.StopLimit:
		p := o.Price
		triggered := (isBuy && bb.High >= p) || (!isBuy && bb.Low <= p)
		if !triggered {
			return false, 0
		}
		// behaves as Limit(priceLimit) for the remainder of the bar
		pl := o.PriceLimit
		if isBuy && bb.Low <= pl {
			px := math.Min(pl, bb.Open)
			return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, true)
		}
		if !isBuy && bb.High >= pl {
			px := math.Max(pl, bb.Open)
			return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, true)
		}
		return false, 0
	case order.StopTrail, order.StopTrailLimit:
		b.updateTrailStop(o, bb)
		p := o.Price
		triggered := (isBuy && bb.High >= p) || (!isBuy && bb.Low <= p)
		if !triggered {
			return false, 0
		}
		px := p
		if isBuy && bb.Open > p {
			px = bb.Open
		}
		if !isBuy && bb.Open < p {
			px = bb.Open
		}
		return true, b.cfg.Slippage.Apply(o.Side, px, bb.High, bb.Low, false)
	default:
		return false, 0
	}
}

// updateTrailStop moves a StopTrail/StopTrailLimit order's trigger price by
// the favorable move minus the trailing offset, never unfavorably.
func (b *SimulatedBroker) updateTrailStop(o *order.Order, bb bar.Bar) {
	offset := o.TrailingAmount
	isBuy := o.Side == order.SideBuy
	favorable := bb.Close
	if offset == 0 && o.TrailingPercent > 0 {
		offset = bb.Close * o.TrailingPercent
	}
	if isBuy {
		// a resting buy-stop (short exit) trails downward as price falls
		candidate := favorable + offset
		if o.Price == 0 || candidate < o.Price {
			o.Price = candidate
		}
	} else {
		candidate := favorable - offset
		if o.Price == 0 || candidate > o.Price {
			o.Price = candidate
		}
	}
}

// applyFill performs the fill's cash/margin/position/trade accounting and
// returns the notifications it produced from the cash/margin and position
// updates.
func (b *SimulatedBroker) applyFill(o *order.Order, bb bar.Bar, price float64) ([]Notification, error) {
	size := o.Remaining()
	comm := b.commissionFor(o.FeedIndex)
	cost := comm.OperatingCost(size, price)
	fee := comm.CommissionRate(size, price)

	needed := cost + fee
	if o.Side == order.SideBuy && needed > b.cash+1e-9 {
		_ = o.Transition(order.Margin)
		metrics.IncOrderStatus("margin")
		return []Notification{{Order: o}}, nil
	}

	pos, ok := b.positions[o.FeedIndex]
	if !ok {
		pos = &order.Position{}
		b.positions[o.FeedIndex] = pos
	}
	deltaSize := size * o.Side.Sign()
	prevSize := pos.Size
	newSize, newAvg, opened, closed, pnl := pos.Update(deltaSize, price)
	_ = prevSize

	if o.Side == order.SideBuy {
		b.cash -= cost + fee
	} else {
		b.cash += cost - fee
	}

	bit := order.ExecutionBit{
		Timestamp:             time.Unix(0, int64(bb.Timestamp*float64(time.Hour*24))),
		Size:                  size,
		Price:                 price,
		Closed:                closed,
		Opened:                opened,
		ClosedValue:           math.Abs(closed) * price,
		OpenedValue:           math.Abs(opened) * price,
		PnL:                   pnl,
		PositionSizeAfter:     newSize,
		PositionAvgPriceAfter: newAvg,
	}
	if err := o.Fill(bit); err != nil {
		return nil, err
	}
	metrics.IncOrderStatus(o.Status.String())
	metrics.IncFill(o.Side.String())

	key := tradeKey{feedIndex: o.FeedIndex, tradeID: o.TradeID}
	tr, ok := b.trades[key]
	if !ok || !tr.Open {
		tr = order.NewTrade(o.FeedIndex, o.TradeID)
		b.trades[key] = tr
	}
	tr.Apply(bit.Timestamp, size, price, fee, pnl, newSize, newAvg)

	notes := []Notification{{Order: o, Trade: tr}}

	if br, ok := b.brackets[o.Ref]; ok && o.Status == order.Completed {
		br.OnParentFilled()
		for _, child := range []*order.Order{br.Stop, br.Limit} {
			child.Transmit = true
			childNotes, err := b.Submit(child)
			notes = append(notes, childNotes...)
			if err != nil {
				return notes, err
			}
		}
	}
	if br, ok := b.brackets[o.ParentRef]; ok && o.Status == order.Completed {
		if toCancel, ok := br.OnChildFilled(o); ok {
			_ = b.Cancel(toCancel)
		}
	}

	metrics.SetEquity(b.Value(map[int]float64{o.FeedIndex: price}))
	return notes, nil
}
