// Package order implements the Order/Position/Trade value objects and the
// order finite-state machine.
package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Side is the direction of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// Sign returns +1 for Buy, -1 for Sell — the multiplier applied to Size
// when computing signed position deltas.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// ExecType is the order's execution type.
type ExecType int

const (
	Market ExecType = iota
	Close
	Limit
	Stop
	StopLimit
	StopTrail
	StopTrailLimit
	Historical
)

// Status is a node in the order FSM. Terminal values are
// Completed, Canceled, Expired, Margin, Rejected.
type Status int

const (
	Created Status = iota
	Submitted
	Accepted
	Partial
	Completed
	Canceled
	Expired
	Margin
	Rejected
)

func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Submitted:
		return "Submitted"
	case Accepted:
		return "Accepted"
	case Partial:
		return "Partial"
	case Completed:
		return "Completed"
	case Canceled:
		return "Canceled"
	case Expired:
		return "Expired"
	case Margin:
		return "Margin"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Alive reports whether the order can still receive fills or be canceled.
func (s Status) Alive() bool {
	switch s {
	case Created, Submitted, Partial, Accepted:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case Completed, Canceled, Expired, Margin, Rejected:
		return true
	default:
		return false
	}
}

// transitions encodes the FSM edges as an adjacency set,
// used by CanTransition to reject invalid edges before they are applied.
var transitions = map[Status]map[Status]bool{
	Created:   {Submitted: true, Canceled: true},
	Submitted: {Accepted: true, Rejected: true, Canceled: true, Expired: true},
	Accepted:  {Partial: true, Completed: true, Canceled: true, Expired: true, Margin: true},
	Partial:   {Partial: true, Completed: true, Canceled: true, Expired: true},
}

// CanTransition reports whether moving from `from` to `to` is a legal edge
// of the order FSM.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Validity encodes the three kinds of order expiry.
type Validity struct {
	None    bool
	EndOfDay bool
	At      time.Time
}

// ExecutionBit records one fill against an order.
type ExecutionBit struct {
	Timestamp            time.Time
	Size                 float64
	Price                float64
	Closed               float64
	Opened               float64
	ClosedValue          float64
	ClosedComm           float64
	OpenedValue          float64
	OpenedComm           float64
	PnL                  float64
	PositionSizeAfter    float64
	PositionAvgPriceAfter float64
}

// Order is the engine's order value object: identity, routing, execution
// parameters, bracket/OCO linkage, and accumulated fills.
type Order struct {
	Ref         string
	OwnerRef    string
	FeedIndex   int
	Side        Side
	Size        float64
	Price       float64
	PriceLimit  float64
	ExecType    ExecType
	Valid       Validity
	TradeID     int
	ParentRef   string
	Transmit    bool
	OCOGroupRef string

	TrailingAmount  float64
	TrailingPercent float64
	trailStop       float64 // unused: the broker keeps the current trailing stop in Price

	Status    Status
	Created_  time.Time
	Executions []ExecutionBit

	remaining float64
}

// NewOrder constructs a Created order with a fresh Ref.
func NewOrder(ownerRef string, feedIndex int, side Side, size float64, execType ExecType) *Order {
	return &Order{
		Ref:       uuid.New().String(),
		OwnerRef:  ownerRef,
		FeedIndex: feedIndex,
		Side:      side,
		Size:      size,
		ExecType:  execType,
		Status:    Created,
		Created_:  time.Now().UTC(),
		remaining: size,
		Transmit:  true,
	}
}

// Remaining returns the unfilled size; never negative.
func (o *Order) Remaining() float64 {
	if o.remaining < 0 {
		return 0
	}
	return o.remaining
}

// Transition moves the order to `to`, returning an error if the edge is
// illegal per the FSM or the order is already terminal (a Completed or
// terminal order is immutable).
func (o *Order) Transition(to Status) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %s: cannot transition terminal status %s to %s", o.Ref, o.Status, to)
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("order %s: illegal transition %s -> %s", o.Ref, o.Status, to)
	}
	o.Status = to
	return nil
}

// Fill records one execution bit and advances Status to Partial or
// Completed depending on whether size is fully consumed. size must be
// <= Remaining().
func (o *Order) Fill(bit ExecutionBit) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %s: fill on terminal status %s", o.Ref, o.Status)
	}
	if bit.Size > o.Remaining()+1e-9 {
		return fmt.Errorf("order %s: fill size %.8f exceeds remaining %.8f", o.Ref, bit.Size, o.Remaining())
	}
	o.Executions = append(o.Executions, bit)
	o.remaining -= bit.Size
	if o.remaining <= 1e-9 {
		return o.Transition(Completed)
	}
	return o.Transition(Partial)
}

// IsBracketChild reports whether this order was created as part of a
// bracket group (parent/stop/limit).
func (o *Order) IsBracketChild() bool { return o.ParentRef != "" }
