package order

// Bracket groups a parent (entry) order with its two protective children —
// a stop-side and a limit-side order — with OCO semantics between the
// children.
type Bracket struct {
	Parent *Order
	Stop   *Order
	Limit  *Order
	active bool // becomes true once Parent fills
}

// NewBracket wires three already-constructed orders into a group: the
// children get ParentRef set and Transmit=false until the limit order (the
// third, Transmit=true) materializes the group, matching the source
// system's "children inactive until the group transmits" convention.
func NewBracket(parent, stop, limit *Order) *Bracket {
	stop.ParentRef = parent.Ref
	limit.ParentRef = parent.Ref
	stop.OCOGroupRef = parent.Ref
	limit.OCOGroupRef = parent.Ref
	stop.Transmit = false
	limit.Transmit = false
	return &Bracket{Parent: parent, Stop: stop, Limit: limit}
}

// OnParentFilled activates both children once the parent order is
// Completed; the caller (broker) is responsible for then submitting them
// for matching.
func (b *Bracket) OnParentFilled() {
	b.active = true
}

// Active reports whether the children are live and competing.
func (b *Bracket) Active() bool { return b.active }

// OnChildFilled cancels the sibling once one child reaches Completed,
// enforcing the OCO invariant that at most one child ever completes.
func (b *Bracket) OnChildFilled(filled *Order) (toCancel *Order, ok bool) {
	if !b.active {
		return nil, false
	}
	switch {
	case filled == b.Stop && b.Limit.Status.Alive():
		return b.Limit, true
	case filled == b.Limit && b.Stop.Status.Alive():
		return b.Stop, true
	default:
		return nil, false
	}
}

// OnParentTerminated reports both children for cancellation when the
// parent is canceled or expires before filling.
func (b *Bracket) OnParentTerminated() []*Order {
	if b.active {
		return nil
	}
	out := []*Order{}
	if b.Stop.Status.Alive() {
		out = append(out, b.Stop)
	}
	if b.Limit.Status.Alive() {
		out = append(out, b.Limit)
	}
	return out
}
