// Package indicator implements the dataflow graph of LineIterators —
// indicators and observers computed lazily over a feed's lines — and the
// concrete indicator set used throughout the engine and strategies.
package indicator

import "github.com/chidi150c/backtest/internal/bar"

// Kind distinguishes the four LineIterator roles. Indicator and Observer
// nodes are built in this package; internal/engine builds the Strategy
// root node for each bound strategy. KindData is declared but no node is
// built with it.
type Kind int

const (
	KindData Kind = iota
	KindIndicator
	KindObserver
	KindStrategy
)

// Computer is implemented by every concrete indicator. It is called once
// per bar in event mode (via Iterator.NextEvent) after min-period
// bookkeeping, or in vector mode via Iterator.OnceRange.
type Computer interface {
	// Compute derives this bar's output value(s) from the current state of
	// the iterator's input lines and writes them onto its Output lines.
	Compute(it *Iterator)
	// OwnMinPeriod is this indicator's own lookback requirement, exclusive
	// of whatever its inputs/children already impose.
	OwnMinPeriod() int
	// RequiresEventMode reports whether this indicator cannot be safely
	// vectorized (e.g. it has path-dependent state). When true anywhere in
	// a run, the engine must globally disable vector mode.
	RequiresEventMode() bool
}

// Iterator is a node in the dataflow graph: it consumes Inputs (the first
// is its clock), runs its Children before itself each bar, and produces
// Output lines.
type Iterator struct {
	Kind     Kind
	Inputs   []*bar.LineSeries
	Children []*Iterator
	Output   *bar.LineSeries
	Computer Computer

	minPeriod int
	status    phase
}

type phase int

const (
	phasePrenext phase = iota
	phaseNextstart
	phaseNext
)

// Clock is the iterator's first input line series; Len(it) below mirrors
// the source system's len(self) == len(clock) contract.
func (it *Iterator) Clock() *bar.LineSeries {
	if len(it.Inputs) == 0 {
		return nil
	}
	return it.Inputs[0]
}

// Len returns the clock's current length.
func (it *Iterator) Len() int {
	if c := it.Clock(); c != nil {
		return c.Len()
	}
	return 0
}

// MinPeriod computes the effective minimum period: the max over all input
// lines' own min-periods, all children's min-periods, and this iterator's
// own declared requirement. Computed lazily and cached.
func (it *Iterator) MinPeriod() int {
	if it.minPeriod > 0 {
		return it.minPeriod
	}
	mp := 1
	if it.Computer != nil {
		if own := it.Computer.OwnMinPeriod(); own > mp {
			mp = own
		}
	}
	for _, in := range it.Inputs {
		for _, name := range in.Names() {
			if lb := in.Line(name); lb != nil && lb.MinPeriod() > mp {
				mp = lb.MinPeriod()
			}
		}
	}
	for _, ch := range it.Children {
		if cmp := ch.MinPeriod(); cmp > mp {
			mp = cmp
		}
	}
	it.minPeriod = mp
	return mp
}

// NextEvent drives one bar of event-mode evaluation: children first
// (depth-first), then dispatch to Prenext/Nextstart/Next based on clock
// length vs min-period.
func (it *Iterator) NextEvent() {
	for _, ch := range it.Children {
		ch.NextEvent()
	}
	clockLen := it.Len()
	mp := it.MinPeriod()
	switch {
	case clockLen < mp:
		it.status = phasePrenext
	case clockLen == mp:
		it.status = phaseNextstart
	default:
		it.status = phaseNext
	}
	if it.Computer != nil {
		it.Computer.Compute(it)
	}
}

// OnceRange drives vector-mode evaluation across the half-open index range
// [0, n): children first for the whole range, then this node for the whole
// range. The indices [0,minPeriod-1) are the "preonce" region, minPeriod-1
// is "oncestart", and [minPeriod, n) is "once" — callers needing to
// distinguish those phases should inspect Status() after seeking, but
// computers typically just re-derive from index position.
func (it *Iterator) OnceRange(n int) {
	for _, ch := range it.Children {
		ch.OnceRange(n)
	}
	if it.Computer == nil {
		return
	}
	for i := 0; i < n; i++ {
		mp := it.MinPeriod()
		switch {
		case i < mp-1:
			it.status = phasePrenext
		case i == mp-1:
			it.status = phaseNextstart
		default:
			it.status = phaseNext
		}
		it.Computer.Compute(it)
	}
}

// Status reports which of prenext/nextstart/next applied to the most
// recently computed bar.
func (it *Iterator) Status() string {
	switch it.status {
	case phasePrenext:
		return "prenext"
	case phaseNextstart:
		return "nextstart"
	default:
		return "next"
	}
}

// AnyRequiresEventMode walks the graph (self + children) and reports
// whether any node demands event-mode evaluation.
func (it *Iterator) AnyRequiresEventMode() bool {
	if it.Computer != nil && it.Computer.RequiresEventMode() {
		return true
	}
	for _, ch := range it.Children {
		if ch.AnyRequiresEventMode() {
			return true
		}
	}
	return false
}
