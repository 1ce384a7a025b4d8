package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_FSMHappyPath(t *testing.T) {
	o := NewOrder("strat-1", 0, SideBuy, 10, Market)
	require.Equal(t, Created, o.Status)
	require.NoError(t, o.Transition(Submitted))
	require.NoError(t, o.Transition(Accepted))
	require.NoError(t, o.Fill(ExecutionBit{Size: 10, Price: 100.5}))
	assert.Equal(t, Completed, o.Status)
	assert.Equal(t, 0.0, o.Remaining())
}

func TestOrder_PartialFillSequence(t *testing.T) {
	o := NewOrder("strat-1", 0, SideBuy, 10, Limit)
	require.NoError(t, o.Transition(Submitted))
	require.NoError(t, o.Transition(Accepted))
	require.NoError(t, o.Fill(ExecutionBit{Size: 4, Price: 100}))
	assert.Equal(t, Partial, o.Status)
	assert.InDelta(t, 6.0, o.Remaining(), 1e-9)
	require.NoError(t, o.Fill(ExecutionBit{Size: 6, Price: 101}))
	assert.Equal(t, Completed, o.Status)
}

func TestOrder_IllegalTransitionRejected(t *testing.T) {
	o := NewOrder("s", 0, SideBuy, 1, Market)
	err := o.Transition(Completed)
	assert.Error(t, err)
}

func TestOrder_TerminalIsImmutable(t *testing.T) {
	o := NewOrder("s", 0, SideBuy, 1, Market)
	require.NoError(t, o.Transition(Submitted))
	require.NoError(t, o.Transition(Accepted))
	require.NoError(t, o.Transition(Canceled))
	assert.Error(t, o.Transition(Accepted))
	assert.Error(t, o.Fill(ExecutionBit{Size: 1, Price: 1}))
}

func TestOrder_FillExceedingRemainingRejected(t *testing.T) {
	o := NewOrder("s", 0, SideBuy, 5, Market)
	require.NoError(t, o.Transition(Submitted))
	require.NoError(t, o.Transition(Accepted))
	err := o.Fill(ExecutionBit{Size: 6, Price: 1})
	assert.Error(t, err)
}

func TestCanTransition_TableDriven(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{Created, Submitted, true},
		{Created, Completed, false},
		{Submitted, Accepted, true},
		{Submitted, Rejected, true},
		{Accepted, Margin, true},
		{Accepted, Created, false},
		{Partial, Completed, true},
		{Completed, Canceled, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%v -> %v", c.from, c.to)
	}
}

func TestBracket_StopFillCancelsLimit(t *testing.T) {
	parent := NewOrder("s", 0, SideBuy, 10, Limit)
	stop := NewOrder("s", 0, SideSell, 10, Stop)
	limit := NewOrder("s", 0, SideSell, 10, Limit)
	b := NewBracket(parent, stop, limit)
	assert.False(t, stop.Transmit)
	assert.False(t, limit.Transmit)

	require.NoError(t, parent.Transition(Submitted))
	require.NoError(t, parent.Transition(Accepted))
	require.NoError(t, parent.Fill(ExecutionBit{Size: 10, Price: 99.5}))
	b.OnParentFilled()
	require.True(t, b.Active())

	require.NoError(t, stop.Transition(Submitted))
	require.NoError(t, stop.Transition(Accepted))
	require.NoError(t, limit.Transition(Submitted))
	require.NoError(t, limit.Transition(Accepted))

	require.NoError(t, stop.Fill(ExecutionBit{Size: 10, Price: 98}))
	toCancel, ok := b.OnChildFilled(stop)
	require.True(t, ok)
	assert.Equal(t, limit, toCancel)
	require.NoError(t, toCancel.Transition(Canceled))

	assert.Equal(t, Completed, stop.Status)
	assert.Equal(t, Canceled, limit.Status)
}

func TestBracket_ParentCanceledCancelsBothChildren(t *testing.T) {
	parent := NewOrder("s", 0, SideBuy, 10, Limit)
	stop := NewOrder("s", 0, SideSell, 10, Stop)
	limit := NewOrder("s", 0, SideSell, 10, Limit)
	b := NewBracket(parent, stop, limit)
	require.NoError(t, parent.Transition(Submitted))
	require.NoError(t, parent.Transition(Canceled))
	toCancel := b.OnParentTerminated()
	assert.Len(t, toCancel, 2)
}

func TestPosition_OpenExtendAndClose(t *testing.T) {
	p := &Position{}
	_, avg, opened, closed, pnl := p.Update(10, 100)
	assert.Equal(t, 10.0, opened)
	assert.Equal(t, 0.0, closed)
	assert.InDelta(t, 100.0, avg, 1e-9)
	assert.Equal(t, 0.0, pnl)

	// extend: average should blend
	_, avg, opened, closed, _ = p.Update(10, 110)
	assert.Equal(t, 10.0, opened)
	assert.Equal(t, 0.0, closed)
	assert.InDelta(t, 105.0, avg, 1e-9)

	// partial close: realized pnl on closed portion only
	size, avg, opened, closed, pnl := p.Update(-5, 120)
	assert.Equal(t, -5.0, closed)
	assert.Equal(t, 0.0, opened)
	assert.InDelta(t, 105.0, avg, 1e-9) // avg unchanged on close
	assert.InDelta(t, 75.0, pnl, 1e-9)  // 5 * (120-105)
	assert.InDelta(t, 15.0, size, 1e-9)
}

func TestPosition_FlipSign(t *testing.T) {
	p := &Position{Size: 10, AvgPrice: 100}
	size, avg, opened, closed, pnl := p.Update(-15, 90)
	assert.InDelta(t, -5.0, size, 1e-9)
	assert.InDelta(t, -10.0, closed, 1e-9)
	assert.InDelta(t, -5.0, opened, 1e-9)
	assert.InDelta(t, -100.0, pnl, 1e-9) // 10 * (90-100)
	assert.InDelta(t, 90.0, avg, 1e-9)   // new leg starts at fill price
}

func TestTrade_OpensUpdatesAndCloses(t *testing.T) {
	tr := NewTrade(0, 1)
	p := &Position{}
	now := time.Now()

	_, avg, _, _, pnl := p.Update(10, 100)
	tr.Apply(now, 10, 100, 0.1, pnl, p.Size, avg)
	assert.True(t, tr.Open)

	_, avg, _, _, pnl = p.Update(-10, 110)
	tr.Apply(now.Add(time.Minute), 10, 110, 0.1, pnl, p.Size, avg)
	assert.False(t, tr.Open)
	assert.InDelta(t, 100.0, tr.RealizedPnL, 1e-9)
	assert.InDelta(t, 0.2, tr.Commission, 1e-9)
	assert.Len(t, tr.History, 2)
}

func TestCommissionInfo_PercentageAndFixed(t *testing.T) {
	c := DefaultCommissionInfo()
	c.Percentage = true
	c.Commission = 0.01
	assert.InDelta(t, 1.0, c.CommissionRate(10, 10), 1e-9)

	fixed := DefaultCommissionInfo()
	fixed.Commission = 0.5
	assert.InDelta(t, 5.0, fixed.CommissionRate(10, 10), 1e-9)
}

func TestCommissionInfo_GetSize(t *testing.T) {
	c := DefaultCommissionInfo()
	assert.InDelta(t, 10.0, c.GetSize(10, 100), 1e-9)

	levered := DefaultCommissionInfo()
	levered.AutoMargin = true
	levered.Leverage = 4
	assert.InDelta(t, 40.0, levered.GetSize(10, 100), 1e-9)
}
