package resample

import (
	"testing"

	"github.com/chidi150c/backtest/internal/bar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minuteBar builds a bar at day 0, minute `m`.
func minuteBar(m int, o, h, l, c, v float64) bar.Bar {
	ts := float64(m) / (24 * 60)
	return bar.Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

// Invariant 6 / Scenario D groundwork: resampling N contiguous 1-minute
// bars with compression=N, bar2edge=false reproduces OHLCV roll-up exactly.
func TestResampler_RollupInvariant(t *testing.T) {
	r := New(Params{Timeframe: Minutes, Compression: 5, Bar2Edge: false})
	bars := []bar.Bar{
		minuteBar(0, 10, 12, 9, 11, 100),
		minuteBar(1, 11, 13, 10, 12, 110),
		minuteBar(2, 12, 14, 11, 13, 90),
		minuteBar(3, 13, 13.5, 12, 12.5, 80),
		minuteBar(4, 12.5, 13, 12, 12.8, 70),
	}
	var out bar.Bar
	var emitted bool
	for _, b := range bars {
		out, emitted = r.Feed(b, false)
	}
	// 5th bar fills the compression count exactly; closing emits immediately.
	require.True(t, emitted)
	assert.Equal(t, 10.0, out.Open)
	assert.Equal(t, 14.0, out.High)
	assert.Equal(t, 9.0, out.Low)
	assert.Equal(t, 12.8, out.Close)
	assert.InDelta(t, 450.0, out.Volume, 1e-9)
}

func TestResampler_LateDataDroppedWithoutTakeLate(t *testing.T) {
	r := New(Params{Timeframe: Minutes, Compression: 1, TakeLate: false})
	r.Feed(minuteBar(5, 1, 1, 1, 1, 1), false)
	out, emitted := r.Feed(minuteBar(3, 2, 2, 2, 2, 2), false)
	assert.False(t, emitted)
	assert.Equal(t, bar.Bar{}, out)
}

func TestResampler_LateDataFoldedWithTakeLate(t *testing.T) {
	r := New(Params{Timeframe: Minutes, Compression: 5, TakeLate: true})
	r.Feed(minuteBar(0, 10, 11, 9, 10, 10), false)
	// a late bar (timestamp <= last) should fold into the aggregate with a
	// nudged timestamp rather than being dropped.
	_, emitted := r.Feed(minuteBar(0, 10, 15, 9, 10, 5), false)
	assert.False(t, emitted) // compression not reached yet
}

func TestResampler_FlushEmitsPartialAggregate(t *testing.T) {
	r := New(Params{Timeframe: Minutes, Compression: 5})
	r.Feed(minuteBar(0, 10, 11, 9, 10, 10), false)
	r.Feed(minuteBar(1, 10, 12, 9, 11, 10), false)
	out, ok := r.Flush()
	require.True(t, ok)
	assert.Equal(t, 10.0, out.Open)
	assert.Equal(t, 11.0, out.Close)
}

func TestReplayer_PartialThenClosedUpdates(t *testing.T) {
	rp := NewReplayer(Params{Timeframe: Minutes, Compression: 3})
	u1 := rp.Feed(minuteBar(0, 10, 11, 9, 10, 10), false)
	assert.False(t, u1.Closed)
	u2 := rp.Feed(minuteBar(1, 10, 12, 9, 11, 10), false)
	assert.False(t, u2.Closed)
	assert.Equal(t, 12.0, u2.Bar.High) // partial state reflects accumulation so far
	u3 := rp.Feed(minuteBar(2, 11, 13, 10, 12, 10), false)
	assert.True(t, u3.Closed)
}

func TestCrossesSubDayBoundary_MinuteCompression(t *testing.T) {
	// minute 4 -> 5 crosses a 5-minute boundary; 0->4 doesn't.
	assert.False(t, CrossesSubDayBoundary(Minutes, 5, minuteBar(0, 0, 0, 0, 0, 0).Timestamp, minuteBar(4, 0, 0, 0, 0, 0).Timestamp))
	assert.True(t, CrossesSubDayBoundary(Minutes, 5, minuteBar(4, 0, 0, 0, 0, 0).Timestamp, minuteBar(5, 0, 0, 0, 0, 0).Timestamp))
}
