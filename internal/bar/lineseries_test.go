package bar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSeries_PushBarAndAt(t *testing.T) {
	ls := NewLineSeries(ExactBarsOff, 1)
	ls.PushBar(Bar{Timestamp: 1, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100})
	ls.PushBar(Bar{Timestamp: 2, Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 120})

	require.Equal(t, 2, ls.Len())
	cur := ls.At(0)
	assert.Equal(t, 11.5, cur.Close)
	prev := ls.At(-1)
	assert.Equal(t, 10.5, prev.Close)
}

func TestLineSeries_ExtraLines(t *testing.T) {
	ls := NewLineSeries(ExactBarsOff, 1)
	ls.PushBar(Bar{Timestamp: 1, Close: 10, Extra: map[string]float64{"spread": 0.5}})
	spread := ls.Line("spread")
	require.NotNil(t, spread)
	assert.Equal(t, 0.5, spread.Get(0))
}

func TestLineSeries_Backwards(t *testing.T) {
	ls := NewLineSeries(ExactBarsOff, 1)
	ls.PushBar(Bar{Timestamp: 1, Close: 10})
	ls.PushBar(Bar{Timestamp: 2, Close: 11})
	ls.Backwards(true)
	assert.Equal(t, 1, ls.Len())
	assert.Equal(t, 10.0, ls.At(0).Close)
}
