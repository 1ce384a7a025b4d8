// Package bar implements the columnar line-buffer storage the rest of the
// engine builds on: a single named series of floats with a movable current
// index, plus the OHLCV LineSeries that groups the lines a feed produces.
package bar

import "math"

// StorageMode selects how a LineBuffer keeps its history.
type StorageMode int

const (
	// ModeFull keeps every value ever appended (vector/preload mode).
	ModeFull StorageMode = iota
	// ModeRing keeps only the last N values, wrapping around a fixed window.
	ModeRing
)

// LineBuffer is an append-only sequence of floats paired with a current-index
// pointer. Index 0 of Get/Set is the current bar; negative offsets look back.
type LineBuffer struct {
	mode      StorageMode
	full      []float64
	ring      []float64
	ringSize  int
	idx       int // current index into the logical (unbounded) sequence
	length    int // number of values ever appended
	minPeriod int
}

// NewLineBuffer creates a full-history buffer.
func NewLineBuffer() *LineBuffer {
	return &LineBuffer{mode: ModeFull, idx: -1, minPeriod: 1}
}

// NewRingLineBuffer creates a memory-saving buffer that only ever retains the
// last size values. size must be >= minPeriod for MinPeriod() reads to stay
// valid; callers are responsible for sizing it that way.
func NewRingLineBuffer(size int) *LineBuffer {
	if size < 1 {
		size = 1
	}
	return &LineBuffer{mode: ModeRing, ring: make([]float64, size), ringSize: size, idx: -1, minPeriod: 1}
}

// SetMinPeriod declares this line's own minimum period (>= 1).
func (l *LineBuffer) SetMinPeriod(n int) {
	if n < 1 {
		n = 1
	}
	l.minPeriod = n
}

// MinPeriod returns this line's declared minimum period.
func (l *LineBuffer) MinPeriod() int { return l.minPeriod }

// Len returns the number of values appended so far (buffer length).
func (l *LineBuffer) Len() int { return l.length }

// Buflen is an alias for Len kept for parity with the source system's naming.
func (l *LineBuffer) Buflen() int { return l.Len() }

// Idx returns the current logical index (−1 before the first forward()).
func (l *LineBuffer) Idx() int { return l.idx }

// Append adds v as a new value and advances the current index to it.
// It is equivalent to Forward(v).
func (l *LineBuffer) Append(v float64) { l.Forward(v) }

// Forward advances the index by one, writing v as the new current value,
// growing the sequence.
func (l *LineBuffer) Forward(v float64) {
	l.idx++
	l.length++
	switch l.mode {
	case ModeFull:
		l.full = append(l.full, v)
	case ModeRing:
		if len(l.ring) < l.ringSize {
			l.ring = append(l.ring, v)
		} else {
			l.ring[l.idx%l.ringSize] = v
		}
	}
}

// Backwards retracts the current index by one step. With force it also
// discards the stored value at the old index (dropped from the slice, or
// set to NaN once a ring buffer has wrapped), undoing a speculative
// forward.
func (l *LineBuffer) Backwards(force bool) {
	if l.idx < 0 {
		return
	}
	if force {
		switch l.mode {
		case ModeFull:
			if len(l.full) > 0 {
				l.full = l.full[:len(l.full)-1]
			}
		case ModeRing:
			if len(l.ring) < l.ringSize {
				if len(l.ring) > 0 {
					l.ring = l.ring[:len(l.ring)-1]
				}
			} else {
				l.ring[l.idx%l.ringSize] = math.NaN()
			}
		}
		l.length--
	}
	l.idx--
}

// Home seeks the current index back to the start of the buffer.
func (l *LineBuffer) Home() { l.idx = -1 }

// Advance moves the current index forward by n without appending new values;
// used in vector mode after the backing array has been preallocated.
func (l *LineBuffer) Advance(n int) { l.idx += n }

// Get reads the value at offset relative to the current index. Get(0) is the
// current bar, Get(-1) the prior bar. Offsets beyond the current index, or
// before the start of a ring window, yield NaN.
func (l *LineBuffer) Get(offset int) float64 {
	target := l.idx + offset
	if target < 0 || target > l.idx {
		return math.NaN()
	}
	switch l.mode {
	case ModeFull:
		if target >= len(l.full) {
			return math.NaN()
		}
		return l.full[target]
	case ModeRing:
		if l.idx-target >= len(l.ring) {
			return math.NaN()
		}
		pos := target % l.ringSize
		if pos < 0 {
			pos += l.ringSize
		}
		if pos >= len(l.ring) {
			return math.NaN()
		}
		return l.ring[pos]
	}
	return math.NaN()
}

// Set overwrites the value at offset relative to the current index.
func (l *LineBuffer) Set(offset int, v float64) {
	target := l.idx + offset
	if target < 0 || target > l.idx {
		return
	}
	switch l.mode {
	case ModeFull:
		if target < len(l.full) {
			l.full[target] = v
		}
	case ModeRing:
		if l.idx-target < len(l.ring) {
			pos := target % l.ringSize
			if pos < 0 {
				pos += l.ringSize
			}
			if pos < len(l.ring) {
				l.ring[pos] = v
			}
		}
	}
}

// PreallocateFull grows a full-mode buffer to n slots of NaN ahead of a
// vector-mode (_once) pass, leaving the index untouched until Advance is
// called by the caller.
func (l *LineBuffer) PreallocateFull(n int) {
	l.mode = ModeFull
	l.full = make([]float64, n)
	for i := range l.full {
		l.full[i] = math.NaN()
	}
	l.length = n
	l.idx = -1
}

// Bound returns a writer that forwards each value onto both src and dst,
// so values written through it appear on both lines at the same relative
// offset. Direct Forward or Set calls on src are not mirrored onto dst.
func Bound(src, dst *LineBuffer) func(v float64) {
	return func(v float64) {
		src.Forward(v)
		dst.Forward(v)
	}
}
