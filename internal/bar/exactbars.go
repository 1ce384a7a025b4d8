package bar

// ExactBarsMode mirrors the source system's exactbars memory-saving scheme.
// Each value trades preload/plotting ability for memory.
type ExactBarsMode int

const (
	// ExactBarsFullPlot preloads everything and keeps full-history lines;
	// disables nothing. Used when memory is not a concern.
	ExactBarsFullPlot ExactBarsMode = -2
	// ExactBarsFullNoPlot preloads everything but stores indicator lines in
	// ring buffers sized to their min-period; disables plotting of
	// indicator history (only the live window is retained).
	ExactBarsFullNoPlot ExactBarsMode = -1
	// ExactBarsOff disables preload and keeps full-history lines; the
	// default, slowest but fully introspectable mode.
	ExactBarsOff ExactBarsMode = 0
	// ExactBarsMemorySaving disables preload and plotting and keeps only
	// ring buffers sized to each line's min-period; this is the only mode
	// suitable for very long runs with many indicators.
	ExactBarsMemorySaving ExactBarsMode = 1
)

// DisablesPreload reports whether this mode forbids preloading feeds fully
// into memory before the loop starts.
func (m ExactBarsMode) DisablesPreload() bool {
	return m == ExactBarsOff || m == ExactBarsMemorySaving
}

// DisablesPlotting reports whether this mode makes indicator/observer
// history unavailable for plotting after the run (ring buffers only).
func (m ExactBarsMode) DisablesPlotting() bool {
	return m == ExactBarsFullNoPlot || m == ExactBarsMemorySaving
}

// UsesRingBuffers reports whether lines under this mode should be allocated
// as ring buffers (sized to min-period) instead of full-history vectors.
func (m ExactBarsMode) UsesRingBuffers() bool {
	return m == ExactBarsFullNoPlot || m == ExactBarsMemorySaving
}

// NewLine allocates a LineBuffer appropriate for this mode given a line's
// declared minimum period.
func (m ExactBarsMode) NewLine(minPeriod int) *LineBuffer {
	lb := (*LineBuffer)(nil)
	if m.UsesRingBuffers() {
		size := minPeriod
		if size < 1 {
			size = 1
		}
		lb = NewRingLineBuffer(size)
	} else {
		lb = NewLineBuffer()
	}
	lb.SetMinPeriod(minPeriod)
	return lb
}
