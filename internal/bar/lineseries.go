package bar

// Standard OHLCV line aliases, used both as map keys for extra lines and as
// the canonical order feeds publish their lines in.
const (
	LineDateTime      = "datetime"
	LineOpen          = "open"
	LineHigh          = "high"
	LineLow           = "low"
	LineClose         = "close"
	LineVolume        = "volume"
	LineOpenInterest  = "openinterest"
)

// OHLCVLines is the canonical set every data feed publishes.
var OHLCVLines = []string{LineDateTime, LineOpen, LineHigh, LineLow, LineClose, LineVolume, LineOpenInterest}

// Bar is a single OHLCV record plus any named extra numeric fields a feed
// chooses to carry. Timestamp is a day-numbered float with subsecond
// resolution.
type Bar struct {
	Timestamp    float64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
	Extra        map[string]float64
}

// LineSeries is an ordered set of named LineBuffers that share one logical
// current index — the column store behind a Bar-producing feed or
// indicator.
type LineSeries struct {
	order []string
	lines map[string]*LineBuffer
}

// NewLineSeries builds a LineSeries pre-populated with the OHLCV lines.
func NewLineSeries(mode ExactBarsMode, minPeriod int) *LineSeries {
	ls := &LineSeries{lines: make(map[string]*LineBuffer)}
	for _, name := range OHLCVLines {
		ls.AddLine(name, mode.NewLine(minPeriod))
	}
	return ls
}

// AddLine registers a named line, preserving insertion order for iteration.
func (ls *LineSeries) AddLine(name string, lb *LineBuffer) {
	if _, ok := ls.lines[name]; !ok {
		ls.order = append(ls.order, name)
	}
	ls.lines[name] = lb
}

// Line looks up a line by alias; returns nil if undeclared.
func (ls *LineSeries) Line(name string) *LineBuffer { return ls.lines[name] }

// Names returns line aliases in declaration order.
func (ls *LineSeries) Names() []string { return ls.order }

// Len returns the length of the clock line (datetime), which all lines in a
// LineSeries share.
func (ls *LineSeries) Len() int {
	if dt := ls.Line(LineDateTime); dt != nil {
		return dt.Len()
	}
	return 0
}

// PushBar appends one Bar's fields onto the OHLCV lines (and any declared
// extra lines present in Bar.Extra), advancing the shared current index.
func (ls *LineSeries) PushBar(b Bar) {
	ls.Line(LineDateTime).Forward(b.Timestamp)
	ls.Line(LineOpen).Forward(b.Open)
	ls.Line(LineHigh).Forward(b.High)
	ls.Line(LineLow).Forward(b.Low)
	ls.Line(LineClose).Forward(b.Close)
	ls.Line(LineVolume).Forward(b.Volume)
	ls.Line(LineOpenInterest).Forward(b.OpenInterest)
	for name, v := range b.Extra {
		lb := ls.Line(name)
		if lb == nil {
			lb = NewLineBuffer()
			lb.SetMinPeriod(1)
			ls.AddLine(name, lb)
		}
		lb.Forward(v)
	}
}

// Backwards retracts every line's current index by one step, passing force
// through to each line's Backwards.
func (ls *LineSeries) Backwards(force bool) {
	for _, name := range ls.order {
		ls.lines[name].Backwards(force)
	}
}

// At returns the Bar implied by the OHLCV lines at offset (0 = current bar).
func (ls *LineSeries) At(offset int) Bar {
	return Bar{
		Timestamp: ls.Line(LineDateTime).Get(offset),
		Open:      ls.Line(LineOpen).Get(offset),
		High:      ls.Line(LineHigh).Get(offset),
		Low:       ls.Line(LineLow).Get(offset),
		Close:     ls.Line(LineClose).Get(offset),
		Volume:    ls.Line(LineVolume).Get(offset),
		OpenInterest: ls.Line(LineOpenInterest).Get(offset),
	}
}
