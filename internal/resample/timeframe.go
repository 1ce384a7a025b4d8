// Package resample implements timeframe aggregation (resampling) and
// intrabar replay over a feed's bars.
package resample

import "strconv"

// Timeframe is the period one output bar represents; Compression multiplies
// it (e.g. 5-minute == Minutes x 5), per the GLOSSARY.
type Timeframe int

const (
	Ticks Timeframe = iota
	Seconds
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
)

// secondsPerDay and friends let sub-day boundary arithmetic work in plain
// integer seconds-of-day rather than floating time.Time math, matching
// a "map each timestamp to an integer point" approach.
const secondsPerDay = 86400

// pointOfDay maps a day-numbered float timestamp to an integer count of
// subunits since midnight, at the resolution `unit` seconds.
func pointOfDay(ts float64, unitSeconds float64) int64 {
	fracDay := ts - float64(int64(ts))
	secs := fracDay * secondsPerDay
	return int64(secs / unitSeconds)
}

// unitSeconds returns how many seconds one unit of tf represents, for
// sub-day timeframes only (Days and above use calendar arithmetic instead).
func unitSeconds(tf Timeframe) float64 {
	switch tf {
	case Seconds:
		return 1
	case Minutes:
		return 60
	case Hours:
		return 3600
	default:
		return 0
	}
}

// String names the unit a Timeframe counts in, matching the GLOSSARY's
// vocabulary ("5-minute == Minutes x 5").
func (tf Timeframe) String() string {
	switch tf {
	case Ticks:
		return "Ticks"
	case Seconds:
		return "Seconds"
	case Minutes:
		return "Minutes"
	case Hours:
		return "Hours"
	case Days:
		return "Days"
	case Weeks:
		return "Weeks"
	case Months:
		return "Months"
	case Years:
		return "Years"
	default:
		return "Unknown"
	}
}

// Label formats a compression/timeframe pair the way metrics and logs
// identify a resampled cadence, e.g. "5Minutes".
func Label(compression int, tf Timeframe) string {
	return strconv.Itoa(compression) + tf.String()
}

// CrossesSubDayBoundary reports whether moving from ts to tsNext crosses a
// compression-sized boundary of tf, for Seconds/Minutes/Hours timeframes.
func CrossesSubDayBoundary(tf Timeframe, compression int, ts, tsNext float64) bool {
	u := unitSeconds(tf)
	if u == 0 || compression < 1 {
		return false
	}
	p0 := pointOfDay(ts, u) / int64(compression)
	p1 := pointOfDay(tsNext, u) / int64(compression)
	dayChanged := int64(tsNext) != int64(ts)
	return p1 != p0 || dayChanged
}
