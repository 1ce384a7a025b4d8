// Package backtest loads historical OHLCV data and drives internal/engine
// over it.
package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chidi150c/backtest/internal/bar"
)

// LoadCSV reads a generic OHLCV CSV with headers time|timestamp, open,
// high, low, close, volume (case-insensitive, extra columns ignored) and
// returns bars sorted ascending by time.
func LoadCSV(path string) ([]bar.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []bar.Bar
	var headers []string
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := firstNonEmpty(row, "time", "timestamp")
		op := firstNonEmpty(row, "open")
		cp := firstNonEmpty(row, "close")
		if ts == "" || op == "" || cp == "" {
			continue
		}
		tt, err := parseTimeFlexible(ts)
		if err != nil {
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(firstNonEmpty(row, "high"), 64)
		l, _ := strconv.ParseFloat(firstNonEmpty(row, "low"), 64)
		c, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(firstNonEmpty(row, "volume", "vol"), 64)
		out = append(out, bar.Bar{Timestamp: toDayFloat(tt), Open: o, High: h, Low: l, Close: c, Volume: v})
		rowIdx++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// parseTimeFlexible accepts RFC3339 or UNIX seconds.
func parseTimeFlexible(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("bad time: %s", s)
}

// toDayFloat converts a wall-clock time to the engine's day-numbered
// timestamp (the inverse of internal/resample's toTime).
func toDayFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Hour*24)
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := m[k]; v != "" {
			return v
		}
	}
	return ""
}

// Split divides bars into a training and testing slice at fraction (e.g.
// 0.7 for a 70/30 walk-forward split), falling back to an even split if
// the requested training slice would be too small to prime indicators.
func Split(bars []bar.Bar, fraction float64, minTrain int) (train, test []bar.Bar) {
	n := int(fraction * float64(len(bars)))
	if n < minTrain {
		n = len(bars) / 2
	}
	return bars[:n], bars[n:]
}
