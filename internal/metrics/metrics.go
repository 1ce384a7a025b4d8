// Package metrics exposes Prometheus instrumentation for the engine,
// registered once in init(), with small helper setters used by the rest of
// the module so call sites never touch the prometheus API directly.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	equity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backtest_equity_usd",
		Help: "Current mark-to-market equity of the running backtest.",
	})

	fills = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_fills_total",
		Help: "Fills applied by the simulated broker, by order side.",
	}, []string{"side"})

	orderStatus = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_order_status_total",
		Help: "Order status transitions observed by the broker.",
	}, []string{"status"})

	resampleBoundaries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_resample_boundaries_total",
		Help: "Timeframe boundary crossings handled by the resampler.",
	}, []string{"timeframe"})

	barsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backtest_bars_processed_total",
		Help: "Bars consumed by the engine loop across all feeds.",
	})
)

func init() {
	prometheus.MustRegister(equity, fills, orderStatus, resampleBoundaries, barsProcessed)
}

// SetEquity updates the equity gauge.
func SetEquity(v float64) { equity.Set(v) }

// IncFill increments the fill counter for side ("BUY"/"SELL").
func IncFill(side string) { fills.WithLabelValues(side).Inc() }

// IncOrderStatus increments the order-status counter for status.
func IncOrderStatus(status string) { orderStatus.WithLabelValues(status).Inc() }

// IncResampleBoundary increments the boundary-crossing counter for a
// resampled timeframe label (e.g. "5Minutes").
func IncResampleBoundary(timeframe string) { resampleBoundaries.WithLabelValues(timeframe).Inc() }

// IncBarsProcessed increments the total bars-processed counter.
func IncBarsProcessed() { barsProcessed.Inc() }
