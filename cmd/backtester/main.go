// Command backtester runs an event-driven backtest over a CSV of OHLCV
// bars, grounded on NimbleMarkets-dbn-go/cmd/dbn-go-hist's
// cobra.Command-per-subcommand CLI shape.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chidi150c/backtest/internal/backtest"
	"github.com/chidi150c/backtest/internal/bar"
	"github.com/chidi150c/backtest/internal/config"
	"github.com/chidi150c/backtest/internal/resample"
	"github.com/chidi150c/backtest/internal/store"
	"github.com/chidi150c/backtest/internal/strategy"
	"github.com/chidi150c/backtest/internal/xlog"
)

var (
	csvPath     string
	startCash   float64
	fastPeriod  int
	slowPeriod  int
	dbPath      string
	metricsAddr string

	resampleTF      string
	resampleComp    int
	resampleBarEdge bool
)

// serveMetrics starts the /healthz and /metrics endpoints in the
// background, following the usual health/metrics-endpoint boot step. It
// returns a shutdown func the caller defers once the run completes.
func serveMetrics(addr string, log *xlog.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infof("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "backtester runs an event-driven strategy backtest over historical bars.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reference moving-average crossover strategy over a CSV of bars.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		log := xlog.New("backtester")
		shutdown := serveMetrics(metricsAddr, log)
		defer shutdown()

		bars, err := backtest.LoadCSV(csvPath)
		if err != nil {
			return fmt.Errorf("load csv: %w", err)
		}

		var st *store.Store
		if dbPath != "" {
			st, err = store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()
		}

		r := &backtest.Runner{
			Cfg:       config.New(config.WithStartCash(startCash)),
			Bars:      bars,
			FeedName:  csvPath,
			NewBroker: backtest.DefaultBrokerFactory,
			NewStrategy: func(feed *bar.LineSeries) strategy.Strategy {
				return strategy.NewMACrossover(0, feed, bar.ExactBarsOff, fastPeriod, slowPeriod, strategy.FixedFractionSizer{Fraction: 0.25})
			},
			Store: st,
			Log:   log,
		}
		res, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("run=%s bars=%d end_cash=%.2f end_value=%.2f\n", res.RunID, res.BarCount, res.EndCash, res.EndValue)
		return nil
	},
}

var resamplePreviewCmd = &cobra.Command{
	Use:   "resample-preview",
	Short: "Preview how a CSV of bars resamples into a coarser timeframe without running a strategy.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bars, err := backtest.LoadCSV(csvPath)
		if err != nil {
			return fmt.Errorf("load csv: %w", err)
		}
		tf, err := parseTimeframe(resampleTF)
		if err != nil {
			return err
		}
		rs := resample.New(resample.Params{Timeframe: tf, Compression: resampleComp, Bar2Edge: resampleBarEdge})
		count := 0
		for _, b := range bars {
			if out, ok := rs.Feed(b, false); ok {
				printBar(out)
				count++
			}
		}
		if out, ok := rs.Flush(); ok {
			printBar(out)
			count++
		}
		fmt.Fprintf(os.Stderr, "emitted %d bars\n", count)
		return nil
	},
}

func printBar(b bar.Bar) {
	fmt.Printf("%.6f,%.4f,%.4f,%.4f,%.4f,%.2f\n", b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
}

func parseTimeframe(s string) (resample.Timeframe, error) {
	switch s {
	case "seconds":
		return resample.Seconds, nil
	case "minutes":
		return resample.Minutes, nil
	case "hours":
		return resample.Hours, nil
	case "days":
		return resample.Days, nil
	case "weeks":
		return resample.Weeks, nil
	case "months":
		return resample.Months, nil
	case "years":
		return resample.Years, nil
	default:
		return 0, fmt.Errorf("unknown timeframe %q", s)
	}
}

func init() {
	runCmd.Flags().StringVar(&csvPath, "csv", "", "path to a CSV of OHLCV bars")
	runCmd.Flags().Float64Var(&startCash, "cash", 10000, "starting cash")
	runCmd.Flags().IntVar(&fastPeriod, "fast", 10, "fast SMA period")
	runCmd.Flags().IntVar(&slowPeriod, "slow", 30, "slow SMA period")
	runCmd.Flags().StringVar(&dbPath, "db", "", "optional SQLite path to persist trades and run summary")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "optional address (e.g. :9090) to serve /healthz and /metrics while running")
	_ = runCmd.MarkFlagRequired("csv")

	resamplePreviewCmd.Flags().StringVar(&csvPath, "csv", "", "path to a CSV of OHLCV bars")
	resamplePreviewCmd.Flags().StringVar(&resampleTF, "timeframe", "minutes", "seconds|minutes|hours|days|weeks|months|years")
	resamplePreviewCmd.Flags().IntVar(&resampleComp, "compression", 5, "number of timeframe units per output bar")
	resamplePreviewCmd.Flags().BoolVar(&resampleBarEdge, "bar2edge", true, "align output bars to calendar boundaries")
	_ = resamplePreviewCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(runCmd, resamplePreviewCmd)
}
