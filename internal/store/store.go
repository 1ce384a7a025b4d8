// Package store is the optional persistence sink for completed trades and
// end-of-run summaries. Grounded on Eve-flipper's internal/db/db.go:
// modernc.org/sqlite (pure Go, no cgo toolchain needed), a DSN with WAL +
// busy_timeout pragmas, and a migrate() run at Open that creates any
// missing tables (CREATE TABLE IF NOT EXISTS); schema_version is not
// read or written.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chidi150c/backtest/internal/order"

	_ "modernc.org/sqlite"
)

// Store persists trade history and run summaries to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and runs
// migrations. path may be ":memory:" for ephemeral runs/tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

		CREATE TABLE IF NOT EXISTS trades (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			feed_index    INTEGER NOT NULL,
			trade_id      INTEGER NOT NULL,
			opened_at     TEXT,
			closed_at     TEXT,
			size          REAL NOT NULL,
			avg_price     REAL NOT NULL,
			commission    REAL NOT NULL,
			realized_pnl  REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);

		CREATE TABLE IF NOT EXISTS run_summaries (
			run_id        TEXT PRIMARY KEY,
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL,
			start_cash    REAL NOT NULL,
			end_value     REAL NOT NULL,
			trade_count   INTEGER NOT NULL,
			win_count     INTEGER NOT NULL,
			loss_count    INTEGER NOT NULL
		);
	`)
	return err
}

// SaveTrade inserts one completed (or still-open) trade row under runID.
func (s *Store) SaveTrade(runID string, t *order.Trade) error {
	var openedAt, closedAt interface{}
	if !t.OpenedAt.IsZero() {
		openedAt = t.OpenedAt.Format(time.RFC3339)
	}
	if !t.ClosedAt.IsZero() {
		closedAt = t.ClosedAt.Format(time.RFC3339)
	}
	_, err := s.db.Exec(
		`INSERT INTO trades (run_id, feed_index, trade_id, opened_at, closed_at, size, avg_price, commission, realized_pnl)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, t.FeedIndex, t.TradeID, openedAt, closedAt, t.Size, t.AvgPrice, t.Commission, t.RealizedPnL,
	)
	return err
}

// RunSummary is the aggregate record written once per backtest run.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	StartCash  float64
	EndValue   float64
	TradeCount int
	WinCount   int
	LossCount  int
}

// SaveRunSummary upserts the one-row-per-run summary.
func (s *Store) SaveRunSummary(rs RunSummary) error {
	_, err := s.db.Exec(
		`INSERT INTO run_summaries (run_id, started_at, finished_at, start_cash, end_value, trade_count, win_count, loss_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			finished_at=excluded.finished_at, end_value=excluded.end_value,
			trade_count=excluded.trade_count, win_count=excluded.win_count, loss_count=excluded.loss_count`,
		rs.RunID, rs.StartedAt.Format(time.RFC3339), rs.FinishedAt.Format(time.RFC3339),
		rs.StartCash, rs.EndValue, rs.TradeCount, rs.WinCount, rs.LossCount,
	)
	return err
}
