// Package store provides SQLite-backed persistence for backtest runs and their trades.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jackrehmann/fade-scalps/internal/backtest"
	"github.com/jackrehmann/fade-scalps/internal/signal"
)

// Store wraps a SQLite database holding run summaries and trades.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = filepath.Join("trades", "runs.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                  TEXT PRIMARY KEY,
			symbol              TEXT NOT NULL,
			start_ts            INTEGER NOT NULL,
			end_ts              INTEGER NOT NULL,
			shares_per_dollar   REAL NOT NULL,
			min_move_threshold  REAL NOT NULL,
			time_window_minutes REAL NOT NULL,
			max_position        INTEGER NOT NULL,
			total_trades        INTEGER NOT NULL,
			total_pnl           REAL NOT NULL,
			win_rate            REAL NOT NULL,
			max_abs_position    INTEGER NOT NULL,
			final_position      INTEGER NOT NULL,
			price_ticks         INTEGER NOT NULL,
			created_at          INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq        INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			action     TEXT NOT NULL,
			quantity   INTEGER NOT NULL,
			price      REAL NOT NULL,
			reason     TEXT NOT NULL,
			price_move REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_pnl ON runs(symbol, total_pnl DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun persists a backtest result with its trades and returns the run ID.
func (s *Store) SaveRun(result *backtest.Result) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil result")
	}
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO runs (
		id, symbol, start_ts, end_ts,
		shares_per_dollar, min_move_threshold, time_window_minutes, max_position,
		total_trades, total_pnl, win_rate, max_abs_position, final_position, price_ticks,
		created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, result.Symbol, result.Start.UnixMilli(), result.End.UnixMilli(),
		result.Config.SharesPerDollar, result.Config.MinMoveThreshold,
		result.Config.TimeWindowMinutes, result.Config.MaxPosition,
		result.TotalTrades, result.TotalPnL, result.WinRate,
		result.MaxPosition, result.FinalPosition, result.PriceTicks,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, trade := range result.Trades {
		_, err = tx.Exec(`INSERT INTO trades (run_id, seq, ts, action, quantity, price, reason, price_move)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, trade.Ts.UnixMilli(), string(trade.Action), trade.Quantity,
			trade.Price, trade.Reason, trade.PriceMove,
		)
		if err != nil {
			return "", fmt.Errorf("insert trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RunSummary is a stored run without its trades.
type RunSummary struct {
	ID                string
	Symbol            string
	Start             time.Time
	End               time.Time
	SharesPerDollar   float64
	MinMoveThreshold  float64
	TimeWindowMinutes float64
	MaxPosition       int
	TotalTrades       int
	TotalPnL          float64
	WinRate           float64
}

// BestRuns returns up to limit runs for symbol ordered by total PnL, best first.
func (s *Store) BestRuns(symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id, symbol, start_ts, end_ts,
		shares_per_dollar, min_move_threshold, time_window_minutes, max_position,
		total_trades, total_pnl, win_rate
		FROM runs WHERE symbol = ? ORDER BY total_pnl DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var startMs, endMs int64
		if err := rows.Scan(&r.ID, &r.Symbol, &startMs, &endMs,
			&r.SharesPerDollar, &r.MinMoveThreshold, &r.TimeWindowMinutes, &r.MaxPosition,
			&r.TotalTrades, &r.TotalPnL, &r.WinRate); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Start = time.UnixMilli(startMs)
		r.End = time.UnixMilli(endMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Trades returns the stored trades for a run in execution order.
func (s *Store) Trades(runID string) ([]signal.Trade, error) {
	rows, err := s.db.Query(`SELECT ts, action, quantity, price, reason, price_move
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []signal.Trade
	for rows.Next() {
		var tr signal.Trade
		var tsMs int64
		var action string
		if err := rows.Scan(&tsMs, &action, &tr.Quantity, &tr.Price, &tr.Reason, &tr.PriceMove); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		tr.Ts = time.UnixMilli(tsMs)
		tr.Action = signal.Action(action)
		out = append(out, tr)
	}
	return out, rows.Err()
}
