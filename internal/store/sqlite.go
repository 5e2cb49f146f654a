package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at  TEXT NOT NULL,
	mode        TEXT NOT NULL,
	start_date  TEXT NOT NULL,
	end_date    TEXT NOT NULL,
	symbols     TEXT NOT NULL,
	cost_bps    REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS run_metrics (
	run_id                INTEGER NOT NULL REFERENCES runs(id),
	label                 TEXT NOT NULL,
	window                INTEGER NOT NULL,
	total_return          REAL NOT NULL,
	annualized_return     REAL NOT NULL,
	annualized_volatility REAL NOT NULL,
	sharpe_ratio          REAL NOT NULL,
	max_drawdown          REAL NOT NULL,
	win_rate              REAL NOT NULL,
	beta                  REAL,
	alpha                 REAL,
	correlation           REAL,
	benchmark_return      REAL,
	PRIMARY KEY (run_id, label)
);
`

// NewSQLiteStore opens (creating if necessary) the SQLite database at path
// and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record and returns its assigned ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (int64, error) {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (created_at, mode, start_date, end_date, symbols, cost_bps)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		createdAt.Format(time.RFC3339), run.Mode, run.StartDate, run.EndDate,
		strings.Join(run.Symbols, ","), run.CostBps)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	run.ID = id
	run.CreatedAt = createdAt
	return id, nil
}

// SaveMetrics inserts the metrics rows for a run.
func (s *SQLiteStore) SaveMetrics(ctx context.Context, runID int64, metrics []MetricsRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_metrics (
			run_id, label, window, total_return, annualized_return,
			annualized_volatility, sharpe_ratio, max_drawdown, win_rate,
			beta, alpha, correlation, benchmark_return
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.ExecContext(ctx,
			runID, m.Label, m.Window, m.TotalReturn, m.AnnualizedReturn,
			m.AnnualizedVolatility, m.SharpeRatio, m.MaxDrawdown, m.WinRate,
			m.Beta, m.Alpha, m.Correlation, m.BenchmarkReturn); err != nil {
			return fmt.Errorf("inserting metrics for %s: %w", m.Label, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mode, start_date, end_date, symbols, cost_bps
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r         RunRecord
			createdAt string
			symbols   string
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.Mode, &r.StartDate, &r.EndDate, &symbols, &r.CostBps); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		if symbols != "" {
			r.Symbols = strings.Split(symbols, ",")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunMetrics returns all metrics rows for a run, ordered by window.
func (s *SQLiteStore) GetRunMetrics(ctx context.Context, runID int64) ([]MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, window, total_return, annualized_return,
			annualized_volatility, sharpe_ratio, max_drawdown, win_rate,
			beta, alpha, correlation, benchmark_return
		 FROM run_metrics WHERE run_id = ? ORDER BY window`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []MetricsRecord
	for rows.Next() {
		var m MetricsRecord
		if err := rows.Scan(&m.Label, &m.Window, &m.TotalReturn, &m.AnnualizedReturn,
			&m.AnnualizedVolatility, &m.SharpeRatio, &m.MaxDrawdown, &m.WinRate,
			&m.Beta, &m.Alpha, &m.Correlation, &m.BenchmarkReturn); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
