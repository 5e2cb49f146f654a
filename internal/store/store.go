// Package store persists fetched market data and backtest results: OHLCV
// bars as Parquet files, run history and metrics in SQLite.
package store

import (
	"context"
	"time"

	"statarb/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, bars []domain.Bar, market domain.Market) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// RunRecord describes one completed backtest run.
type RunRecord struct {
	ID        int64
	CreatedAt time.Time
	Mode      string
	StartDate string
	EndDate   string
	Symbols   []string
	CostBps   float64
}

// MetricsRecord is the flat, persistable form of one strategy variant's
// performance metrics. Benchmark-relative fields are nil when the run had
// no benchmark.
type MetricsRecord struct {
	Label                string
	Window               int
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	MaxDrawdown          float64
	WinRate              float64
	Beta                 *float64
	Alpha                *float64
	Correlation          *float64
	BenchmarkReturn      *float64
}

// RunStore persists backtest runs and their per-window metrics.
type RunStore interface {
	// SaveRun inserts a run record and returns its assigned ID.
	SaveRun(ctx context.Context, run *RunRecord) (int64, error)

	// SaveMetrics inserts the metrics rows for a run.
	SaveMetrics(ctx context.Context, runID int64, metrics []MetricsRecord) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// GetRunMetrics returns all metrics rows for a run, ordered by window.
	GetRunMetrics(ctx context.Context, runID int64) ([]MetricsRecord, error)
}
