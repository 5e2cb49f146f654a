// Package report renders backtest results: structured log summaries, CSV
// files for metrics and return series, and conversion to persistable
// records.
package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"statarb/internal/backtest"
	"statarb/internal/store"
	"statarb/internal/timeseries"
)

const dateLayout = "2006-01-02"

// LogSummary writes one structured log line per strategy variant.
func LogSummary(log *slog.Logger, results []backtest.Result) {
	for _, r := range results {
		attrs := []any{
			"strategy", r.Label,
			"total_return", fmt.Sprintf("%.2f%%", r.Metrics.TotalReturn*100),
			"annualized_return", fmt.Sprintf("%.2f%%", r.Metrics.AnnualizedReturn*100),
			"annualized_volatility", fmt.Sprintf("%.2f%%", r.Metrics.AnnualizedVolatility*100),
			"sharpe", fmt.Sprintf("%.2f", r.Metrics.SharpeRatio),
			"max_drawdown", fmt.Sprintf("%.2f%%", r.Metrics.MaxDrawdown*100),
			"win_rate", fmt.Sprintf("%.2f%%", r.Metrics.WinRate*100),
		}
		if rel := r.Metrics.Relative; rel != nil {
			attrs = append(attrs,
				"beta", fmt.Sprintf("%.2f", rel.Beta),
				"alpha", fmt.Sprintf("%.2f%%", rel.Alpha*100),
				"correlation", fmt.Sprintf("%.2f", rel.Correlation),
			)
		}
		log.Info("performance", attrs...)
	}
}

// WriteMetricsCSV writes one row per strategy variant with all summary
// metrics. Benchmark-relative columns are left empty when the run had no
// benchmark.
func WriteMetricsCSV(path string, results []backtest.Result) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"strategy", "window", "total_return", "annualized_return",
		"annualized_volatility", "sharpe_ratio", "max_drawdown", "win_rate",
		"beta", "alpha", "correlation", "benchmark_return",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			r.Label,
			strconv.Itoa(r.Window),
			formatFloat(r.Metrics.TotalReturn),
			formatFloat(r.Metrics.AnnualizedReturn),
			formatFloat(r.Metrics.AnnualizedVolatility),
			formatFloat(r.Metrics.SharpeRatio),
			formatFloat(r.Metrics.MaxDrawdown),
			formatFloat(r.Metrics.WinRate),
			"", "", "", "",
		}
		if rel := r.Metrics.Relative; rel != nil {
			row[8] = formatFloat(rel.Beta)
			row[9] = formatFloat(rel.Alpha)
			row[10] = formatFloat(rel.Correlation)
			row[11] = formatFloat(rel.BenchmarkReturn)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteReturnsCSV writes the per-period net return of every strategy
// variant, one date per row on the union of dates. Cells with no
// observation are empty.
func WriteReturnsCSV(path string, results []backtest.Result) error {
	series := make([]*timeseries.Series, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		series[i] = r.Returns
		labels[i] = r.Label
	}
	return writeSeriesCSV(path, labels, series)
}

// WriteCumulativeCSV writes the cumulative growth series of every strategy
// variant, one date per row on the union of dates.
func WriteCumulativeCSV(path string, results []backtest.Result) error {
	series := make([]*timeseries.Series, len(results))
	labels := make([]string, len(results))
	for i, r := range results {
		series[i] = r.Metrics.Cumulative
		labels[i] = r.Label
	}
	return writeSeriesCSV(path, labels, series)
}

// ToRecords converts results into the flat form the run store persists.
func ToRecords(results []backtest.Result) []store.MetricsRecord {
	records := make([]store.MetricsRecord, 0, len(results))
	for _, r := range results {
		rec := store.MetricsRecord{
			Label:                r.Label,
			Window:               r.Window,
			TotalReturn:          r.Metrics.TotalReturn,
			AnnualizedReturn:     r.Metrics.AnnualizedReturn,
			AnnualizedVolatility: r.Metrics.AnnualizedVolatility,
			SharpeRatio:          r.Metrics.SharpeRatio,
			MaxDrawdown:          r.Metrics.MaxDrawdown,
			WinRate:              r.Metrics.WinRate,
		}
		if rel := r.Metrics.Relative; rel != nil {
			beta, alpha, corr, bench := rel.Beta, rel.Alpha, rel.Correlation, rel.BenchmarkReturn
			rec.Beta = &beta
			rec.Alpha = &alpha
			rec.Correlation = &corr
			rec.BenchmarkReturn = &bench
		}
		records = append(records, rec)
	}
	return records
}

// writeSeriesCSV writes labeled series as columns on the union of their
// dates.
func writeSeriesCSV(path string, labels []string, series []*timeseries.Series) error {
	type cellKey struct {
		date time.Time
		col  int
	}
	cells := make(map[cellKey]float64)
	dateSet := make(map[time.Time]struct{})
	for col, s := range series {
		if s == nil {
			continue
		}
		for i := 0; i < s.Len(); i++ {
			d := s.Date(i)
			dateSet[d] = struct{}{}
			cells[cellKey{d, col}] = s.Value(i)
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"date"}, labels...)); err != nil {
		return err
	}
	row := make([]string, len(labels)+1)
	for _, d := range dates {
		row[0] = d.Format(dateLayout)
		for col := range labels {
			if v, ok := cells[cellKey{d, col}]; ok && !math.IsNaN(v) {
				row[col+1] = formatFloat(v)
			} else {
				row[col+1] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
