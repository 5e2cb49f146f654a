package backtest

import (
	"errors"
	"fmt"
	"log/slog"

	"statarb/internal/domain"
	"statarb/internal/signal"
	"statarb/internal/timeseries"
)

// ErrNoData is returned when a backtest is started without any prepared
// return rows.
var ErrNoData = errors.New("backtest: no return data")

// Result pairs a strategy variant with its simulated returns and metrics.
type Result struct {
	Label   string
	Window  int
	Returns *timeseries.Series
	Metrics Metrics
}

// Runner orchestrates the per-window pipeline: signal construction, return
// simulation, and evaluation.
type Runner struct {
	engine         *signal.Engine
	costRate       float64
	periodsPerYear int
	log            *slog.Logger
}

// NewRunner creates a Runner with the given cost rate (fraction per unit of
// turnover) and annualization basis.
func NewRunner(costRate float64, periodsPerYear int) *Runner {
	return &Runner{
		engine:         signal.NewEngine(),
		costRate:       costRate,
		periodsPerYear: periodsPerYear,
		log:            slog.Default().With("component", "backtest"),
	}
}

// Run backtests every window independently and returns the results in
// window order. It fails fast when the prepared returns are empty; a window
// that produces no tradable weights or an empty return series is logged and
// omitted rather than failing the run.
func (r *Runner) Run(returns *timeseries.Frame, windows []int, mode domain.Mode, bench Benchmark) ([]Result, error) {
	if returns == nil || returns.NumRows() == 0 {
		return nil, ErrNoData
	}

	weightSets := r.engine.Build(returns, windows, mode)

	var results []Result
	for _, ws := range weightSets {
		if ws.Weights.AllNaN() {
			r.log.Warn("skipping window with no tradable weights", "window", ws.Window)
			continue
		}

		series := Simulate(ws.Weights, returns, r.costRate)
		if series.Len() == 0 {
			r.log.Warn("skipping window with empty return series", "window", ws.Window)
			continue
		}

		results = append(results, Result{
			Label:   Label(mode, ws.Window),
			Window:  ws.Window,
			Returns: series,
			Metrics: Evaluate(series, bench, r.periodsPerYear),
		})
	}

	r.log.Info("backtest complete", "mode", mode, "requested", len(windows), "completed", len(results))
	return results, nil
}

// Label names a strategy variant, e.g. "mom_60d" or "rev_5d".
func Label(mode domain.Mode, window int) string {
	prefix := "mom"
	if mode == domain.ModeReversal {
		prefix = "rev"
	}
	return fmt.Sprintf("%s_%dd", prefix, window)
}
