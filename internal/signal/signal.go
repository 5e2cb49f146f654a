// Package signal turns a returns matrix into cross-sectional rank-based
// portfolio weights for a set of lookback windows.
package signal

import (
	"log/slog"
	"math"

	"statarb/internal/domain"
	"statarb/internal/timeseries"
)

// WindowWeights pairs a lookback window with the weight matrix it produced.
// Results are kept as an ordered slice rather than a map keyed by window
// label.
type WindowWeights struct {
	Window  int
	Weights *timeseries.Frame
}

// Engine builds rank-based dollar-neutral weight matrices.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates a signal Engine.
func NewEngine() *Engine {
	return &Engine{
		log: slog.Default().With("component", "signal"),
	}
}

// Build computes one weight matrix per lookback window. For each window it
// takes the trailing rolling mean return (negated for reversal mode), ranks
// assets cross-sectionally per date with average ties, demeans the ranks so
// long and short legs offset, and normalizes each date to unit gross
// exposure. Dates with insufficient history or a zero normalization
// denominator come out all-NaN. A window longer than the available history
// yields an entirely NaN weight matrix; callers must not trade it.
func (e *Engine) Build(returns *timeseries.Frame, windows []int, mode domain.Mode) []WindowWeights {
	e.log.Info("building signals", "mode", mode, "windows", windows, "assets", returns.NumCols(), "rows", returns.NumRows())

	out := make([]WindowWeights, 0, len(windows))
	for _, w := range windows {
		raw := returns.RollingMean(w)
		if mode == domain.ModeReversal {
			raw = raw.Negate()
		}

		weights := raw.RankRows().DemeanRows().NormalizeAbsRows()
		out = append(out, WindowWeights{Window: w, Weights: weights})

		if weights.AllNaN() {
			e.log.Warn("window produced no tradable weights", "window", w)
			continue
		}
		e.log.Info("built signal", "mode", mode, "window", w)
	}
	return out
}

// Stats summarises the shape of one window's weight matrix.
type Stats struct {
	Window           int
	MeanLongWeight   float64
	MeanShortWeight  float64
	MaxConcentration float64
	AvgTurnover      float64
}

// ComputeStats derives summary statistics from a weight matrix: the mean
// long and short leg weights, the largest single-asset exposure, and the
// average daily turnover.
func ComputeStats(ww WindowWeights) Stats {
	w := ww.Weights
	st := Stats{Window: ww.Window}

	var longSum, shortSum float64
	var longN, shortN int
	for i := 0; i < w.NumRows(); i++ {
		for j := 0; j < w.NumCols(); j++ {
			v := w.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if a := math.Abs(v); a > st.MaxConcentration {
				st.MaxConcentration = a
			}
			if v > 0 {
				longSum += v
				longN++
			} else if v < 0 {
				shortSum += v
				shortN++
			}
		}
	}
	if longN > 0 {
		st.MeanLongWeight = longSum / float64(longN)
	}
	if shortN > 0 {
		st.MeanShortWeight = shortSum / float64(shortN)
	}

	// Average cross-sectional turnover: mean over dates of Σ|Δw|.
	var toSum float64
	var toN int
	for i := 1; i < w.NumRows(); i++ {
		to := 0.0
		valid := false
		for j := 0; j < w.NumCols(); j++ {
			prev, cur := w.At(i-1, j), w.At(i, j)
			if math.IsNaN(prev) || math.IsNaN(cur) {
				continue
			}
			to += math.Abs(cur - prev)
			valid = true
		}
		if valid {
			toSum += to
			toN++
		}
	}
	if toN > 0 {
		st.AvgTurnover = toSum / float64(toN)
	}
	return st
}
