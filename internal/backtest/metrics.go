package backtest

import (
	"log/slog"
	"math"

	"statarb/internal/timeseries"
)

// Benchmark is an optional benchmark return series, modelled as a tagged
// variant so the presence of benchmark-relative metrics is explicit.
type Benchmark struct {
	series *timeseries.Series
}

// NoBenchmark returns the absent-benchmark variant.
func NoBenchmark() Benchmark { return Benchmark{} }

// WithBenchmark wraps a benchmark return series.
func WithBenchmark(s *timeseries.Series) Benchmark { return Benchmark{series: s} }

// BenchmarkMetrics holds the statistics computed relative to a benchmark.
type BenchmarkMetrics struct {
	Beta            float64
	Alpha           float64
	Correlation     float64
	BenchmarkReturn float64
}

// Metrics is the summary record for one strategy return series. Relative is
// nil when no benchmark was supplied.
type Metrics struct {
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	MaxDrawdown          float64
	WinRate              float64
	Cumulative           *timeseries.Series
	Relative             *BenchmarkMetrics
}

// Evaluate computes the performance record for a strategy return series.
// Annualization uses periodsPerYear; series shorter than one year are still
// annualized but logged as statistically unreliable. Degenerate cases fall
// back to documented values (Sharpe 0 on zero volatility, beta 0 on zero
// benchmark variance) rather than failing.
func Evaluate(returns *timeseries.Series, bench Benchmark, periodsPerYear int) Metrics {
	n := returns.Len()
	var m Metrics
	if n == 0 {
		m.Cumulative, _ = timeseries.NewSeries(nil, nil)
		return m
	}
	if n < periodsPerYear {
		slog.Warn("annualizing over less than one year of data", "periods", n, "periodsPerYear", periodsPerYear)
	}

	// Compounded totals and the full cumulative path.
	cum := make([]float64, n)
	acc := 1.0
	for i := 0; i < n; i++ {
		acc *= 1 + returns.Value(i)
		cum[i] = acc
	}
	m.TotalReturn = acc - 1
	m.AnnualizedReturn = math.Pow(1+m.TotalReturn, float64(periodsPerYear)/float64(n)) - 1
	m.Cumulative, _ = timeseries.NewSeries(returns.Dates(), cum)

	m.AnnualizedVolatility = stddev(seriesValues(returns)) * math.Sqrt(float64(periodsPerYear))
	if m.AnnualizedVolatility > 0 {
		m.SharpeRatio = m.AnnualizedReturn / m.AnnualizedVolatility
	}

	// Max drawdown against the running peak of the cumulative path.
	peak := math.Inf(-1)
	for _, c := range cum {
		if c > peak {
			peak = c
		}
		if dd := c/peak - 1; dd < m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	wins := 0
	for i := 0; i < n; i++ {
		if returns.Value(i) > 0 {
			wins++
		}
	}
	m.WinRate = float64(wins) / float64(n)

	if bench.series != nil {
		m.Relative = relativeMetrics(returns, bench.series, m.AnnualizedReturn, periodsPerYear)
	}
	return m
}

// relativeMetrics aligns the benchmark to the strategy's dates and computes
// beta, alpha, correlation, and the benchmark's own annualized return. The
// benchmark return is an arithmetic mean scaled by periodsPerYear, not a
// compounded figure like the strategy's annualized return.
func relativeMetrics(strategy, benchmark *timeseries.Series, annualizedReturn float64, periodsPerYear int) *BenchmarkMetrics {
	s, b := timeseries.AlignSeries(strategy, benchmark)
	sv, bv := seriesValues(s), seriesValues(b)

	out := &BenchmarkMetrics{}
	if len(sv) < 2 {
		return out
	}

	benchVar := variance(bv)
	if benchVar > 0 {
		out.Beta = covariance(sv, bv) / benchVar
	}
	out.BenchmarkReturn = mean(bv) * float64(periodsPerYear)
	// Zero risk-free rate.
	out.Alpha = annualizedReturn - out.Beta*out.BenchmarkReturn

	sStd, bStd := stddev(sv), stddev(bv)
	if sStd > 0 && bStd > 0 {
		out.Correlation = covariance(sv, bv) / (sStd * bStd)
	}
	return out
}

// ---------------------------------------------------------------------------
// Scalar statistics (sample variants, ddof = 1)
// ---------------------------------------------------------------------------

func seriesValues(s *timeseries.Series) []float64 { return s.Values() }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func covariance(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}
