package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"statarb/internal/domain"
	"statarb/internal/timeseries"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(i)
	}
	return out
}

func seriesOf(t *testing.T, values []float64) *timeseries.Series {
	t.Helper()
	s, err := timeseries.NewSeries(days(len(values)), values)
	if err != nil {
		t.Fatalf("NewSeries: %v", err)
	}
	return s
}

func frameOf(t *testing.T, cols []string, rows [][]float64) *timeseries.Frame {
	t.Helper()
	f := timeseries.NewFrame(days(len(rows)), cols)
	for i, row := range rows {
		for j, v := range row {
			f.Set(i, j, v)
		}
	}
	return f
}

// ---------------------------------------------------------------------------
// Simulator
// ---------------------------------------------------------------------------

func TestSimulateOnePeriodLag(t *testing.T) {
	// Weight 1 on asset A at day 1; A returns 5% on day 2. The strategy must
	// earn that 5% on day 2, not day 1.
	weights := frameOf(t, []string{"A", "B"}, [][]float64{
		{math.NaN(), math.NaN()},
		{1, 0},
		{1, 0},
	})
	returns := frameOf(t, []string{"A", "B"}, [][]float64{
		{0, 0},
		{0, 0},
		{0.05, 0.01},
	})

	s := Simulate(weights, returns, 0)
	if s.Len() != 1 {
		t.Fatalf("series length = %d, want 1", s.Len())
	}
	if !s.Date(0).Equal(day(2)) {
		t.Errorf("return realized on %v, want %v", s.Date(0), day(2))
	}
	if math.Abs(s.Value(0)-0.05) > 1e-12 {
		t.Errorf("gross return = %v, want 0.05", s.Value(0))
	}
}

func TestSimulateDropsUndefinedDays(t *testing.T) {
	weights := frameOf(t, []string{"A"}, [][]float64{
		{math.NaN()},
		{math.NaN()},
		{1},
		{1},
	})
	returns := frameOf(t, []string{"A"}, [][]float64{
		{0.01}, {0.01}, {0.01}, {0.02},
	})

	s := Simulate(weights, returns, 0)
	// Only day 3 has a defined shifted weight.
	if s.Len() != 1 {
		t.Fatalf("series length = %d, want 1", s.Len())
	}
	if !s.Date(0).Equal(day(3)) {
		t.Errorf("first traded day = %v, want %v", s.Date(0), day(3))
	}
}

func TestSimulateCostMonotonicity(t *testing.T) {
	// Alternating weights generate turnover every day.
	weights := frameOf(t, []string{"A", "B"}, [][]float64{
		{0.5, -0.5},
		{-0.5, 0.5},
		{0.5, -0.5},
		{-0.5, 0.5},
	})
	returns := frameOf(t, []string{"A", "B"}, [][]float64{
		{0.01, -0.01},
		{0.02, -0.02},
		{0.01, -0.01},
		{0.02, -0.02},
	})

	base := Simulate(weights, returns, DefaultCostRate)
	double := Simulate(weights, returns, 2*DefaultCostRate)

	if base.Len() == 0 || base.Len() != double.Len() {
		t.Fatalf("series lengths = %d, %d", base.Len(), double.Len())
	}
	for i := 0; i < base.Len(); i++ {
		if double.Value(i) >= base.Value(i) {
			t.Errorf("day %d: doubled cost %v not below %v", i, double.Value(i), base.Value(i))
		}
	}
}

func TestSimulateZeroTurnoverUnaffectedByCost(t *testing.T) {
	weights := frameOf(t, []string{"A", "B"}, [][]float64{
		{0.5, -0.5},
		{0.5, -0.5},
		{0.5, -0.5},
	})
	returns := frameOf(t, []string{"A", "B"}, [][]float64{
		{0.01, 0.01},
		{0.01, 0.01},
		{0.03, -0.01},
	})

	free := Simulate(weights, returns, 0)
	costly := Simulate(weights, returns, 10*DefaultCostRate)
	for i := 0; i < free.Len(); i++ {
		if math.Abs(free.Value(i)-costly.Value(i)) > 1e-12 {
			t.Errorf("day %d: cost charged despite zero turnover (%v vs %v)", i, free.Value(i), costly.Value(i))
		}
	}
}

// ---------------------------------------------------------------------------
// Evaluator
// ---------------------------------------------------------------------------

func TestEvaluateSharpeZeroOnConstantSeries(t *testing.T) {
	m := Evaluate(seriesOf(t, []float64{0.01, 0.01, 0.01, 0.01}), NoBenchmark(), 252)
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 for zero volatility", m.SharpeRatio)
	}
	if m.AnnualizedVolatility != 0 {
		t.Errorf("AnnualizedVolatility = %v, want 0", m.AnnualizedVolatility)
	}
	if m.WinRate != 1 {
		t.Errorf("WinRate = %v, want 1", m.WinRate)
	}
}

func TestEvaluateMaxDrawdown(t *testing.T) {
	// Monotonically rising path: drawdown is exactly zero.
	m := Evaluate(seriesOf(t, []float64{0.01, 0.02, 0.03}), NoBenchmark(), 252)
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0 for a rising path", m.MaxDrawdown)
	}

	// A 50% loss after a gain: drawdown -0.5.
	m = Evaluate(seriesOf(t, []float64{0.10, -0.50, 0.05}), NoBenchmark(), 252)
	if m.MaxDrawdown > 0 {
		t.Errorf("MaxDrawdown = %v, want <= 0", m.MaxDrawdown)
	}
	if math.Abs(m.MaxDrawdown-(-0.5)) > 1e-12 {
		t.Errorf("MaxDrawdown = %v, want -0.5", m.MaxDrawdown)
	}
}

func TestEvaluateCumulativeRoundTrip(t *testing.T) {
	rets := []float64{0.02, -0.01, 0.03, 0.005, -0.02}
	s := seriesOf(t, rets)
	m := Evaluate(s, NoBenchmark(), 252)

	acc := 1.0
	for i, r := range rets {
		acc *= 1 + r
		if got := m.Cumulative.Value(i); got != acc {
			t.Errorf("cumulative[%d] = %v, want %v", i, got, acc)
		}
	}
	if m.Cumulative.Len() != s.Len() {
		t.Errorf("cumulative length = %d, want %d", m.Cumulative.Len(), s.Len())
	}
	if math.Abs(m.TotalReturn-(acc-1)) > 1e-15 {
		t.Errorf("TotalReturn = %v, want %v", m.TotalReturn, acc-1)
	}
}

func TestEvaluateAnnualization(t *testing.T) {
	// 252 periods of 0.1% should annualize to the total return itself.
	rets := make([]float64, 252)
	for i := range rets {
		rets[i] = 0.001
	}
	m := Evaluate(seriesOf(t, rets), NoBenchmark(), 252)
	if math.Abs(m.AnnualizedReturn-m.TotalReturn) > 1e-12 {
		t.Errorf("AnnualizedReturn = %v, want TotalReturn %v for a one-year series", m.AnnualizedReturn, m.TotalReturn)
	}
}

func TestEvaluateWithBenchmark(t *testing.T) {
	// Strategy is exactly twice the benchmark: beta 2, correlation 1.
	bench := seriesOf(t, []float64{0.01, -0.02, 0.015, 0.005, -0.01})
	strat := seriesOf(t, []float64{0.02, -0.04, 0.03, 0.01, -0.02})

	m := Evaluate(strat, WithBenchmark(bench), 252)
	if m.Relative == nil {
		t.Fatal("Relative metrics missing with benchmark supplied")
	}
	if math.Abs(m.Relative.Beta-2) > 1e-9 {
		t.Errorf("Beta = %v, want 2", m.Relative.Beta)
	}
	if math.Abs(m.Relative.Correlation-1) > 1e-9 {
		t.Errorf("Correlation = %v, want 1", m.Relative.Correlation)
	}

	// benchmark_return is arithmetic mean x periods, not compounded.
	wantBench := mean(bench.Values()) * 252
	if math.Abs(m.Relative.BenchmarkReturn-wantBench) > 1e-12 {
		t.Errorf("BenchmarkReturn = %v, want %v", m.Relative.BenchmarkReturn, wantBench)
	}
	wantAlpha := m.AnnualizedReturn - m.Relative.Beta*wantBench
	if math.Abs(m.Relative.Alpha-wantAlpha) > 1e-12 {
		t.Errorf("Alpha = %v, want %v", m.Relative.Alpha, wantAlpha)
	}
}

func TestEvaluateNoBenchmarkOmitsRelative(t *testing.T) {
	m := Evaluate(seriesOf(t, []float64{0.01, -0.01}), NoBenchmark(), 252)
	if m.Relative != nil {
		t.Error("Relative metrics present without a benchmark")
	}
}

func TestEvaluateZeroVarianceBenchmark(t *testing.T) {
	bench := seriesOf(t, []float64{0.01, 0.01, 0.01})
	strat := seriesOf(t, []float64{0.02, -0.01, 0.03})

	m := Evaluate(strat, WithBenchmark(bench), 252)
	if m.Relative.Beta != 0 {
		t.Errorf("Beta = %v, want 0 for zero-variance benchmark", m.Relative.Beta)
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func TestRunnerFailsFastOnEmptyData(t *testing.T) {
	r := NewRunner(DefaultCostRate, 252)
	if _, err := r.Run(timeseries.NewFrame(nil, nil), []int{3}, domain.ModeMomentum, NoBenchmark()); !errors.Is(err, ErrNoData) {
		t.Errorf("Run on empty frame returned %v, want ErrNoData", err)
	}
}

func TestRunnerSkipsOversizedWindows(t *testing.T) {
	rows := make([][]float64, 10)
	for i := range rows {
		rows[i] = []float64{0.05, -0.05, 0.001, -0.001}
	}
	returns := frameOf(t, []string{"UP", "DOWN", "F1", "F2"}, rows)

	r := NewRunner(DefaultCostRate, 252)
	results, err := r.Run(returns, []int{3, 500}, domain.ModeMomentum, NoBenchmark())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Run returned %d results, want 1 (oversized window omitted)", len(results))
	}
	if results[0].Window != 3 {
		t.Errorf("surviving window = %d, want 3", results[0].Window)
	}
	if results[0].Label != "mom_3d" {
		t.Errorf("label = %q, want %q", results[0].Label, "mom_3d")
	}
}

func TestRunnerEndToEndMomentumProfitsFromDrift(t *testing.T) {
	// The upward drifter keeps winning, so momentum weights earn positive
	// returns on every traded day. Magnitudes vary so volatility is nonzero.
	rows := make([][]float64, 10)
	for i := range rows {
		up := 0.04 + 0.01*float64(i%3)
		rows[i] = []float64{up, -up, 0.001, -0.001}
	}
	returns := frameOf(t, []string{"UP", "DOWN", "F1", "F2"}, rows)

	r := NewRunner(0, 252)
	results, err := r.Run(returns, []int{3}, domain.ModeMomentum, NoBenchmark())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	for i := 0; i < res.Returns.Len(); i++ {
		if res.Returns.Value(i) <= 0 {
			t.Errorf("day %d: momentum return = %v, want > 0", i, res.Returns.Value(i))
		}
	}
	if res.Metrics.SharpeRatio <= 0 {
		t.Errorf("SharpeRatio = %v, want > 0", res.Metrics.SharpeRatio)
	}
}
