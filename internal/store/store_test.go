package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"statarb/internal/domain"
)

func utcDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sampleBars(symbol string, start time.Time, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		ts := start.AddDate(0, 0, i)
		bars[i] = domain.Bar{
			Symbol:      symbol,
			Timestamp:   ts,
			Open:        100 + float64(i),
			High:        101 + float64(i),
			Low:         99 + float64(i),
			Close:       100.5 + float64(i),
			Volume:      1000 + float64(i),
			QuoteVolume: 100500 + float64(i),
			TradeCount:  int64(50 + i),
		}
	}
	return bars
}

// ---------------------------------------------------------------------------
// ParquetStore
// ---------------------------------------------------------------------------

func TestParquetWriteReadRoundTrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := sampleBars("BTCUSDT", utcDay(2023, 6, 1), 5)
	if err := s.WriteBars(ctx, bars, domain.MarketCrypto); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "BTCUSDT", domain.MarketCrypto, utcDay(2023, 1, 1), utcDay(2023, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("ReadBars() returned %d bars, want 5", len(got))
	}
	if !got[0].Timestamp.Equal(bars[0].Timestamp) {
		t.Errorf("first bar timestamp = %v, want %v", got[0].Timestamp, bars[0].Timestamp)
	}
	if got[2].Close != bars[2].Close {
		t.Errorf("bar close = %v, want %v", got[2].Close, bars[2].Close)
	}
	if got[4].TradeCount != bars[4].TradeCount {
		t.Errorf("bar trade count = %d, want %d", got[4].TradeCount, bars[4].TradeCount)
	}
}

func TestParquetFileLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewParquetStore(dir)
	ctx := context.Background()

	bars := sampleBars("ethusdt", utcDay(2022, 3, 1), 2)
	if err := s.WriteBars(ctx, bars, domain.MarketCrypto); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	want := filepath.Join(dir, "crypto", "daily", "ETHUSDT", "2022.parquet")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected file at %s: %v", want, err)
	}
}

func TestParquetMergeIsIdempotent(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	first := sampleBars("BTCUSDT", utcDay(2023, 6, 1), 3)
	if err := s.WriteBars(ctx, first, domain.MarketCrypto); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	// Overlapping write: days 2-5, with a revised close on day 2.
	second := sampleBars("BTCUSDT", utcDay(2023, 6, 2), 4)
	second[0].Close = 999
	if err := s.WriteBars(ctx, second, domain.MarketCrypto); err != nil {
		t.Fatalf("WriteBars() (second) returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "BTCUSDT", domain.MarketCrypto, utcDay(2023, 1, 1), utcDay(2023, 12, 31))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("merged store has %d bars, want 5 (days 1-5 deduplicated)", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("bars not sorted: %v before %v", got[i].Timestamp, got[i-1].Timestamp)
		}
	}
	if got[1].Close != 999 {
		t.Errorf("revised bar close = %v, want 999 (new record wins)", got[1].Close)
	}
}

func TestParquetReadSpansYears(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := sampleBars("BTCUSDT", utcDay(2022, 12, 30), 4) // crosses into 2023
	if err := s.WriteBars(ctx, bars, domain.MarketCrypto); err != nil {
		t.Fatalf("WriteBars() returned error: %v", err)
	}

	got, err := s.ReadBars(ctx, "BTCUSDT", domain.MarketCrypto, utcDay(2022, 12, 31), utcDay(2023, 1, 1))
	if err != nil {
		t.Fatalf("ReadBars() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars() across year boundary returned %d bars, want 2", len(got))
	}
}

func TestParquetListSymbols(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	for _, sym := range []string{"ETHUSDT", "BTCUSDT", "SOLUSDT"} {
		if err := s.WriteBars(ctx, sampleBars(sym, utcDay(2023, 1, 1), 1), domain.MarketCrypto); err != nil {
			t.Fatalf("WriteBars(%s) returned error: %v", sym, err)
		}
	}

	symbols, err := s.ListSymbols(ctx, domain.MarketCrypto)
	if err != nil {
		t.Fatalf("ListSymbols() returned error: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if len(symbols) != len(want) {
		t.Fatalf("ListSymbols() = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}

	// Other market is empty.
	usSymbols, err := s.ListSymbols(ctx, domain.MarketUS)
	if err != nil {
		t.Fatalf("ListSymbols(us) returned error: %v", err)
	}
	if len(usSymbols) != 0 {
		t.Errorf("ListSymbols(us) = %v, want empty", usSymbols)
	}
}

// ---------------------------------------------------------------------------
// SQLiteStore
// ---------------------------------------------------------------------------

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSaveAndListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &RunRecord{
		Mode:      "momentum",
		StartDate: "2020-01-01",
		EndDate:   "2024-01-01",
		Symbols:   []string{"BTCUSDT", "ETHUSDT"},
		CostBps:   5,
	}
	id, err := s.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun() returned error: %v", err)
	}
	if id == 0 {
		t.Fatal("SaveRun() returned id 0")
	}

	second := &RunRecord{Mode: "reversal", StartDate: "2021-01-01", EndDate: "2023-01-01", Symbols: []string{"SOLUSDT"}, CostBps: 10}
	if _, err := s.SaveRun(ctx, second); err != nil {
		t.Fatalf("SaveRun() (second) returned error: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].Mode != "reversal" {
		t.Errorf("runs[0].Mode = %q, want %q", runs[0].Mode, "reversal")
	}
	if len(runs[1].Symbols) != 2 || runs[1].Symbols[0] != "BTCUSDT" {
		t.Errorf("runs[1].Symbols = %v, want [BTCUSDT ETHUSDT]", runs[1].Symbols)
	}
	if runs[1].CostBps != 5 {
		t.Errorf("runs[1].CostBps = %v, want 5", runs[1].CostBps)
	}
	if runs[0].CreatedAt.IsZero() {
		t.Error("runs[0].CreatedAt is zero, want set")
	}
}

func TestSQLiteMetricsRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, &RunRecord{Mode: "momentum", StartDate: "2020-01-01", EndDate: "2024-01-01", Symbols: []string{"BTCUSDT"}, CostBps: 5})
	if err != nil {
		t.Fatalf("SaveRun() returned error: %v", err)
	}

	beta, alpha := 1.2, 0.03
	metrics := []MetricsRecord{
		{Label: "mom_120d", Window: 120, TotalReturn: 0.8, AnnualizedReturn: 0.2, AnnualizedVolatility: 0.3, SharpeRatio: 0.67, MaxDrawdown: -0.25, WinRate: 0.52},
		{Label: "mom_60d", Window: 60, TotalReturn: 0.5, AnnualizedReturn: 0.15, AnnualizedVolatility: 0.25, SharpeRatio: 0.6, MaxDrawdown: -0.2, WinRate: 0.55, Beta: &beta, Alpha: &alpha},
	}
	if err := s.SaveMetrics(ctx, id, metrics); err != nil {
		t.Fatalf("SaveMetrics() returned error: %v", err)
	}

	got, err := s.GetRunMetrics(ctx, id)
	if err != nil {
		t.Fatalf("GetRunMetrics() returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetRunMetrics() returned %d rows, want 2", len(got))
	}
	// Ordered by window.
	if got[0].Label != "mom_60d" || got[1].Label != "mom_120d" {
		t.Errorf("metrics order = [%s %s], want [mom_60d mom_120d]", got[0].Label, got[1].Label)
	}
	if got[0].Beta == nil || *got[0].Beta != 1.2 {
		t.Errorf("mom_60d beta = %v, want 1.2", got[0].Beta)
	}
	if got[1].Beta != nil {
		t.Errorf("mom_120d beta = %v, want nil (no benchmark)", *got[1].Beta)
	}
	if got[0].SharpeRatio != 0.6 {
		t.Errorf("mom_60d sharpe = %v, want 0.6", got[0].SharpeRatio)
	}
}

func TestSQLiteGetMetricsUnknownRun(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetRunMetrics(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetRunMetrics() returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetRunMetrics(unknown) returned %d rows, want 0", len(got))
	}
}
