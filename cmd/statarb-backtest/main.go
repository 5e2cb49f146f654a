package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"statarb/internal/backtest"
	"statarb/internal/clean"
	"statarb/internal/config"
	"statarb/internal/domain"
	"statarb/internal/gather"
	"statarb/internal/report"
	"statarb/internal/store"
	"statarb/internal/util"
)

func main() {
	var (
		cfgPath = flag.String("config", defaultConfigPath(), "path to config file")
		market  = flag.String("market", "crypto", "market to backtest: crypto or us")
		noSave  = flag.Bool("no-save", false, "skip recording the run in SQLite")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, domain.Market(*market), !*noSave, logger); err != nil {
		logger.Error("backtest failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, market domain.Market, save bool, logger *slog.Logger) error {
	bt := cfg.Backtest

	rng, err := dateRange(bt)
	if err != nil {
		return err
	}

	// 1. Load cached bars into return and volume frames.
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	returns, volumes, err := gather.LoadFrames(ctx, pstore, bt.Symbols, market, rng)
	if err != nil {
		return err
	}
	logger.Info("data loaded",
		"symbols", returns.NumCols(),
		"rows", returns.NumRows(),
		"start", bt.StartDate,
	)

	// 2. Clean: liquidity filter, start-date alignment, gap filling.
	returns, volumes = clean.FilterByLiquidity(volumes, returns, bt.LiquidityThreshold)
	returns, _, err = clean.CleanAndAlign(returns, volumes, bt.MinAssets)
	if err != nil {
		return err
	}

	// 3. Benchmark series from the cleaned frame.
	bench := backtest.NoBenchmark()
	if bt.BenchmarkSymbol != "" {
		if s := returns.Column(bt.BenchmarkSymbol); s != nil {
			bench = backtest.WithBenchmark(s.DropNaN())
		} else {
			logger.Warn("benchmark symbol not in universe", "symbol", bt.BenchmarkSymbol)
		}
	}

	// 4. Run the per-window pipeline.
	mode := domain.ParseMode(bt.Mode)
	runner := backtest.NewRunner(bt.CostRate(), bt.PeriodsPerYear)
	results, err := runner.Run(returns, bt.Windows, mode, bench)
	if err != nil {
		return err
	}

	// 5. Report.
	report.LogSummary(logger, results)
	resultsDir := cfg.Storage.ResultsDir
	if err := report.WriteMetricsCSV(filepath.Join(resultsDir, "metrics.csv"), results); err != nil {
		return err
	}
	if err := report.WriteReturnsCSV(filepath.Join(resultsDir, "returns.csv"), results); err != nil {
		return err
	}
	if err := report.WriteCumulativeCSV(filepath.Join(resultsDir, "cumulative.csv"), results); err != nil {
		return err
	}
	logger.Info("results written", "dir", resultsDir)

	// 6. Record the run.
	if save {
		rstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer rstore.Close()

		runID, err := rstore.SaveRun(ctx, &store.RunRecord{
			Mode:      bt.Mode,
			StartDate: bt.StartDate,
			EndDate:   bt.EndDate,
			Symbols:   bt.Symbols,
			CostBps:   bt.CostBps,
		})
		if err != nil {
			return err
		}
		if err := rstore.SaveMetrics(ctx, runID, report.ToRecords(results)); err != nil {
			return err
		}
		logger.Info("run recorded", "run_id", runID)
	}
	return nil
}

func defaultConfigPath() string {
	if p := os.Getenv("STATARB_CONFIG"); p != "" {
		return p
	}
	return "config/statarb.yaml"
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func dateRange(bt config.BacktestConfig) (gather.DateRange, error) {
	start, err := time.Parse("2006-01-02", bt.StartDate)
	if err != nil {
		return gather.DateRange{}, err
	}
	end := time.Now().UTC()
	if bt.EndDate != "" {
		end, err = time.Parse("2006-01-02", bt.EndDate)
		if err != nil {
			return gather.DateRange{}, err
		}
	}
	return gather.DateRange{Start: start, End: end}, nil
}
