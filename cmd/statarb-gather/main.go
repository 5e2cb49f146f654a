package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statarb/internal/config"
	"statarb/internal/gather"
	"statarb/internal/gather/crypto"
	"statarb/internal/gather/us"
	"statarb/internal/store"
	"statarb/internal/util"
)

func main() {
	var (
		cfgPath = flag.String("config", defaultConfigPath(), "path to config file")
		market  = flag.String("market", "crypto", "market to gather: crypto or us")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	var gatherer gather.Gatherer
	switch *market {
	case "crypto":
		gatherer = crypto.NewKlineGatherer(
			cfg.Binance.BaseURL,
			cfg.Backtest.Interval,
			time.Duration(cfg.Binance.TimeoutSeconds)*time.Second,
			cfg.Binance.RateLimitPerMin,
			cfg.Binance.MaxRetries,
			pstore,
		)
	case "us":
		gatherer = us.NewDailyBarGatherer(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, pstore)
	default:
		log.Fatalf("unknown market %q", *market)
	}

	rng, err := dateRange(cfg)
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gatherer.Gather(ctx, cfg.Backtest.Symbols, rng); err != nil {
		log.Fatalf("%s: %v", gatherer.Name(), err)
	}
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

func dateRange(cfg *config.Config) (gather.DateRange, error) {
	start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		return gather.DateRange{}, err
	}
	end := time.Now().UTC()
	if cfg.Backtest.EndDate != "" {
		end, err = time.Parse("2006-01-02", cfg.Backtest.EndDate)
		if err != nil {
			return gather.DateRange{}, err
		}
	}
	return gather.DateRange{Start: start, End: end}, nil
}
