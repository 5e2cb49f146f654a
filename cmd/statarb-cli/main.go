package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"statarb/internal/config"
	"statarb/internal/domain"
	"statarb/internal/store"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: statarb-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version           Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  symbols [market]  List cached symbols (default market: crypto)\n")
		fmt.Fprintf(os.Stderr, "  runs [limit]      List recent backtest runs (default limit: 10)\n")
		fmt.Fprintf(os.Stderr, "  metrics <run-id>  Show metrics for a recorded run\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	ctx := context.Background()

	switch os.Args[1] {
	case "version":
		fmt.Printf("statarb-cli %s\n", version)

	case "symbols":
		market := domain.MarketCrypto
		if len(os.Args) > 2 {
			market = domain.Market(os.Args[2])
		}
		pstore := store.NewParquetStore(cfg.Storage.DataDir)
		symbols, err := pstore.ListSymbols(ctx, market)
		if err != nil {
			fatal(err)
		}
		for _, s := range symbols {
			fmt.Println(s)
		}

	case "runs":
		limit := 10
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil {
				fatal(fmt.Errorf("invalid limit %q", os.Args[2]))
			}
			limit = n
		}
		rstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			fatal(err)
		}
		defer rstore.Close()

		runs, err := rstore.ListRuns(ctx, limit)
		if err != nil {
			fatal(err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tMODE\tRANGE\tSYMBOLS\tCOST(BPS)")
		for _, r := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s..%s\t%d\t%g\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Mode,
				r.StartDate, r.EndDate, len(r.Symbols), r.CostBps)
		}
		w.Flush()

	case "metrics":
		if len(os.Args) < 3 {
			fatal(fmt.Errorf("metrics requires a run ID"))
		}
		runID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fatal(fmt.Errorf("invalid run ID %q", os.Args[2]))
		}
		rstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			fatal(err)
		}
		defer rstore.Close()

		metrics, err := rstore.GetRunMetrics(ctx, runID)
		if err != nil {
			fatal(err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STRATEGY\tTOTAL\tANN.RET\tANN.VOL\tSHARPE\tMAXDD\tWIN")
		for _, m := range metrics {
			fmt.Fprintf(w, "%s\t%.2f%%\t%.2f%%\t%.2f%%\t%.2f\t%.2f%%\t%.2f%%\n",
				m.Label, m.TotalReturn*100, m.AnnualizedReturn*100,
				m.AnnualizedVolatility*100, m.SharpeRatio,
				m.MaxDrawdown*100, m.WinRate*100)
		}
		w.Flush()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	path := "config/statarb.yaml"
	if p := os.Getenv("STATARB_CONFIG"); p != "" {
		path = p
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "statarb-cli: %v\n", err)
	os.Exit(1)
}
