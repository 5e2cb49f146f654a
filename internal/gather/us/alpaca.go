// Package us gathers daily OHLCV bars for US equities via the Alpaca
// market-data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"statarb/internal/domain"
	"statarb/internal/gather"
	"statarb/internal/store"
)

// Compile-time interface check.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// DailyBarGatherer gathers daily bar data for US equities via the Alpaca
// market-data API and writes it to the bar store.
type DailyBarGatherer struct {
	client *marketdata.Client
	store  store.BarStore
	log    *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials and target store.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &DailyBarGatherer{
		client: marketdata.NewClient(opts),
		store:  s,
		log:    slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Gather fetches daily bars for the given symbols in one multi-symbol call
// and writes them to the store. Symbols the API returns nothing for are
// logged and skipped.
func (g *DailyBarGatherer) Gather(ctx context.Context, symbols []string, rng gather.DateRange) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     rng.Start,
		End:       rng.End,
		Feed:      "sip",
	})
	if err != nil {
		return fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	hit := make(map[string]struct{}, len(multiBars))
	for symbol, alpacaBars := range multiBars {
		hit[strings.ToUpper(symbol)] = struct{}{}
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:      strings.ToUpper(symbol),
				Timestamp:   ab.Timestamp.UTC(),
				Open:        ab.Open,
				High:        ab.High,
				Low:         ab.Low,
				Close:       ab.Close,
				Volume:      float64(ab.Volume),
				QuoteVolume: float64(ab.Volume) * ab.VWAP,
				TradeCount:  int64(ab.TradeCount),
			})
		}
	}

	for _, sym := range symbols {
		if _, ok := hit[strings.ToUpper(sym)]; !ok {
			g.log.Warn("no bars returned", "symbol", sym)
		}
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars returned for any of %d symbols", len(symbols))
	}

	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Symbol != bars[j].Symbol {
			return bars[i].Symbol < bars[j].Symbol
		}
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	if err := g.store.WriteBars(ctx, bars, domain.MarketUS); err != nil {
		return fmt.Errorf("writing bars: %w", err)
	}
	g.log.Info("bars gathered", "symbols", len(hit), "bars", len(bars))
	return nil
}
