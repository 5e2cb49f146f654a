// Package crypto gathers OHLCV bars for crypto pairs from the Binance
// public market-data API.
package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"statarb/internal/domain"
	"statarb/internal/gather"
	"statarb/internal/store"
	"statarb/internal/util"
)

// Compile-time interface check.
var _ gather.Gatherer = (*KlineGatherer)(nil)

// maxKlinesPerRequest is the Binance /api/v3/klines page size limit.
const maxKlinesPerRequest = 1000

// KlineGatherer gathers daily klines for crypto pairs via the Binance
// public API and writes them to the bar store.
type KlineGatherer struct {
	baseURL    string
	interval   string
	client     *http.Client
	store      store.BarStore
	limiter    *util.RateLimiter
	maxRetries int
	log        *slog.Logger
}

// NewKlineGatherer creates a KlineGatherer against the given Binance base
// URL, writing fetched bars to s.
func NewKlineGatherer(baseURL, interval string, timeout time.Duration, rateLimitPerMin, maxRetries int, s store.BarStore) *KlineGatherer {
	return &KlineGatherer{
		baseURL:    baseURL,
		interval:   interval,
		client:     &http.Client{Timeout: timeout},
		store:      s,
		limiter:    util.NewBurstRateLimiter(rateLimitPerMin, 10),
		maxRetries: maxRetries,
		log:        slog.Default().With("gatherer", "binance-klines"),
	}
}

// Name returns the gatherer identifier.
func (g *KlineGatherer) Name() string { return "binance-klines" }

// Gather fetches klines for each symbol over the range and writes them to
// the store. A symbol whose fetch fails is logged and skipped; the error is
// returned only if every symbol fails.
func (g *KlineGatherer) Gather(ctx context.Context, symbols []string, rng gather.DateRange) error {
	var fetched int
	for _, sym := range symbols {
		bars, err := g.fetchSymbol(ctx, sym, rng)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Warn("fetch failed, skipping symbol", "symbol", sym, "err", err)
			continue
		}
		if len(bars) == 0 {
			g.log.Warn("no klines returned", "symbol", sym)
			continue
		}
		if err := g.store.WriteBars(ctx, bars, domain.MarketCrypto); err != nil {
			return fmt.Errorf("writing bars for %s: %w", sym, err)
		}
		g.log.Info("symbol gathered", "symbol", sym, "bars", len(bars))
		fetched++
	}
	if fetched == 0 {
		return fmt.Errorf("all %d symbols failed", len(symbols))
	}
	return nil
}

// fetchSymbol pages through /api/v3/klines until the range is covered.
// Each page holds up to 1000 klines; the next page starts one millisecond
// past the last open time.
func (g *KlineGatherer) fetchSymbol(ctx context.Context, symbol string, rng gather.DateRange) ([]domain.Bar, error) {
	var bars []domain.Bar

	startMs := rng.Start.UnixMilli()
	endMs := rng.End.UnixMilli()

	for startMs <= endMs {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var page []kline
		err := util.Retry(ctx, g.maxRetries, time.Second, func() error {
			var err error
			page, err = g.fetchPage(ctx, symbol, startMs, endMs)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, k := range page {
			bars = append(bars, domain.Bar{
				Symbol:      symbol,
				Timestamp:   time.UnixMilli(k.OpenTime).UTC(),
				Open:        k.Open,
				High:        k.High,
				Low:         k.Low,
				Close:       k.Close,
				Volume:      k.Volume,
				QuoteVolume: k.QuoteVolume,
				TradeCount:  k.Trades,
			})
		}

		if len(page) < maxKlinesPerRequest {
			break
		}
		startMs = page[len(page)-1].OpenTime + 1
	}
	return bars, nil
}

func (g *KlineGatherer) fetchPage(ctx context.Context, symbol string, startMs, endMs int64) ([]kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", g.interval)
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(maxKlinesPerRequest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines status %d: %s", resp.StatusCode, body)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding klines: %w", err)
	}

	klines := make([]kline, 0, len(raw))
	for _, row := range raw {
		k, err := parseKline(row)
		if err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// kline is one parsed row of the Binance klines response.
type kline struct {
	OpenTime    int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	Trades      int64
}

// parseKline decodes one kline row. Binance encodes klines as positional
// JSON arrays with prices and volumes as strings:
//
//	[openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...]
func parseKline(row []json.RawMessage) (kline, error) {
	if len(row) < 9 {
		return kline{}, fmt.Errorf("kline row has %d fields, want at least 9", len(row))
	}

	var k kline
	if err := json.Unmarshal(row[0], &k.OpenTime); err != nil {
		return kline{}, fmt.Errorf("parsing open time: %w", err)
	}
	if err := json.Unmarshal(row[8], &k.Trades); err != nil {
		return kline{}, fmt.Errorf("parsing trade count: %w", err)
	}

	for _, f := range []struct {
		idx  int
		dst  *float64
		name string
	}{
		{1, &k.Open, "open"},
		{2, &k.High, "high"},
		{3, &k.Low, "low"},
		{4, &k.Close, "close"},
		{5, &k.Volume, "volume"},
		{7, &k.QuoteVolume, "quote volume"},
	} {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return kline{}, fmt.Errorf("parsing %s: %w", f.name, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return kline{}, fmt.Errorf("parsing %s %q: %w", f.name, s, err)
		}
		*f.dst = v
	}
	return k, nil
}
