// Package gather defines the data gathering interface and helpers for
// turning stored bars into aligned return and volume frames.
package gather

import (
	"context"
	"fmt"
	"math"
	"time"

	"statarb/internal/domain"
	"statarb/internal/store"
	"statarb/internal/timeseries"
)

// Gatherer fetches market data for a set of symbols and persists it.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Gather fetches bars for the given symbols over the range and writes
	// them to the backing store.
	Gather(ctx context.Context, symbols []string, rng DateRange) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LoadFrames reads cached bars for the given symbols and builds two frames
// on the union of observed dates: simple close-to-close returns and raw
// volumes. The first return of each symbol is undefined (NaN). Symbols with
// no cached bars are skipped.
func LoadFrames(ctx context.Context, s store.BarStore, symbols []string, market domain.Market, rng DateRange) (returns, volumes *timeseries.Frame, err error) {
	var retCols, volCols []timeseries.Column
	for _, sym := range symbols {
		bars, err := s.ReadBars(ctx, sym, market, rng.Start, rng.End)
		if err != nil {
			return nil, nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			continue
		}

		dates := make([]time.Time, len(bars))
		rets := make([]float64, len(bars))
		vols := make([]float64, len(bars))
		for i, b := range bars {
			dates[i] = b.Timestamp
			vols[i] = b.Volume
			if i == 0 || bars[i-1].Close == 0 {
				rets[i] = math.NaN()
			} else {
				rets[i] = b.Close/bars[i-1].Close - 1
			}
		}

		retSeries, err := timeseries.NewSeries(dates, rets)
		if err != nil {
			return nil, nil, fmt.Errorf("building return series for %s: %w", sym, err)
		}
		volSeries, err := timeseries.NewSeries(dates, vols)
		if err != nil {
			return nil, nil, fmt.Errorf("building volume series for %s: %w", sym, err)
		}
		retCols = append(retCols, timeseries.Column{Name: sym, Series: retSeries})
		volCols = append(volCols, timeseries.Column{Name: sym, Series: volSeries})
	}

	if len(retCols) == 0 {
		return nil, nil, fmt.Errorf("no cached bars for any of %d symbols", len(symbols))
	}

	return timeseries.FrameFromColumns(retCols), timeseries.FrameFromColumns(volCols), nil
}
