// Package clean prepares fetched return and volume matrices for signal
// construction: start-date alignment, gap filling, date normalization, and
// liquidity filtering.
package clean

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"statarb/internal/timeseries"
)

// ErrInsufficientAssets is returned when fewer assets have usable history
// than the configured minimum. It is a configuration error and fatal to the
// run.
var ErrInsufficientAssets = errors.New("clean: insufficient assets with valid history")

// fillLimit caps how many consecutive gaps forward-filling may bridge.
const fillLimit = 5

// CleanAndAlign trims both matrices to a common start date — the first date
// on which minAssets assets have begun trading — then forward-fills gaps up
// to fillLimit periods, backward-fills what remains, and normalizes all
// dates to UTC midnight. Returns and volumes must share a column order.
func CleanAndAlign(returns, volumes *timeseries.Frame, minAssets int) (*timeseries.Frame, *timeseries.Frame, error) {
	log := slog.Default().With("component", "clean")

	// First valid observation per asset; assets with no history at all do
	// not count toward the minimum.
	var firstValid []int
	for _, name := range returns.Columns() {
		if i := returns.Column(name).FirstValid(); i >= 0 {
			firstValid = append(firstValid, i)
		}
	}
	if len(firstValid) < minAssets {
		return nil, nil, fmt.Errorf("%w: found %d, need %d", ErrInsufficientAssets, len(firstValid), minAssets)
	}

	// The start row is where the minAssets-th asset comes online.
	sort.Ints(firstValid)
	startRow := firstValid[minAssets-1]
	log.Info("aligned start date", "date", returns.Date(startRow).Format("2006-01-02"), "assets", len(firstValid))

	cleanReturns := returns.SliceRows(startRow, returns.NumRows())
	cleanVolumes, _ := timeseries.AlignFrames(volumes, cleanReturns)

	fillGaps(cleanReturns)
	fillGaps(cleanVolumes)

	cleanReturns = normalizeDates(cleanReturns)
	cleanVolumes = normalizeDates(cleanVolumes)

	log.Info("cleaning complete",
		"rows", cleanReturns.NumRows(),
		"assets", cleanReturns.NumCols(),
		"missingReturns", countNaN(cleanReturns),
		"missingVolumes", countNaN(cleanVolumes),
	)
	return cleanReturns, cleanVolumes, nil
}

// FilterByLiquidity drops assets whose share of zero-volume periods exceeds
// 1-threshold, and restricts the returns matrix to the surviving assets.
func FilterByLiquidity(volumes, returns *timeseries.Frame, threshold float64) (*timeseries.Frame, *timeseries.Frame) {
	total := volumes.NumRows()
	var keep []string
	for j, name := range volumes.Columns() {
		zero := 0
		for i := 0; i < total; i++ {
			if volumes.At(i, j) == 0 {
				zero++
			}
		}
		if total == 0 || float64(zero)/float64(total) <= 1-threshold {
			keep = append(keep, name)
		}
	}

	slog.Default().Info("liquidity filter", "threshold", threshold, "kept", len(keep), "of", volumes.NumCols())
	return returns.SelectColumns(keep), volumes.SelectColumns(keep)
}

// fillGaps forward-fills runs of up to fillLimit missing values per column,
// then backward-fills whatever is left, in place.
func fillGaps(f *timeseries.Frame) {
	for j := 0; j < f.NumCols(); j++ {
		last := math.NaN()
		run := 0
		for i := 0; i < f.NumRows(); i++ {
			v := f.At(i, j)
			if !math.IsNaN(v) {
				last = v
				run = 0
				continue
			}
			run++
			if !math.IsNaN(last) && run <= fillLimit {
				f.Set(i, j, last)
			}
		}

		next := math.NaN()
		for i := f.NumRows() - 1; i >= 0; i-- {
			v := f.At(i, j)
			if !math.IsNaN(v) {
				next = v
				continue
			}
			if !math.IsNaN(next) {
				f.Set(i, j, next)
			}
		}
	}
}

// normalizeDates rebuilds the frame with every date pinned to UTC midnight.
func normalizeDates(f *timeseries.Frame) *timeseries.Frame {
	dates := f.Dates()
	norm := make([]time.Time, len(dates))
	for i, d := range dates {
		u := d.UTC()
		norm[i] = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}

	out := timeseries.NewFrame(norm, f.Columns())
	for i := 0; i < f.NumRows(); i++ {
		for j := 0; j < f.NumCols(); j++ {
			out.Set(i, j, f.At(i, j))
		}
	}
	return out
}

func countNaN(f *timeseries.Frame) int {
	n := 0
	for i := 0; i < f.NumRows(); i++ {
		for j := 0; j < f.NumCols(); j++ {
			if math.IsNaN(f.At(i, j)) {
				n++
			}
		}
	}
	return n
}
