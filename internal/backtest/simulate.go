// Package backtest simulates trading a weight matrix against realized
// returns and computes performance statistics for the resulting series.
package backtest

import (
	"math"
	"time"

	"statarb/internal/timeseries"
)

// DefaultCostRate is the default transaction cost per unit of turnover,
// 5 basis points.
const DefaultCostRate = 0.0005

// Simulate turns a weight matrix and a returns matrix into a realized net
// return series. Weights decided at the close of day t are applied to the
// returns of day t+1. Turnover on day t is the sum of absolute weight
// changes from t-1 to t, charged at costRate per unit. Days whose shifted
// weights are entirely undefined carry no position and are dropped.
func Simulate(weights, returns *timeseries.Frame, costRate float64) *timeseries.Series {
	// Align columns and dates before shifting.
	returns = returns.SelectColumns(weights.Columns())
	weights, returns = timeseries.AlignFrames(weights, returns)

	shifted := weights.Shift(1)

	var dates []time.Time
	var values []float64
	for i := 0; i < weights.NumRows(); i++ {
		if shifted.RowAllNaN(i) {
			continue
		}

		gross := 0.0
		for j := 0; j < weights.NumCols(); j++ {
			w, r := shifted.At(i, j), returns.At(i, j)
			if math.IsNaN(w) || math.IsNaN(r) {
				continue
			}
			gross += w * r
		}

		// Turnover from the unshifted weights: the cost of moving from
		// yesterday's book to today's.
		turnover := 0.0
		for j := 0; j < weights.NumCols(); j++ {
			prev, cur := weights.At(i-1, j), weights.At(i, j)
			if math.IsNaN(prev) || math.IsNaN(cur) {
				continue
			}
			turnover += math.Abs(cur - prev)
		}

		dates = append(dates, weights.Date(i))
		values = append(values, gross-turnover*costRate)
	}

	s, _ := timeseries.NewSeries(dates, values)
	return s
}
