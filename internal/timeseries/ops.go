package timeseries

import (
	"math"
	"sort"
)

// ---------------------------------------------------------------------------
// Rolling-window and shift operations
// ---------------------------------------------------------------------------

// RollingMean computes, per column, the trailing simple moving average over
// window periods. A cell is defined only when the full window of trailing
// observations exists and none of them is NaN; otherwise it is NaN.
func (f *Frame) RollingMean(window int) *Frame {
	out := NewFrame(f.dates, f.cols)
	if window <= 0 {
		return out
	}
	for j := range f.cols {
		for i := window - 1; i < len(f.dates); i++ {
			sum := 0.0
			valid := true
			for k := i - window + 1; k <= i; k++ {
				v := f.data[k][j]
				if math.IsNaN(v) {
					valid = false
					break
				}
				sum += v
			}
			if valid {
				out.data[i][j] = sum / float64(window)
			}
		}
	}
	return out
}

// Shift moves every row forward by periods: row t of the result holds row
// t-periods of the input. The leading rows are NaN.
func (f *Frame) Shift(periods int) *Frame {
	out := NewFrame(f.dates, f.cols)
	for i := periods; i < len(f.dates); i++ {
		copy(out.data[i], f.data[i-periods])
	}
	return out
}

// Negate returns the frame with every defined cell negated.
func (f *Frame) Negate() *Frame {
	out := f.Clone()
	for i := range out.data {
		for j := range out.data[i] {
			out.data[i][j] = -out.data[i][j]
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Cross-sectional (per-row) operations
// ---------------------------------------------------------------------------

// RankRows ranks each row's defined cells ascending, starting at 1. Ties
// receive the average of the tied ranks. NaN cells stay NaN and are excluded
// from the ranking.
func (f *Frame) RankRows() *Frame {
	out := NewFrame(f.dates, f.cols)
	for i := range f.data {
		type entry struct {
			col int
			val float64
		}
		var valid []entry
		for j, v := range f.data[i] {
			if !math.IsNaN(v) {
				valid = append(valid, entry{col: j, val: v})
			}
		}
		sort.Slice(valid, func(a, b int) bool { return valid[a].val < valid[b].val })

		// Assign average ranks across runs of equal values.
		for lo := 0; lo < len(valid); {
			hi := lo
			for hi+1 < len(valid) && valid[hi+1].val == valid[lo].val {
				hi++
			}
			// Ranks are 1-based: positions lo..hi share the mean rank.
			rank := float64(lo+hi+2) / 2
			for k := lo; k <= hi; k++ {
				out.data[i][valid[k].col] = rank
			}
			lo = hi + 1
		}
	}
	return out
}

// DemeanRows subtracts each row's mean (over defined cells) from that row.
// Rows with no defined cells are left all-NaN.
func (f *Frame) DemeanRows() *Frame {
	out := f.Clone()
	for i := range out.data {
		sum := 0.0
		n := 0
		for _, v := range out.data[i] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		for j, v := range out.data[i] {
			if !math.IsNaN(v) {
				out.data[i][j] = v - mean
			}
		}
	}
	return out
}

// NormalizeAbsRows divides each row by the sum of its absolute defined
// values, so defined cells sum to 1 in absolute value. A row whose
// denominator is zero becomes all-NaN: there is no position to take.
func (f *Frame) NormalizeAbsRows() *Frame {
	out := f.Clone()
	for i := range out.data {
		gross := 0.0
		for _, v := range out.data[i] {
			if !math.IsNaN(v) {
				gross += math.Abs(v)
			}
		}
		if gross == 0 {
			for j := range out.data[i] {
				out.data[i][j] = math.NaN()
			}
			continue
		}
		for j, v := range out.data[i] {
			if !math.IsNaN(v) {
				out.data[i][j] = v / gross
			}
		}
	}
	return out
}

// RowAllNaN reports whether every cell in row i is NaN.
func (f *Frame) RowAllNaN(i int) bool {
	for _, v := range f.data[i] {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// AllNaN reports whether every cell in the frame is NaN.
func (f *Frame) AllNaN() bool {
	for i := range f.data {
		if !f.RowAllNaN(i) {
			return false
		}
	}
	return true
}
