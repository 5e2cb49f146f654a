package timeseries

import (
	"math"
	"sort"
	"time"
)

// Frame is a date-indexed matrix: rows are dates, columns are assets. Cells
// hold float64 values with NaN marking undefined entries.
type Frame struct {
	dates []time.Time
	cols  []string
	data  [][]float64 // data[row][col]
}

// Column pairs an asset name with its series, used to assemble a Frame.
type Column struct {
	Name   string
	Series *Series
}

// NewFrame creates an all-NaN Frame with the given date index and columns.
func NewFrame(dates []time.Time, cols []string) *Frame {
	f := &Frame{
		dates: make([]time.Time, len(dates)),
		cols:  make([]string, len(cols)),
		data:  make([][]float64, len(dates)),
	}
	copy(f.dates, dates)
	copy(f.cols, cols)
	for i := range f.data {
		row := make([]float64, len(cols))
		for j := range row {
			row[j] = math.NaN()
		}
		f.data[i] = row
	}
	return f
}

// FrameFromColumns assembles a Frame over the union of all column dates.
// Cells with no observation for a date are NaN.
func FrameFromColumns(cols []Column) *Frame {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, c := range cols {
		for _, d := range c.Series.dates {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				dates = append(dates, d)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	names := make([]string, len(cols))
	for j, c := range cols {
		names[j] = c.Name
	}

	f := NewFrame(dates, names)
	rowIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIdx[d] = i
	}
	for j, c := range cols {
		for i, d := range c.Series.dates {
			f.data[rowIdx[d]][j] = c.Series.values[i]
		}
	}
	return f
}

// NumRows returns the number of dates in the frame.
func (f *Frame) NumRows() int { return len(f.dates) }

// NumCols returns the number of columns in the frame.
func (f *Frame) NumCols() int { return len(f.cols) }

// Date returns the date of row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Dates returns a copy of the date index.
func (f *Frame) Dates() []time.Time {
	out := make([]time.Time, len(f.dates))
	copy(out, f.dates)
	return out
}

// Columns returns a copy of the column names.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (f *Frame) ColumnIndex(name string) int {
	for j, c := range f.cols {
		if c == name {
			return j
		}
	}
	return -1
}

// At returns the cell value at row i, column j.
func (f *Frame) At(i, j int) float64 { return f.data[i][j] }

// Set assigns the cell value at row i, column j.
func (f *Frame) Set(i, j int, v float64) { f.data[i][j] = v }

// Column extracts the named column as a Series sharing the frame's index.
// It returns nil if the column does not exist.
func (f *Frame) Column(name string) *Series {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil
	}
	values := make([]float64, len(f.dates))
	for i := range f.dates {
		values[i] = f.data[i][j]
	}
	s, _ := NewSeries(f.dates, values)
	return s
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.dates, f.cols)
	for i := range f.data {
		copy(out.data[i], f.data[i])
	}
	return out
}

// SliceRows returns a copy of the frame restricted to rows [from, to).
func (f *Frame) SliceRows(from, to int) *Frame {
	out := NewFrame(f.dates[from:to], f.cols)
	for i := from; i < to; i++ {
		copy(out.data[i-from], f.data[i])
	}
	return out
}

// SelectColumns returns a copy of the frame containing only the named
// columns, in the given order. Unknown names are ignored.
func (f *Frame) SelectColumns(names []string) *Frame {
	var keep []int
	var kept []string
	for _, name := range names {
		if j := f.ColumnIndex(name); j >= 0 {
			keep = append(keep, j)
			kept = append(kept, name)
		}
	}
	out := NewFrame(f.dates, kept)
	for i := range f.data {
		for k, j := range keep {
			out.data[i][k] = f.data[i][j]
		}
	}
	return out
}

// AlignFrames restricts both frames to their common dates, preserving date
// order. Column sets are left untouched.
func AlignFrames(a, b *Frame) (*Frame, *Frame) {
	inB := make(map[time.Time]int, len(b.dates))
	for i, d := range b.dates {
		inB[d] = i
	}

	var aRows, bRows []int
	var dates []time.Time
	for i, d := range a.dates {
		if j, ok := inB[d]; ok {
			aRows = append(aRows, i)
			bRows = append(bRows, j)
			dates = append(dates, d)
		}
	}

	outA := NewFrame(dates, a.cols)
	outB := NewFrame(dates, b.cols)
	for k := range dates {
		copy(outA.data[k], a.data[aRows[k]])
		copy(outB.data[k], b.data[bRows[k]])
	}
	return outA, outB
}
