// Package timeseries provides date-indexed vectors and matrices with an
// explicit NaN sentinel for undefined cells. All arithmetic propagates NaN
// rather than coercing it to zero.
package timeseries

import (
	"fmt"
	"math"
	"time"
)

// Series is a date-indexed vector of float64 values. Dates are strictly
// increasing and unique; NaN marks an undefined observation.
type Series struct {
	dates  []time.Time
	values []float64
}

// NewSeries creates a Series from parallel date and value slices. It returns
// an error if the slices differ in length or the dates are not strictly
// increasing.
func NewSeries(dates []time.Time, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("timeseries: %d dates but %d values", len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("timeseries: dates not strictly increasing at index %d (%s)", i, dates[i].Format("2006-01-02"))
		}
	}
	s := &Series{
		dates:  make([]time.Time, len(dates)),
		values: make([]float64, len(values)),
	}
	copy(s.dates, dates)
	copy(s.values, values)
	return s, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.values) }

// Date returns the date at index i.
func (s *Series) Date(i int) time.Time { return s.dates[i] }

// Value returns the value at index i.
func (s *Series) Value(i int) float64 { return s.values[i] }

// Dates returns a copy of the date index.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Values returns a copy of the values.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// FirstValid returns the index of the first non-NaN observation, or -1 if
// every observation is NaN.
func (s *Series) FirstValid() int {
	for i, v := range s.values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// DropNaN returns a new Series containing only the non-NaN observations.
func (s *Series) DropNaN() *Series {
	var dates []time.Time
	var values []float64
	for i, v := range s.values {
		if !math.IsNaN(v) {
			dates = append(dates, s.dates[i])
			values = append(values, v)
		}
	}
	return &Series{dates: dates, values: values}
}

// AlignSeries restricts both series to their common dates, preserving date
// order. The returned series share the same index.
func AlignSeries(a, b *Series) (*Series, *Series) {
	inB := make(map[time.Time]int, len(b.dates))
	for i, d := range b.dates {
		inB[d] = i
	}

	var dates []time.Time
	var av, bv []float64
	for i, d := range a.dates {
		j, ok := inB[d]
		if !ok {
			continue
		}
		dates = append(dates, d)
		av = append(av, a.values[i])
		bv = append(bv, b.values[j])
	}
	return &Series{dates: dates, values: av}, &Series{dates: dates, values: bv}
}
