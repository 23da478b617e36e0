package models

import (
	"math"
	"time"
)

// GapFillPolicy controls how missing calendar days are filled when a series
// is built from sparse observations.
type GapFillPolicy int

const (
	// GapFillCarry repeats the last known value across missing days and
	// backfills the leading gap with the first known value. Used for prices
	// and FX rates, where a non-trading day has no new economic information.
	GapFillCarry GapFillPolicy = iota

	// GapFillZero treats missing days as zero. Used for flow series (cash
	// movements, fees) where an empty day genuinely means no activity.
	GapFillZero
)

// SeriesPoint is a single dated observation used to construct a Series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a continuous daily-indexed sequence of float64 values.
// Every calendar day between Start and End (inclusive) has exactly one value.
//
// Reads outside the range clamp: before Start the series reads 0 (no
// position, no activity), after End it reads the last value (carry-forward).
// This makes summing series with different ranges safe without explicit
// reindexing.
type Series struct {
	start  time.Time
	values []float64
}

// Day truncates t to midnight UTC. All series indexing happens on calendar
// days, never intraday.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewSeries creates a zero-valued series spanning start to end inclusive.
func NewSeries(start, end time.Time) *Series {
	start = Day(start)
	end = Day(end)
	if end.Before(start) {
		return &Series{start: start, values: []float64{0}}
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return &Series{start: start, values: make([]float64, days)}
}

// NewSeriesFromPoints builds a daily series from sparse observations,
// filling gaps according to policy. Points outside [start, end] are ignored.
func NewSeriesFromPoints(points []SeriesPoint, start, end time.Time, policy GapFillPolicy) *Series {
	s := NewSeries(start, end)

	observed := make([]bool, len(s.values))
	for _, p := range points {
		if idx, ok := s.index(p.Date); ok {
			s.values[idx] += p.Value
			observed[idx] = true
		}
	}

	if policy == GapFillCarry {
		// Forward fill from the first observation onward.
		last := math.NaN()
		for i := range s.values {
			if observed[i] {
				last = s.values[i]
			} else if !math.IsNaN(last) {
				s.values[i] = last
			}
		}
		// Backfill the leading gap with the first known value.
		first := math.NaN()
		for i := range s.values {
			if observed[i] {
				first = s.values[i]
				break
			}
		}
		if !math.IsNaN(first) {
			for i := range s.values {
				if observed[i] {
					break
				}
				s.values[i] = first
			}
		}
	}

	return s
}

// Start returns the first day of the series.
func (s *Series) Start() time.Time { return s.start }

// End returns the last day of the series.
func (s *Series) End() time.Time {
	return s.start.AddDate(0, 0, len(s.values)-1)
}

// Len returns the number of days in the series.
func (s *Series) Len() int { return len(s.values) }

func (s *Series) index(t time.Time) (int, bool) {
	d := Day(t)
	idx := int(d.Sub(s.start).Hours() / 24)
	if idx < 0 || idx >= len(s.values) {
		return 0, false
	}
	return idx, true
}

// At returns the value on day t. Before the range it returns 0; after the
// range it returns the last value.
func (s *Series) At(t time.Time) float64 {
	d := Day(t)
	if d.Before(s.start) {
		return 0
	}
	if idx, ok := s.index(d); ok {
		return s.values[idx]
	}
	return s.values[len(s.values)-1]
}

// Last returns the final value of the series.
func (s *Series) Last() float64 { return s.values[len(s.values)-1] }

// First returns the first value of the series.
func (s *Series) First() float64 { return s.values[0] }

// Set assigns the value for a single day. Days outside the range are ignored.
func (s *Series) Set(t time.Time, v float64) {
	if idx, ok := s.index(t); ok {
		s.values[idx] = v
	}
}

// AddFrom adds delta to every value from day t onward. This is the step
// update used for cumulative series: a transaction shifts the level from
// its date forward, never retroactively.
func (s *Series) AddFrom(t time.Time, delta float64) {
	d := Day(t)
	idx := 0
	if d.After(s.start) {
		i, ok := s.index(d)
		if !ok {
			return
		}
		idx = i
	}
	for i := idx; i < len(s.values); i++ {
		s.values[i] += delta
	}
}

// SetFrom assigns v to every value from day t onward.
func (s *Series) SetFrom(t time.Time, v float64) {
	d := Day(t)
	idx := 0
	if d.After(s.start) {
		i, ok := s.index(d)
		if !ok {
			return
		}
		idx = i
	}
	for i := idx; i < len(s.values); i++ {
		s.values[i] = v
	}
}

// Clone returns an independent copy of the series.
func (s *Series) Clone() *Series {
	values := make([]float64, len(s.values))
	copy(values, s.values)
	return &Series{start: s.start, values: values}
}

// Map returns a new series with fn applied to every value.
func (s *Series) Map(fn func(time.Time, float64) float64) *Series {
	out := s.Clone()
	for i := range out.values {
		out.values[i] = fn(s.start.AddDate(0, 0, i), out.values[i])
	}
	return out
}

// Each calls fn for every day/value pair in order.
func (s *Series) Each(fn func(time.Time, float64)) {
	for i, v := range s.values {
		fn(s.start.AddDate(0, 0, i), v)
	}
}

// CumSum returns the running sum of the series. Used to turn daily flow
// series into cumulative ledgers.
func (s *Series) CumSum() *Series {
	out := s.Clone()
	var sum float64
	for i, v := range out.values {
		sum += v
		out.values[i] = sum
	}
	return out
}

// TrailingSum returns, for each day, the sum of daily increments of a
// cumulative series over the preceding window. The receiver must be a
// cumulative series (monotone step levels, not flows).
func (s *Series) TrailingSum(window int) *Series {
	out := s.Clone()
	for i := range out.values {
		day := s.start.AddDate(0, 0, i)
		out.values[i] = s.At(day) - s.At(day.AddDate(0, 0, -window))
	}
	return out
}

// SumSeries sums multiple series column-wise over the union of their date
// ranges. Each input contributes 0 before its start and its last value after
// its end (the Series.At clamp semantics).
func SumSeries(series ...*Series) *Series {
	var start, end time.Time
	for _, s := range series {
		if s == nil {
			continue
		}
		if start.IsZero() || s.Start().Before(start) {
			start = s.Start()
		}
		if end.IsZero() || s.End().After(end) {
			end = s.End()
		}
	}
	if start.IsZero() {
		return nil
	}

	out := NewSeries(start, end)
	for i := range out.values {
		day := start.AddDate(0, 0, i)
		for _, s := range series {
			if s != nil {
				out.values[i] += s.At(day)
			}
		}
	}
	return out
}
