package models

import "time"

// DownsampleToWeekly keeps the last value per ISO week. Reporting layers use
// this to thin daily series without losing period-end levels.
func (s *Series) DownsampleToWeekly() []SeriesPoint {
	var out []SeriesPoint
	var prev SeriesPoint
	have := false

	s.Each(func(day time.Time, v float64) {
		if have {
			y1, w1 := prev.Date.ISOWeek()
			y2, w2 := day.ISOWeek()
			if y1 != y2 || w1 != w2 {
				out = append(out, prev)
			}
		}
		prev = SeriesPoint{Date: day, Value: v}
		have = true
	})
	if have {
		out = append(out, prev)
	}
	return out
}

// DownsampleToMonthly keeps the last value per calendar month.
func (s *Series) DownsampleToMonthly() []SeriesPoint {
	var out []SeriesPoint
	var prev SeriesPoint
	have := false

	s.Each(func(day time.Time, v float64) {
		if have && (prev.Date.Month() != day.Month() || prev.Date.Year() != day.Year()) {
			out = append(out, prev)
		}
		prev = SeriesPoint{Date: day, Value: v}
		have = true
	})
	if have {
		out = append(out, prev)
	}
	return out
}
