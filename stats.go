package perform

import (
	"math"
	"time"
)

// Calendar tells trading days from holidays. Statistics that compare
// day-over-day returns skip holidays, where a flat quote would otherwise
// dilute the measure.
type Calendar interface {
	IsHoliday(on Date) bool
}

// CalendarFunc adapts a function to the Calendar interface.
type CalendarFunc func(on Date) bool

func (f CalendarFunc) IsHoliday(on Date) bool { return f(on) }

// Weekends is the simplest trade calendar: Saturdays and Sundays are
// holidays.
var Weekends Calendar = CalendarFunc(func(on Date) bool {
	wd := on.Weekday()
	return wd == time.Saturday || wd == time.Sunday
})

// Drawdown is the deepest peak-to-trough fall of a compounded series.
type Drawdown struct {
	Depth  Percent // as a fraction of the peak level, negative or zero
	Peak   Date
	Trough Date
}

// MaxDrawdown scans the accumulated series of an index for its deepest
// fall from a running peak. An empty or monotonically rising series has a
// zero drawdown.
func MaxDrawdown(x *PerformanceIndex) Drawdown {
	var d Drawdown
	if x.Len() == 0 {
		return d
	}

	peakLevel := 1 + float64(x.Accumulated[0])
	peakDate := x.Dates[0]
	d.Peak, d.Trough = peakDate, peakDate

	for i := 1; i < x.Len(); i++ {
		level := 1 + float64(x.Accumulated[i])
		if level > peakLevel {
			peakLevel = level
			peakDate = x.Dates[i]
			continue
		}
		if fall := Percent(level/peakLevel - 1); fall < d.Depth {
			d.Depth = fall
			d.Peak = peakDate
			d.Trough = x.Dates[i]
		}
	}
	return d
}

// Volatility is the standard deviation of the qualifying daily returns of
// an index. The seed day never qualifies; days without a valuation basis
// and holidays of the calendar are excluded. A nil calendar excludes
// nothing.
func Volatility(x *PerformanceIndex, cal Calendar) Percent {
	var returns []float64
	for i := 1; i < x.Len(); i++ {
		if x.Totals[i-1].IsZero() {
			continue
		}
		if cal != nil && cal.IsHoliday(x.Dates[i]) {
			continue
		}
		returns = append(returns, float64(x.Delta[i]))
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sum float64
	for _, r := range returns {
		sum += (r - mean) * (r - mean)
	}
	return Percent(math.Sqrt(sum / float64(len(returns)-1)))
}
