package perform

import (
	"iter"
	"slices"

	"github.com/shopspring/decimal"
)

// history stores a chronological series of decimal values, one per date.
// Dates are unique and the series is always sorted; lookup is by binary
// search with nearest-prior fallback, the access pattern of both price
// histories and FX rate tables.
type history struct {
	days   []Date
	values []decimal.Decimal
}

// Len returns the number of points in the history.
func (h *history) Len() int { return len(h.days) }

// Append adds a point to the history. An existing value at that date is
// overwritten.
func (h *history) Append(on Date, v decimal.Decimal) *history {
	i, found := h.search(on)
	if found {
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// ValueAsOf returns the value on a given day, or the most recent value
// before it. It returns false if the history has no point on or before day.
func (h *history) ValueAsOf(day Date) (decimal.Decimal, bool) {
	i, found := h.search(day)
	if found {
		return h.values[i], true
	}
	if i == 0 {
		return decimal.Decimal{}, false
	}
	return h.values[i-1], true
}

// Values iterates all date/value pairs in chronological order.
func (h *history) Values() iter.Seq2[Date, decimal.Decimal] {
	return func(yield func(Date, decimal.Decimal) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

func (h *history) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, func(d, t Date) int {
		switch {
		case d.After(t):
			return 1
		case d.Before(t):
			return -1
		default:
			return 0
		}
	})
}
