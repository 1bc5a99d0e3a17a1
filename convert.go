package perform

import (
	"github.com/shopspring/decimal"
)

// Converter turns money of any currency into the term currency of a
// calculation run. A converter never fails hard: when no rate is available
// it reports ok=false and the caller decides how to degrade.
type Converter interface {
	// TermCurrency is the currency every conversion resolves to.
	TermCurrency() string
	// Convert returns the value of m in the term currency on a date. When
	// no rate is known on or before the date it returns zero and false.
	Convert(on Date, m Money) (Money, bool)
}

// RateTable is a Converter backed by per-currency exchange rate histories.
// Rates are quoted as the value of one unit of the base currency in the
// term currency; lookups fall back to the nearest prior rate.
type RateTable struct {
	term  string
	rates map[string]*history
}

// NewRateTable creates an empty rate table resolving to the term currency.
func NewRateTable(term string) *RateTable {
	return &RateTable{term: term, rates: make(map[string]*history)}
}

func (t *RateTable) TermCurrency() string { return t.term }

// SetRate records the value of one unit of base in the term currency.
func (t *RateTable) SetRate(on Date, base string, rate decimal.Decimal) *RateTable {
	h := t.rates[base]
	if h == nil {
		h = &history{}
		t.rates[base] = h
	}
	h.Append(on, rate)
	return t
}

func (t *RateTable) Convert(on Date, m Money) (Money, bool) {
	c := m.Currency()
	if c == t.term || c == "" {
		return M(m.value, t.term), true
	}
	h := t.rates[c]
	if h == nil {
		return M(0, t.term), false
	}
	rate, ok := h.ValueAsOf(on)
	if !ok {
		return M(0, t.term), false
	}
	return M(m.value.Mul(rate), t.term), true
}

// convertOrWarn converts m, or records a warning and returns zero in the
// term currency when the rate is missing. Calculations keep going on a
// missing rate; the day is still reported, just with the value degraded.
func convertOrWarn(conv Converter, on Date, m Money, ws *Warnings) Money {
	v, ok := conv.Convert(on, m)
	if !ok {
		ws.addf(on, "no %s/%s exchange rate on or before %s, using zero", m.Currency(), conv.TermCurrency(), on)
		return M(0, conv.TermCurrency())
	}
	return v
}
