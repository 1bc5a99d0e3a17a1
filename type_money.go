package perform

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a fixed-point monetary amount tied to a currency code.
//
// The amount is held as an exact decimal in major units; rounding to the
// currency's minor unit happens only on display, on minor-unit extraction
// and on weight scaling. Arithmetic across two different currencies is a
// programming error and panics; cross-currency math must go through a
// [Converter] first.
type Money struct {
	value decimal.Decimal // major units
	cur   string
}

// M creates a Money amount in the given currency.
func M[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// Cents creates a Money amount from an integer count of the currency's
// smallest unit (cents for EUR or USD).
func Cents(amount int64, currency string) Money {
	cur := *money.New(0, currency).Currency()
	return Money{value: decimal.New(amount, -int32(cur.Fraction)), cur: currency}
}

// currency returns the full currency metadata, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// Currency returns the money's currency code.
func (m Money) Currency() string { return m.cur }

// MinorUnits returns the amount as an integer count of the currency's
// smallest unit, rounded half up.
func (m Money) MinorUnits() int64 {
	return m.value.Shift(int32(m.currency().Fraction)).Round(0).IntPart()
}

// Round returns the amount rounded half up to the currency's minor unit.
func (m Money) Round() Money {
	return Money{value: m.value.Round(int32(m.currency().Fraction)), cur: m.cur}
}

// String returns the display representation of the money value.
func (m Money) String() string {
	cur := m.currency()
	return cur.Formatter().Format(m.value.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// SignedString is like String with an explicit sign, and "-" for zero.
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Money) Equal(n Money) bool           { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                 { return m.value.IsZero() }
func (m Money) IsPositive() bool             { return m.value.IsPositive() }
func (m Money) IsNegative() bool             { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool        { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool     { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                   { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Abs() Money                   { return Money{value: m.value.Abs(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money         { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money         { return Money{value: m.value.Div(q.value), cur: m.cur} }
func (m Money) DivPrice(n Money) Quantity    { return Quantity{value: m.value.Div(n.value)} }
func (m Money) Add(n Money) Money            { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money            { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// Scale multiplies the amount by a fraction (0..1), rounded half up to the
// currency's minor unit. Used for weighted classification slices.
func (m Money) Scale(fraction decimal.Decimal) Money {
	return Money{value: m.value.Mul(fraction).Round(int32(m.currency().Fraction)), cur: m.cur}
}

// AsFloat returns an approximate float64 value. Only ratios may use it; all
// sums stay in decimal.
func (m Money) AsFloat() float64 { return m.value.InexactFloat64() }

// cur resolves the currency of a binary operation, treating "" as weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}
