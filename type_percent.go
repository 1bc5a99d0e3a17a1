package perform

import "fmt"

// Percent is a return expressed as a fraction (0.015 means +1.5%).
type Percent float64

// Equal compares two returns with a fixed precision of one basis point.
func (p Percent) Equal(q Percent) bool {
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p)*100)
}

// SignedString is like String with an explicit sign, and "-" for zero.
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p)*100)
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}
