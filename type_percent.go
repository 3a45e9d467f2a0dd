package holdings

import "fmt"

// Percent is a ratio expressed in percent (5 means 5%).
type Percent float64

// Equal reports whether two return rates are the same to a hundredth of a
// basis point. Rates are computed in float64 and never compare exactly.
func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

// String formats a share such as a market distribution, "42.00%".
func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

// SignedString formats a return rate with its sign, "+12.50%" for a gain
// and "-3.20%" for a loss. A flat position renders as "-".
func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
