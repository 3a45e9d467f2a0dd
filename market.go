package holdings

import (
	"fmt"
	"strings"
)

// Market is the exchange a security trades on. It determines the trade currency.
type Market string

const (
	US Market = "US"
	TW Market = "TW"
	HK Market = "HK"
	JP Market = "JP"
)

// Markets lists all supported markets in reporting order.
var Markets = []Market{US, TW, HK, JP}

// Currency returns the ISO code of the currency trades are settled in.
func (m Market) Currency() string {
	switch m {
	case US:
		return "USD"
	case TW:
		return "TWD"
	case HK:
		return "HKD"
	case JP:
		return "JPY"
	default:
		return ""
	}
}

// Valid reports whether m is a supported market.
func (m Market) Valid() bool { return m.Currency() != "" }

// ParseMarket parses a market code, case insensitive.
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unsupported market %q", s)
	}
	return m, nil
}
