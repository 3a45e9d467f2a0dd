// Package quote fetches market prices, security names and exchange rates
// from public web services.
//
// Each market has its own service: Finnhub for US, FinMind for TW and the
// Yahoo chart API for HK and JP. A Router dispatches on the market and
// caches results, it implements holdings.PriceLookup. RateClient
// implements holdings.RateSource over exchangerate-api.
package quote

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownSymbol is returned when a service does not know a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Source is a price and name service for one market. Prices are in the
// market currency.
type Source interface {
	Quote(ctx context.Context, symbol string) (price decimal.Decimal, asOf time.Time, err error)
	Name(ctx context.Context, symbol string) (string, error)
}
