package holdings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds concurrent price requests.
const DefaultFetchConcurrency = 4

// Quote is a market price at a point in time.
type Quote struct {
	Price Money
	AsOf  time.Time
}

// PriceLookup returns the current price of a symbol on a market.
// Implementations return ErrPriceUnavailable (possibly wrapped) when no
// price can be obtained.
type PriceLookup interface {
	Price(ctx context.Context, symbol string, market Market) (Quote, error)
}

// PriceFunc adapts a function to a PriceLookup.
type PriceFunc func(ctx context.Context, symbol string, market Market) (Quote, error)

func (f PriceFunc) Price(ctx context.Context, symbol string, market Market) (Quote, error) {
	return f(ctx, symbol, market)
}

// PriceMap is a fixed set of quotes.
type PriceMap map[Key]Quote

func (m PriceMap) Price(_ context.Context, symbol string, market Market) (Quote, error) {
	q, ok := m[Key{Market: market, Symbol: NormalizeSymbol(symbol)}]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s:%s", ErrPriceUnavailable, market, symbol)
	}
	return q, nil
}

// FetchQuotes queries lookup for every key with at most limit requests in
// flight. A failing key never prevents the others from being fetched:
// successes and failures are returned separately.
func FetchQuotes(ctx context.Context, lookup PriceLookup, keys []Key, limit int) (map[Key]Quote, map[Key]error) {
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}
	quotes := make([]Quote, len(keys))
	errs := make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, k := range keys {
		g.Go(func() error {
			quotes[i], errs[i] = lookup.Price(ctx, k.Symbol, k.Market)
			return nil
		})
	}
	_ = g.Wait()

	ok := make(map[Key]Quote)
	failed := make(map[Key]error)
	for i, k := range keys {
		if errs[i] != nil {
			failed[k] = errs[i]
			continue
		}
		ok[k] = quotes[i]
	}
	return ok, failed
}

// PrefetchPrices fetches the price of every open position in txs
// concurrently and returns a lookup answering from the results, failures
// included.
func PrefetchPrices(ctx context.Context, lookup PriceLookup, txs []Transaction, limit int) PriceLookup {
	if lookup == nil {
		return PriceMap(nil)
	}
	quotes, failed := FetchQuotes(ctx, lookup, OpenPositions(txs), limit)
	return PriceFunc(func(_ context.Context, symbol string, market Market) (Quote, error) {
		k := Key{Market: market, Symbol: symbol}
		if err, ok := failed[k]; ok {
			return Quote{}, err
		}
		if q, ok := quotes[k]; ok {
			return q, nil
		}
		return Quote{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, k)
	})
}

// UnrealizedPnL is the mark-to-market result of an open position.
type UnrealizedPnL struct {
	Symbol       string
	Market       Market
	Quantity     Quantity
	AvgCost      Money
	TotalCost    Money
	CurrentPrice Money
	MarketValue  Money
	PnL          Money
	ReturnRate   Percent
	PriceAsOf    time.Time

	// PriceFallback is set when the average cost stands in for the
	// current price, PriceError tells why.
	PriceFallback bool
	PriceError    error
}

// Currency returns the currency of the record amounts.
func (u UnrealizedPnL) Currency() string { return u.Market.Currency() }

// position is a running weighted-average position.
type position struct {
	key       Key
	quantity  Quantity
	totalCost Money
}

// positions aggregates txs per (market, symbol) in date order. A sell
// reduces the cost by the average cost before the sale.
// Positions are returned in order of first appearance.
func positions(txs []Transaction) []*position {
	var order []*position
	index := make(map[Key]*position)
	for _, tx := range chronological(txs) {
		k := tx.Key()
		p, ok := index[k]
		if !ok {
			p = &position{key: k, totalCost: M(0, tx.Currency())}
			index[k] = p
			order = append(order, p)
		}
		switch tx.Type {
		case Buy:
			p.quantity = p.quantity.Add(tx.Quantity)
			p.totalCost = p.totalCost.Add(tx.Amount())
		case Sell:
			before := p.quantity
			p.quantity = p.quantity.Sub(tx.Quantity)
			if before.IsPositive() {
				p.totalCost = p.totalCost.Sub(p.totalCost.Div(before).Mul(tx.Quantity))
			}
		}
	}
	return order
}

// OpenPositions returns the keys of every position with a positive quantity.
func OpenPositions(txs []Transaction) []Key {
	var keys []Key
	for _, p := range positions(txs) {
		if p.quantity.IsPositive() {
			keys = append(keys, p.key)
		}
	}
	return keys
}

// CalculateUnrealizedPnL values every open position at its current price.
// When prices fails for a position, its average cost is used instead so the
// record shows no gain and the failure is kept in PriceError.
func CalculateUnrealizedPnL(ctx context.Context, txs []Transaction, prices PriceLookup) []UnrealizedPnL {
	var records []UnrealizedPnL
	for _, p := range positions(txs) {
		if !p.quantity.IsPositive() {
			continue
		}
		var q Quote
		var err error
		if prices == nil {
			err = ErrPriceUnavailable
		} else {
			q, err = prices.Price(ctx, p.key.Symbol, p.key.Market)
		}
		records = append(records, newUnrealizedPnL(p, q, err))
	}
	return records
}

func newUnrealizedPnL(p *position, q Quote, err error) UnrealizedPnL {
	avg := p.totalCost.Div(p.quantity)
	r := UnrealizedPnL{
		Symbol:    p.key.Symbol,
		Market:    p.key.Market,
		Quantity:  p.quantity,
		AvgCost:   avg,
		TotalCost: p.totalCost,
	}
	if err == nil {
		switch {
		case q.Price.Currency() != "" && q.Price.Currency() != p.key.Market.Currency():
			err = fmt.Errorf("%w: quote in %s for a %s position", ErrPriceUnavailable, q.Price.Currency(), p.key.Market.Currency())
		case !q.Price.IsPositive():
			err = fmt.Errorf("%w: non positive price %s", ErrPriceUnavailable, q.Price.Decimal())
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", r.Symbol).Str("market", string(r.Market)).Msg("price unavailable, using average cost")
		r.PriceFallback = true
		r.PriceError = err
		r.CurrentPrice = avg
	} else {
		r.CurrentPrice = M(q.Price.Decimal(), p.key.Market.Currency())
		r.PriceAsOf = q.AsOf
	}
	r.MarketValue = r.CurrentPrice.Mul(r.Quantity)
	r.PnL = r.CurrentPrice.Sub(avg).Mul(r.Quantity)
	r.ReturnRate = r.CurrentPrice.Sub(avg).Ratio(avg)
	return r
}
