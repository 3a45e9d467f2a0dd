package quote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/cache"
)

// Router dispatches price and name requests to the source of the market
// and caches the answers.
type Router struct {
	sources map[holdings.Market]Source
	cache   *cache.Store
	price   cache.Kind
	name    cache.Kind
}

// NewRouter returns a router over sources. A nil store disables caching.
func NewRouter(sources map[holdings.Market]Source, store *cache.Store) *Router {
	return &Router{sources: sources, cache: store, price: cache.Price, name: cache.Name}
}

// NewDefaultRouter wires the public services of every market.
func NewDefaultRouter(finnhubToken string, client *http.Client, store *cache.Store) *Router {
	return NewRouter(map[holdings.Market]Source{
		holdings.US: NewFinnhub(finnhubToken, client),
		holdings.TW: NewFinMind(client),
		holdings.HK: NewYahoo(".HK", client),
		holdings.JP: NewYahoo(".T", client),
	}, store)
}

// WithTTL overrides the time to live of cached prices and names. Zero
// durations keep the defaults.
func (r *Router) WithTTL(price, name time.Duration) *Router {
	if price > 0 {
		r.price.TTL = price
	}
	if name > 0 {
		r.name.TTL = name
	}
	return r
}

func (r *Router) source(market holdings.Market) (Source, error) {
	s, ok := r.sources[market]
	if !ok {
		return nil, fmt.Errorf("no price source for market %q", market)
	}
	return s, nil
}

// Price implements holdings.PriceLookup. Errors wrap holdings.ErrPriceUnavailable.
func (r *Router) Price(ctx context.Context, symbol string, market holdings.Market) (holdings.Quote, error) {
	symbol = holdings.NormalizeSymbol(symbol)
	key := holdings.Key{Market: market, Symbol: symbol}.String()
	q, err := cache.GetOrFetch(r.cache, r.price, key, func() (holdings.Quote, error) {
		s, err := r.source(market)
		if err != nil {
			return holdings.Quote{}, err
		}
		price, asOf, err := s.Quote(ctx, symbol)
		if err != nil {
			return holdings.Quote{}, err
		}
		return holdings.Quote{Price: holdings.M(price, market.Currency()), AsOf: asOf}, nil
	})
	if err != nil {
		return holdings.Quote{}, fmt.Errorf("%w: %w", holdings.ErrPriceUnavailable, err)
	}
	return q, nil
}

// Name returns the security name of symbol.
func (r *Router) Name(ctx context.Context, symbol string, market holdings.Market) (string, error) {
	symbol = holdings.NormalizeSymbol(symbol)
	key := holdings.Key{Market: market, Symbol: symbol}.String()
	return cache.GetOrFetch(r.cache, r.name, key, func() (string, error) {
		s, err := r.source(market)
		if err != nil {
			return "", err
		}
		return s.Name(ctx, symbol)
	})
}

var _ holdings.PriceLookup = (*Router)(nil)
