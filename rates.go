package holdings

import (
	"context"
	"sync"
	"time"

	"github.com/etnz/holdings/cache"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RateOrigin tells where a rate table comes from.
type RateOrigin string

const (
	RateLive     RateOrigin = "live"     // just fetched
	RateCached   RateOrigin = "cached"   // fetched within the time to live
	RateStale    RateOrigin = "stale"    // last live table, the refresh failed
	RateFallback RateOrigin = "fallback" // static table, nothing was ever fetched
)

// RateTable holds the value of one unit of each currency in the reporting
// currency.
type RateTable struct {
	Reporting string
	Rates     map[string]decimal.Decimal
	AsOf      time.Time
	Origin    RateOrigin
}

// Rate returns the value of one unit of currency in the reporting currency.
func (t RateTable) Rate(currency string) (decimal.Decimal, bool) {
	if currency == t.Reporting {
		return decimal.NewFromInt(1), true
	}
	r, ok := t.Rates[currency]
	return r, ok
}

// RateSource fetches the latest rates for a reporting currency.
// Implementations return ErrRatesUnavailable (possibly wrapped) on failure.
type RateSource interface {
	LatestRates(ctx context.Context, reporting string) (RateTable, error)
}

// static rates to TWD.
var staticTWD = map[string]decimal.Decimal{
	"TWD": decimal.NewFromInt(1),
	"USD": decimal.RequireFromString("28.5"),
	"HKD": decimal.RequireFromString("3.7"),
	"JPY": decimal.RequireFromString("0.2"),
}

// StaticRates returns the built-in fallback table expressed in reporting.
// Only currencies of the supported markets are known.
func StaticRates(reporting string) RateTable {
	t := RateTable{Reporting: reporting, Rates: make(map[string]decimal.Decimal), Origin: RateFallback}
	base, ok := staticTWD[reporting]
	if !ok {
		log.Warn().Str("currency", reporting).Msg("no static rates for reporting currency")
		return t
	}
	for c, r := range staticTWD {
		if c == reporting {
			continue
		}
		t.Rates[c] = r.DivRound(base, 16)
	}
	return t
}

// Normalizer converts amounts into the reporting currency.
//
// Rates must be loaded with UpdateRates or EnsureFresh before any
// conversion. Live tables are cached for the rates time to live. When a
// refresh fails the last live table is used, or the static table when
// there is none.
type Normalizer struct {
	source    RateSource
	reporting string
	store     *cache.Store
	kind      cache.Kind

	mu       sync.RWMutex
	current  *RateTable
	lastLive *RateTable
}

// NewNormalizer returns a Normalizer fetching from source. A nil store gets
// a private one; a zero ttl uses cache.Rates.TTL.
func NewNormalizer(source RateSource, reporting string, store *cache.Store, ttl time.Duration) *Normalizer {
	if store == nil {
		store = cache.New(10 * time.Minute)
	}
	kind := cache.Rates
	if ttl > 0 {
		kind.TTL = ttl
	}
	return &Normalizer{source: source, reporting: reporting, store: store, kind: kind}
}

// Reporting returns the reporting currency.
func (n *Normalizer) Reporting() string { return n.reporting }

// Table returns the rate table in use, if any.
func (n *Normalizer) Table() (RateTable, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.current == nil {
		return RateTable{}, false
	}
	return *n.current, true
}

// UpdateRates fetches live rates. It never fails: on error the stale or
// static table is installed instead.
func (n *Normalizer) UpdateRates(ctx context.Context) RateTable {
	var t RateTable
	var err error
	if n.source == nil {
		err = ErrRatesUnavailable
	} else {
		t, err = n.source.LatestRates(ctx, n.reporting)
	}
	if err == nil && t.Reporting != n.reporting {
		err = ErrRatesUnavailable
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		t.Origin = RateLive
		if t.AsOf.IsZero() {
			t.AsOf = time.Now().UTC()
		}
		n.current, n.lastLive = &t, &t
		n.store.Set(n.kind, n.reporting, t)
		return t
	}

	if n.lastLive != nil {
		t = *n.lastLive
		t.Origin = RateStale
	} else {
		t = StaticRates(n.reporting)
	}
	log.Warn().Err(err).Str("currency", n.reporting).Str("origin", string(t.Origin)).Msg("rates unavailable")
	n.current = &t
	return t
}

// EnsureFresh returns the cached live table or refreshes it.
func (n *Normalizer) EnsureFresh(ctx context.Context) RateTable {
	if t, ok := cache.Lookup[RateTable](n.store, n.kind, n.reporting); ok {
		t.Origin = RateCached
		n.mu.Lock()
		n.current = &t
		n.mu.Unlock()
		return t
	}
	return n.UpdateRates(ctx)
}

// Invalidate forces the next EnsureFresh to refresh.
func (n *Normalizer) Invalidate() { n.store.Delete(n.kind, n.reporting) }

// ToReporting converts m into the reporting currency. It returns
// ErrRatesNotLoaded when no rate table was loaded. An unknown currency is
// passed through unconverted.
func (n *Normalizer) ToReporting(m Money) (Money, error) {
	n.mu.RLock()
	t := n.current
	n.mu.RUnlock()
	if t == nil {
		return Money{}, ErrRatesNotLoaded
	}
	if m.Currency() == "" {
		return M(m.Decimal(), n.reporting), nil
	}
	r, ok := t.Rate(m.Currency())
	if !ok {
		log.Warn().Str("currency", m.Currency()).Msg("unknown currency, not converted")
		return M(m.Decimal(), n.reporting), nil
	}
	return M(m.Decimal().Mul(r), n.reporting), nil
}
