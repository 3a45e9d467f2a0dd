package holdings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateUnrealizedPnL(t *testing.T) {
	asOf := time.Date(2025, time.January, 10, 16, 0, 0, 0, time.UTC)
	prices := PriceMap{
		{Market: US, Symbol: "AAPL"}: {Price: USD(170), AsOf: asOf},
	}

	records := CalculateUnrealizedPnL(context.Background(), aaplLedger().txs, prices)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "AAPL", r.Symbol)
	assert.True(t, r.Quantity.Equal(Q(150)))
	assertMoney(t, USD(23000), r.TotalCost)
	assertMoney(t, USD(153.33), r.AvgCost)
	assertMoney(t, USD(25500), r.MarketValue)
	assertMoney(t, USD(2500), r.PnL)
	assert.InDelta(t, 10.8696, float64(r.ReturnRate), 0.001)
	assert.False(t, r.PriceFallback)
	assert.Equal(t, asOf, r.PriceAsOf)
}

func TestCalculateUnrealizedPnL_WeightedAverageReduction(t *testing.T) {
	l := aaplLedger().sell("s1", "AAPL", 120, 170, "2025-01-03")
	prices := PriceMap{{Market: US, Symbol: "AAPL"}: {Price: USD(160)}}

	records := CalculateUnrealizedPnL(context.Background(), l.txs, prices)

	require.Len(t, records, 1)
	// 23000 - 120 * 23000/150
	assertMoney(t, USD(4600), records[0].TotalCost)
	assertMoney(t, USD(153.33), records[0].AvgCost)
}

func TestCalculateUnrealizedPnL_SkipsClosedPositions(t *testing.T) {
	l := aaplLedger().sell("s1", "AAPL", 150, 170, "2025-01-03")
	records := CalculateUnrealizedPnL(context.Background(), l.txs, PriceMap{})
	assert.Empty(t, records)
}

func TestCalculateUnrealizedPnL_Fallback(t *testing.T) {
	boom := errors.New("network down")
	tests := []struct {
		name   string
		lookup PriceLookup
		want   error
	}{
		{"lookup error", PriceFunc(func(context.Context, string, Market) (Quote, error) { return Quote{}, boom }), boom},
		{"missing", PriceMap{}, ErrPriceUnavailable},
		{"nil lookup", nil, ErrPriceUnavailable},
		{"wrong currency", PriceMap{{Market: US, Symbol: "AAPL"}: {Price: TWD(5000)}}, ErrPriceUnavailable},
		{"zero price", PriceMap{{Market: US, Symbol: "AAPL"}: {Price: USD(0)}}, ErrPriceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records := CalculateUnrealizedPnL(context.Background(), aaplLedger().txs, tc.lookup)

			require.Len(t, records, 1)
			r := records[0]
			assert.True(t, r.PriceFallback)
			assert.ErrorIs(t, r.PriceError, tc.want)
			assert.True(t, r.CurrentPrice.Equal(r.AvgCost))
			assert.True(t, r.PnL.IsZero())
			assert.Zero(t, r.ReturnRate)
		})
	}
}

func TestFetchQuotes_IsolatesFailures(t *testing.T) {
	var inFlight, peak atomic.Int32
	lookup := PriceFunc(func(_ context.Context, symbol string, market Market) (Quote, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if symbol == "BAD" {
			return Quote{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
		}
		return Quote{Price: M(100, market.Currency())}, nil
	})
	keys := []Key{
		{US, "AAPL"}, {US, "BAD"}, {TW, "2330"}, {HK, "0700"}, {JP, "7203"}, {US, "MSFT"},
	}

	quotes, failed := FetchQuotes(context.Background(), lookup, keys, 2)

	assert.Len(t, quotes, 5)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[Key{US, "BAD"}], ErrPriceUnavailable)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, "TWD", quotes[Key{TW, "2330"}].Price.Currency())
}

func TestOpenPositions(t *testing.T) {
	l := aaplLedger().
		buy("m1", "MSFT", 1, 300, "2025-01-01").
		sell("m2", "MSFT", 1, 300, "2025-01-02")
	assert.Equal(t, []Key{{US, "AAPL"}}, OpenPositions(l.txs))
}

func TestPrefetchPrices(t *testing.T) {
	var calls atomic.Int32
	lookup := PriceFunc(func(_ context.Context, symbol string, market Market) (Quote, error) {
		calls.Add(1)
		if market == TW {
			return Quote{}, fmt.Errorf("%w: closed", ErrPriceUnavailable)
		}
		return Quote{Price: USD(200)}, nil
	})
	l := aaplLedger().add("t1", Buy, TW, "2330", 1000, 600, "2025-01-02")

	prices := PrefetchPrices(context.Background(), lookup, l.txs, 2)
	assert.Equal(t, int32(2), calls.Load())

	records := CalculateUnrealizedPnL(context.Background(), l.txs, prices)
	require.Len(t, records, 2)
	assert.False(t, records[0].PriceFallback)
	assert.True(t, records[1].PriceFallback)
	assert.ErrorContains(t, records[1].PriceError, "closed")
	assert.Equal(t, int32(2), calls.Load(), "no request after the prefetch")
}
