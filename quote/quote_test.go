package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/cache"
	"github.com/etnz/holdings/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve starts a server answering body for path, 404 otherwise. It
// records the last query.
func serve(t *testing.T, routes map[string]string, query *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if query != nil {
			*query = r.URL.RawQuery
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFinnhub(t *testing.T) {
	var query string
	srv := serve(t, map[string]string{
		"/quote":          `{"c":187.43,"d":1.2,"dp":0.6,"h":188,"l":185,"o":186,"pc":186.2,"t":1736524800}`,
		"/stock/profile2": `{"name":"Apple Inc","ticker":"AAPL"}`,
	}, &query)
	f := NewFinnhub("secret", srv.Client())
	f.BaseURL = srv.URL

	price, asOf, err := f.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "187.43", price.String())
	assert.Equal(t, time.Unix(1736524800, 0).UTC(), asOf)

	name, err := f.Name(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", name)
	assert.Contains(t, query, "token=secret")
}

func TestFinnhub_UnknownSymbol(t *testing.T) {
	srv := serve(t, map[string]string{
		"/quote":          `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`,
		"/stock/profile2": `{}`,
	}, nil)
	f := NewFinnhub("secret", srv.Client())
	f.BaseURL = srv.URL

	_, _, err := f.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = f.Name(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestFinMind(t *testing.T) {
	var query string
	srv := serve(t, map[string]string{
		"/data": `{"msg":"success","status":200,"data":[
			{"date":"2025-01-09","stock_id":"2330","open":1080,"max":1090,"min":1070,"close":1085},
			{"date":"2025-01-10","stock_id":"2330","open":1085,"max":1100,"min":1080,"close":1095.5}]}`,
	}, &query)
	f := NewFinMind(srv.Client())
	f.BaseURL = srv.URL
	f.today = func() date.Date { return date.New(2025, time.January, 10) }

	price, asOf, err := f.Quote(context.Background(), "2330")
	require.NoError(t, err)
	assert.Equal(t, "1095.5", price.String())
	assert.Equal(t, date.New(2025, time.January, 10).Time(), asOf)
	assert.Contains(t, query, "dataset=TaiwanStockPrice")
	assert.Contains(t, query, "start_date=2025-01-05")
	assert.Contains(t, query, "end_date=2025-01-10")
}

func TestFinMind_NoData(t *testing.T) {
	srv := serve(t, map[string]string{"/data": `{"msg":"success","status":200,"data":[]}`}, nil)
	f := NewFinMind(srv.Client())
	f.BaseURL = srv.URL

	_, _, err := f.Quote(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = f.Name(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestFinMind_Name(t *testing.T) {
	srv := serve(t, map[string]string{
		"/data": `{"data":[{"industry_category":"半導體業","stock_id":"2330","stock_name":"台積電","type":"twse"}]}`,
	}, nil)
	f := NewFinMind(srv.Client())
	f.BaseURL = srv.URL

	name, err := f.Name(context.Background(), "2330")
	require.NoError(t, err)
	assert.Equal(t, "台積電", name)
}

func TestYahoo(t *testing.T) {
	srv := serve(t, map[string]string{
		"/v8/finance/chart/0700.HK": `{"chart":{"result":[{"meta":{"currency":"HKD","symbol":"0700.HK","regularMarketPrice":412.6,"regularMarketTime":1736496000,"longName":"Tencent Holdings Limited","shortName":"TENCENT"}}],"error":null}}`,
		"/v8/finance/chart/7203.T":  `{"chart":{"result":[{"meta":{"currency":"JPY","symbol":"7203.T","regularMarketPrice":2870,"shortName":"TOYOTA MOTOR CORP"}}],"error":null}}`,
	}, nil)

	hk := NewYahoo(".HK", srv.Client())
	hk.BaseURL = srv.URL
	price, asOf, err := hk.Quote(context.Background(), "700")
	require.NoError(t, err)
	assert.Equal(t, "412.6", price.String())
	assert.Equal(t, time.Unix(1736496000, 0).UTC(), asOf)
	name, err := hk.Name(context.Background(), "0700")
	require.NoError(t, err)
	assert.Equal(t, "Tencent Holdings Limited", name)

	jp := NewYahoo(".T", srv.Client())
	jp.BaseURL = srv.URL
	price, _, err = jp.Quote(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, "2870", price.String())
	name, err = jp.Name(context.Background(), "7203")
	require.NoError(t, err)
	assert.Equal(t, "TOYOTA MOTOR CORP", name)
}

func TestYahoo_Errors(t *testing.T) {
	srv := serve(t, map[string]string{
		"/v8/finance/chart/0001.HK": `{"chart":{"result":[],"error":{"code":"Not Found"}}}`,
	}, nil)
	hk := NewYahoo(".HK", srv.Client())
	hk.BaseURL = srv.URL

	_, _, err := hk.Quote(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, _, err = hk.Quote(context.Background(), "9999")
	assert.ErrorContains(t, err, "404")
}

// fakeSource counts calls and answers a fixed price.
type fakeSource struct {
	price decimal.Decimal
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Quote(context.Context, string) (decimal.Decimal, time.Time, error) {
	f.calls.Add(1)
	return f.price, time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), f.err
}

func (f *fakeSource) Name(_ context.Context, symbol string) (string, error) {
	f.calls.Add(1)
	return "name of " + symbol, f.err
}

func TestRouter(t *testing.T) {
	us := &fakeSource{price: decimal.RequireFromString("187.43")}
	tw := &fakeSource{err: ErrUnknownSymbol}
	r := NewRouter(map[holdings.Market]Source{holdings.US: us, holdings.TW: tw}, cache.New(time.Minute))

	for range 3 {
		q, err := r.Price(context.Background(), "aapl", holdings.US)
		require.NoError(t, err)
		assert.Equal(t, "USD", q.Price.Currency())
		assert.Equal(t, "187.43", q.Price.Decimal().String())
	}
	assert.Equal(t, int32(1), us.calls.Load(), "cached")

	name, err := r.Name(context.Background(), "aapl", holdings.US)
	require.NoError(t, err)
	assert.Equal(t, "name of AAPL", name)

	_, err = r.Price(context.Background(), "2330", holdings.TW)
	assert.ErrorIs(t, err, holdings.ErrPriceUnavailable)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = r.Price(context.Background(), "2330", holdings.TW)
	require.Error(t, err)
	assert.Equal(t, int32(2), tw.calls.Load(), "errors are not cached")

	_, err = r.Price(context.Background(), "0700", holdings.HK)
	assert.ErrorIs(t, err, holdings.ErrPriceUnavailable)
}

func TestRouter_UnrealizedFallback(t *testing.T) {
	r := NewRouter(map[holdings.Market]Source{
		holdings.US: &fakeSource{err: errors.New("boom")},
	}, nil)
	txs := []holdings.Transaction{{
		ID: "b1", Symbol: "AAPL", Market: holdings.US, Type: holdings.Buy,
		Quantity: holdings.Q(10), Price: holdings.M(100, "USD"), Date: date.New(2025, time.January, 1),
	}}

	records := holdings.CalculateUnrealizedPnL(context.Background(), txs, r)

	require.Len(t, records, 1)
	assert.True(t, records[0].PriceFallback)
	assert.ErrorIs(t, records[0].PriceError, holdings.ErrPriceUnavailable)
}

func TestRateClient(t *testing.T) {
	srv := serve(t, map[string]string{
		"/k/latest/TWD": `{"result":"success","base_code":"TWD","time_last_update_unix":1736467201,
			"conversion_rates":{"TWD":1,"USD":0.03125,"HKD":0.25,"JPY":4,"EUR":0.03}}`,
		"/bad/latest/TWD": `{"result":"error","error-type":"invalid-key"}`,
	}, nil)

	c := NewRateClient("k", srv.Client())
	c.BaseURL = srv.URL
	table, err := c.LatestRates(context.Background(), "TWD")
	require.NoError(t, err)
	assert.Equal(t, "TWD", table.Reporting)
	assert.Equal(t, time.Unix(1736467201, 0).UTC(), table.AsOf)
	assert.Equal(t, "32", table.Rates["USD"].String())
	assert.Equal(t, "4", table.Rates["HKD"].String())
	assert.Equal(t, "0.25", table.Rates["JPY"].String())
	assert.NotContains(t, table.Rates, "EUR")
	assert.NotContains(t, table.Rates, "TWD")

	c.Key = "bad"
	_, err = c.LatestRates(context.Background(), "TWD")
	assert.ErrorIs(t, err, holdings.ErrRatesUnavailable)
	assert.ErrorContains(t, err, "invalid-key")

	c.Key = "missing"
	_, err = c.LatestRates(context.Background(), "TWD")
	assert.ErrorIs(t, err, holdings.ErrRatesUnavailable)
}

func TestRateClient_WithNormalizer(t *testing.T) {
	srv := serve(t, map[string]string{
		"/k/latest/USD": `{"result":"success","base_code":"USD","time_last_update_unix":1736467201,
			"conversion_rates":{"USD":1,"TWD":32,"HKD":8,"JPY":160}}`,
	}, nil)
	c := NewRateClient("k", srv.Client())
	c.BaseURL = srv.URL

	n := holdings.NewNormalizer(c, "USD", nil, 0)
	table := n.EnsureFresh(context.Background())
	assert.Equal(t, holdings.RateLive, table.Origin)

	got, err := n.ToReporting(holdings.M(3200, "TWD"))
	require.NoError(t, err)
	assert.True(t, got.Round(2).Equal(holdings.M(100, "USD")), "got %s", got.Decimal())
}
