package holdings

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/holdings/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSell_SingleLot(t *testing.T) {
	m, err := MatchSell(K(US, "AAPL"), Q(80), aaplLedger().txs)
	require.NoError(t, err)

	assert.Equal(t, []string{"buy1"}, m.LinkedBuyIDs)
	assert.True(t, m.Remaining.IsZero())
	assertMoney(t, USD(12000), m.MatchedCost)

	b1, ok := m.Lot("buy1")
	require.True(t, ok)
	assert.True(t, b1.Remaining.Equal(Q(20)))
	assert.False(t, b1.IsFullySold())
}

func TestMatchSell_AcrossLots(t *testing.T) {
	m, err := MatchSell(K(US, "AAPL"), Q(120), aaplLedger().txs)
	require.NoError(t, err)

	assert.Equal(t, []string{"buy1", "buy2"}, m.LinkedBuyIDs)
	assertMoney(t, USD(100*150+20*160), m.MatchedCost)

	b1, _ := m.Lot("buy1")
	assert.True(t, b1.IsFullySold())
	b2, _ := m.Lot("buy2")
	assert.True(t, b2.Remaining.Equal(Q(30)))
}

func TestMatchSell_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		key       Key
		quantity  Quantity
		want      error
		available Quantity
	}{
		{"not held", K(US, "TSLA"), Q(10), ErrNotHeld, Q(0)},
		{"oversell", K(US, "AAPL"), Q(151), ErrInsufficientQuantity, Q(150)},
		{"held on another market", K(HK, "AAPL"), Q(10), ErrNotHeld, Q(0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txs := aaplLedger().txs
			before := cloneTransactions(txs)

			m, err := MatchSell(tc.key, tc.quantity, txs)

			assert.Nil(t, m)
			require.ErrorIs(t, err, tc.want)
			var se *SellError
			require.True(t, errors.As(err, &se))
			assert.True(t, se.Available.Equal(tc.available), "available %s", se.Available)
			assert.Equal(t, before, txs)
		})
	}
}

func TestMatchSell_InvalidQuantity(t *testing.T) {
	for _, q := range []Quantity{Q(0), Q(-1), Q(1.5)} {
		_, err := MatchSell(K(US, "AAPL"), q, aaplLedger().txs)
		assert.ErrorIs(t, err, ErrInvalidTransaction, "quantity %s", q)
	}
}

func TestProcessSell_RoundTrip(t *testing.T) {
	txs := aaplLedger().txs
	before := cloneTransactions(txs)
	sell := Transaction{
		ID: "sell1", Symbol: "AAPL", StockName: "Apple", Market: US, Type: Sell,
		Quantity: Q(80), Price: USD(155), Date: date.MustParse("2025-01-03"),
		Timestamp: time.Date(2025, time.January, 3, 10, 0, 0, 0, time.UTC),
	}

	res, err := ProcessSell(sell, txs)
	require.NoError(t, err)

	assert.Equal(t, before, txs, "input is not modified")
	assert.Equal(t, []string{"buy1"}, res.Sell.LinkedBuyIDs)
	assert.Empty(t, sell.LinkedBuyIDs)
	require.Len(t, res.Transactions, 3)
	assertMoney(t, USD(80*155-80*150), res.RealizedPnL())

	after := CalculateHoldings(K(US, "AAPL"), res.Transactions)
	assert.True(t, after.TotalQuantity.Equal(Q(150-80)))
}

func TestProcessSell_NotASell(t *testing.T) {
	txs := aaplLedger().txs
	_, err := ProcessSell(txs[0], txs)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestCreateTransaction(t *testing.T) {
	txs := aaplLedger().txs

	buy, err := CreateTransaction(TransactionInput{
		Symbol: " msft ", Market: US, Type: Buy, Quantity: Q(3), Price: USD(300).Decimal(), Date: date.MustParse("2025-02-01"),
	}, txs)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", buy.Symbol)
	assert.Equal(t, "MSFT", buy.StockName)
	assert.Equal(t, "USD", buy.Price.Currency())
	assert.NotEmpty(t, buy.ID)
	assert.False(t, buy.Timestamp.IsZero())

	sell, err := CreateTransaction(TransactionInput{
		Symbol: "AAPL", StockName: "Apple", Market: US, Type: Sell, Quantity: Q(120), Price: USD(170).Decimal(), Date: date.MustParse("2025-02-01"),
	}, txs)
	require.NoError(t, err)
	assert.Equal(t, []string{"buy1", "buy2"}, sell.LinkedBuyIDs)

	_, err = CreateTransaction(TransactionInput{
		Symbol: "TSLA", Market: US, Type: Sell, Quantity: Q(10), Price: USD(200).Decimal(), Date: date.MustParse("2025-02-01"),
	}, txs)
	assert.ErrorIs(t, err, ErrNotHeld)

	_, err = CreateTransaction(TransactionInput{
		Symbol: "AAPL", Market: "XX", Type: Buy, Quantity: Q(1), Price: USD(1).Decimal(), Date: date.MustParse("2025-02-01"),
	}, txs)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestValidateSell_SameSymbolOnTwoMarkets(t *testing.T) {
	txs := dualListing().txs
	tests := []struct {
		key       Key
		quantity  Quantity
		want      error
		available Quantity
	}{
		{K(TW, "1301"), Q(1000), nil, Q(1000)},
		{K(JP, "1301"), Q(200), nil, Q(200)},
		{K(JP, "1301"), Q(201), ErrInsufficientQuantity, Q(200)},
		{K(HK, "1301"), Q(1), ErrNotHeld, Q(0)},
	}
	for _, tc := range tests {
		t.Run(tc.key.String()+"/"+tc.quantity.String(), func(t *testing.T) {
			h, err := ValidateSell(tc.key, tc.quantity, txs)
			if tc.want == nil {
				require.NoError(t, err)
				assert.True(t, h.TotalQuantity.Equal(tc.available))
				return
			}
			require.ErrorIs(t, err, tc.want)
			var se *SellError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.key.Market, se.Market)
			assert.True(t, se.Available.Equal(tc.available), "available %s", se.Available)
		})
	}
}

func TestProcessSell_SameSymbolOnTwoMarkets(t *testing.T) {
	txs := dualListing().txs
	day := date.MustParse("2025-01-04")
	ts := time.Date(2025, time.January, 4, 10, 0, 0, 0, time.UTC)

	jp := Transaction{
		ID: "jps", Symbol: "1301", StockName: "Kyokuyo", Market: JP, Type: Sell,
		Quantity: Q(150), Price: JPY(3500), Date: day, Timestamp: ts,
	}
	res, err := ProcessSell(jp, txs)
	require.NoError(t, err)
	assert.Equal(t, []string{"jp1", "jp2"}, res.Sell.LinkedBuyIDs)
	assert.Equal(t, JP, res.Market)
	assertMoney(t, JPY(100*3000+50*3200), res.MatchedCost)
	assertMoney(t, JPY(150*3500-(100*3000+50*3200)), res.RealizedPnL())

	tw := CalculateHoldings(K(TW, "1301"), res.Transactions)
	assert.True(t, tw.TotalQuantity.Equal(Q(1000)), "TW lots are untouched")
	left := CalculateHoldings(K(JP, "1301"), res.Transactions)
	assert.True(t, left.TotalQuantity.Equal(Q(50)))

	// a JP sell never draws from TW lots
	only := txs[:1]
	jp.Quantity = Q(10)
	_, err = ProcessSell(jp, only)
	assert.ErrorIs(t, err, ErrNotHeld)

	realized, anomalies := CalculateRealizedPnL(res.Transactions)
	assert.Empty(t, anomalies)
	require.Len(t, realized, 1)
	assertMoney(t, res.RealizedPnL(), realized[0].PnL)
}
