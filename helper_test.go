package holdings

import (
	"testing"
	"time"

	"github.com/etnz/holdings/date"
)

// USD is a helper for test to create usd money from const.
func USD(v float64) Money { return M(v, "USD") }

// TWD is a helper for test to create twd money from const.
func TWD(v float64) Money { return M(v, "TWD") }

// JPY is a helper for test to create jpy money from const.
func JPY(v float64) Money { return M(v, "JPY") }

// ledger builds transactions in the given order. Timestamps follow the
// order so the FIFO order is the order of the arguments.
type ledger struct {
	txs []Transaction
	ts  time.Time
}

func newLedger() *ledger {
	return &ledger{ts: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
}

func (l *ledger) add(id string, typ TxType, market Market, symbol string, qty int, price float64, day string) *ledger {
	l.ts = l.ts.Add(time.Minute)
	l.txs = append(l.txs, Transaction{
		ID:        id,
		Symbol:    symbol,
		StockName: symbol,
		Market:    market,
		Type:      typ,
		Quantity:  Q(qty),
		Price:     M(price, market.Currency()),
		Date:      date.MustParse(day),
		Timestamp: l.ts,
	})
	return l
}

func (l *ledger) buy(id, symbol string, qty int, price float64, day string) *ledger {
	return l.add(id, Buy, US, symbol, qty, price, day)
}

func (l *ledger) sell(id, symbol string, qty int, price float64, day string) *ledger {
	return l.add(id, Sell, US, symbol, qty, price, day)
}

// dualListing holds 1301 bought on both TW and JP, TW first.
func dualListing() *ledger {
	return newLedger().
		add("tw1", Buy, TW, "1301", 1000, 50, "2025-01-01").
		add("jp1", Buy, JP, "1301", 100, 3000, "2025-01-02").
		add("jp2", Buy, JP, "1301", 100, 3200, "2025-01-03")
}

// assertMoney compares amounts rounded to 2 decimals.
func assertMoney(t *testing.T, want, got Money) {
	t.Helper()
	if !want.Round(2).Equal(got.Round(2)) {
		t.Errorf("got %s %s, want %s %s", got.Decimal(), got.Currency(), want.Decimal(), want.Currency())
	}
}
