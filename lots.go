package holdings

import (
	"cmp"
	"slices"
	"time"

	"github.com/etnz/holdings/date"
	"github.com/rs/zerolog/log"
)

// Key identifies a position: a symbol on a market. The same code may be
// listed on several markets (2330 on TW, 1301 on both TW and JP), each is a
// distinct position with its own lots and currency.
type Key struct {
	Market Market
	Symbol string
}

// K returns the key of symbol on market, with the symbol normalized.
func K(market Market, symbol string) Key {
	return Key{Market: market, Symbol: NormalizeSymbol(symbol)}
}

func (k Key) String() string { return string(k.Market) + ":" + k.Symbol }

// Compare orders keys by market then symbol.
func (k Key) Compare(x Key) int {
	return cmp.Or(cmp.Compare(k.Market, x.Market), cmp.Compare(k.Symbol, x.Symbol))
}

// Lot is the unconsumed part of a buy.
type Lot struct {
	TransactionID string
	Date          date.Date
	Quantity      Quantity
	Price         Money // unit cost
}

// Cost returns the cost basis of the lot.
func (l Lot) Cost() Money { return l.Price.Mul(l.Quantity) }

// lots is a FIFO queue of lots, oldest first.
type lots []Lot

// total returns the quantity held in all lots.
func (l lots) total() Quantity {
	var q Quantity
	for _, lot := range l {
		q = q.Add(lot.Quantity)
	}
	return q
}

// cost returns the cost basis of all lots.
func (l lots) cost() Money {
	var c Money
	for _, lot := range l {
		c = c.Add(lot.Cost())
	}
	return c
}

// sell consumes quantityToSell oldest first. It returns the consumed portions
// (one per lot touched) and the lots left. The receiver is not modified.
// If the lots cannot cover the quantity, sold.total() is less than quantityToSell.
func (l lots) sell(quantityToSell Quantity) (sold, remaining lots) {
	for _, currentLot := range l {
		if !quantityToSell.IsPositive() {
			remaining = append(remaining, currentLot)
			continue
		}
		consumed := quantityToSell.Min(currentLot.Quantity)
		sold = append(sold, Lot{
			TransactionID: currentLot.TransactionID,
			Date:          currentLot.Date,
			Quantity:      consumed,
			Price:         currentLot.Price,
		})
		quantityToSell = quantityToSell.Sub(consumed)
		if left := currentLot.Quantity.Sub(consumed); left.IsPositive() {
			currentLot.Quantity = left
			remaining = append(remaining, currentLot)
		}
	}
	return sold, remaining
}

// LotState is the derived state of a buy: how much of it is still open.
// It is recomputed from the transaction log on every query.
type LotState struct {
	TransactionID string
	Date          date.Date
	Timestamp     time.Time
	Quantity      Quantity // bought
	Remaining     Quantity // still open
	Price         Money
}

// IsFullySold reports whether nothing is left of the buy.
func (s LotState) IsFullySold() bool { return s.Remaining.IsZero() }

// Lot returns the open part of the buy.
func (s LotState) Lot() Lot {
	return Lot{TransactionID: s.TransactionID, Date: s.Date, Quantity: s.Remaining, Price: s.Price}
}

// LotStates replays the transactions of the position key and returns the
// state of every buy, ordered by timestamp. Sells consume buys oldest first.
// A sell that no open lot can cover is reported as an anomaly.
func LotStates(key Key, txs []Transaction) ([]LotState, []Anomaly) {
	key = K(key.Market, key.Symbol)
	var buys, sells []Transaction
	for _, tx := range txs {
		if tx.Key() != key {
			continue
		}
		switch tx.Type {
		case Buy:
			buys = append(buys, tx)
		case Sell:
			sells = append(sells, tx)
		}
	}
	slices.SortStableFunc(buys, byTimestamp)
	slices.SortStableFunc(sells, byTimestamp)

	states := make([]LotState, len(buys))
	index := make(map[string]int, len(buys))
	open := make(lots, 0, len(buys))
	for i, b := range buys {
		states[i] = LotState{
			TransactionID: b.ID,
			Date:          b.Date,
			Timestamp:     b.Timestamp,
			Quantity:      b.Quantity,
			Remaining:     b.Quantity,
			Price:         b.Price,
		}
		index[b.ID] = i
		open = append(open, states[i].Lot())
	}

	var anomalies []Anomaly
	for _, s := range sells {
		var sold lots
		sold, open = open.sell(s.Quantity)
		for _, portion := range sold {
			i := index[portion.TransactionID]
			states[i].Remaining = states[i].Remaining.Sub(portion.Quantity)
		}
		if unmatched := s.Quantity.Sub(sold.total()); unmatched.IsPositive() {
			log.Warn().
				Str("symbol", key.Symbol).
				Str("market", string(key.Market)).
				Str("tx", s.ID).
				Stringer("unmatched", unmatched).
				Msg("sell exceeds open lots")
			anomalies = append(anomalies, Anomaly{
				TransactionID: s.ID,
				Symbol:        key.Symbol,
				Market:        key.Market,
				Unmatched:     unmatched,
				Reason:        "sell exceeds open lots",
			})
		}
	}
	return states, anomalies
}

// BuildLots returns the open lots of the position key, oldest first.
func BuildLots(key Key, txs []Transaction) []Lot {
	states, _ := LotStates(key, txs)
	return openLots(states)
}

func openLots(states []LotState) lots {
	var open lots
	for _, s := range states {
		if s.Remaining.IsPositive() {
			open = append(open, s.Lot())
		}
	}
	return open
}
