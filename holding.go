package holdings

import (
	"maps"
	"slices"
)

// Holding is the open position in a symbol. It is computed from the
// transaction log and never persisted.
type Holding struct {
	Symbol        string
	Market        Market
	TotalQuantity Quantity
	TotalCost     Money
	AverageCost   Money // 0 when nothing is held
	Lots          []Lot // open lots, oldest first
}

// CanSell reports whether anything is held.
func (h Holding) CanSell() bool { return h.TotalQuantity.IsPositive() }

// CalculateHoldings returns the open position key.
func CalculateHoldings(key Key, txs []Transaction) Holding {
	key = K(key.Market, key.Symbol)
	states, _ := LotStates(key, txs)
	return newHolding(key, openLots(states))
}

func newHolding(key Key, open lots) Holding {
	h := Holding{
		Symbol:        key.Symbol,
		Market:        key.Market,
		TotalQuantity: open.total(),
		TotalCost:     open.cost(),
		Lots:          open,
	}
	if h.TotalCost.Currency() == "" {
		h.TotalCost = M(0, key.Market.Currency())
	}
	h.AverageCost = M(0, h.TotalCost.Currency())
	if h.TotalQuantity.IsPositive() {
		h.AverageCost = h.TotalCost.Div(h.TotalQuantity)
	}
	return h
}

// Key returns the position of the holding.
func (h Holding) Key() Key { return Key{Market: h.Market, Symbol: h.Symbol} }

// CalculateAllHoldings returns the holding of every position with an open
// quantity.
func CalculateAllHoldings(txs []Transaction) map[Key]Holding {
	keys := make(map[Key]struct{})
	for _, tx := range txs {
		keys[tx.Key()] = struct{}{}
	}
	all := make(map[Key]Holding, len(keys))
	for k := range keys {
		if h := CalculateHoldings(k, txs); h.CanSell() {
			all[k] = h
		}
	}
	return all
}

// HoldingsSummary counts the open positions and their cost per currency.
type HoldingsSummary struct {
	Keys     []Key            // sorted by market then symbol
	Cost     map[string]Money // total cost basis per currency
	Holdings map[Key]Holding
}

// SummarizeHoldings returns the summary of all open positions.
func SummarizeHoldings(txs []Transaction) HoldingsSummary {
	all := CalculateAllHoldings(txs)
	s := HoldingsSummary{
		Keys:     slices.SortedFunc(maps.Keys(all), Key.Compare),
		Cost:     make(map[string]Money),
		Holdings: all,
	}
	for _, h := range all {
		c := h.TotalCost.Currency()
		s.Cost[c] = s.Cost[c].Add(h.TotalCost)
	}
	return s
}
