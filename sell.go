package holdings

import (
	"fmt"
	"slices"
)

// ValidateSell checks that quantity of the position key can be sold. Only
// lots bought on the same market count. It returns the current holding, and
// a *SellError when the sell must be rejected.
func ValidateSell(key Key, quantity Quantity, txs []Transaction) (Holding, error) {
	h := CalculateHoldings(key, txs)
	if !h.CanSell() {
		return h, &SellError{Symbol: h.Symbol, Market: h.Market, Requested: quantity, Available: Q(0), Err: ErrNotHeld}
	}
	if quantity.GreaterThan(h.TotalQuantity) {
		return h, &SellError{Symbol: h.Symbol, Market: h.Market, Requested: quantity, Available: h.TotalQuantity, Err: ErrInsufficientQuantity}
	}
	return h, nil
}

// Match is the outcome of matching a sell against open lots.
type Match struct {
	Symbol       string
	Market       Market
	Quantity     Quantity
	LinkedBuyIDs []string   // buys drawn from, oldest first, once per lot touched
	MatchedCost  Money      // cost basis of the quantity sold
	Remaining    Quantity   // quantity left to match, always zero on success
	Lots         []LotState // state of every buy of the symbol after the sell
}

// MatchSell consumes quantity of the position key from its open lots, oldest
// first. Validation runs before anything is matched: a rejected sell returns
// a *SellError and no match.
func MatchSell(key Key, quantity Quantity, txs []Transaction) (*Match, error) {
	if !quantity.IsPositive() || !quantity.IsInteger() {
		return nil, fmt.Errorf("%w: sell quantity %s must be a positive integer", ErrInvalidTransaction, quantity)
	}
	key = K(key.Market, key.Symbol)
	if _, err := ValidateSell(key, quantity, txs); err != nil {
		return nil, err
	}

	states, _ := LotStates(key, txs)
	sold, _ := openLots(states).sell(quantity)

	m := &Match{
		Symbol:      key.Symbol,
		Market:      key.Market,
		Quantity:    quantity,
		MatchedCost: sold.cost(),
		Remaining:   quantity.Sub(sold.total()),
		Lots:        states,
	}
	for _, portion := range sold {
		m.LinkedBuyIDs = append(m.LinkedBuyIDs, portion.TransactionID)
		i := slices.IndexFunc(states, func(s LotState) bool { return s.TransactionID == portion.TransactionID })
		states[i].Remaining = states[i].Remaining.Sub(portion.Quantity)
	}
	return m, nil
}

// Lot returns the state of the buy id after the match.
func (m *Match) Lot(id string) (LotState, bool) {
	i := slices.IndexFunc(m.Lots, func(s LotState) bool { return s.TransactionID == id })
	if i < 0 {
		return LotState{}, false
	}
	return m.Lots[i], true
}

// SellResult is the outcome of processing a sell.
type SellResult struct {
	Match
	// Sell is the processed sell, linked to the buys it drew from.
	Sell Transaction
	// Transactions is a copy of the input log with Sell appended. The input
	// is never modified.
	Transactions []Transaction
}

// RealizedPnL returns the gain or loss locked in by the sell.
func (r *SellResult) RealizedPnL() Money { return r.Sell.Amount().Sub(r.MatchedCost) }

// ProcessSell matches sell against the open lots in txs and returns the
// updated log to persist. A rejected sell returns a *SellError and leaves
// txs untouched.
func ProcessSell(sell Transaction, txs []Transaction) (*SellResult, error) {
	if sell.Type != Sell {
		return nil, fmt.Errorf("%w: %s is a %s, not a sell", ErrInvalidTransaction, sell.ID, sell.Type)
	}
	if err := sell.Validate(); err != nil {
		return nil, err
	}
	m, err := MatchSell(sell.Key(), sell.Quantity, txs)
	if err != nil {
		return nil, err
	}
	sell.LinkedBuyIDs = slices.Clone(m.LinkedBuyIDs)
	updated := append(cloneTransactions(txs), sell)
	return &SellResult{Match: *m, Sell: sell, Transactions: updated}, nil
}
