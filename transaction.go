package holdings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/etnz/holdings/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxType is the direction of a trade.
type TxType string

const (
	Buy  TxType = "BUY"
	Sell TxType = "SELL"
)

// ParseTxType parses a trade direction, case insensitive.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Buy, Sell:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, s)
	}
}

// Transaction is an immutable trade record. The transaction log is the
// single source of truth: lot states are always derived from it and never
// stored back into it.
type Transaction struct {
	ID        string
	Symbol    string
	StockName string
	Market    Market
	Type      TxType
	Quantity  Quantity
	Price     Money // unit price in the market currency
	Date      date.Date
	Timestamp time.Time // creation instant, FIFO order key

	// LinkedBuyIDs lists, for a SELL, the buys it drew from in FIFO order.
	LinkedBuyIDs []string
}

// Currency returns the currency the trade is settled in.
func (t Transaction) Currency() string { return t.Market.Currency() }

// Amount returns the total value of the trade.
func (t Transaction) Amount() Money { return t.Price.Mul(t.Quantity) }

// Key returns the position the trade belongs to.
func (t Transaction) Key() Key { return Key{Market: t.Market, Symbol: t.Symbol} }

// Validate checks the transaction fields.
func (t Transaction) Validate() error {
	var errs []string
	if t.ID == "" {
		errs = append(errs, "missing id")
	}
	if t.Symbol == "" {
		errs = append(errs, "missing symbol")
	} else if t.Symbol != NormalizeSymbol(t.Symbol) {
		errs = append(errs, fmt.Sprintf("symbol %q is not normalized", t.Symbol))
	}
	if !t.Market.Valid() {
		errs = append(errs, fmt.Sprintf("unsupported market %q", t.Market))
	}
	if t.Type != Buy && t.Type != Sell {
		errs = append(errs, fmt.Sprintf("unknown type %q", t.Type))
	}
	if !t.Quantity.IsPositive() || !t.Quantity.IsInteger() {
		errs = append(errs, fmt.Sprintf("quantity %s must be a positive integer", t.Quantity))
	}
	if !t.Price.IsPositive() {
		errs = append(errs, fmt.Sprintf("price %s must be positive", t.Price.Decimal()))
	}
	if t.Market.Valid() && t.Price.Currency() != t.Market.Currency() {
		errs = append(errs, fmt.Sprintf("price currency %q does not match market %s", t.Price.Currency(), t.Market))
	}
	if t.Date.IsZero() {
		errs = append(errs, "missing date")
	}
	if t.Type == Buy && len(t.LinkedBuyIDs) > 0 {
		errs = append(errs, "a buy cannot be linked to other buys")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w %s: %s", ErrInvalidTransaction, t.ID, strings.Join(errs, "; "))
	}
	return nil
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// TransactionInput holds the user supplied part of a trade.
type TransactionInput struct {
	Symbol    string
	StockName string
	Market    Market
	Type      TxType
	Quantity  Quantity
	Price     decimal.Decimal
	Date      date.Date
}

// CreateTransaction turns an input into a complete transaction: symbol is
// normalized, currency derived from the market, and a time ordered id and a
// timestamp are assigned. A SELL is matched against the open lots in
// existing and carries the ids of the buys it drew from; a SELL that cannot
// be matched fails with a *SellError.
func CreateTransaction(in TransactionInput, existing []Transaction) (Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, fmt.Errorf("cannot generate transaction id: %w", err)
	}
	symbol := NormalizeSymbol(in.Symbol)
	name := strings.TrimSpace(in.StockName)
	if name == "" {
		name = symbol
	}
	tx := Transaction{
		ID:        id.String(),
		Symbol:    symbol,
		StockName: name,
		Market:    in.Market,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Price:     M(in.Price, in.Market.Currency()),
		Date:      in.Date,
		Timestamp: time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if tx.Type == Sell {
		res, err := ProcessSell(tx, existing)
		if err != nil {
			return Transaction{}, err
		}
		tx = res.Sell
	}
	return tx, nil
}

// cloneTransactions returns a deep copy of txs.
func cloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		tx.LinkedBuyIDs = slices.Clone(tx.LinkedBuyIDs)
		out[i] = tx
	}
	return out
}

// byTimestamp orders transactions by creation instant, then id.
func byTimestamp(a, b Transaction) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// chronological returns a copy of txs sorted by trade date, ties broken by timestamp.
// The sort is stable so identical dates and timestamps keep their log order.
func chronological(txs []Transaction) []Transaction {
	sorted := cloneTransactions(txs)
	slices.SortStableFunc(sorted, func(a, b Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}
