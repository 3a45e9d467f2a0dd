package holdings

import (
	"errors"
	"fmt"
)

var (
	// ErrNotHeld is returned when selling a symbol with no open lot.
	ErrNotHeld = errors.New("not held")
	// ErrInsufficientQuantity is returned when selling more than the open quantity.
	ErrInsufficientQuantity = errors.New("exceeds holdings")
	// ErrInvalidTransaction is returned for malformed transactions.
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrRatesNotLoaded is returned when converting money before any rate table was loaded.
	ErrRatesNotLoaded = errors.New("exchange rates not loaded, refresh rates first")
	// ErrRatesUnavailable is returned by rate sources that cannot provide rates.
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	// ErrPriceUnavailable is returned by price lookups that cannot provide a price.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// SellError reports a rejected sell. It never comes with a mutation.
type SellError struct {
	Symbol    string
	Market    Market
	Requested Quantity
	Available Quantity
	Err       error // ErrNotHeld or ErrInsufficientQuantity
}

func (e *SellError) Error() string {
	if errors.Is(e.Err, ErrNotHeld) {
		return fmt.Sprintf("cannot sell %s: %s is not held on %s", e.Requested, e.Symbol, e.Market)
	}
	return fmt.Sprintf("cannot sell %s %s on %s: %v (available %s)", e.Requested, e.Symbol, e.Market, e.Err, e.Available)
}

func (e *SellError) Unwrap() error { return e.Err }

// Anomaly is an inconsistency found while replaying transactions. It is
// reported with the results, the replay goes on.
type Anomaly struct {
	TransactionID string
	Symbol        string
	Market        Market
	Unmatched     Quantity // quantity sold that no lot could cover
	Reason        string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s (tx %s): %s", a.Market, a.Symbol, a.TransactionID, a.Reason)
}
