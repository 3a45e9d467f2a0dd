package holdings

import (
	"github.com/etnz/holdings/date"
	"github.com/rs/zerolog/log"
)

// RealizedPnL is the gain or loss locked in by one sell.
type RealizedPnL struct {
	TransactionID string
	Symbol        string
	Market        Market
	SellDate      date.Date
	Quantity      Quantity
	SellPrice     Money
	Proceeds      Money // Quantity * SellPrice
	CostBasis     Money // cost of the lots consumed
	AvgCost       Money // CostBasis / Quantity
	PnL           Money
	ReturnRate    Percent // PnL / CostBasis, 0 when there is no cost basis
}

// Currency returns the currency of the record amounts.
func (r RealizedPnL) Currency() string { return r.Market.Currency() }

// CalculateRealizedPnL replays txs in date order through per-position FIFO
// queues and returns one record per sell. A sell without buy history is
// skipped and reported as an anomaly. Calling it twice on the same input
// yields the same output, the input is not modified.
func CalculateRealizedPnL(txs []Transaction) ([]RealizedPnL, []Anomaly) {
	queues := make(map[Key]lots)
	var records []RealizedPnL
	var anomalies []Anomaly

	for _, tx := range chronological(txs) {
		k := tx.Key()
		switch tx.Type {
		case Buy:
			queues[k] = append(queues[k], Lot{
				TransactionID: tx.ID,
				Date:          tx.Date,
				Quantity:      tx.Quantity,
				Price:         tx.Price,
			})
		case Sell:
			queue := queues[k]
			if len(queue) == 0 {
				log.Warn().Str("symbol", tx.Symbol).Str("market", string(tx.Market)).Str("tx", tx.ID).Msg("sell without holding, skipped")
				anomalies = append(anomalies, Anomaly{
					TransactionID: tx.ID,
					Symbol:        tx.Symbol,
					Market:        tx.Market,
					Unmatched:     tx.Quantity,
					Reason:        "sell without holding",
				})
				continue
			}
			var sold lots
			sold, queues[k] = queue.sell(tx.Quantity)
			if unmatched := tx.Quantity.Sub(sold.total()); unmatched.IsPositive() {
				log.Warn().Str("symbol", tx.Symbol).Str("market", string(tx.Market)).Str("tx", tx.ID).Stringer("unmatched", unmatched).Msg("sell exceeds open lots")
				anomalies = append(anomalies, Anomaly{
					TransactionID: tx.ID,
					Symbol:        tx.Symbol,
					Market:        tx.Market,
					Unmatched:     unmatched,
					Reason:        "sell exceeds open lots",
				})
			}
			records = append(records, newRealizedPnL(tx, sold.cost()))
		}
	}
	return records, anomalies
}

func newRealizedPnL(sell Transaction, costBasis Money) RealizedPnL {
	proceeds := sell.Amount()
	if costBasis.Currency() == "" {
		costBasis = M(0, proceeds.Currency())
	}
	pnl := proceeds.Sub(costBasis)
	return RealizedPnL{
		TransactionID: sell.ID,
		Symbol:        sell.Symbol,
		Market:        sell.Market,
		SellDate:      sell.Date,
		Quantity:      sell.Quantity,
		SellPrice:     sell.Price,
		Proceeds:      proceeds,
		CostBasis:     costBasis,
		AvgCost:       costBasis.Div(sell.Quantity),
		PnL:           pnl,
		ReturnRate:    pnl.Ratio(costBasis),
	}
}
