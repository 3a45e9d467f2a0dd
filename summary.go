package holdings

import (
	"context"
	"time"
)

// PortfolioSummary is a snapshot of the whole portfolio in the reporting
// currency.
type PortfolioSummary struct {
	Currency string
	AsOf     time.Time

	TotalInvestment    Money // cost of open positions
	TotalCurrentValue  Money // market value of open positions
	TotalRealizedPnL   Money
	TotalUnrealizedPnL Money
	TotalPnL           Money
	TotalReturnRate    Percent

	// MarketTotals is the current value per market, every market is present.
	MarketTotals map[Market]Money
	// MarketDistribution is each market share of TotalCurrentValue.
	MarketDistribution map[Market]Percent

	Realized   []RealizedPnL
	Unrealized []UnrealizedPnL
	Anomalies  []Anomaly
	Rates      RateTable
}

// AccountingSystem computes portfolio summaries from a transaction log.
type AccountingSystem struct {
	Rates       *Normalizer
	Prices      PriceLookup
	Concurrency int // concurrent price requests, DefaultFetchConcurrency if zero
}

// Summarize computes the realized and unrealized results of txs and totals
// them in the reporting currency. Prices of open positions are fetched
// concurrently first. A missing price or rate degrades the result but never
// fails it. Without a Normalizer it returns ErrRatesNotLoaded.
func (a *AccountingSystem) Summarize(ctx context.Context, txs []Transaction) (*PortfolioSummary, error) {
	if a.Rates == nil {
		return nil, ErrRatesNotLoaded
	}
	rates := a.Rates.EnsureFresh(ctx)
	reporting := a.Rates.Reporting()

	realized, anomalies := CalculateRealizedPnL(txs)

	fetched := PrefetchPrices(ctx, a.Prices, txs, a.Concurrency)
	unrealized := CalculateUnrealizedPnL(ctx, txs, fetched)

	zero := M(0, reporting)
	s := &PortfolioSummary{
		Currency:           reporting,
		AsOf:               time.Now().UTC(),
		TotalInvestment:    zero,
		TotalCurrentValue:  zero,
		TotalRealizedPnL:   zero,
		TotalUnrealizedPnL: zero,
		MarketTotals:       make(map[Market]Money, len(Markets)),
		MarketDistribution: make(map[Market]Percent, len(Markets)),
		Realized:           realized,
		Unrealized:         unrealized,
		Anomalies:          anomalies,
		Rates:              rates,
	}
	for _, m := range Markets {
		s.MarketTotals[m] = zero
	}

	for _, r := range realized {
		pnl, err := a.Rates.ToReporting(r.PnL)
		if err != nil {
			return nil, err
		}
		s.TotalRealizedPnL = s.TotalRealizedPnL.Add(pnl)
	}
	for _, u := range unrealized {
		cost, err := a.Rates.ToReporting(u.TotalCost)
		if err != nil {
			return nil, err
		}
		value, err := a.Rates.ToReporting(u.MarketValue)
		if err != nil {
			return nil, err
		}
		pnl, err := a.Rates.ToReporting(u.PnL)
		if err != nil {
			return nil, err
		}
		s.TotalInvestment = s.TotalInvestment.Add(cost)
		s.TotalCurrentValue = s.TotalCurrentValue.Add(value)
		s.TotalUnrealizedPnL = s.TotalUnrealizedPnL.Add(pnl)
		s.MarketTotals[u.Market] = s.MarketTotals[u.Market].Add(value)
	}

	s.TotalPnL = s.TotalRealizedPnL.Add(s.TotalUnrealizedPnL)
	s.TotalReturnRate = s.TotalCurrentValue.Add(s.TotalRealizedPnL).Sub(s.TotalInvestment).Ratio(s.TotalInvestment)
	for m, v := range s.MarketTotals {
		s.MarketDistribution[m] = v.Ratio(s.TotalCurrentValue)
	}
	return s, nil
}
