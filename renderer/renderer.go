// Package renderer renders holdings reports as markdown.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/holdings"
)

// HoldingsMarkdown renders the open positions with their lots.
func HoldingsMarkdown(s holdings.HoldingsSummary) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Holdings\n\n")
	if len(s.Keys) == 0 {
		fmt.Fprint(&b, "No open position.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Symbol | Market | Quantity | Average Cost | Total Cost | Lots |")
	fmt.Fprintln(&b, "|:---|:---:|---:|---:|---:|---:|")
	for _, k := range s.Keys {
		h := s.Holdings[k]
		row(&b, h.Symbol, string(h.Market), h.TotalQuantity.String(), h.AverageCost.String(), h.TotalCost.String(), fmt.Sprint(len(h.Lots)))
	}
	fmt.Fprint(&b, "\n## Total Cost\n\n")
	fmt.Fprintln(&b, "| Currency | Total Cost |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, m := range holdings.Markets {
		if c, ok := s.Cost[m.Currency()]; ok {
			row(&b, m.Currency(), c.String())
		}
	}
	return b.String()
}

// HoldingMarkdown renders one position lot by lot.
func HoldingMarkdown(h holdings.Holding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", h.Symbol, h.Market)
	if !h.CanSell() {
		fmt.Fprint(&b, "Not held.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Quantity: %s, average cost: %s, total cost: %s\n\n", h.TotalQuantity, h.AverageCost, h.TotalCost)
	fmt.Fprintln(&b, "| Bought | Transaction | Quantity | Price | Cost |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
	for _, lot := range h.Lots {
		row(&b, lot.Date.String(), lot.TransactionID, lot.Quantity.String(), lot.Price.String(), lot.Cost().String())
	}
	return b.String()
}

// SellMarkdown renders the outcome of a sell.
func SellMarkdown(r *holdings.SellResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Sold %s %s (%s) at %s\n\n", r.Quantity, r.Symbol, r.Market, r.Sell.Price)
	fmt.Fprintf(&b, "Cost basis: %s, realized: %s\n\n", r.MatchedCost, r.RealizedPnL().SignedString())
	fmt.Fprintln(&b, "| Lot | Bought | Quantity | Remaining | Status |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|:---|")
	for _, id := range r.LinkedBuyIDs {
		s, _ := r.Lot(id)
		status := "open"
		if s.IsFullySold() {
			status = "sold out"
		}
		row(&b, id, s.Date.String(), s.Quantity.String(), s.Remaining.String(), status)
	}
	return b.String()
}

// RealizedMarkdown renders one line per sell.
func RealizedMarkdown(records []holdings.RealizedPnL, anomalies []holdings.Anomaly) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Realized Gains\n\n")
	fmt.Fprintln(&b, "| Date | Symbol | Market | Quantity | Sell Price | Average Cost | Gain | Return |")
	fmt.Fprintln(&b, "|:---|:---|:---:|---:|---:|---:|---:|---:|")
	for _, r := range records {
		row(&b, r.SellDate.String(), r.Symbol, string(r.Market), r.Quantity.String(),
			r.SellPrice.String(), r.AvgCost.String(), r.PnL.SignedString(), r.ReturnRate.SignedString())
	}
	anomaliesSection(&b, anomalies)
	return b.String()
}

// UnrealizedMarkdown renders open positions at their current price.
func UnrealizedMarkdown(records []holdings.UnrealizedPnL) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Unrealized Gains\n\n")
	fmt.Fprintln(&b, "| Symbol | Market | Quantity | Average Cost | Price | Market Value | Gain | Return |")
	fmt.Fprintln(&b, "|:---|:---:|---:|---:|---:|---:|---:|---:|")
	for _, r := range records {
		price := r.CurrentPrice.String()
		if r.PriceFallback {
			price += " (cost)"
		}
		row(&b, r.Symbol, string(r.Market), r.Quantity.String(), r.AvgCost.String(), price,
			r.MarketValue.String(), r.PnL.SignedString(), r.ReturnRate.SignedString())
	}
	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Missing Prices\n\n")
		missing := false
		for _, r := range records {
			if r.PriceFallback {
				missing = true
				fmt.Fprintf(w, "- %s %s: %v\n", r.Market, r.Symbol, r.PriceError)
			}
		}
		return missing
	})
	return b.String()
}

// SummaryMarkdown renders the portfolio totals in the reporting currency.
func SummaryMarkdown(s *holdings.PortfolioSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio Summary in %s\n\n", s.Currency)
	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	row(&b, "Total Investment", s.TotalInvestment.String())
	row(&b, "Current Value", s.TotalCurrentValue.String())
	row(&b, "Unrealized Gains", s.TotalUnrealizedPnL.SignedString())
	row(&b, "Realized Gains", s.TotalRealizedPnL.SignedString())
	row(&b, "Total Gains", s.TotalPnL.SignedString())
	row(&b, "Total Return", s.TotalReturnRate.SignedString())

	fmt.Fprint(&b, "\n## Markets\n\n")
	fmt.Fprintln(&b, "| Market | Value | Share |")
	fmt.Fprintln(&b, "|:---|---:|---:|")
	for _, m := range holdings.Markets {
		row(&b, string(m), s.MarketTotals[m].String(), s.MarketDistribution[m].String())
	}

	fmt.Fprint(&b, "\n")
	fmt.Fprint(&b, ratesNote(s.Rates))
	anomaliesSection(&b, s.Anomalies)
	return b.String()
}

// RatesMarkdown renders a rate table.
func RatesMarkdown(t holdings.RateTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Exchange Rates to %s\n\n", t.Reporting)
	fmt.Fprintln(&b, "| Currency | Rate |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, m := range holdings.Markets {
		c := m.Currency()
		if c == t.Reporting {
			continue
		}
		if r, ok := t.Rate(c); ok {
			row(&b, c, r.StringFixed(4))
		}
	}
	fmt.Fprint(&b, "\n")
	fmt.Fprint(&b, ratesNote(t))
	return b.String()
}

func ratesNote(t holdings.RateTable) string {
	switch t.Origin {
	case holdings.RateFallback:
		return "Exchange rates: built-in fallback values.\n"
	case holdings.RateStale:
		return fmt.Sprintf("Exchange rates: last known values from %s, refresh failed.\n", t.AsOf.Format("2006-01-02 15:04"))
	default:
		return fmt.Sprintf("Exchange rates: %s values from %s.\n", t.Origin, t.AsOf.Format("2006-01-02 15:04"))
	}
}

func anomaliesSection(w io.Writer, anomalies []holdings.Anomaly) {
	ConditionalBlock(w, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Anomalies\n\n")
		for _, a := range anomalies {
			fmt.Fprintf(w, "- %s\n", a)
		}
		return len(anomalies) > 0
	})
}
