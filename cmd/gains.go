package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

// parseRange parses optional range bounds.
func parseRange(from, to string) (r date.Range, err error) {
	if from != "" {
		if r.From, err = date.Parse(from); err != nil {
			return r, fmt.Errorf("invalid -from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = date.Parse(to); err != nil {
			return r, fmt.Errorf("invalid -to: %w", err)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("-to %s is before -from %s", r.To, r.From)
	}
	return r, nil
}

// --- Realized Command ---

type realizedCmd struct {
	from, to string
}

func (*realizedCmd) Name() string     { return "realized" }
func (*realizedCmd) Synopsis() string { return "display the profit and loss of every sell" }
func (*realizedCmd) Usage() string {
	return `hold realized [-from <date>] [-to <date>]

  Replays the transaction log and reports, for every sell, the proceeds,
  the FIFO cost basis and the realized profit or loss in the market currency.
  Lots are always matched over the whole log, the dates only select which
  sells are reported.
`
}

func (c *realizedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First sell date to report (YYYY-MM-DD)")
	f.StringVar(&c.to, "to", "", "Last sell date to report (YYYY-MM-DD)")
}

func (c *realizedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := parseRange(c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error loading transactions: %v", err)
	}
	records, anomalies := holdings.CalculateRealizedPnL(txs)
	records = slices.DeleteFunc(records, func(r holdings.RealizedPnL) bool { return !period.Contains(r.SellDate) })
	log.Debug().Stringer("period", period).Int("records", len(records)).Msg("realized")
	printMarkdown(renderer.RealizedMarkdown(records, anomalies))
	return subcommands.ExitSuccess
}

// --- Unrealized Command ---

type unrealizedCmd struct{}

func (*unrealizedCmd) Name() string     { return "unrealized" }
func (*unrealizedCmd) Synopsis() string { return "display the paper profit and loss of open positions" }
func (*unrealizedCmd) Usage() string {
	return `hold unrealized

  Fetches the latest price of every open position and reports its market
  value and unrealized profit or loss. Positions without a price are valued
  at their average cost.
`
}

func (*unrealizedCmd) SetFlags(*flag.FlagSet) {}

func (*unrealizedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error loading transactions: %v", err)
	}
	prices := holdings.PrefetchPrices(ctx, newRouter(), txs, cfg.FetchConcurrency)
	printMarkdown(renderer.UnrealizedMarkdown(holdings.CalculateUnrealizedPnL(ctx, txs, prices)))
	return subcommands.ExitSuccess
}
