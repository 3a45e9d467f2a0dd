package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	symbol string
	market string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display open lots and average cost" }
func (*holdingCmd) Usage() string {
	return `hold holding [-s <symbol>] [-m <market>]

  Displays the open position of every security, or the lot detail of one.
  Without -m, the symbol is shown on every market it is held on.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Show the lots of a single symbol")
	f.StringVar(&c.market, "m", "", "Market of the symbol: US, TW, HK or JP")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	markets := holdings.Markets
	if c.market != "" {
		m, err := holdings.ParseMarket(c.market)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			f.Usage()
			return subcommands.ExitUsageError
		}
		markets = []holdings.Market{m}
	}
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error loading transactions: %v", err)
	}

	if c.symbol == "" {
		printMarkdown(renderer.HoldingsMarkdown(holdings.SummarizeHoldings(txs)))
		return subcommands.ExitSuccess
	}
	var found bool
	for _, m := range markets {
		h := holdings.CalculateHoldings(holdings.K(m, c.symbol), txs)
		if h.CanSell() {
			printMarkdown(renderer.HoldingMarkdown(h))
			found = true
		}
	}
	if !found {
		return fail("Error: %v", fmt.Errorf("%w: %s", holdings.ErrNotHeld, holdings.NormalizeSymbol(c.symbol)))
	}
	return subcommands.ExitSuccess
}
