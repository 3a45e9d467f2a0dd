package cmd

import (
	"context"
	"flag"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	currency string
}

func (*summaryCmd) Name() string { return "summary" }
func (*summaryCmd) Synopsis() string {
	return "display the portfolio totals in the reporting currency"
}
func (*summaryCmd) Usage() string {
	return `hold summary [-c <currency>]

  Combines realized and unrealized profit and loss of every market into a
  single view, converted to the reporting currency.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Reporting currency, HOLDINGS_REPORTING_CURRENCY by default")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.currency != "" {
		cfg.ReportingCurrency = c.currency
	}
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error loading transactions: %v", err)
	}
	as := &holdings.AccountingSystem{
		Rates:       newNormalizer(),
		Prices:      newRouter(),
		Concurrency: cfg.FetchConcurrency,
	}
	s, err := as.Summarize(ctx, txs)
	if err != nil {
		return fail("Error creating summary: %v", err)
	}
	printMarkdown(renderer.SummaryMarkdown(s))
	return subcommands.ExitSuccess
}
