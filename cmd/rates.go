package cmd

import (
	"context"
	"flag"

	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

type ratesCmd struct {
	currency string
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "display the exchange rates to the reporting currency" }
func (*ratesCmd) Usage() string {
	return `hold rates [-c <currency>]

  Fetches the latest exchange rates. When the service is unavailable the
  last known or the built in rates are shown instead.
`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Reporting currency, HOLDINGS_REPORTING_CURRENCY by default")
}

func (c *ratesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.currency != "" {
		cfg.ReportingCurrency = c.currency
	}
	printMarkdown(renderer.RatesMarkdown(newNormalizer().UpdateRates(ctx)))
	return subcommands.ExitSuccess
}
