// Package cmd implements the CLI application to manage holdings.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/holdings"
	"github.com/etnz/holdings/cache"
	"github.com/etnz/holdings/config"
	"github.com/etnz/holdings/quote"
	"github.com/etnz/holdings/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.
var (
	cfg    *config.Config
	caches = cache.New(10 * time.Minute)
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander, conf *config.Config) {
	cfg = conf

	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&exportCmd{}, "transactions")
	c.Register(&importCmd{}, "transactions")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&realizedCmd{}, "reports")
	c.Register(&unrealizedCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")
	c.Register(&ratesCmd{}, "reports")
}

// openStore opens the configured transaction log.
func openStore() (store.Source, error) {
	s, err := store.Open(cfg.Store, cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s store %q: %w", cfg.Store, cfg.LedgerPath, err)
	}
	return s, nil
}

// loadTransactions reads the whole transaction log.
func loadTransactions(ctx context.Context) ([]holdings.Transaction, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	txs, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot read transactions: %w", err)
	}
	log.Debug().Int("transactions", len(txs)).Str("ledger", cfg.LedgerPath).Msg("loaded")
	return txs, nil
}

// appendTransaction appends a transaction to the configured log.
func appendTransaction(ctx context.Context, tx holdings.Transaction) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Append(ctx, tx)
}

// newRouter returns the price and name router of every market.
func newRouter() *quote.Router {
	client := quote.NewHTTPClient(cfg.HTTPTimeout)
	us := quote.NewFinnhub(cfg.FinnhubAPIKey, client)
	us.BaseURL = cfg.FinnhubBaseURL
	tw := quote.NewFinMind(client)
	tw.BaseURL = cfg.FinMindBaseURL
	hk := quote.NewYahoo(".HK", client)
	hk.BaseURL = cfg.YahooBaseURL
	jp := quote.NewYahoo(".T", client)
	jp.BaseURL = cfg.YahooBaseURL
	return quote.NewRouter(map[holdings.Market]quote.Source{
		holdings.US: us,
		holdings.TW: tw,
		holdings.HK: hk,
		holdings.JP: jp,
	}, caches).WithTTL(cfg.PriceTTL, cfg.NameTTL)
}

// newNormalizer returns a normalizer over exchangerate-api. Without an API
// key only the static rates are available.
func newNormalizer() *holdings.Normalizer {
	var source holdings.RateSource
	if cfg.ExchangeRateAPIKey != "" {
		rc := quote.NewRateClient(cfg.ExchangeRateAPIKey, quote.NewHTTPClient(cfg.HTTPTimeout))
		rc.BaseURL = cfg.ExchangeRateURL
		source = rc
	} else {
		log.Warn().Msg("EXCHANGERATE_API_KEY is not set, using static rates")
	}
	return holdings.NewNormalizer(source, cfg.ReportingCurrency, caches, cfg.RateTTL)
}

// printMarkdown renders md for the terminal, or prints it as is when it
// cannot be rendered.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	log.Debug().Err(err).Msg("markdown rendering failed")
	fmt.Print(md)
}

// fail reports err on stderr.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
