package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	date     string
	symbol   string
	market   string
	name     string
	quantity int
	price    string
}

func (t *tradeFlags) set(f *flag.FlagSet) {
	f.StringVar(&t.date, "d", date.Today().String(), "Trade date (YYYY-MM-DD)")
	f.StringVar(&t.symbol, "s", "", "Ticker symbol")
	f.StringVar(&t.market, "m", string(holdings.US), "Market: US, TW, HK or JP")
	f.StringVar(&t.name, "n", "", "Security name, looked up when missing")
	f.IntVar(&t.quantity, "q", 0, "Number of shares")
	f.StringVar(&t.price, "p", "", "Price per share in the market currency")
}

// input parses the flags.
func (t *tradeFlags) input(typ holdings.TxType) (holdings.TransactionInput, error) {
	if t.symbol == "" || t.quantity <= 0 || t.price == "" {
		return holdings.TransactionInput{}, errors.New("-s, -q and -p are required")
	}
	day, err := date.Parse(t.date)
	if err != nil {
		return holdings.TransactionInput{}, fmt.Errorf("invalid date: %w", err)
	}
	market, err := holdings.ParseMarket(t.market)
	if err != nil {
		return holdings.TransactionInput{}, err
	}
	price, err := decimal.NewFromString(t.price)
	if err != nil {
		return holdings.TransactionInput{}, fmt.Errorf("invalid price %q: %w", t.price, err)
	}
	return holdings.TransactionInput{
		Symbol:    t.symbol,
		StockName: t.name,
		Market:    market,
		Type:      typ,
		Quantity:  holdings.Q(t.quantity),
		Price:     price,
		Date:      day,
	}, nil
}

// lookupName fills in the security name. A failed lookup is not an error,
// the symbol is used instead.
func lookupName(ctx context.Context, in *holdings.TransactionInput) {
	if in.StockName != "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()
	name, err := newRouter().Name(ctx, in.Symbol, in.Market)
	if err != nil {
		log.Warn().Err(err).Str("symbol", in.Symbol).Str("market", string(in.Market)).Msg("name lookup failed")
		return
	}
	in.StockName = name
}

// --- Buy Command ---

type buyCmd struct {
	tradeFlags
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase, opening a new lot" }
func (*buyCmd) Usage() string {
	return `hold buy -s <symbol> -m <market> -q <quantity> -p <price> [-d <date>] [-n <name>]

  Records a purchase. Each purchase is a lot, consumed first in first out by
  later sells.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, err := c.input(holdings.Buy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	lookupName(ctx, &in)

	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	tx, err := holdings.CreateTransaction(in, txs)
	if err != nil {
		return fail("Error: %v", err)
	}
	if err := appendTransaction(ctx, tx); err != nil {
		return fail("Error writing transaction: %v", err)
	}
	printMarkdown(renderer.HoldingMarkdown(holdings.CalculateHoldings(tx.Key(), append(txs, tx))))
	return subcommands.ExitSuccess
}

// --- Sell Command ---

type sellCmd struct {
	tradeFlags
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a sale, consuming the oldest lots first" }
func (*sellCmd) Usage() string {
	return `hold sell -s <symbol> -m <market> -q <quantity> -p <price> [-d <date>]

  Records a sale. The sale is rejected when more shares are sold than held.
  It is linked to the purchases it consumes, oldest first.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, err := c.input(holdings.Sell)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}
	txs, err := loadTransactions(ctx)
	if err != nil {
		return fail("Error: %v", err)
	}
	if in.StockName == "" {
		in.StockName = holdingName(holdings.K(in.Market, in.Symbol), txs)
	}

	tx, err := holdings.CreateTransaction(in, txs)
	var se *holdings.SellError
	if errors.As(err, &se) {
		return fail("Sell rejected: %v", se)
	}
	if err != nil {
		return fail("Error: %v", err)
	}
	res, err := holdings.ProcessSell(tx, txs)
	if err != nil {
		return fail("Error: %v", err)
	}
	if err := appendTransaction(ctx, res.Sell); err != nil {
		return fail("Error writing transaction: %v", err)
	}
	printMarkdown(renderer.SellMarkdown(res))
	return subcommands.ExitSuccess
}

// holdingName returns the name used by the latest transaction of the position.
func holdingName(key holdings.Key, txs []holdings.Transaction) string {
	var name string
	var latest time.Time
	for _, tx := range txs {
		if tx.Key() == key && !tx.Timestamp.Before(latest) {
			name, latest = tx.StockName, tx.Timestamp
		}
	}
	return name
}
