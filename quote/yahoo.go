package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// YahooURL is the Yahoo finance API root.
const YahooURL = "https://query1.finance.yahoo.com"

// Yahoo quotes stocks of one exchange through the chart API. Symbols are
// the local codes, the exchange suffix is added.
type Yahoo struct {
	BaseURL string
	Suffix  string // ".HK", ".T"
	Client  *http.Client
	log     zerolog.Logger
}

// NewYahoo returns a Yahoo client for the exchange with suffix.
func NewYahoo(suffix string, client *http.Client) *Yahoo {
	return &Yahoo{
		BaseURL: YahooURL,
		Suffix:  suffix,
		Client:  client,
		log:     log.With().Str("client", "yahoo").Str("suffix", suffix).Logger(),
	}
}

// ticker returns the Yahoo ticker of a local code. Hong Kong codes are
// padded to four digits.
func (y *Yahoo) ticker(symbol string) string {
	if y.Suffix == ".HK" && len(symbol) < 4 {
		symbol = strings.Repeat("0", 4-len(symbol)) + symbol
	}
	return symbol + y.Suffix
}

func (y *Yahoo) meta(ctx context.Context, symbol string) (any, error) {
	var jobj any
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", y.BaseURL, url.PathEscape(y.ticker(symbol)))
	if err := jwget(ctx, y.Client, addr, &jobj); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", y.ticker(symbol), err)
	}
	return jobj, nil
}

// get evaluates path in jobj and keeps the first answer when jsonpath
// returns a list.
func get(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, err
	}
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("%s: no value", path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

// Quote returns the regular market price.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	jobj, err := y.meta(ctx, symbol)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	const path = "$.chart.result[0].meta.regularMarketPrice"
	jval, err := get(path, jobj)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("yahoo chart %s: %w: %w", y.ticker(symbol), ErrUnknownSymbol, err)
	}
	val, ok := jval.(float64)
	if !ok || val <= 0 {
		return decimal.Zero, time.Time{}, fmt.Errorf("yahoo chart %s: %w: invalid price %v", y.ticker(symbol), ErrUnknownSymbol, jval)
	}
	asOf := time.Now().UTC()
	if ts, err := get("$.chart.result[0].meta.regularMarketTime", jobj); err == nil {
		if sec, ok := ts.(float64); ok && sec > 0 {
			asOf = time.Unix(int64(sec), 0).UTC()
		}
	}
	price := decimal.NewFromFloat(val)
	y.log.Debug().Str("symbol", symbol).Stringer("price", price).Msg("quote")
	return price, asOf, nil
}

// Name returns the long name, or the short name when there is none.
func (y *Yahoo) Name(ctx context.Context, symbol string) (string, error) {
	jobj, err := y.meta(ctx, symbol)
	if err != nil {
		return "", err
	}
	for _, path := range []string{"$.chart.result[0].meta.longName", "$.chart.result[0].meta.shortName"} {
		if jval, err := get(path, jobj); err == nil {
			if name, ok := jval.(string); ok && name != "" {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("yahoo chart %s: %w", y.ticker(symbol), ErrUnknownSymbol)
}
