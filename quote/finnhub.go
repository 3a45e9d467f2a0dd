package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FinnhubURL is the Finnhub API root.
const FinnhubURL = "https://finnhub.io/api/v1"

// Finnhub quotes US stocks.
type Finnhub struct {
	BaseURL string
	Token   string
	Client  *http.Client
	log     zerolog.Logger
}

// NewFinnhub returns a Finnhub client authenticated with token.
func NewFinnhub(token string, client *http.Client) *Finnhub {
	return &Finnhub{
		BaseURL: FinnhubURL,
		Token:   token,
		Client:  client,
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// Quote returns the current price. Finnhub answers 0 for unknown symbols.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	var resp struct {
		Current   decimal.Decimal `json:"c"`
		Timestamp int64           `json:"t"`
	}
	addr := fmt.Sprintf("%s/quote?symbol=%s&token=%s", f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(f.Token))
	if err := jwget(ctx, f.Client, addr, &resp); err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if resp.Current.IsZero() {
		return decimal.Zero, time.Time{}, fmt.Errorf("finnhub quote %s: %w or market closed", symbol, ErrUnknownSymbol)
	}
	asOf := time.Now().UTC()
	if resp.Timestamp > 0 {
		asOf = time.Unix(resp.Timestamp, 0).UTC()
	}
	f.log.Debug().Str("symbol", symbol).Stringer("price", resp.Current).Msg("quote")
	return resp.Current, asOf, nil
}

// Name returns the company name from its profile.
func (f *Finnhub) Name(ctx context.Context, symbol string) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	addr := fmt.Sprintf("%s/stock/profile2?symbol=%s&token=%s", f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(f.Token))
	if err := jwget(ctx, f.Client, addr, &resp); err != nil {
		return "", fmt.Errorf("finnhub profile %s: %w", symbol, err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("finnhub profile %s: %w", symbol, ErrUnknownSymbol)
	}
	return resp.Name, nil
}
