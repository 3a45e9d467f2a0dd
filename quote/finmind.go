package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/etnz/holdings/date"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FinMindURL is the FinMind API root.
const FinMindURL = "https://api.finmindtrade.com/api/v4"

// priceWindow is how many days back FinMind is asked for prices, enough to
// cover weekends and holidays.
const priceWindow = 5

// FinMind quotes Taiwan stocks.
type FinMind struct {
	BaseURL string
	Client  *http.Client
	log     zerolog.Logger
	today   func() date.Date
}

// NewFinMind returns a FinMind client.
func NewFinMind(client *http.Client) *FinMind {
	return &FinMind{
		BaseURL: FinMindURL,
		Client:  client,
		log:     log.With().Str("client", "finmind").Logger(),
		today:   date.Today,
	}
}

// Quote returns the last close price of the recent days.
func (f *FinMind) Quote(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	var resp struct {
		Data []struct {
			Date  date.Date       `json:"date"`
			Close decimal.Decimal `json:"close"`
		} `json:"data"`
	}
	end := f.today()
	q := url.Values{}
	q.Set("dataset", "TaiwanStockPrice")
	q.Set("data_id", symbol)
	q.Set("start_date", end.Add(-priceWindow).String())
	q.Set("end_date", end.String())
	if err := jwget(ctx, f.Client, f.BaseURL+"/data?"+q.Encode(), &resp); err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("finmind price %s: %w", symbol, err)
	}
	if len(resp.Data) == 0 {
		return decimal.Zero, time.Time{}, fmt.Errorf("finmind price %s: %w or no recent price", symbol, ErrUnknownSymbol)
	}
	last := resp.Data[len(resp.Data)-1]
	f.log.Debug().Str("symbol", symbol).Stringer("price", last.Close).Stringer("date", last.Date).Msg("quote")
	return last.Close, last.Date.Time(), nil
}

// Name returns the stock name.
func (f *FinMind) Name(ctx context.Context, symbol string) (string, error) {
	var resp struct {
		Data []struct {
			Name string `json:"stock_name"`
		} `json:"data"`
	}
	q := url.Values{}
	q.Set("dataset", "TaiwanStockInfo")
	q.Set("data_id", symbol)
	if err := jwget(ctx, f.Client, f.BaseURL+"/data?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("finmind info %s: %w", symbol, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].Name == "" {
		return "", fmt.Errorf("finmind info %s: %w", symbol, ErrUnknownSymbol)
	}
	return resp.Data[0].Name, nil
}
