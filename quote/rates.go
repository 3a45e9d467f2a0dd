package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/etnz/holdings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ExchangeRateURL is the exchangerate-api root.
const ExchangeRateURL = "https://v6.exchangerate-api.com/v6"

// RateClient fetches exchange rates from exchangerate-api.
type RateClient struct {
	BaseURL string
	Key     string
	Client  *http.Client
	log     zerolog.Logger
}

// NewRateClient returns a client authenticated with key.
func NewRateClient(key string, client *http.Client) *RateClient {
	return &RateClient{
		BaseURL: ExchangeRateURL,
		Key:     key,
		Client:  client,
		log:     log.With().Str("client", "exchangerate").Logger(),
	}
}

// LatestRates implements holdings.RateSource. The service quotes how much
// of each currency one unit of reporting buys, the table holds the inverse
// for the currencies of every market. Errors wrap holdings.ErrRatesUnavailable.
func (c *RateClient) LatestRates(ctx context.Context, reporting string) (holdings.RateTable, error) {
	var resp struct {
		Result     string                     `json:"result"`
		ErrorType  string                     `json:"error-type"`
		UpdateUnix int64                      `json:"time_last_update_unix"`
		Base       string                     `json:"base_code"`
		Rates      map[string]decimal.Decimal `json:"conversion_rates"`
	}
	addr := fmt.Sprintf("%s/%s/latest/%s", c.BaseURL, url.PathEscape(c.Key), url.PathEscape(reporting))
	if err := jwget(ctx, c.Client, addr, &resp); err != nil {
		return holdings.RateTable{}, fmt.Errorf("%w: %w", holdings.ErrRatesUnavailable, err)
	}
	if resp.Result != "success" {
		return holdings.RateTable{}, fmt.Errorf("%w: exchangerate-api result %q %s", holdings.ErrRatesUnavailable, resp.Result, resp.ErrorType)
	}

	t := holdings.RateTable{
		Reporting: reporting,
		Rates:     make(map[string]decimal.Decimal),
		AsOf:      time.Unix(resp.UpdateUnix, 0).UTC(),
	}
	for _, m := range holdings.Markets {
		cur := m.Currency()
		if cur == reporting {
			continue
		}
		r, ok := resp.Rates[cur]
		if !ok || !r.IsPositive() {
			return holdings.RateTable{}, fmt.Errorf("%w: no rate for %s", holdings.ErrRatesUnavailable, cur)
		}
		t.Rates[cur] = decimal.NewFromInt(1).DivRound(r, 16)
	}
	c.log.Debug().Str("currency", reporting).Int("rates", len(t.Rates)).Msg("latest rates")
	return t, nil
}

var _ holdings.RateSource = (*RateClient)(nil)
