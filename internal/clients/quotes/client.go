// Package quotes fetches last close prices from the Yahoo Finance chart
// endpoint, with an in-process cache.
package quotes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
	log     zerolog.Logger
}

// NewClient creates a quote client. Prices are cached for ten minutes;
// valuation does not need tick-level freshness.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com",
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   gocache.New(10*time.Minute, 30*time.Minute),
		log:     log.With().Str("client", "yahoo-chart").Logger(),
	}
}

// chartResponse is the subset of the chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// LastClose returns the most recent close price for a symbol in Yahoo
// notation (Taiwan listings carry the .TW suffix).
func (c *Client) LastClose(symbol string) (float64, error) {
	if v, ok := c.cache.Get(symbol); ok {
		if price, ok := v.(float64); ok {
			return price, nil
		}
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=5d&interval=1d", c.baseURL, url.PathEscape(symbol))

	resp, err := c.client.Get(reqURL)
	if err != nil {
		return 0, fmt.Errorf("chart request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("chart API returned status %d for %s", resp.StatusCode, symbol)
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse chart response for %s: %w", symbol, err)
	}
	if len(result.Chart.Result) == 0 {
		return 0, fmt.Errorf("no chart data for %s", symbol)
	}

	price := extractPrice(result)
	if price <= 0 {
		return 0, fmt.Errorf("no usable price in chart data for %s", symbol)
	}

	c.cache.Set(symbol, price, gocache.DefaultExpiration)
	c.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Fetched last close")
	return price, nil
}

// extractPrice prefers the live regular market price and falls back to the
// last non-null daily close.
func extractPrice(result chartResponse) float64 {
	r := result.Chart.Result[0]
	if r.Meta.RegularMarketPrice > 0 {
		return r.Meta.RegularMarketPrice
	}

	for _, q := range r.Indicators.Quote {
		for i := len(q.Close) - 1; i >= 0; i-- {
			if q.Close[i] != nil && *q.Close[i] > 0 {
				return *q.Close[i]
			}
		}
	}
	return r.Meta.ChartPreviousClose
}
