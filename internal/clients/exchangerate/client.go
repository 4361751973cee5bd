// Package exchangerate provides currency exchange rate fetching with caching
// and a tiered fallback: fresh cache, live API, stale cache, hardcoded rate.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/mkwei/folio/internal/domain"
)

// fallbackUSDTWD is the last-resort USD/TWD rate when the API is down and no
// cached value exists. Better a slightly off conversion than no analytics.
const fallbackUSDTWD = 31.5

// freshFor is how long a fetched rate is served without re-querying the API.
const freshFor = 1 * time.Hour

// Client fetches rates from exchangerate-api.com.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
	log     zerolog.Logger
	now     func() time.Time
}

// NewClient creates an exchangerate-api.com client with an in-process cache.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.exchangerate-api.com/v4/latest",
		client:  &http.Client{Timeout: 10 * time.Second},
		// Entries never expire on their own: stale values are kept around
		// as the API-failure fallback and aged out by freshness checks.
		cache: gocache.New(gocache.NoExpiration, 0),
		log:   log.With().Str("client", "exchangerate-api").Logger(),
		now:   time.Now,
	}
}

type cachedRate struct {
	Rate      float64
	FetchedAt time.Time
}

// Rate returns the conversion rate from one currency to another.
//
// Resolution order: identity, fresh cache, live API, stale cache, and for
// the USD/TWD pair a hardcoded rate. Only an unknown pair with a dead API
// yields an error.
func (c *Client) Rate(from, to domain.Currency) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	cacheKey := string(from) + ":" + string(to)
	if cached, ok := c.getCached(cacheKey); ok && c.now().Sub(cached.FetchedAt) < freshFor {
		c.log.Debug().Str("pair", cacheKey).Float64("rate", cached.Rate).Msg("Cache hit")
		return cached.Rate, nil
	}

	rate, err := c.fetch(from, to)
	if err == nil {
		c.cache.Set(cacheKey, cachedRate{Rate: rate, FetchedAt: c.now()}, gocache.NoExpiration)
		c.log.Info().Str("pair", cacheKey).Float64("rate", rate).Msg("Fetched rate")
		return rate, nil
	}

	// Stale data beats no data.
	if cached, ok := c.getCached(cacheKey); ok {
		c.log.Warn().Err(err).Str("pair", cacheKey).Float64("rate", cached.Rate).
			Msg("API failed, using stale cached rate")
		return cached.Rate, nil
	}

	if fallback, ok := hardcodedRate(from, to); ok {
		c.log.Warn().Err(err).Str("pair", cacheKey).Float64("rate", fallback).
			Msg("API failed with no cache, using hardcoded fallback rate")
		return fallback, nil
	}

	return 0, fmt.Errorf("getting rate %s: %w", cacheKey, err)
}

func (c *Client) getCached(key string) (cachedRate, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return cachedRate{}, false
	}
	cached, ok := v.(cachedRate)
	return cached, ok
}

func (c *Client) fetch(from, to domain.Currency) (float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, from)

	resp, err := c.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, exists := result.Rates[string(to)]
	if !exists {
		return 0, fmt.Errorf("rate not found for %s->%s", from, to)
	}
	return rate, nil
}

func hardcodedRate(from, to domain.Currency) (float64, bool) {
	switch {
	case from == domain.USD && to == domain.TWD:
		return fallbackUSDTWD, true
	case from == domain.TWD && to == domain.USD:
		return 1 / fallbackUSDTWD, true
	default:
		return 0, false
	}
}
