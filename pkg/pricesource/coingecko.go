// Package pricesource provides core.PriceSource implementations
package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raykavin/pricewatch/pkg/core"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	DefaultCurrency     = "usd"
	defaultHTTPTimeout  = 10 * time.Second
)

// CoinGecko quotes prices through the CoinGecko simple price endpoint
type CoinGecko struct {
	client   *http.Client
	baseURL  string
	currency string
	apiKey   string
}

// CoinGeckoOption configures a CoinGecko client
type CoinGeckoOption func(*CoinGecko)

// WithBaseURL overrides the API root, mainly for tests and the pro API
func WithBaseURL(baseURL string) CoinGeckoOption {
	return func(c *CoinGecko) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithCurrency sets the quote currency
func WithCurrency(currency string) CoinGeckoOption {
	return func(c *CoinGecko) {
		if currency != "" {
			c.currency = strings.ToLower(currency)
		}
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) CoinGeckoOption {
	return func(c *CoinGecko) {
		c.client = client
	}
}

// WithAPIKey sends the demo API key header on every request
func WithAPIKey(key string) CoinGeckoOption {
	return func(c *CoinGecko) {
		c.apiKey = key
	}
}

// NewCoinGecko creates a CoinGecko price source
func NewCoinGecko(options ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:  DefaultCoinGeckoURL,
		currency: DefaultCurrency,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Price returns the current price of assetID.
// Transport failures, non 2xx answers and malformed payloads all map to core.ErrPriceUnavailable.
func (c *CoinGecko) Price(ctx context.Context, assetID string) (float64, error) {
	query := url.Values{}
	query.Set("ids", assetID)
	query.Set("vs_currencies", c.currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+query.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", core.ErrPriceUnavailable, assetID, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", core.ErrPriceUnavailable, assetID, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %s: provider returned status %s", core.ErrPriceUnavailable, assetID, res.Status)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %s: decode: %v", core.ErrPriceUnavailable, assetID, err)
	}

	price, ok := payload[assetID][c.currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s: unknown asset", core.ErrPriceUnavailable, assetID)
	}

	if price <= 0 {
		return 0, fmt.Errorf("%w: %s: non positive price %f", core.ErrPriceUnavailable, assetID, price)
	}

	return price, nil
}
