package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/convert"
	"github.com/birr-rates/birrbot/storage/types"
)

var ErrCoinNotFound = errors.New("coin not found")

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// coinIDs maps common ticker symbols to CoinGecko coin ids.
// Unknown symbols are passed through lowercased, which covers the
// coins whose id matches their name
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"TON":   "the-open-network",
	"TRX":   "tron",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
	"AVAX":  "avalanche-2",
}

// Client is a minimal CoinGecko API client
type Client struct {
	client  *http.Client
	baseURL string
}

type Option func(c *Client)

// WithBaseURL overrides the API base URL (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewClient creates a new CoinGecko client
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CoinID resolves a ticker symbol to the CoinGecko coin id
func CoinID(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))

	if id, ok := coinIDs[upper]; ok {
		return id
	}

	return strings.ToLower(upper)
}

// Rate implements convert.RateLookup over the simple price endpoint.
// CoinGecko prices coins against a set of vs-currencies; pairs it
// cannot serve come back empty and map to ErrRateUnavailable, which
// lets the converter fall back to a reference hop
func (c *Client) Rate(
	ctx context.Context,
	from, to types.Currency,
) (decimal.Decimal, time.Time, error) {
	var (
		id = CoinID(from.String())
		vs = strings.ToLower(to.String())
	)

	query := url.Values{
		"ids":           []string{id},
		"vs_currencies": []string{vs},
	}

	endpoint := fmt.Sprintf("%s/simple/price?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("unable to create GET request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, time.Time{}, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var prices map[string]map[string]decimal.Decimal
	if err = json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("unable to decode response: %w", err)
	}

	rate, ok := prices[id][vs]
	if !ok || rate.Sign() <= 0 {
		return decimal.Zero, time.Time{}, convert.ErrRateUnavailable
	}

	return rate, time.Now().UTC(), nil
}

// CoinProfile is the market summary for a single coin
type CoinProfile struct {
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	Change24h    decimal.Decimal `json:"change_24h"`
}

//nolint:tagliatelle // CoinGecko API uses snake case
type coinResponse struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice             map[string]decimal.Decimal `json:"current_price"`
		MarketCap                map[string]decimal.Decimal `json:"market_cap"`
		PriceChangePercentage24h decimal.Decimal            `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// CoinProfile fetches the market summary for the given ticker symbol
func (c *Client) CoinProfile(ctx context.Context, symbol string) (*CoinProfile, error) {
	endpoint := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(CoinID(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create GET request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCoinNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	var apiResp coinResponse
	if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("unable to decode response: %w", err)
	}

	return &CoinProfile{
		Name:         apiResp.Name,
		Symbol:       strings.ToUpper(apiResp.Symbol),
		PriceUSD:     apiResp.MarketData.CurrentPrice["usd"],
		MarketCapUSD: apiResp.MarketData.MarketCap["usd"],
		Change24h:    apiResp.MarketData.PriceChangePercentage24h,
	}, nil
}
