//nolint:tagliatelle // Binance API uses camel case
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/quote"
	"github.com/birr-rates/birrbot/storage/types"
)

// Source is the snapshot source tag for P2P-derived rates
var Source types.Source = "BinanceP2P"

const defaultURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"

const (
	pageRows = 10
	maxPages = 3

	topOffers = 12 // median window size
)

// searchRequest is the request body for the Binance P2P search API
type searchRequest struct {
	Asset     types.Currency `json:"asset"`
	Fiat      types.Currency `json:"fiat"`
	TradeType types.RateType `json:"tradeType"`
	Rows      int            `json:"rows"`
	Page      int            `json:"page"`
	Amount    string         `json:"transAmount,omitempty"`
}

// searchResponse is the response from the Binance P2P search API
type searchResponse struct {
	Data []searchAd `json:"data"`
}

type searchAd struct {
	Adv        searchAdv        `json:"adv"`
	Advertiser searchAdvertiser `json:"advertiser"`
}

type searchAdv struct {
	AdvNo                string `json:"advNo"`
	Price                string `json:"price"`
	MinSingleTransAmount string `json:"minSingleTransAmount"`
	MaxSingleTransAmount string `json:"maxSingleTransAmount"`
	SurplusAmount        string `json:"surplusAmount"`
	TradableQuantity     string `json:"tradableQuantity"`
}

type searchAdvertiser struct {
	NickName        string  `json:"nickName"`
	MonthOrderCount int     `json:"monthOrderCount"`
	MonthFinishRate float64 `json:"monthFinishRate"`
}

// Client talks to the Binance P2P advertisement search API for a
// single trading pair
type Client struct {
	client *http.Client
	url    string

	asset types.Currency
	fiat  types.Currency

	strict    quote.MerchantFilter
	relaxed   quote.MerchantFilter
	minOffers int
}

type Option func(c *Client)

// WithURL overrides the search endpoint (used in tests)
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithFilters overrides the snapshot filter tiers
func WithFilters(strict, relaxed quote.MerchantFilter) Option {
	return func(c *Client) {
		c.strict = strict
		c.relaxed = relaxed
	}
}

// NewClient creates a P2P search client for the given pair
func NewClient(
	asset types.Currency,
	fiat types.Currency,
	timeout time.Duration,
	opts ...Option,
) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		url:       defaultURL,
		asset:     asset,
		fiat:      fiat,
		strict:    quote.DefaultFilter(),
		relaxed:   quote.RelaxedFilter(),
		minOffers: 3,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchOffers queries up to 3 pages of advertisements for the given
// trade side. A positive amount restricts the search to offers able
// to fill that fiat-side transaction volume
func (c *Client) FetchOffers(
	ctx context.Context,
	side types.RateType,
	amount decimal.Decimal,
) ([]quote.Offer, error) {
	offers := make([]quote.Offer, 0, maxPages*pageRows)

	for page := 1; page <= maxPages; page++ {
		reqBody := searchRequest{
			Asset:     c.asset,
			Fiat:      c.fiat,
			TradeType: side,
			Rows:      pageRows,
			Page:      page,
		}

		if amount.Sign() > 0 {
			reqBody.Amount = amount.String()
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("unable to create POST request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("unable to execute POST request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()

			return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
		}

		var apiResp searchResponse
		if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
			resp.Body.Close()

			return nil, fmt.Errorf("unable to decode response: %w", err)
		}

		resp.Body.Close()

		if len(apiResp.Data) == 0 {
			break
		}

		for _, ad := range apiResp.Data {
			offer, ok := parseOffer(ad)
			if !ok {
				continue
			}

			offers = append(offers, offer)
		}
	}

	if len(offers) == 0 {
		return nil, fmt.Errorf("no valid %s offers found for %s/%s", side, c.asset, c.fiat)
	}

	return offers, nil
}

// parseOffer converts a raw advertisement into an offer.
// Ads with an unparsable price or no availability are dropped
func parseOffer(ad searchAd) (quote.Offer, bool) {
	price, err := decimal.NewFromString(ad.Adv.Price)
	if err != nil || price.Sign() <= 0 {
		return quote.Offer{}, false
	}

	available, err := decimal.NewFromString(ad.Adv.SurplusAmount)
	if err != nil || available.Sign() <= 0 {
		available, err = decimal.NewFromString(ad.Adv.TradableQuantity)
		if err != nil || available.Sign() <= 0 {
			return quote.Offer{}, false
		}
	}

	minLimit, err := decimal.NewFromString(ad.Adv.MinSingleTransAmount)
	if err != nil {
		minLimit = decimal.Zero
	}

	maxLimit, err := decimal.NewFromString(ad.Adv.MaxSingleTransAmount)
	if err != nil {
		maxLimit = decimal.Zero
	}

	return quote.Offer{
		ID:        ad.Adv.AdvNo,
		Price:     price,
		Available: available,
		MinLimit:  minLimit,
		MaxLimit:  maxLimit,
		Merchant: quote.Merchant{
			Name:           ad.Advertiser.NickName,
			MonthOrders:    ad.Advertiser.MonthOrderCount,
			CompletionRate: normalizeFinishRate(ad.Advertiser.MonthFinishRate),
		},
	}, true
}

// Name implements ingest.Provider
func (c *Client) Name() string {
	return fmt.Sprintf("Binance P2P (%s/%s)", c.asset, c.fiat)
}

// Interval implements ingest.Provider
func (c *Client) Interval() time.Duration {
	return time.Minute * 10
}

// Fetch implements ingest.Provider, publishing median BUY and SELL
// snapshot rates for the pair
func (c *Client) Fetch(ctx context.Context) ([]*types.Rate, error) {
	fetchTime := time.Now().UTC()

	buyPrice, err := c.fetchMedianPrice(ctx, types.RateTypeBUY)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch BUY price: %w", err)
	}

	sellPrice, err := c.fetchMedianPrice(ctx, types.RateTypeSELL)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch SELL price: %w", err)
	}

	return []*types.Rate{
		{
			AsOf:      fetchTime,
			FetchedAt: fetchTime,
			Base:      c.asset,
			Target:    c.fiat,
			RateType:  types.RateTypeBUY,
			Source:    Source,
			Value:     buyPrice,
		},
		{
			AsOf:      fetchTime,
			FetchedAt: fetchTime,
			Base:      c.asset,
			Target:    c.fiat,
			RateType:  types.RateTypeSELL,
			Source:    Source,
			Value:     sellPrice,
		},
	}, nil
}

// fetchMedianPrice fetches offers and computes the median price of
// the top reliable ones
func (c *Client) fetchMedianPrice(
	ctx context.Context,
	side types.RateType,
) (decimal.Decimal, error) {
	offers, err := c.FetchOffers(ctx, side, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}

	// Strict pass first, relax when it leaves too little to
	// compute a meaningful median
	filtered := quote.SelectReliable(offers, c.strict)

	if len(filtered) < c.minOffers {
		if relaxed := quote.SelectReliable(offers, c.relaxed); len(relaxed) > len(filtered) {
			filtered = relaxed
		}
	}

	if len(filtered) == 0 {
		// Nothing matches the criteria, fall back to everything
		filtered = offers
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Price.Equal(filtered[j].Price) {
			if side == types.RateTypeBUY {
				return filtered[i].Price.LessThan(filtered[j].Price)
			}

			return filtered[i].Price.GreaterThan(filtered[j].Price)
		}

		iq := quote.QualityScore(filtered[i].Merchant.CompletionRate, filtered[i].Merchant.MonthOrders)
		jq := quote.QualityScore(filtered[j].Merchant.CompletionRate, filtered[j].Merchant.MonthOrders)

		return iq > jq
	})

	if len(filtered) > topOffers {
		filtered = filtered[:topOffers]
	}

	prices := make([]decimal.Decimal, len(filtered))
	for i, offer := range filtered {
		prices[i] = offer.Price
	}

	return median(prices).Round(4), nil
}

// normalizeFinishRate ensures finish rate is 0-1
func normalizeFinishRate(rate float64) float64 {
	if rate <= 0 {
		return 0
	}

	if rate > 1 {
		return rate / 100
	}

	return rate
}

// median calculates the median of a slice of decimal values
func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}

	if n%2 == 0 {
		two := decimal.NewFromInt(2)

		return sorted[n/2-1].Add(sorted[n/2]).Div(two)
	}

	return sorted[n/2]
}
