package nbe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/storage/types"
)

var errInvalidRate = errors.New("invalid rate")

// Source is the snapshot source tag for official NBE rates
var Source types.Source = "NBE"

const defaultURL = "https://www.nbe.gov.et/exchange-rates/"

// tracked is the set of currency codes lifted from the daily
// indicative table
var tracked = map[string]types.Currency{
	"USD": currencies.USD,
	"EUR": currencies.EUR,
	"GBP": currencies.GBP,
}

// Provider scrapes the National Bank of Ethiopia daily indicative
// exchange rate table
type Provider struct {
	client *http.Client
	url    string
}

// NewProvider creates a new NBE website provider
func NewProvider(url string, timeout time.Duration) *Provider {
	if url == "" {
		url = defaultURL
	}

	return &Provider{
		client: &http.Client{
			Timeout: timeout,
		},
		url: url,
	}
}

func (p *Provider) Name() string {
	return "National Bank of Ethiopia"
}

func (p *Provider) Interval() time.Duration {
	return time.Hour * 24 // the table is published daily
}

func (p *Provider) Fetch(ctx context.Context) ([]*types.Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create GET request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("invalid status code received: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to construct query doc: %w", err)
	}

	fetchTime := time.Now().UTC()

	rates := parseRateTable(doc, fetchTime)
	if len(rates) == 0 {
		return nil, errors.New("no rates found in the NBE table")
	}

	return rates, nil
}

// parseRateTable walks the indicative rate table rows and emits BUY,
// SELL and MID snapshots for the tracked currencies.
// Expected row shape: | code | buying | selling |
func parseRateTable(doc *goquery.Document, fetchTime time.Time) []*types.Rate {
	rates := make([]*types.Rate, 0, len(tracked)*3)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		code := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))

		base, ok := tracked[code]
		if !ok {
			return
		}

		buying, err := parseRateNumber(cells.Eq(1).Text())
		if err != nil {
			return
		}

		selling, err := parseRateNumber(cells.Eq(2).Text())
		if err != nil {
			return
		}

		mid := buying.Add(selling).Div(decimal.NewFromInt(2)).Round(4)

		for rateType, value := range map[types.RateType]decimal.Decimal{
			types.RateTypeBUY:  buying,
			types.RateTypeSELL: selling,
			types.RateTypeMID:  mid,
		} {
			rates = append(rates, &types.Rate{
				AsOf:      fetchTime,
				FetchedAt: fetchTime,
				Base:      base,
				Target:    currencies.ETB,
				RateType:  rateType,
				Source:    Source,
				Value:     value,
			})
		}
	})

	return rates
}

// parseRateNumber parses a rate cell, tolerating thousands commas
func parseRateNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errInvalidRate
	}

	s = strings.ReplaceAll(s, ",", "")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse rate %q: %w", s, err)
	}

	if v.Sign() <= 0 {
		return decimal.Zero, errInvalidRate
	}

	return v, nil
}
