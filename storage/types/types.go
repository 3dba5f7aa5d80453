package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

func (c Currency) String() string {
	return string(c)
}

type RateType string

const (
	RateTypeMID  RateType = "MID"
	RateTypeBUY  RateType = "BUY"
	RateTypeSELL RateType = "SELL"
)

func (r RateType) String() string {
	return string(r)
}

type Source string

func (s Source) String() string {
	return string(s)
}

// Rate is a single observed exchange rate snapshot for a currency pair
type Rate struct {
	AsOf      time.Time       `json:"as_of"`
	FetchedAt time.Time       `json:"fetched_at"`
	Base      Currency        `json:"base"`
	Target    Currency        `json:"target"`
	RateType  RateType        `json:"rate_type"`
	Source    Source          `json:"source"`
	Value     decimal.Decimal `json:"value"`
}

// RateQuery narrows down a snapshot lookup.
// Nil RateType / Source match any
type RateQuery struct {
	RateType *RateType `json:"rate_type"`
	Source   *Source   `json:"source"`
	Base     Currency  `json:"base"`
	Target   Currency  `json:"target"`
}
