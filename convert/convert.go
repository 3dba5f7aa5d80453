package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/storage/types"
)

var (
	ErrInvalidRequest  = errors.New("invalid conversion request")
	ErrRateUnavailable = errors.New("rate unavailable")
)

// RateLookup resolves the spot rate for a currency pair.
// Implementations should return ErrRateUnavailable (wrapped or not)
// when the pair cannot be priced directly
type RateLookup interface {
	// Rate returns the spot rate from -> to, and the time it was
	// observed at
	Rate(ctx context.Context, from, to types.Currency) (decimal.Decimal, time.Time, error)
}

// RateLookupFunc adapts a plain function into a RateLookup
type RateLookupFunc func(ctx context.Context, from, to types.Currency) (decimal.Decimal, time.Time, error)

func (f RateLookupFunc) Rate(
	ctx context.Context,
	from, to types.Currency,
) (decimal.Decimal, time.Time, error) {
	return f(ctx, from, to)
}

// Request is a single conversion input
type Request struct {
	Amount decimal.Decimal
	From   types.Currency
	To     types.Currency
}

// Result is the conversion output
type Result struct {
	Amount decimal.Decimal `json:"amount"`  // converted amount
	Rate   decimal.Decimal `json:"rate"`    // effective from -> to rate
	AsOf   time.Time       `json:"as_of"`   // observation time of the rate(s) used
}

// Converter converts amounts between assets using an injected rate
// lookup. Rates are never cached here; freshness is the lookup's job
type Converter struct {
	lookup    RateLookup
	reference types.Currency
}

type Option func(c *Converter)

// WithReference sets the intermediate asset used when no direct rate
// exists for a pair. Defaults to USDT
func WithReference(ref types.Currency) Option {
	return func(c *Converter) {
		c.reference = ref
	}
}

// NewConverter creates a converter over the given rate lookup
func NewConverter(lookup RateLookup, opts ...Option) *Converter {
	c := &Converter{
		lookup:    lookup,
		reference: currencies.USDT,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert converts the requested amount, trying a direct rate first
// and falling back to a single hop through the reference asset:
//
//	rate(from -> to) = rate(from -> ref) / rate(to -> ref)
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	if req.Amount.Sign() <= 0 || req.From == "" || req.To == "" {
		return nil, ErrInvalidRequest
	}

	// Same-asset conversions are the identity
	if req.From == req.To {
		return &Result{
			Amount: req.Amount,
			Rate:   decimal.NewFromInt(1),
			AsOf:   time.Now().UTC(),
		}, nil
	}

	// Try the direct pair
	rate, asOf, err := c.lookup.Rate(ctx, req.From, req.To)

	switch {
	case err == nil:
		if rate.Sign() <= 0 {
			return nil, ErrRateUnavailable
		}

		return &Result{
			Amount: req.Amount.Mul(rate),
			Rate:   rate,
			AsOf:   asOf,
		}, nil
	case errors.Is(err, ErrRateUnavailable):
		// Fall through to the reference hop
	default:
		return nil, fmt.Errorf("unable to look up direct rate: %w", err)
	}

	return c.convertViaReference(ctx, req)
}

// convertViaReference composes the rate through the reference asset
func (c *Converter) convertViaReference(
	ctx context.Context,
	req Request,
) (*Result, error) {
	var (
		one  = decimal.NewFromInt(1)
		asOf = time.Now().UTC()
	)

	fromRef := one

	if req.From != c.reference {
		rate, t, err := c.lookup.Rate(ctx, req.From, c.reference)
		if err != nil {
			if errors.Is(err, ErrRateUnavailable) {
				return nil, ErrRateUnavailable
			}

			return nil, fmt.Errorf("unable to look up %s rate: %w", req.From, err)
		}

		fromRef = rate
		asOf = t
	}

	toRef := one

	if req.To != c.reference {
		rate, t, err := c.lookup.Rate(ctx, req.To, c.reference)
		if err != nil {
			if errors.Is(err, ErrRateUnavailable) {
				return nil, ErrRateUnavailable
			}

			return nil, fmt.Errorf("unable to look up %s rate: %w", req.To, err)
		}

		toRef = rate

		// Use the older of the two observations
		if t.Before(asOf) {
			asOf = t
		}
	}

	if fromRef.Sign() <= 0 || toRef.Sign() <= 0 {
		return nil, ErrRateUnavailable
	}

	rate := fromRef.Div(toRef)

	return &Result{
		Amount: req.Amount.Mul(rate),
		Rate:   rate,
		AsOf:   asOf,
	}, nil
}
