package quote

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/birr-rates/birrbot/storage/types"
)

var ErrInvalidRequest = errors.New("invalid quote request")

// InsufficientLiquidityError indicates the reliable offers could not
// cover the requested amount. It carries the partial fill so callers
// can still present a degraded quote
type InsufficientLiquidityError struct {
	Filled       decimal.Decimal // base units that could be filled
	Remaining    decimal.Decimal // base units left unfilled
	PartialTotal decimal.Decimal // quote units for the filled portion
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf(
		"insufficient liquidity: %s filled, %s unfilled",
		e.Filled.String(),
		e.Remaining.String(),
	)
}

// Merchant is the advertiser track record attached to an offer
type Merchant struct {
	Name           string
	MonthOrders    int
	CompletionRate float64 // 0..1, over the advertiser's last month
}

// Offer is a single P2P advertisement for a trading pair
type Offer struct {
	ID        string
	Price     decimal.Decimal // quote units per base unit
	Available decimal.Decimal // base units the offer can still fill
	MinLimit  decimal.Decimal // quote units, per-transaction floor (0 = none)
	MaxLimit  decimal.Decimal // quote units, per-transaction cap (0 = none)
	Merchant  Merchant
}

// Request is a sell computation input
type Request struct {
	Amount decimal.Decimal // base units to sell
	Base   types.Currency
	Quote  types.Currency
}

// Fill is a single offer contribution to a quote
type Fill struct {
	Offer  Offer
	Amount decimal.Decimal // base units filled against the offer
	Gross  decimal.Decimal // quote units received for the fill
}

// Result is a fully-filled sell quote
type Result struct {
	EffectiveTotal decimal.Decimal // quote units received in total
	RateUsed       decimal.Decimal // blended rate, EffectiveTotal / Amount
	Fills          []Fill          // contributing offers, in fill order
}

// ComputeSellQuote computes the best achievable total for selling the
// requested base amount across the given offers, skipping offers the
// reliability policy rejects.
//
// Offers are walked in descending price order (best rate for the seller
// first), price ties broken by merchant quality. Each offer fills up to
// min(available, remaining, max limit / price); an offer whose merchant
// minimum exceeds the remaining trade volume is skipped entirely.
//
// The computation is pure: it retains no references to its inputs, and
// identical inputs always produce identical results
func ComputeSellQuote(
	req Request,
	offers []Offer,
	policy ReliabilityPolicy,
) (*Result, error) {
	if req.Amount.Sign() <= 0 || req.Base == "" || req.Quote == "" {
		return nil, ErrInvalidRequest
	}

	// Drop unreliable offers.
	// A nil policy accepts every offer
	reliable := make([]Offer, 0, len(offers))

	for _, offer := range offers {
		if offer.Price.Sign() <= 0 || offer.Available.Sign() <= 0 {
			continue // malformed upstream data
		}

		if policy != nil && !policy.Reliable(offer) {
			continue
		}

		reliable = append(reliable, offer)
	}

	// Best price first for the seller; quality breaks ties
	sort.SliceStable(reliable, func(i, j int) bool {
		if !reliable[i].Price.Equal(reliable[j].Price) {
			return reliable[i].Price.GreaterThan(reliable[j].Price)
		}

		return qualityOf(reliable[i]) > qualityOf(reliable[j])
	})

	var (
		remaining = req.Amount
		total     = decimal.Zero
		fills     = make([]Fill, 0, len(reliable))
	)

	for _, offer := range reliable {
		if remaining.Sign() == 0 {
			break
		}

		fill := offer.Available
		if remaining.LessThan(fill) {
			fill = remaining
		}

		// Cap by the merchant's per-transaction maximum
		if offer.MaxLimit.Sign() > 0 {
			if byLimit := offer.MaxLimit.Div(offer.Price); byLimit.LessThan(fill) {
				fill = byLimit
			}
		}

		if fill.Sign() <= 0 {
			continue
		}

		gross := fill.Mul(offer.Price)

		// A fill below the merchant minimum cannot be transacted
		if offer.MinLimit.Sign() > 0 && gross.LessThan(offer.MinLimit) {
			continue
		}

		fills = append(fills, Fill{
			Offer:  offer,
			Amount: fill,
			Gross:  gross,
		})

		total = total.Add(gross)
		remaining = remaining.Sub(fill)
	}

	if remaining.Sign() > 0 {
		return nil, &InsufficientLiquidityError{
			Filled:       req.Amount.Sub(remaining),
			Remaining:    remaining,
			PartialTotal: total,
		}
	}

	return &Result{
		EffectiveTotal: total,
		RateUsed:       total.Div(req.Amount),
		Fills:          fills,
	}, nil
}

func qualityOf(o Offer) float64 {
	return QualityScore(o.Merchant.CompletionRate, o.Merchant.MonthOrders)
}
