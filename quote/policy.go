package quote

import "math"

// ReliabilityPolicy decides whether a single offer is trustworthy
// enough to be quoted against. The bias should be conservative:
// better to exclude a borderline offer than quote one that never fills
type ReliabilityPolicy interface {
	Reliable(o Offer) bool
}

// ReliabilityFunc adapts a plain predicate into a ReliabilityPolicy
type ReliabilityFunc func(o Offer) bool

func (f ReliabilityFunc) Reliable(o Offer) bool {
	return f(o)
}

// MerchantFilter rejects offers from advertisers with a thin or poor
// track record
type MerchantFilter struct {
	MinOrders     int     // minimum monthly orders
	MinCompletion float64 // minimum monthly completion rate, 0..1
}

// DefaultFilter is the strict reliability tier
func DefaultFilter() MerchantFilter {
	return MerchantFilter{
		MinOrders:     40,
		MinCompletion: 0.92,
	}
}

// RelaxedFilter is the fallback tier, engaged when the strict tier
// leaves too few offers to work with
func RelaxedFilter() MerchantFilter {
	return MerchantFilter{
		MinOrders:     15,
		MinCompletion: 0.85,
	}
}

func (f MerchantFilter) Reliable(o Offer) bool {
	if o.Merchant.MonthOrders < f.MinOrders {
		return false
	}

	return o.Merchant.CompletionRate >= f.MinCompletion
}

// SelectReliable filters offers through the policy, preserving order
func SelectReliable(offers []Offer, policy ReliabilityPolicy) []Offer {
	selected := make([]Offer, 0, len(offers))

	for _, offer := range offers {
		if policy != nil && !policy.Reliable(offer) {
			continue
		}

		selected = append(selected, offer)
	}

	return selected
}

// QualityScore returns the Wilson lower bound of the completion rate,
// so a 100% rate over 5 orders scores below a 97% rate over 500
func QualityScore(rate float64, n int) float64 {
	if n <= 0 {
		return 0
	}

	var (
		z           = 1.96
		denominator = 1 + z*z/float64(n)
		center      = rate + z*z/(2*float64(n))
		adjust      = z * math.Sqrt((rate*(1-rate)+z*z/(4*float64(n)))/float64(n))
	)

	return (center - adjust) / denominator
}
