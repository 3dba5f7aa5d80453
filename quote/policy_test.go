package quote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMerchantFilter_Reliable(t *testing.T) {
	t.Parallel()

	filter := MerchantFilter{
		MinOrders:     40,
		MinCompletion: 0.92,
	}

	testTable := []struct {
		name     string
		merchant Merchant
		expected bool
	}{
		{
			"passes both thresholds",
			Merchant{MonthOrders: 100, CompletionRate: 0.98},
			true,
		},
		{
			"exactly at thresholds",
			Merchant{MonthOrders: 40, CompletionRate: 0.92},
			true,
		},
		{
			"too few orders",
			Merchant{MonthOrders: 39, CompletionRate: 0.99},
			false,
		},
		{
			"completion too low",
			Merchant{MonthOrders: 500, CompletionRate: 0.91},
			false,
		},
		{
			"zero track record",
			Merchant{},
			false,
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			offer := Offer{Merchant: testCase.merchant}

			assert.Equal(t, testCase.expected, filter.Reliable(offer))
		})
	}
}

func TestSelectReliable(t *testing.T) {
	t.Parallel()

	offers := []Offer{
		{ID: "a", Merchant: Merchant{MonthOrders: 100, CompletionRate: 0.99}},
		{ID: "b", Merchant: Merchant{MonthOrders: 1, CompletionRate: 0.99}},
		{ID: "c", Merchant: Merchant{MonthOrders: 50, CompletionRate: 0.95}},
	}

	selected := SelectReliable(offers, DefaultFilter())

	assert.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].ID)
	assert.Equal(t, "c", selected[1].ID)

	// Nil policy keeps everything
	assert.Len(t, SelectReliable(offers, nil), 3)
}

func TestQualityScore(t *testing.T) {
	t.Parallel()

	t.Run("no orders scores zero", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, QualityScore(1.0, 0))
		assert.Zero(t, QualityScore(1.0, -5))
	})

	t.Run("volume beats perfection", func(t *testing.T) {
		t.Parallel()

		// A perfect rate over 5 orders is worth less than a
		// near-perfect rate over 500
		thin := QualityScore(1.0, 5)
		established := QualityScore(0.97, 500)

		assert.Greater(t, established, thin)
	})

	t.Run("score bounded by rate", func(t *testing.T) {
		t.Parallel()

		score := QualityScore(0.95, 100)

		assert.Greater(t, score, 0.0)
		assert.Less(t, score, 0.95)
	})
}

func TestDefaultFilters(t *testing.T) {
	t.Parallel()

	strict := DefaultFilter()
	relaxed := RelaxedFilter()

	assert.Greater(t, strict.MinOrders, relaxed.MinOrders)
	assert.Greater(t, strict.MinCompletion, relaxed.MinCompletion)

	// A merchant passing strict always passes relaxed
	offer := Offer{
		Price:     decimal.NewFromInt(1),
		Available: decimal.NewFromInt(1),
		Merchant: Merchant{
			MonthOrders:    strict.MinOrders,
			CompletionRate: strict.MinCompletion,
		},
	}

	assert.True(t, strict.Reliable(offer))
	assert.True(t, relaxed.Reliable(offer))
}
