package nbe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/storage/types"
)

const ratePage = `<html><body>
<table>
  <tr><th>Currency</th><th>Buying</th><th>Selling</th></tr>
  <tr><td>USD</td><td>142.50</td><td>145.35</td></tr>
  <tr><td>EUR</td><td>155.10</td><td>158.20</td></tr>
  <tr><td>GBP</td><td>broken</td><td>185.00</td></tr>
  <tr><td>JPY</td><td>0.95</td><td>0.97</td></tr>
</table>
</body></html>`

func TestProvider_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, ratePage)
	}))
	defer srv.Close()

	p := NewProvider(srv.URL, time.Second)

	rates, err := p.Fetch(context.Background())
	require.NoError(t, err)

	// USD and EUR each emit BUY / SELL / MID.
	// GBP has a broken cell, JPY is not tracked
	require.Len(t, rates, 6)

	find := func(base types.Currency, rateType types.RateType) *types.Rate {
		for _, rate := range rates {
			if rate.Base == base && rate.RateType == rateType {
				return rate
			}
		}

		return nil
	}

	usdBuy := find(currencies.USD, types.RateTypeBUY)
	require.NotNil(t, usdBuy)
	assert.True(t, usdBuy.Value.Equal(decimal.RequireFromString("142.50")))
	assert.Equal(t, currencies.ETB, usdBuy.Target)
	assert.Equal(t, Source, usdBuy.Source)

	usdMid := find(currencies.USD, types.RateTypeMID)
	require.NotNil(t, usdMid)

	// (142.50 + 145.35) / 2 = 143.925
	assert.True(t, usdMid.Value.Equal(decimal.RequireFromString("143.925")),
		"got %s", usdMid.Value)

	eurSell := find(currencies.EUR, types.RateTypeSELL)
	require.NotNil(t, eurSell)
	assert.True(t, eurSell.Value.Equal(decimal.RequireFromString("158.20")))

	assert.Nil(t, find(currencies.GBP, types.RateTypeBUY))
}

func TestProvider_FetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := NewProvider(srv.URL, time.Second)

		_, err := p.Fetch(context.Background())

		assert.ErrorContains(t, err, "invalid status code")
	})

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><table></table></body></html>`)
		}))
		defer srv.Close()

		p := NewProvider(srv.URL, time.Second)

		_, err := p.Fetch(context.Background())

		assert.ErrorContains(t, err, "no rates found")
	})
}

func TestProvider_Metadata(t *testing.T) {
	t.Parallel()

	p := NewProvider("", time.Second)

	assert.Equal(t, "National Bank of Ethiopia", p.Name())
	assert.Equal(t, time.Hour*24, p.Interval())
}

func TestParseRateNumber(t *testing.T) {
	t.Parallel()

	t.Run("plain value", func(t *testing.T) {
		t.Parallel()

		v, err := parseRateNumber(" 142.50 ")
		require.NoError(t, err)

		assert.True(t, v.Equal(decimal.RequireFromString("142.50")))
	})

	t.Run("thousands commas", func(t *testing.T) {
		t.Parallel()

		v, err := parseRateNumber("1,234.56")
		require.NoError(t, err)

		assert.True(t, v.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "abc", "-5", "0"} {
			_, err := parseRateNumber(raw)

			assert.Error(t, err, "value %q", raw)
		}
	})
}
