package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birr-rates/birrbot/provider/currencies"
	"github.com/birr-rates/birrbot/server/config"
	"github.com/birr-rates/birrbot/storage"
	"github.com/birr-rates/birrbot/storage/mock"
	"github.com/birr-rates/birrbot/storage/types"
)

func withRouteParams(t *testing.T, req *http.Request, params map[string]string) *http.Request {
	t.Helper()

	rctx := chi.NewRouteContext()

	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandlers_RateForPair(t *testing.T) {
	t.Parallel()

	t.Run("invalid base", func(t *testing.T) {
		t.Parallel()

		var called bool

		store := &mock.Storage{
			LatestRateFn: func(
				_ context.Context,
				_ *types.RateQuery,
			) (*types.Rate, error) {
				called = true

				return nil, nil
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/US/ETB", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"base":   "US",
			"target": currencies.ETB.String(),
		})

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("invalid type", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			storage: &mock.Storage{},
			logger:  noopLogger,
		}

		req := httptest.NewRequest(
			http.MethodGet,
			"/v1/rates/USDT/ETB?type=BOGUS",
			http.NoBody,
		)
		req = withRouteParams(t, req, map[string]string{
			"base":   currencies.USDT.String(),
			"target": currencies.ETB.String(),
		})

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no rate found", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			LatestRateFn: func(
				_ context.Context,
				_ *types.RateQuery,
			) (*types.Rate, error) {
				return nil, storage.ErrNotFound
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/USDT/ETB", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"base":   currencies.USDT.String(),
			"target": currencies.ETB.String(),
		})

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			LatestRateFn: func(
				_ context.Context,
				_ *types.RateQuery,
			) (*types.Rate, error) {
				return nil, errors.New("boom")
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/USDT/ETB", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"base":   currencies.USDT.String(),
			"target": currencies.ETB.String(),
		})

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var capturedQuery *types.RateQuery

		expectedRate := &types.Rate{
			AsOf:      time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC),
			FetchedAt: time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC),
			Base:      currencies.USDT,
			Target:    currencies.ETB,
			RateType:  types.RateTypeBUY,
			Source:    "BinanceP2P",
			Value:     decimal.RequireFromString("145.5"),
		}

		store := &mock.Storage{
			LatestRateFn: func(
				_ context.Context,
				query *types.RateQuery,
			) (*types.Rate, error) {
				capturedQuery = query

				return expectedRate, nil
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(
			http.MethodGet,
			"/v1/rates/USDT/ETB?type=buy&source=BinanceP2P",
			http.NoBody,
		)
		req = withRouteParams(t, req, map[string]string{
			"base":   currencies.USDT.String(),
			"target": currencies.ETB.String(),
		})

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		require.NotNil(t, capturedQuery)
		assert.Equal(t, currencies.USDT, capturedQuery.Base)
		assert.Equal(t, currencies.ETB, capturedQuery.Target)
		require.NotNil(t, capturedQuery.RateType)
		assert.Equal(t, types.RateTypeBUY, *capturedQuery.RateType)
		require.NotNil(t, capturedQuery.Source)
		assert.Equal(t, types.Source("BinanceP2P"), *capturedQuery.Source)

		var rate types.Rate

		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rate))
		assert.True(t, rate.Value.Equal(expectedRate.Value))
		assert.Equal(t, expectedRate.Source, rate.Source)
	})
}

func TestHandlers_Rates(t *testing.T) {
	t.Parallel()

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			ListRatesFn: func(_ context.Context) ([]*types.Rate, error) {
				return nil, errors.New("boom")
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		w := httptest.NewRecorder()
		s.Rates(w, httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		store := &mock.Storage{
			ListRatesFn: func(_ context.Context) ([]*types.Rate, error) {
				return []*types.Rate{
					{
						Base:     currencies.USDT,
						Target:   currencies.ETB,
						RateType: types.RateTypeBUY,
						Source:   "BinanceP2P",
						Value:    decimal.NewFromInt(145),
					},
				}, nil
			},
		}

		s := &Server{
			storage: store,
			logger:  noopLogger,
		}

		w := httptest.NewRecorder()
		s.Rates(w, httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody))

		require.Equal(t, http.StatusOK, w.Code)

		var resp RatesResponse

		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, currencies.USDT, resp.Results[0].Base)
	})
}

func TestHandlers_Sources(t *testing.T) {
	t.Parallel()

	store := &mock.Storage{
		ListSourcesFn: func(_ context.Context) ([]types.Source, error) {
			return []types.Source{"BinanceP2P", "NBE"}, nil
		},
	}

	s := &Server{
		storage: store,
		logger:  noopLogger,
	}

	w := httptest.NewRecorder()
	s.Sources(w, httptest.NewRequest(http.MethodGet, "/v1/sources", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)

	var resp SourcesResponse

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []types.Source{"BinanceP2P", "NBE"}, resp.Results)
}

func TestServer_New(t *testing.T) {
	t.Parallel()

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		badCfg := config.DefaultConfig()
		badCfg.ListenAddress = "not-an-address"

		_, err := New(&mock.Storage{}, WithConfig(badCfg))

		assert.Error(t, err)
	})

	t.Run("routes registered", func(t *testing.T) {
		t.Parallel()

		s, err := New(&mock.Storage{})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		s.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
