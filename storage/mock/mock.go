package mock

import (
	"context"

	"github.com/birr-rates/birrbot/storage/types"
)

type (
	SaveRateDelegate    func(context.Context, *types.Rate) error
	LatestRateDelegate  func(context.Context, *types.RateQuery) (*types.Rate, error)
	ListRatesDelegate   func(context.Context) ([]*types.Rate, error)
	ListSourcesDelegate func(context.Context) ([]types.Source, error)
)

type Storage struct {
	SaveRateFn    SaveRateDelegate
	LatestRateFn  LatestRateDelegate
	ListRatesFn   ListRatesDelegate
	ListSourcesFn ListSourcesDelegate
}

func (m *Storage) SaveRate(ctx context.Context, rate *types.Rate) error {
	if m.SaveRateFn != nil {
		return m.SaveRateFn(ctx, rate)
	}

	return nil
}

func (m *Storage) LatestRate(
	ctx context.Context,
	query *types.RateQuery,
) (*types.Rate, error) {
	if m.LatestRateFn != nil {
		return m.LatestRateFn(ctx, query)
	}

	return nil, nil
}

func (m *Storage) ListRates(ctx context.Context) ([]*types.Rate, error) {
	if m.ListRatesFn != nil {
		return m.ListRatesFn(ctx)
	}

	return nil, nil
}

func (m *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	if m.ListSourcesFn != nil {
		return m.ListSourcesFn(ctx)
	}

	return nil, nil
}
