package storage

import (
	"context"
	"errors"

	"github.com/birr-rates/birrbot/storage/types"
)

// ErrNotFound indicates no snapshot matched the query
var ErrNotFound = errors.New("rate not found")

// Storage is an abstraction over the latest exchange rate snapshots
type Storage interface {
	// SaveRate saves the given rate snapshot, replacing any older
	// snapshot for the same pair / type / source
	SaveRate(context.Context, *types.Rate) error

	// LatestRate fetches the freshest snapshot matching the query,
	// or ErrNotFound
	LatestRate(context.Context, *types.RateQuery) (*types.Rate, error)

	// ListRates lists all held snapshots
	ListRates(context.Context) ([]*types.Rate, error)

	// ListSources lists all sources with at least one snapshot
	ListSources(context.Context) ([]types.Source, error)
}
