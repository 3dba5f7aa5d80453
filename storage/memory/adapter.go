package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/birr-rates/birrbot/storage"
	"github.com/birr-rates/birrbot/storage/types"
)

type key struct {
	base, target, source, rateType string
}

// Storage keeps the latest snapshot per pair / type / source in memory
type Storage struct {
	data map[key]types.Rate

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[key]types.Rate),
	}
}

func (s *Storage) SaveRate(_ context.Context, r *types.Rate) error {
	k := key{
		base:     r.Base.String(),
		target:   r.Target.String(),
		source:   r.Source.String(),
		rateType: r.RateType.String(),
	}

	elem := *r
	elem.AsOf = elem.AsOf.UTC()
	elem.FetchedAt = elem.FetchedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Older observations never overwrite newer ones
	if cur, ok := s.data[k]; ok && cur.FetchedAt.After(elem.FetchedAt) {
		return nil
	}

	s.data[k] = elem

	return nil
}

func (s *Storage) LatestRate(
	_ context.Context,
	query *types.RateQuery,
) (*types.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *types.Rate

	for _, v := range s.data {
		if !matches(v, query) {
			continue
		}

		if best == nil || v.AsOf.After(best.AsOf) ||
			(v.AsOf.Equal(best.AsOf) && v.FetchedAt.After(best.FetchedAt)) {
			elem := v
			best = &elem
		}
	}

	if best == nil {
		return nil, storage.ErrNotFound
	}

	return best, nil
}

func (s *Storage) ListRates(_ context.Context) ([]*types.Rate, error) {
	s.mu.RLock()

	rates := make([]*types.Rate, 0, len(s.data))

	for _, v := range s.data {
		elem := v
		rates = append(rates, &elem)
	}

	s.mu.RUnlock()

	// Stable output order for the API surface
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Base != rates[j].Base {
			return rates[i].Base < rates[j].Base
		}

		if rates[i].Target != rates[j].Target {
			return rates[i].Target < rates[j].Target
		}

		if rates[i].Source != rates[j].Source {
			return rates[i].Source < rates[j].Source
		}

		return rates[i].RateType < rates[j].RateType
	})

	return rates, nil
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[types.Source]struct{})

	for _, v := range s.data {
		seen[v.Source] = struct{}{}
	}

	s.mu.RUnlock()

	sources := make([]types.Source, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i] < sources[j]
	})

	return sources, nil
}

func matches(r types.Rate, q *types.RateQuery) bool {
	if q == nil {
		return true
	}

	if q.Base != "" && r.Base != q.Base {
		return false
	}

	if q.Target != "" && r.Target != q.Target {
		return false
	}

	if q.RateType != nil && r.RateType != *q.RateType {
		return false
	}

	if q.Source != nil && r.Source != *q.Source {
		return false
	}

	return true
}
