package ingest

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/birr-rates/birrbot/storage/types"
)

// scheduledFetch is a single scheduled Provider fetch job
type scheduledFetch struct {
	at         time.Time
	provider   Provider
	providerID xid.ID
}

// Less is utilized to sort scheduled fetches by their due-time (earliest == first)
func (a scheduledFetch) Less(b scheduledFetch) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the provider routine
type workerInfo struct {
	provider   Provider
	resCh      chan<- *workerResponse
	providerID xid.ID
}

// workerResponse is the provider routine response
type workerResponse struct {
	error      error         // encountered error, if any
	rates      []*types.Rate // the fetched rate snapshots
	providerID xid.ID        // the provider ID
}

// handleJob fetches using the provider
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	rates, err := info.provider.Fetch(ctx)

	response := &workerResponse{
		error:      err,
		rates:      rates,
		providerID: info.providerID,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
