package domain

import (
	"context"
	"errors"
)

// ErrNoData is returned by a fetcher when the API answered cleanly but has
// no row for the requested (region, month) pair. The collector treats it the
// same as any other failure: the point is dropped.
var ErrNoData = errors.New("no data for region/month")

// IndexFetcher retrieves one price-index observation for one region and one
// month. Implementations must be safe for concurrent use.
type IndexFetcher interface {
	FetchIndex(ctx context.Context, region RegionCode, month Month) (Observation, error)
}
