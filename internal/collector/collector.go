// Package collector fans index fetches out across the (region, month)
// cartesian product under a fixed concurrency cap.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

// ErrInvalidRange is returned when the start month is after the end month.
// The check runs before any fetch is dispatched.
var ErrInvalidRange = errors.New("start month is after end month")

// Collector gathers per-region time series from an IndexFetcher.
type Collector struct {
	fetcher domain.IndexFetcher
	workers int64
	logger  *slog.Logger
}

// New creates a Collector with the given in-flight fetch cap.
func New(fetcher domain.IndexFetcher, workers int, logger *slog.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		workers: int64(workers),
		logger:  logger,
	}
}

// Collect fetches every (region, month) pair in the closed range and returns
// the observations grouped by region, each series sorted by date. A fetch
// that fails for any reason contributes nothing: no placeholder, no retry,
// and no error past this boundary. Regions with zero observations are absent
// from the result. Aggregation happens strictly after all fetches resolve.
func (c *Collector) Collect(ctx context.Context, regions []domain.RegionCode, start, end domain.Month) (map[domain.RegionCode]domain.TimeSeries, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	months := domain.MonthRange(start, end)
	sem := semaphore.NewWeighted(c.workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		byRegion = make(map[domain.RegionCode]domain.TimeSeries, len(regions))
	)

dispatch:
	for _, month := range months {
		for _, region := range regions {
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled mid-dispatch; keep what was collected.
				c.logger.Debug("dispatch stopped", "error", err)
				break dispatch
			}
			wg.Add(1)
			go func(region domain.RegionCode, month domain.Month) {
				defer wg.Done()
				defer sem.Release(1)

				obs, err := c.fetcher.FetchIndex(ctx, region, month)
				if err != nil {
					c.logger.Debug("fetch dropped",
						"region", string(region),
						"month", month.String(),
						"error", err,
					)
					return
				}

				mu.Lock()
				byRegion[obs.Region] = append(byRegion[obs.Region], obs)
				mu.Unlock()
			}(region, month)
		}
	}

	wg.Wait()

	for _, series := range byRegion {
		series.Sort()
	}
	return byRegion, nil
}
