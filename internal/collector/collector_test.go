package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustMonth(t *testing.T, s string) domain.Month {
	t.Helper()
	m, err := domain.ParseMonth(s)
	require.NoError(t, err)
	return m
}

// fakeFetcher serves scripted values and failures keyed by "region/month".
type fakeFetcher struct {
	mu       sync.Mutex
	values   map[string]float64
	failures map[string]error
	calls    int
}

func (f *fakeFetcher) FetchIndex(_ context.Context, region domain.RegionCode, month domain.Month) (domain.Observation, error) {
	key := fmt.Sprintf("%s/%s", region, month)

	f.mu.Lock()
	f.calls++
	err := f.failures[key]
	v, ok := f.values[key]
	f.mu.Unlock()

	if err != nil {
		return domain.Observation{}, err
	}
	if !ok {
		return domain.Observation{}, domain.ErrNoData
	}
	return domain.Observation{Region: region, Month: month, IndexValue: v}, nil
}

func TestCollect_GroupsAndSortsByRegion(t *testing.T) {
	fetcher := &fakeFetcher{values: map[string]float64{
		"11/202201": 100,
		"11/202202": 101,
		"11/202203": 102,
		"26/202201": 100,
		"26/202203": 100,
	}}

	c := New(fetcher, 4, discardLogger())
	byRegion, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11", "26"},
		mustMonth(t, "202201"), mustMonth(t, "202203"))
	require.NoError(t, err)

	require.Len(t, byRegion, 2)
	require.Len(t, byRegion["11"], 3)
	require.Len(t, byRegion["26"], 2)

	// Sorted by date regardless of completion order.
	for i := 1; i < len(byRegion["11"]); i++ {
		assert.False(t, byRegion["11"][i].Month.Before(byRegion["11"][i-1].Month))
	}
	assert.Equal(t, 6, fetcher.calls, "one fetch per (region, month) pair")
}

func TestCollect_DropsFailedFetchesSilently(t *testing.T) {
	fetcher := &fakeFetcher{
		values: map[string]float64{
			"11/202201": 100,
			"11/202202": 101,
		},
		failures: map[string]error{
			"11/202202": errors.New("connect: connection refused"),
		},
	}

	c := New(fetcher, 2, discardLogger())
	byRegion, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11"},
		mustMonth(t, "202201"), mustMonth(t, "202202"))
	require.NoError(t, err, "fetch failures never escape the collector")

	require.Len(t, byRegion["11"], 1)
	assert.Equal(t, "202201", byRegion["11"][0].Month.String())
}

func TestCollect_TimeoutBecomesAbsentObservation(t *testing.T) {
	fetcher := &fakeFetcher{
		values: map[string]float64{"11/202201": 100},
		failures: map[string]error{
			"26/202201": context.DeadlineExceeded,
		},
	}

	c := New(fetcher, 2, discardLogger())
	byRegion, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11", "26"},
		mustMonth(t, "202201"), mustMonth(t, "202201"))
	require.NoError(t, err)

	assert.Contains(t, byRegion, domain.RegionCode("11"))
	assert.NotContains(t, byRegion, domain.RegionCode("26"))
}

func TestCollect_RejectsInvertedRangeBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{}

	c := New(fetcher, 2, discardLogger())
	_, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11"},
		mustMonth(t, "202212"), mustMonth(t, "202201"))

	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Zero(t, fetcher.calls)
}

func TestCollect_AllPointsMissing(t *testing.T) {
	c := New(&fakeFetcher{}, 2, discardLogger())
	byRegion, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11", "26"},
		mustMonth(t, "202201"), mustMonth(t, "202202"))
	require.NoError(t, err)
	assert.Empty(t, byRegion)
}

func TestCollect_CancelledContextStopsDispatch(t *testing.T) {
	fetcher := &fakeFetcher{values: map[string]float64{"11/202201": 100}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(fetcher, 2, discardLogger())
	byRegion, err := c.Collect(ctx,
		[]domain.RegionCode{"11", "26"},
		mustMonth(t, "202201"), mustMonth(t, "202212"))

	require.NoError(t, err, "cancellation keeps partial results instead of failing")
	assert.Empty(t, byRegion)
	assert.Zero(t, fetcher.calls, "no fetch is dispatched once the context is done")
}

// countingFetcher tracks the peak number of concurrent calls.
type countingFetcher struct {
	inflight atomic.Int64
	peak     atomic.Int64
}

func (f *countingFetcher) FetchIndex(_ context.Context, region domain.RegionCode, month domain.Month) (domain.Observation, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return domain.Observation{Region: region, Month: month, IndexValue: 100}, nil
}

func TestCollect_HonorsWorkerCap(t *testing.T) {
	fetcher := &countingFetcher{}

	c := New(fetcher, 3, discardLogger())
	_, err := c.Collect(context.Background(),
		[]domain.RegionCode{"11", "26", "27", "28", "29"},
		mustMonth(t, "202201"), mustMonth(t, "202204"))
	require.NoError(t, err)

	assert.LessOrEqual(t, fetcher.peak.Load(), int64(3))
}
