//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8irDeok/houseprice-dashboard/internal/adapter/rone"
	"github.com/8irDeok/houseprice-dashboard/internal/collector"
	"github.com/8irDeok/houseprice-dashboard/internal/domain"
	"github.com/8irDeok/houseprice-dashboard/internal/observability"
	"github.com/8irDeok/houseprice-dashboard/internal/pipeline"
)

// newStatsServer serves the R-ONE response shape from an in-memory table keyed
// by "region/YYYYMM". Unknown pairs get an empty rowset, which the client maps
// to domain.ErrNoData.
func newStatsServer(t *testing.T, values map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		region := r.URL.Query().Get("CLS_ID")
		month := r.URL.Query().Get("WRTTIME_IDTFR_ID")

		var rows []map[string]any
		if v, ok := values[region+"/"+month]; ok {
			rows = append(rows, map[string]any{"CLS_ID": region, "DTA_VAL": v})
		}
		resp := map[string]any{
			"SttsApiTblData": []any{
				map[string]any{"head": []any{map[string]any{"list_total_count": len(rows)}}},
				map[string]any{"row": rows},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newPipeline(t *testing.T, baseURL string, features []domain.GeoFeature, mode domain.ChangeMode) *pipeline.Pipeline {
	t.Helper()
	logger := observability.NewLogger("error", "text")
	metrics := observability.NewMetricsForTesting()

	client := rone.NewClient(rone.Options{
		ServiceKey: "test-key",
		StatblID:   "A_2024_00045",
		ItemID:     "100001",
		CycleCode:  "MM",
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
	}, metrics, logger)

	coll := collector.New(client, 8, logger)

	regions := domain.NewRegionTable([]domain.RegionEntry{
		{Code: "11", Name: "서울특별시"},
		{Code: "26", Name: "부산광역시"},
	})

	return pipeline.New(coll, pipeline.Options{
		Regions:    regions,
		Features:   features,
		ChangeMode: mode,
		MatchMode:  domain.MatchSuffix,
		CacheTTL:   15 * time.Minute,
		CacheSize:  8,
	}, clockwork.NewFakeClock(), logger, metrics)
}

// TestPipelineEndToEnd drives the full stack over HTTP: a fake statistics
// server, the real API client, the concurrent collector, and the pipeline's
// change computation, join, and coloring.
func TestPipelineEndToEnd(t *testing.T) {
	// Region 11 climbs linearly 100 -> 110 over 2022; region 26 stays flat.
	values := map[string]float64{}
	months := domain.MonthRange(
		domain.Month{Year: 2022, Mon: time.January},
		domain.Month{Year: 2022, Mon: time.December},
	)
	for i, m := range months {
		values["11/"+m.String()] = 100 + float64(10*i)/float64(len(months)-1)
		values["26/"+m.String()] = 100
	}

	srv := newStatsServer(t, values)
	defer srv.Close()

	features := []domain.GeoFeature{
		{Name: "서울특별시", Geometry: json.RawMessage(`{"type":"Point","coordinates":[127,37.5]}`)},
		{Name: "부산광역시", Geometry: json.RawMessage(`{"type":"Point","coordinates":[129,35.1]}`)},
		{Name: "독도", Geometry: json.RawMessage(`{"type":"Point","coordinates":[131.9,37.2]}`)},
	}

	p := newPipeline(t, srv.URL, features, domain.ModeDropMissing)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := p.Run(ctx, months[0], months[len(months)-1])
	require.NoError(t, err)
	require.Len(t, snap.Changes, 2)

	// Sorted descending by change percent: Seoul first.
	assert.Equal(t, domain.RegionCode("11"), snap.Changes[0].Region)
	assert.InDelta(t, 10.0, snap.Changes[0].ChangePercent, 0.001)
	assert.Equal(t, "202201", snap.Changes[0].StartMonth)
	assert.Equal(t, "202212", snap.Changes[0].EndMonth)

	assert.Equal(t, domain.RegionCode("26"), snap.Changes[1].Region)
	assert.Zero(t, snap.Changes[1].ChangePercent)

	// The joined map: max change gets the ramp's green end, min the red end,
	// and the unmatched island keeps the neutral fill.
	fills := map[string]string{}
	for _, f := range snap.Features {
		fills[f.Name] = f.Fill
	}
	assert.Equal(t, "#006837", fills["서울특별시"])
	assert.Equal(t, "#a50026", fills["부산광역시"])
	assert.Equal(t, domain.NoDataColor, fills["독도"])

	// Drill-down series survive intact and sorted.
	require.Len(t, snap.Series[domain.RegionCode("11")], len(months))
	first := snap.Series[domain.RegionCode("11")][0]
	assert.Equal(t, months[0], first.Month)
	assert.InDelta(t, 100.0, first.IndexValue, 0.001)
}

// TestPipelineSparseSeries exercises the nearest-date fallback: a region with
// observations only in the middle of the range still produces a change row
// anchored on the dates it actually has.
func TestPipelineSparseSeries(t *testing.T) {
	values := map[string]float64{
		"11/202203": 100,
		"11/202210": 104,
	}
	srv := newStatsServer(t, values)
	defer srv.Close()

	features := []domain.GeoFeature{
		{Name: "서울특별시", Geometry: json.RawMessage(`{"type":"Point","coordinates":[127,37.5]}`)},
	}
	p := newPipeline(t, srv.URL, features, domain.ModeDropMissing)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := p.Run(ctx,
		domain.Month{Year: 2022, Mon: time.January},
		domain.Month{Year: 2022, Mon: time.December},
	)
	require.NoError(t, err)

	// Only region 11 has data; region 26 drops out under ModeDropMissing.
	require.Len(t, snap.Changes, 1)
	c := snap.Changes[0]
	assert.Equal(t, "202203", c.StartMonth)
	assert.Equal(t, "202210", c.EndMonth)
	assert.InDelta(t, 4.0, c.ChangePercent, 0.001)
}

// TestPipelineZeroFill checks the alternate policy: regions without data get
// a zero-valued row instead of vanishing.
func TestPipelineZeroFill(t *testing.T) {
	values := map[string]float64{
		"11/202201": 100,
		"11/202212": 105,
	}
	srv := newStatsServer(t, values)
	defer srv.Close()

	p := newPipeline(t, srv.URL, nil, domain.ModeZeroFill)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := p.Run(ctx,
		domain.Month{Year: 2022, Mon: time.January},
		domain.Month{Year: 2022, Mon: time.December},
	)
	require.NoError(t, err)
	require.Len(t, snap.Changes, 2)

	byRegion := map[domain.RegionCode]domain.ChangeResult{}
	for _, c := range snap.Changes {
		byRegion[c.Region] = c
	}
	assert.InDelta(t, 5.0, byRegion["11"].ChangePercent, 0.001)
	assert.Zero(t, byRegion["26"].ChangePercent)
	assert.Zero(t, byRegion["26"].StartValue)
}

// TestPipelineNoData verifies an all-empty upstream maps to ErrNoData rather
// than an empty snapshot.
func TestPipelineNoData(t *testing.T) {
	srv := newStatsServer(t, nil)
	defer srv.Close()

	p := newPipeline(t, srv.URL, nil, domain.ModeDropMissing)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := p.Run(ctx,
		domain.Month{Year: 2022, Mon: time.January},
		domain.Month{Year: 2022, Mon: time.March},
	)
	require.ErrorIs(t, err, pipeline.ErrNoData)
}

