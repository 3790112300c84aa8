package rone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
	"github.com/8irDeok/houseprice-dashboard/internal/observability"
)

// Options identify the statistic being queried. The defaults in config
// select the monthly house sales price index.
type Options struct {
	ServiceKey string
	StatblID   string
	ItemID     string
	CycleCode  string
	BaseURL    string
	Timeout    time.Duration
}

// Client implements domain.IndexFetcher against the R-ONE statistics API.
type Client struct {
	opts       Options
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an R-ONE API client. The timeout applies per call; a
// timed-out fetch is indistinguishable downstream from any other failure.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchIndex retrieves the index value for one region and one month.
// Returns domain.ErrNoData when the API has no row for the pair.
func (c *Client) FetchIndex(ctx context.Context, region domain.RegionCode, month domain.Month) (domain.Observation, error) {
	params := url.Values{
		"ServiceKey":       {c.opts.ServiceKey},
		"STATBL_ID":        {c.opts.StatblID},
		"ITM_ID":           {c.opts.ItemID},
		"DTACYCLE_CD":      {c.opts.CycleCode},
		"CLS_ID":           {string(region)},
		"WRTTIME_IDTFR_ID": {month.String()},
		"Type":             {"json"},
	}

	start := time.Now()
	obs, err := c.doRequest(ctx, c.opts.BaseURL+"?"+params.Encode(), region, month)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.FetchRequests.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrNoData):
		c.metrics.FetchRequests.WithLabelValues("no_data").Inc()
	default:
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
	}
	return obs, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string, region domain.RegionCode, month domain.Month) (domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Observation{}, fmt.Errorf("r-one API error: status %d: %s", resp.StatusCode, body)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, fmt.Errorf("decode response: %w", err)
	}

	// The body nests the rows in the second element of SttsApiTblData;
	// the first element is header metadata.
	if len(payload.SttsApiTblData) < 2 {
		return domain.Observation{}, domain.ErrNoData
	}
	var body rowSet
	if err := json.Unmarshal(payload.SttsApiTblData[1], &body); err != nil {
		return domain.Observation{}, fmt.Errorf("decode row set: %w", err)
	}
	if len(body.Row) == 0 {
		return domain.Observation{}, domain.ErrNoData
	}

	row := body.Row[0]
	value, err := row.DtaVal.Float64()
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse DTA_VAL %q: %w", row.DtaVal, err)
	}

	// Trust the response's CLS_ID when present; fall back to the request.
	code := domain.RegionCode(row.ClsID)
	if code == "" {
		code = region
	}

	return domain.Observation{
		Region:     code,
		Month:      month,
		IndexValue: value,
	}, nil
}

// R-ONE API response types.

type apiResponse struct {
	SttsApiTblData []json.RawMessage `json:"SttsApiTblData"`
}

type rowSet struct {
	Row []apiRow `json:"row"`
}

type apiRow struct {
	ClsID  string `json:"CLS_ID"`
	DtaVal dtaVal `json:"DTA_VAL"`
}

// dtaVal tolerates both encodings the API uses for DTA_VAL: a bare number
// in some tables, a quoted string in others.
type dtaVal string

func (v *dtaVal) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = dtaVal(s)
		return nil
	}
	*v = dtaVal(b)
	return nil
}

func (v dtaVal) Float64() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
}
