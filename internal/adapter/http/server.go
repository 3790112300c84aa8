// Package http serves the dashboard API: the colored choropleth feature
// collection, the change table, drill-down series, and the ops endpoints.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/8irDeok/houseprice-dashboard/internal/chart"
	"github.com/8irDeok/houseprice-dashboard/internal/collector"
	"github.com/8irDeok/houseprice-dashboard/internal/domain"
	"github.com/8irDeok/houseprice-dashboard/internal/pipeline"
)

// PipelineRunner is the server's view of the pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, start, end domain.Month) (*pipeline.Snapshot, error)
	Invalidate()
	CheckReadiness(ctx context.Context) error
}

// Server exposes the dashboard API plus health, readiness, and metrics.
// It also owns the drill-down selection: a single selected-region-or-none
// field, mutated only through the /api/selection handlers.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	runner     PipelineRunner
	regions    *domain.RegionTable
	logger     *slog.Logger

	mu       sync.Mutex
	selected *domain.RegionCode
}

// NewServer creates the dashboard HTTP server.
func NewServer(addr string, runner PipelineRunner, regions *domain.RegionTable, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:  engine,
		runner:  runner,
		regions: regions,
		logger:  logger,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	engine.Use(requestID(), requestLogger(logger), gin.Recovery())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/map", s.handleMap)
	api.GET("/changes", s.handleChanges)
	api.GET("/regions/:code/series", s.handleSeries)
	api.GET("/regions/:code/chart.png", s.handleChart)
	api.GET("/selection", s.handleGetSelection)
	api.PUT("/selection", s.handlePutSelection)
	api.DELETE("/selection", s.handleClearSelection)
	api.POST("/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// --- middleware ---

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// --- ops handlers ---

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.runner.CheckReadiness(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// --- dashboard handlers ---

// parseRange reads the start/end query parameters. On failure it writes a
// 400 response and returns ok=false.
func parseRange(c *gin.Context) (start, end domain.Month, ok bool) {
	start, err := domain.ParseMonth(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be a YYYYMM month"})
		return start, end, false
	}
	end, err = domain.ParseMonth(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be a YYYYMM month"})
		return start, end, false
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must not be after end"})
		return start, end, false
	}
	return start, end, true
}

// snapshot runs the pipeline and translates its failures to HTTP statuses.
// Returns nil after writing the error response.
func (s *Server) snapshot(c *gin.Context, start, end domain.Month) *pipeline.Snapshot {
	snap, err := s.runner.Run(c.Request.Context(), start, end)
	switch {
	case err == nil:
		return snap
	case errors.Is(err, collector.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for the requested range"})
	default:
		s.logger.Error("pipeline run failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream data fetch failed"})
	}
	return nil
}

type featurePayload struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

func (s *Server) handleMap(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	snap := s.snapshot(c, start, end)
	if snap == nil {
		return
	}

	features := make([]featurePayload, 0, len(snap.Features))
	for _, f := range snap.Features {
		props := make(map[string]any, len(f.Properties)+4)
		for k, v := range f.Properties {
			props[k] = v
		}
		props["fill"] = f.Fill
		props["tooltip"] = f.Tooltip
		if f.Change != nil {
			props["region_code"] = f.Change.Region
			props["change_percent"] = f.Change.ChangePercent
		} else {
			props["change_percent"] = nil
		}
		features = append(features, featurePayload{
			Type:       "Feature",
			Geometry:   f.Geometry,
			Properties: props,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"type":       "FeatureCollection",
		"fetched_at": snap.FetchedAt.UTC(),
		"features":   features,
	})
}

func (s *Server) handleChanges(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	snap := s.snapshot(c, start, end)
	if snap == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":      snap.Start.String(),
		"end":        snap.End.String(),
		"fetched_at": snap.FetchedAt.UTC(),
		"changes":    snap.Changes,
	})
}

// regionSeries resolves one region's series from a fresh snapshot, writing
// the error response on failure.
func (s *Server) regionSeries(c *gin.Context, code domain.RegionCode) (domain.TimeSeries, domain.RegionName, bool) {
	name, known := s.regions.Name(code)
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown region code"})
		return nil, "", false
	}

	start, end, ok := parseRange(c)
	if !ok {
		return nil, "", false
	}
	snap := s.snapshot(c, start, end)
	if snap == nil {
		return nil, "", false
	}

	series, ok := snap.Series[code]
	if !ok || len(series) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no observations for this region in the range"})
		return nil, "", false
	}
	return series, name, true
}

func (s *Server) handleSeries(c *gin.Context) {
	code := domain.RegionCode(c.Param("code"))
	series, name, ok := s.regionSeries(c, code)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"region_code":  code,
		"region_name":  name,
		"observations": series,
	})
}

func (s *Server) handleChart(c *gin.Context) {
	code := domain.RegionCode(c.Param("code"))
	series, _, ok := s.regionSeries(c, code)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderSeriesPNG(&buf, series); err != nil {
		if errors.Is(err, chart.ErrNotEnoughPoints) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not enough observations to chart"})
			return
		}
		s.logger.Error("chart render failed", "error", err, "region", string(code))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chart rendering failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// --- selection handlers ---

type selectionRequest struct {
	RegionCode string `json:"region_code" binding:"required"`
}

func (s *Server) handlePutSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"region_code\": \"...\"}"})
		return
	}

	code := domain.RegionCode(req.RegionCode)
	name, known := s.regions.Name(code)
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown region code"})
		return
	}

	s.mu.Lock()
	s.selected = &code
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"region_code": code, "region_name": name})
}

func (s *Server) handleGetSelection(c *gin.Context) {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()

	if selected == nil {
		c.JSON(http.StatusOK, gin.H{"selected": nil})
		return
	}

	series, name, ok := s.regionSeries(c, *selected)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selected": gin.H{
			"region_code":  *selected,
			"region_name":  name,
			"observations": series,
		},
	})
}

func (s *Server) handleClearSelection(c *gin.Context) {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.runner.Invalidate()
	c.Status(http.StatusNoContent)
}
