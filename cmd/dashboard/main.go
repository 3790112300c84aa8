// Command dashboard serves the regional house price index dashboard API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/8irDeok/houseprice-dashboard/internal/adapter/http"
	"github.com/8irDeok/houseprice-dashboard/internal/adapter/refdata"
	"github.com/8irDeok/houseprice-dashboard/internal/adapter/rone"
	"github.com/8irDeok/houseprice-dashboard/internal/collector"
	"github.com/8irDeok/houseprice-dashboard/internal/config"
	"github.com/8irDeok/houseprice-dashboard/internal/observability"
	"github.com/8irDeok/houseprice-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Reference data is loaded once and immutable afterward.
	regions, err := refdata.LoadRegionTable(cfg.RegionCSVPath)
	if err != nil {
		logger.Error("failed to load region table", "error", err)
		os.Exit(1)
	}
	features, err := refdata.LoadFeatureCollection(cfg.GeoJSONPath, cfg.GeoNameProperty)
	if err != nil {
		logger.Error("failed to load boundary geojson", "error", err)
		os.Exit(1)
	}
	logger.Info("reference data loaded",
		"regions", regions.Len(),
		"features", len(features),
	)

	fetcher := rone.NewClient(rone.Options{
		ServiceKey: cfg.APIKey,
		StatblID:   cfg.StatblID,
		ItemID:     cfg.ItemID,
		CycleCode:  cfg.CycleCode,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.FetchTimeout,
	}, metrics, logger)

	coll := collector.New(fetcher, cfg.FetchWorkers, logger)

	p := pipeline.New(coll, pipeline.Options{
		Regions:    regions,
		Features:   features,
		ChangeMode: cfg.ChangeMode,
		MatchMode:  cfg.MatchMode,
		CacheTTL:   cfg.CacheTTL,
		CacheSize:  cfg.CacheSize,
	}, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, regions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
