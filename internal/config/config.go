package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// Everything is passed explicitly into constructors; nothing reads the
// environment after Load returns.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// R-ONE statistics API configuration.
	APIKey       string
	BaseURL      string
	StatblID     string
	ItemID       string
	CycleCode    string
	FetchTimeout time.Duration
	FetchWorkers int

	// Static reference data.
	RegionCSVPath   string
	GeoJSONPath     string
	GeoNameProperty string

	// Result memoization.
	CacheTTL  time.Duration
	CacheSize int

	// Computation modes.
	ChangeMode domain.ChangeMode
	MatchMode  domain.MatchMode
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("RONE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchWorkers, err := envInt("FETCH_WORKERS", 20)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("CACHE_SIZE", 32)
	if err != nil {
		return nil, err
	}
	changeMode, err := parseChangeMode(envOrDefault("CHANGE_MODE", "drop"))
	if err != nil {
		return nil, err
	}
	matchMode, err := parseMatchMode(envOrDefault("MATCH_MODE", "suffix"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		APIKey:       os.Getenv("RONE_API_KEY"),
		BaseURL:      envOrDefault("RONE_BASE_URL", "https://www.reb.or.kr/r-one/openapi/SttsApiTblData.do"),
		StatblID:     envOrDefault("RONE_STATBL_ID", "A_2024_00045"),
		ItemID:       envOrDefault("RONE_ITM_ID", "100001"),
		CycleCode:    envOrDefault("RONE_CYCLE_CD", "MM"),
		FetchTimeout: fetchTimeout,
		FetchWorkers: fetchWorkers,

		RegionCSVPath:   envOrDefault("REGION_CSV_PATH", "regioncode.csv"),
		GeoJSONPath:     envOrDefault("GEOJSON_PATH", "koreamap.geojson"),
		GeoNameProperty: envOrDefault("GEOJSON_NAME_PROPERTY", "SIG_KOR_NM"),

		CacheTTL:  cacheTTL,
		CacheSize: cacheSize,

		ChangeMode: changeMode,
		MatchMode:  matchMode,
	}

	if cfg.APIKey == "" {
		return nil, errors.New("RONE_API_KEY is required")
	}
	if cfg.FetchWorkers <= 0 {
		return nil, errors.New("FETCH_WORKERS must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("RONE_TIMEOUT must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, errors.New("CACHE_SIZE must be positive")
	}

	return cfg, nil
}

func parseChangeMode(s string) (domain.ChangeMode, error) {
	switch s {
	case "drop":
		return domain.ModeDropMissing, nil
	case "zero":
		return domain.ModeZeroFill, nil
	default:
		return 0, fmt.Errorf("invalid CHANGE_MODE %q (want drop or zero)", s)
	}
}

func parseMatchMode(s string) (domain.MatchMode, error) {
	switch s {
	case "suffix":
		return domain.MatchSuffix, nil
	case "exact":
		return domain.MatchExact, nil
	default:
		return 0, fmt.Errorf("invalid MATCH_MODE %q (want suffix or exact)", s)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
