package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Env      string
	HTTPAddr string

	StoreDriver   string
	SQLitePath    string
	DataNamespace string

	EIAAPIKey     string
	EIABaseURL    string
	AESOReportURL string

	DistanceAPIKey  string
	DistanceBaseURL string
	DistanceTimeout time.Duration

	UpstreamRateLimit float64

	RedisAddr     string
	PriceCacheTTL time.Duration

	PricePollSpec   string
	PricePollStates []string
}

// Load reads .env if present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":3001"),

		StoreDriver:   getEnv("STORE_DRIVER", StoreDriverPostgres),
		SQLitePath:    getEnv("SQLITE_PATH", "gridshare.db"),
		DataNamespace: getEnv("DATA_NAMESPACE", "public"),

		EIAAPIKey:     os.Getenv("EIA_API_KEY"),
		EIABaseURL:    getEnv("EIA_BASE_URL", "https://api.eia.gov/v2/electricity/retail-sales/data"),
		AESOReportURL: getEnv("AESO_REPORT_URL", "http://ets.aeso.ca/ets_web/ip/Market/Reports/SMPriceReportServlet?contentType=html"),

		DistanceAPIKey:  os.Getenv("DISTANCE_API_KEY"),
		DistanceBaseURL: getEnv("DISTANCE_BASE_URL", "https://maps.googleapis.com/maps/api/distancematrix/json"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		PricePollSpec:   getEnv("PRICE_POLL_SPEC", "45 * * * * *"),
		PricePollStates: splitList(getEnv("PRICE_POLL_STATES", "AB")),
	}

	var err error
	if cfg.DistanceTimeout, err = getDuration("DISTANCE_TIMEOUT", time.Second); err != nil {
		return nil, err
	}
	if cfg.PriceCacheTTL, err = getDuration("PRICE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpstreamRateLimit, err = getFloat("UPSTREAM_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverSQLite, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
