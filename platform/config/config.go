// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// GeocodeConfig provides settings for the Nominatim geocoding client.
type GeocodeConfig interface {
	GetGeocodeBaseURL() string
	GetGeocodeUserAgent() string
	GetGeocodeCountryCodes() string
	GetGeocodeLimit() int
	GetGeocodeRatePerSecond() float64
	GetGeocodeCacheTTL() time.Duration
	GetUpstreamTimeout() time.Duration
}

// RoutingConfig provides settings for the OSRM routing client.
type RoutingConfig interface {
	GetRoutingBaseURL() string
	GetRoutingProfile() string
	GetUpstreamTimeout() time.Duration
}

// TrackingConfig provides the cadence and debounce settings of the
// tracking and address resolution components.
type TrackingConfig interface {
	GetTrackingInterval() time.Duration
	GetAddressDebounce() time.Duration
	GetSelectionCooldown() time.Duration
	GetAddressMinChars() int
}

// LocationStoreConfig provides settings for the remote location store client.
type LocationStoreConfig interface {
	GetLocationAPIBaseURL() string
	GetLocationAPIToken() string
	GetUpstreamTimeout() time.Duration
}

// RedisConfig provides settings for the shared Redis connection.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for asynq-backed background jobs.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// BrokerConfig provides settings for the AMQP location fan-out.
type BrokerConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
	IsBrokerEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                  string
	HTTPAddr             string
	DatabaseURL          string
	JWTAccessSecret      string
	CORSAllowAll         bool
	CORSOrigins          []string
	CORSAllowCreds       bool
	GeocodeBaseURL       string
	GeocodeUserAgent     string
	GeocodeCountryCodes  string
	GeocodeLimit         int
	GeocodeRatePerSecond float64
	GeocodeCacheTTL      time.Duration
	RoutingBaseURL       string
	RoutingProfile       string
	UpstreamTimeout      time.Duration
	TrackingInterval     time.Duration
	AddressDebounce      time.Duration
	SelectionCooldown    time.Duration
	AddressMinChars      int
	LocationAPIBaseURL   string
	LocationAPIToken     string
	RedisURL             string
	RedisTLSInsecure     bool
	AsynqQueueName       string
	AsynqConcurrency     int
	AMQPURL              string
	AMQPExchange         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// GeocodeConfig implementation
func (c *Config) GetGeocodeBaseURL() string         { return c.GeocodeBaseURL }
func (c *Config) GetGeocodeUserAgent() string       { return c.GeocodeUserAgent }
func (c *Config) GetGeocodeCountryCodes() string    { return c.GeocodeCountryCodes }
func (c *Config) GetGeocodeLimit() int              { return c.GeocodeLimit }
func (c *Config) GetGeocodeRatePerSecond() float64  { return c.GeocodeRatePerSecond }
func (c *Config) GetGeocodeCacheTTL() time.Duration { return c.GeocodeCacheTTL }
func (c *Config) GetUpstreamTimeout() time.Duration { return c.UpstreamTimeout }

// RoutingConfig implementation
func (c *Config) GetRoutingBaseURL() string { return c.RoutingBaseURL }
func (c *Config) GetRoutingProfile() string { return c.RoutingProfile }

// TrackingConfig implementation
func (c *Config) GetTrackingInterval() time.Duration  { return c.TrackingInterval }
func (c *Config) GetAddressDebounce() time.Duration   { return c.AddressDebounce }
func (c *Config) GetSelectionCooldown() time.Duration { return c.SelectionCooldown }
func (c *Config) GetAddressMinChars() int             { return c.AddressMinChars }

// LocationStoreConfig implementation
func (c *Config) GetLocationAPIBaseURL() string { return c.LocationAPIBaseURL }
func (c *Config) GetLocationAPIToken() string   { return c.LocationAPIToken }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// BrokerConfig implementation
func (c *Config) GetAMQPURL() string      { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string { return c.AMQPExchange }
func (c *Config) IsBrokerEnabled() bool   { return c.AMQPURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := LoadClient()
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// LoadClient reads the subset of configuration needed by headless clients
// (tracker, backfill), which do not own a database or sign tokens.
func LoadClient() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8081"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:         corsAllowAll,
		CORSOrigins:          corsOrigins,
		CORSAllowCreds:       strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		GeocodeBaseURL:       getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent:     getEnv("GEOCODE_USER_AGENT", "GigworkMaps/1.0"),
		GeocodeCountryCodes:  getEnv("GEOCODE_COUNTRY_CODES", "vn"),
		GeocodeLimit:         mustInt(getEnv("GEOCODE_LIMIT", "5")),
		GeocodeRatePerSecond: mustFloat(getEnv("GEOCODE_RATE_PER_SECOND", "1")),
		GeocodeCacheTTL:      mustDuration(getEnv("GEOCODE_CACHE_TTL", "24h")),
		RoutingBaseURL:       getEnv("ROUTING_BASE_URL", "https://router.project-osrm.org"),
		RoutingProfile:       getEnv("ROUTING_PROFILE", "driving"),
		UpstreamTimeout:      mustDuration(getEnv("UPSTREAM_TIMEOUT", "10s")),
		TrackingInterval:     mustDuration(getEnv("TRACKING_INTERVAL", "10s")),
		AddressDebounce:      mustDuration(getEnv("ADDRESS_DEBOUNCE", "300ms")),
		SelectionCooldown:    mustDuration(getEnv("SELECTION_COOLDOWN", "500ms")),
		AddressMinChars:      mustInt(getEnv("ADDRESS_MIN_CHARS", "3")),
		LocationAPIBaseURL:   getEnv("LOCATION_API_BASE_URL", "http://localhost:8080/api/v1"),
		LocationAPIToken:     getEnv("LOCATION_API_TOKEN", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisTLSInsecure:     strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:       getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		AMQPURL:              getEnv("AMQP_URL", ""),
		AMQPExchange:         getEnv("AMQP_EXCHANGE", "locations"),
	}

	if err := cfg.validateTiming(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateTiming() error {
	if c.TrackingInterval <= 0 {
		return fmt.Errorf("TRACKING_INTERVAL must be a positive duration")
	}
	if c.AddressDebounce <= 0 {
		return fmt.Errorf("ADDRESS_DEBOUNCE must be a positive duration")
	}
	if c.SelectionCooldown < 0 {
		return fmt.Errorf("SELECTION_COOLDOWN cannot be negative")
	}
	if c.AddressMinChars < 1 {
		return fmt.Errorf("ADDRESS_MIN_CHARS must be at least 1")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be a positive duration")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
