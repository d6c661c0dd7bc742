// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Scope-narrowing policy values. "narrow" silently intersects the requested
// app set with the authorized set; "strict" rejects over-asking outright.
const (
	ScopePolicyNarrow = "narrow"
	ScopePolicyStrict = "strict"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Authorization store (Postgres)
	DatabaseURL string `koanf:"database_url"`

	// JWT Authentication. Previous secret is optional and only set while a
	// key rotation is in progress.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Redis (optional). When set, aggregation results are cached in Redis
	// instead of process memory.
	RedisURL string `koanf:"redis_url"`

	// BigQuery warehouse
	BigQueryProjectID string `koanf:"bigquery_project_id"`
	BigQueryDataset   string `koanf:"bigquery_dataset"`
	BigQueryTable     string `koanf:"bigquery_table"`

	// Result cache TTL in seconds
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// Warehouse query timeout in milliseconds
	WarehouseTimeoutMS int `koanf:"warehouse_timeout_ms"`

	// ScopePolicy controls what happens when a caller requests app IDs
	// outside its authorized set: "narrow" or "strict".
	ScopePolicy string `koanf:"scope_policy"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporterType string  `koanf:"tracing_exporter_type"`
	OTLPEndpoint        string  `koanf:"otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required")
	ErrMissingBigQueryProjectID = errors.New("BIGQUERY_PROJECT_ID is required")
	ErrMissingBigQueryDataset   = errors.New("BIGQUERY_DATASET is required")
	ErrMissingBigQueryTable     = errors.New("BIGQUERY_TABLE is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidCacheTTL          = errors.New("CACHE_TTL_SECONDS must be > 0")
	ErrInvalidWarehouseTimeout  = errors.New("WAREHOUSE_TIMEOUT_MS must be > 0")
	ErrInvalidScopePolicy       = errors.New("SCOPE_POLICY must be 'narrow' or 'strict'")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultCacheTTLSeconds     = 30
	DefaultWarehouseTimeoutMS  = 10000
	DefaultScopePolicy         = ScopePolicyNarrow
	DefaultTracingSamplingRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort, ErrInvalidPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	cacheTTL, ttlErr := getEnvIntOrDefault("CACHE_TTL_SECONDS", k.Int("cache_ttl_seconds"), DefaultCacheTTLSeconds, ErrInvalidCacheTTL)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	warehouseTimeout, timeoutErr := getEnvIntOrDefault("WAREHOUSE_TIMEOUT_MS", k.Int("warehouse_timeout_ms"), DefaultWarehouseTimeoutMS, ErrInvalidWarehouseTimeout)
	if timeoutErr != nil {
		loadErrs = append(loadErrs, timeoutErr)
	}

	samplingRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefault("APEX_ENV", k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:   getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		BigQueryProjectID:   getEnvOrKoanf("BIGQUERY_PROJECT_ID", k, "bigquery_project_id"),
		BigQueryDataset:     getEnvOrKoanf("BIGQUERY_DATASET", k, "bigquery_dataset"),
		BigQueryTable:       getEnvOrKoanf("BIGQUERY_TABLE", k, "bigquery_table"),
		CacheTTLSeconds:     cacheTTL,
		WarehouseTimeoutMS:  warehouseTimeout,
		ScopePolicy:         getEnvOrDefault("SCOPE_POLICY", k.String("scope_policy"), DefaultScopePolicy),
		TracingEnabled:      tracingEnabled,
		TracingExporterType: getEnvOrKoanf("TRACING_EXPORTER_TYPE", k, "tracing_exporter_type"),
		OTLPEndpoint:        getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSamplingRate: samplingRate,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns the given sentinel wrapped in a parse error if the env value is not an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int, parseErr error) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, parseErr)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.BigQueryProjectID == "" {
		errs = append(errs, ErrMissingBigQueryProjectID)
	}
	if c.BigQueryDataset == "" {
		errs = append(errs, ErrMissingBigQueryDataset)
	}
	if c.BigQueryTable == "" {
		errs = append(errs, ErrMissingBigQueryTable)
	}
	if c.CacheTTLSeconds <= 0 {
		errs = append(errs, ErrInvalidCacheTTL)
	}
	if c.WarehouseTimeoutMS <= 0 {
		errs = append(errs, ErrInvalidWarehouseTimeout)
	}
	if c.ScopePolicy != ScopePolicyNarrow && c.ScopePolicy != ScopePolicyStrict {
		errs = append(errs, ErrInvalidScopePolicy)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskConnURL(c.DatabaseURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_previous_secret":   maskSecret(c.JWTPreviousSecret),
		"redis_url":             maskConnURL(c.RedisURL),
		"bigquery_project_id":   c.BigQueryProjectID,
		"bigquery_dataset":      c.BigQueryDataset,
		"bigquery_table":        c.BigQueryTable,
		"cache_ttl_seconds":     fmt.Sprintf("%d", c.CacheTTLSeconds),
		"warehouse_timeout_ms":  fmt.Sprintf("%d", c.WarehouseTimeoutMS),
		"scope_policy":          c.ScopePolicy,
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_sampling_rate": fmt.Sprintf("%g", c.TracingSamplingRate),
		"otlp_endpoint":         c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskConnURL masks the password in a connection URL.
// Supports postgres://, postgresql://, and redis:// schemes.
func maskConnURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
