package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// API Configuration:
// - SWELLCAST_API_URL: Domain API base URL (required)
// - SWELLCAST_API_TOKEN: static bearer token; optional if the caller wires
//   its own credentials provider
// - SWELLCAST_API_TIMEOUT: Domain API request timeout in seconds (default: 15)
//
// Cache Configuration:
// - SWELLCAST_CACHE_DIR: persistent media cache directory (default: ./cache/media)
// - SWELLCAST_MEDIA_TTL_DAYS: media cache TTL in days (default: 30)
// - SWELLCAST_REPORT_TTL_MINUTES: report list cache TTL (default: 15)
// - SWELLCAST_TELEMETRY_TTL_MINUTES: buoy telemetry cache TTL (default: 5)
// - SWELLCAST_PRESSURE_KEEP: memory entries kept under pressure (default: 10)
//
// Upload Configuration:
// - SWELLCAST_IMAGE_UPLOAD_TIMEOUT: image PUT timeout in seconds (default: 30)
// - SWELLCAST_VIDEO_UPLOAD_TIMEOUT: video PUT timeout in seconds (default: 90)
// - SWELLCAST_IMAGE_BUDGET_BYTES: compressed image size budget (default: 1048576)
// - SWELLCAST_JOURNAL_PATH: orphan journal sqlite path (default: ./cache/journal.db)
// - SWELLCAST_JOURNAL_CRON: orphan retry schedule (default: "*/15 * * * *")
//
// System Configuration:
// - SWELLCAST_LOG_LEVEL: debug|info|warn|error (default: info)
type Config struct {
	API    APIConfig    `json:"api"`
	Cache  CacheConfig  `json:"cache"`
	Upload UploadConfig `json:"upload"`
	System SystemConfig `json:"system"`
}

// APIConfig holds the configuration for the Domain API client.
type APIConfig struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
	Timeout int    `json:"timeout"`
}

// CacheConfig holds TTLs and storage locations for the cache tiers.
type CacheConfig struct {
	Dir                 string `json:"dir"`
	MediaTTLDays        int    `json:"media_ttl_days"`
	ReportTTLMinutes    int    `json:"report_ttl_minutes"`
	TelemetryTTLMinutes int    `json:"telemetry_ttl_minutes"`
	PressureKeep        int    `json:"pressure_keep"`
}

// UploadConfig holds timeouts and budgets for the upload orchestrator.
type UploadConfig struct {
	ImageTimeout     int    `json:"image_timeout"`
	VideoTimeout     int    `json:"video_timeout"`
	ImageBudgetBytes int    `json:"image_budget_bytes"`
	JournalPath      string `json:"journal_path"`
	JournalCron      string `json:"journal_cron"`
}

// SystemConfig holds the system configuration.
type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		API: APIConfig{
			BaseURL: getEnvString("SWELLCAST_API_URL", ""),
			Token:   getEnvString("SWELLCAST_API_TOKEN", ""),
			Timeout: getEnvInt("SWELLCAST_API_TIMEOUT", 15),
		},
		Cache: CacheConfig{
			Dir:                 getEnvString("SWELLCAST_CACHE_DIR", "./cache/media"),
			MediaTTLDays:        getEnvInt("SWELLCAST_MEDIA_TTL_DAYS", 30),
			ReportTTLMinutes:    getEnvInt("SWELLCAST_REPORT_TTL_MINUTES", 15),
			TelemetryTTLMinutes: getEnvInt("SWELLCAST_TELEMETRY_TTL_MINUTES", 5),
			PressureKeep:        getEnvInt("SWELLCAST_PRESSURE_KEEP", 10),
		},
		Upload: UploadConfig{
			ImageTimeout:     getEnvInt("SWELLCAST_IMAGE_UPLOAD_TIMEOUT", 30),
			VideoTimeout:     getEnvInt("SWELLCAST_VIDEO_UPLOAD_TIMEOUT", 90),
			ImageBudgetBytes: getEnvInt("SWELLCAST_IMAGE_BUDGET_BYTES", 1<<20),
			JournalPath:      getEnvString("SWELLCAST_JOURNAL_PATH", "./cache/journal.db"),
			JournalCron:      getEnvString("SWELLCAST_JOURNAL_CRON", "*/15 * * * *"),
		},
		System: SystemConfig{
			LogLevel: getEnvString("SWELLCAST_LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MediaTTL returns the media cache expiry as a duration.
func (c CacheConfig) MediaTTL() time.Duration {
	return time.Duration(c.MediaTTLDays) * 24 * time.Hour
}

// ReportTTL returns the report list cache expiry as a duration.
func (c CacheConfig) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLMinutes) * time.Minute
}

// TelemetryTTL returns the telemetry cache expiry as a duration.
func (c CacheConfig) TelemetryTTL() time.Duration {
	return time.Duration(c.TelemetryTTLMinutes) * time.Minute
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("SWELLCAST_API_URL is required")
	}
	if c.Cache.MediaTTLDays <= 0 {
		return fmt.Errorf("SWELLCAST_MEDIA_TTL_DAYS must be positive")
	}
	if c.Cache.PressureKeep < 0 {
		return fmt.Errorf("SWELLCAST_PRESSURE_KEEP must not be negative")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
