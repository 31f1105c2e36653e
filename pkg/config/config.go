package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	CMS       CMSConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	Email     EmailConfig
	Export    ExportConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Env             string
	LogFormat       string
	AllowedOrigins  []string
	RevalidateToken string
	SubmitRateLimit int
	SubmitWindow    time.Duration
}

// CMSConfig holds the headless CMS connection settings
type CMSConfig struct {
	BaseURL        string
	APIKey         string
	SiteID         string
	PageSize       int
	RequestTimeout time.Duration
}

// CacheConfig controls the aggregated snapshot cache
type CacheConfig struct {
	TTL               time.Duration
	Version           string
	ServeStaleOnError bool
	// RefreshInterval rebuilds the snapshot in the background; zero disables it
	RefreshInterval   time.Duration
}

// DatabaseConfig holds the submission ledger database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// EmailConfig holds the outbound email API configuration
type EmailConfig struct {
	APIURL   string
	APIKey   string
	From     string
	NotifyTo []string
}

// ExportConfig holds snapshot export settings
type ExportConfig struct {
	Bucket string
	Region string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Env:             getEnv("ENV", "production"),
			LogFormat:       getEnv("LOG_FORMAT", "json"),
			AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS"),
			RevalidateToken: getEnv("REVALIDATE_TOKEN", ""),
			SubmitRateLimit: getEnvAsInt("SUBMIT_RATE_LIMIT", 5),
			SubmitWindow:    getEnvAsDuration("SUBMIT_RATE_WINDOW", time.Hour),
		},
		CMS: CMSConfig{
			BaseURL:        getEnv("CMS_BASE_URL", "https://www.wixapis.com"),
			APIKey:         getEnv("CMS_API_KEY", ""),
			SiteID:         getEnv("CMS_SITE_ID", ""),
			PageSize:       getEnvAsInt("CMS_PAGE_SIZE", 1000),
			RequestTimeout: getEnvAsDuration("CMS_REQUEST_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			TTL:               getEnvAsDuration("CACHE_TTL", 10*time.Minute),
			Version:           getEnv("CACHE_VERSION", "v3"),
			ServeStaleOnError: getEnvAsBool("CACHE_SERVE_STALE_ON_ERROR", false),
			RefreshInterval:   getEnvAsDuration("CACHE_REFRESH_INTERVAL", 0),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "medtravel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Email: EmailConfig{
			APIURL:   getEnv("EMAIL_API_URL", "https://api.resend.com"),
			APIKey:   getEnv("EMAIL_API_KEY", ""),
			From:     getEnv("EMAIL_FROM", "MedTravel <noreply@medtravel.example>"),
			NotifyTo: getEnvAsList("EMAIL_NOTIFY_TO"),
		},
		Export: ExportConfig{
			Bucket: getEnv("EXPORT_S3_BUCKET", ""),
			Region: getEnv("EXPORT_S3_REGION", "us-east-1"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "medtravel-directory"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CMS.PageSize < 1 || c.CMS.PageSize > 1000 {
		return fmt.Errorf("CMS_PAGE_SIZE must be between 1 and 1000, got %d", c.CMS.PageSize)
	}
	if c.Server.SubmitRateLimit < 1 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT must be positive, got %d", c.Server.SubmitRateLimit)
	}
	if c.Server.SubmitWindow <= 0 {
		return fmt.Errorf("SUBMIT_RATE_WINDOW must be positive, got %s", c.Server.SubmitWindow)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.RefreshInterval < 0 {
		return fmt.Errorf("CACHE_REFRESH_INTERVAL must not be negative, got %s", c.Cache.RefreshInterval)
	}
	return nil
}

// Address returns the HTTP listen address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
