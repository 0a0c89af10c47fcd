package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Manuscript upload and export configuration
	Upload UploadConfig

	// Token signing configuration
	Auth AuthConfig

	// Subscription sweeper configuration
	Billing BillingConfig

	// Publication certificate configuration
	Certificate CertificateConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
	// ConnectTimeout bounds how long startup waits for postgres to accept connections
	ConnectTimeout time.Duration
}

// UploadConfig holds manuscript storage and catalog import settings
type UploadConfig struct {
	MaxUploadSize int64 // in bytes
	UploadDir     string
	BatchSize     int
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// BillingConfig holds subscription housekeeping settings
type BillingConfig struct {
	SweepInterval    time.Duration
	SubscriptionDays int
}

// CertificateConfig holds certificate rendering settings
type CertificateConfig struct {
	VerifyBaseURL string
	// FontPath points at a TTF with Cyrillic glyphs; without it Russian
	// certificates are rendered with English labels.
	FontPath string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := FromEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv reads configuration from environment variables without
// validating it. Tools that only touch the database use it together with
// ValidateDatabase.
func FromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigin:   getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "journal_submissions"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout: getDurationEnv("DB_CONNECT_TIMEOUT", 30*time.Second),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Upload: UploadConfig{
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 50*1024*1024), // 50MB
			UploadDir:     getEnv("UPLOAD_DIR", "./data/manuscripts"),
			BatchSize:     getIntEnv("IMPORT_BATCH_SIZE", 500),
		},
		Auth: AuthConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", "journal-submission-api"),
			TokenTTL: getDurationEnv("JWT_TTL", 24*time.Hour),
		},
		Billing: BillingConfig{
			SweepInterval:    getDurationEnv("BILLING_SWEEP_INTERVAL", time.Hour),
			SubscriptionDays: getIntEnv("SUBSCRIPTION_DAYS", 30),
		},
		Certificate: CertificateConfig{
			VerifyBaseURL: getEnv("CERTIFICATE_VERIFY_URL", "http://localhost:3000/verify"),
			FontPath:      getEnv("CERTIFICATE_FONT_PATH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if getBoolEnv("AUTH_DEV_SECRET", false) && cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "development-only-secret"
	}

	return cfg
}

// ValidateDatabase checks the database settings only
func (c *Config) ValidateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.Billing.SweepInterval <= 0 {
		return fmt.Errorf("BILLING_SWEEP_INTERVAL must be positive")
	}
	if c.Billing.SubscriptionDays <= 0 {
		return fmt.Errorf("SUBSCRIPTION_DAYS must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
