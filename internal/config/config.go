package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the portal server and worker
type Config struct {
	// Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Storage Configuration
	Storage StorageConfig

	// Auth Configuration
	Auth AuthConfig

	// Results Configuration
	Results ResultsConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address string // listen address (host:port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// StorageConfig holds uploaded-file storage configuration
type StorageConfig struct {
	Path string // Root directory for workload/platform/strategy files
}

// AuthConfig holds JWT configuration
type AuthConfig struct {
	JWTSecret        string
	TokenExpiryHours int
}

// ResultsConfig holds result retention configuration
type ResultsConfig struct {
	RetentionSchedule string // Cron expression for retention sweeps, empty = disabled
	RetentionDays     int    // Results older than this are pruned
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	addr := os.Getenv("PORTAL_ADDRESS")
	if addr == "" {
		addr = ":8000"
	}

	// Database URL - default to a local sqlite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "portal.sqlite"
	}

	// Redis address - default to localhost:6379, allow override for dev/docker
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	storagePath := os.Getenv("STORAGE_PATH")
	if storagePath == "" {
		storagePath = "storage"
	}

	// JWT secret - auto-generated and persisted at first startup when unset
	jwtSecret := os.Getenv("JWT_SECRET")

	tokenExpiry := 24
	if v := os.Getenv("TOKEN_EXPIRY_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			tokenExpiry = parsed
		}
	}

	retentionSchedule := os.Getenv("RESULT_RETENTION_SCHEDULE")

	retentionDays := 90
	if v := os.Getenv("RESULT_RETENTION_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			retentionDays = parsed
		}
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		Server: ServerConfig{
			Address: addr,
		},
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Storage: StorageConfig{
			Path: storagePath,
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			TokenExpiryHours: tokenExpiry,
		},
		Results: ResultsConfig{
			RetentionSchedule: retentionSchedule,
			RetentionDays:     retentionDays,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
