package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"seatwise/internal/cache"
	"seatwise/internal/database"
	"seatwise/internal/messaging"
	"seatwise/internal/search"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// "postgres" or "memory"
	StoreDriver    string
	MetricsEnabled bool
	AuditInterval  time.Duration

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Search   search.Config
	Auth     AuthConfig
}

type AuthConfig struct {
	Secret string
	Issuer string
}

// Load reads the configuration from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		AuditInterval:  getEnvDuration("AUDIT_INTERVAL", 5*time.Minute),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "seatwise"),
			Password:           getEnv("DB_PASSWORD", "seatwise"),
			DBName:             getEnv("DB_NAME", "seatwise"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
			TxMaxRetries:       getEnvInt("TX_MAX_RETRIES", 10),
			TxRetryBackoff:     getEnvDuration("TX_RETRY_BACKOFF", 10*time.Millisecond),
		},

		Redis: cache.Config{
			Enabled:  getEnvBool("CACHE_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("CACHE_TTL", time.Hour),

			RedeleteAfter: getEnvDuration("CACHE_REDELETE_AFTER", 500*time.Millisecond),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", true),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "seatwise"),
			ClientID:  getEnv("NATS_CLIENT_ID", "seatwise-api"),
		},

		Search: loadSearchConfig(),

		Auth: AuthConfig{
			Secret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer: getEnv("JWT_ISSUER", "seatwise"),
		},
	}
}

// getEnv returns the variable value or the default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "1h")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
