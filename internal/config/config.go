package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port                    string
	AllowedOrigin           string // value for the CORS origin header
	VisitorTTLSeconds       int    // activity window defining "online"
	CounterName             string // logical name of the single counter instance
	SnapshotIntervalSeconds int
	LogLevel                string
	RedisURL                string
	DatabaseURL             string // optional, enables Postgres snapshots
	Environment             string
}

const (
	DefaultVisitorTTLSeconds       = 180
	DefaultSnapshotIntervalSeconds = 30
	DefaultCounterName             = "global"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		AllowedOrigin:           getEnv("ALLOWED_ORIGIN", "*"),
		VisitorTTLSeconds:       getIntEnv("VISITOR_TTL_SECONDS", DefaultVisitorTTLSeconds, 1),
		CounterName:             getEnv("COUNTER_NAME", DefaultCounterName),
		SnapshotIntervalSeconds: getIntEnv("SNAPSHOT_INTERVAL_SECONDS", DefaultSnapshotIntervalSeconds, 1),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		RedisURL:                getEnv("REDIS_URL", ""),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		Environment:             getEnv("ENVIRONMENT", "production"),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback and a floor.
// Unparseable values fall back rather than erroring.
func getIntEnv(key string, fallback, floor int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if parsed < floor {
		return floor
	}
	return parsed
}
