package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	TokenSecret string // Required: HMAC secret for rotating tokens (shared across publisher nodes)
	JWTSecret   string // Required: HMAC secret for bearer tokens

	RotationInterval time.Duration // Optional: token rotation period (default: 5s)
	GracePeriod      time.Duration // Optional: acceptance grace beyond validity (default: 2s)

	DatabaseFile string // Optional: path to SQLite database file (default: ./attend.db)
	RedisURL     string // Optional: redis URL for the shared sequence counter; empty uses in-process counters

	BootstrapUsername string // Optional: host account seeded into an empty database
	BootstrapPassword string

	BearerTTL time.Duration // Optional: bearer token lifetime (default: 12h)

	// Scoring knobs; defaults match DefaultScoringConfig.
	WeightToken    float64
	WeightRadio    float64
	WeightNetwork  float64
	WeightPosition float64
	ScoreThreshold float64
	RSSIFloor      int
	MinBeaconHits  int

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1m)
}

func LoadConfig() Config {
	return Config{
		TokenSecret: os.Getenv("ATTEND_TOKEN_SECRET"),
		JWTSecret:   os.Getenv("ATTEND_JWT_SECRET"),

		RotationInterval: getEnvDurationOrDefault("ATTEND_ROTATION_INTERVAL", 5*time.Second),
		GracePeriod:      getEnvDurationOrDefault("ATTEND_GRACE_PERIOD", 2*time.Second),

		DatabaseFile: getEnvOrDefault("ATTEND_DATABASE_FILE", "attend.db"),
		RedisURL:     os.Getenv("ATTEND_REDIS_URL"),

		BootstrapUsername: os.Getenv("ATTEND_BOOTSTRAP_USERNAME"),
		BootstrapPassword: os.Getenv("ATTEND_BOOTSTRAP_PASSWORD"),

		BearerTTL: getEnvDurationOrDefault("ATTEND_BEARER_TTL", 12*time.Hour),

		WeightToken:    getEnvFloatOrDefault("ATTEND_WEIGHT_TOKEN", 0.4),
		WeightRadio:    getEnvFloatOrDefault("ATTEND_WEIGHT_RADIO", 0.3),
		WeightNetwork:  getEnvFloatOrDefault("ATTEND_WEIGHT_NETWORK", 0.2),
		WeightPosition: getEnvFloatOrDefault("ATTEND_WEIGHT_POSITION", 0.1),
		ScoreThreshold: getEnvFloatOrDefault("ATTEND_SCORE_THRESHOLD", 0.6),
		RSSIFloor:      getEnvIntOrDefault("ATTEND_RSSI_FLOOR", -70),
		MinBeaconHits:  getEnvIntOrDefault("ATTEND_MIN_BEACON_HITS", 2),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
		return floatValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
