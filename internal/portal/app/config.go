package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	StorageDriver string // Durable store driver (memory, sqlite, redis) (default: sqlite)
	DatabaseFile  string // Path to SQLite database file (default: ./portal.db)
	RedisAddr     string // Redis address when StorageDriver is redis (default: localhost:6379)

	AdminSessionTTL   time.Duration // Admin session lifetime (default: 24h)
	MemberOtpValidity time.Duration // Member passcode validity window (default: 9m31s)
	MemberOtpCooldown time.Duration // Member resend cooldown (default: 31s)
	AdminOtpValidity  time.Duration // Admin passcode validity window (default: 30s)
	AdminOtpCooldown  time.Duration // Admin resend cooldown (default: 30s)

	OracleUnavailable bool // Simulate backend oracle outage (demo switch)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 15m)
}

func LoadConfig() Config {
	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		StorageDriver: getEnvOrDefault("PORTAL_STORAGE_DRIVER", "sqlite"),
		DatabaseFile:  getEnvOrDefault("PORTAL_DATABASE_FILE", "portal.db"),
		RedisAddr:     getEnvOrDefault("PORTAL_REDIS_ADDR", "localhost:6379"),

		AdminSessionTTL:   getEnvDurationOrDefault("PORTAL_ADMIN_SESSION_TTL", 24*time.Hour),
		MemberOtpValidity: getEnvDurationOrDefault("PORTAL_MEMBER_OTP_VALIDITY", 9*time.Minute+31*time.Second),
		MemberOtpCooldown: getEnvDurationOrDefault("PORTAL_MEMBER_OTP_COOLDOWN", 31*time.Second),
		AdminOtpValidity:  getEnvDurationOrDefault("PORTAL_ADMIN_OTP_VALIDITY", 30*time.Second),
		AdminOtpCooldown:  getEnvDurationOrDefault("PORTAL_ADMIN_OTP_COOLDOWN", 30*time.Second),

		OracleUnavailable: getEnvBoolOrDefault("PORTAL_ORACLE_UNAVAILABLE", false),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
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
