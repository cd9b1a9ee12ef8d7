// Package config provides configuration management for the fleet fines service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Oracle    OracleConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds local store configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// OracleConfig holds the read-only Globus source configuration
type OracleConfig struct {
	Host         string
	Port         string
	Service      string
	User         string
	Password     string
	QueryTimeout time.Duration
	CompanyCode  int
}

// SyncConfig holds synchronization window and scheduling configuration
type SyncConfig struct {
	Overlap    time.Duration // subtracted from the last local max date per window
	LowerBound string        // earliest emission date ever synced (YYYY-MM-DD)
	UpperBound string        // latest emission date ever synced (YYYY-MM-DD)
	DailyHour  int           // local wall-clock hour for the forced daily run
	Timezone   string
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "fleet_fines"),
				User:           getEnv("POSTGRES_USER", "fines"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "fleet_fines"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Oracle: OracleConfig{
			Host:         getEnv("ORACLE_HOST", "localhost"),
			Port:         getEnv("ORACLE_PORT", "1521"),
			Service:      getEnv("ORACLE_SERVICE", "GLOBUS"),
			User:         getEnv("ORACLE_USER", "CONSULTA"),
			Password:     getEnv("ORACLE_PASSWORD", ""),
			QueryTimeout: getEnvAsDuration("ORACLE_QUERY_TIMEOUT", 2*time.Minute),
			CompanyCode:  getEnvAsInt("ORACLE_COMPANY_CODE", 4),
		},
		Sync: SyncConfig{
			Overlap:    getEnvAsDuration("SYNC_OVERLAP", 24*time.Hour),
			LowerBound: getEnv("SYNC_LOWER_BOUND", "2024-01-01"),
			UpperBound: getEnv("SYNC_UPPER_BOUND", "2025-12-31"),
			DailyHour:  getEnvAsInt("SYNC_DAILY_HOUR", 10),
			Timezone:   getEnv("SYNC_TIMEZONE", "America/Sao_Paulo"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 50),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 100),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Sync.DailyHour < 0 || config.Sync.DailyHour > 23 {
		return nil, fmt.Errorf("SYNC_DAILY_HOUR must be between 0 and 23, got %d", config.Sync.DailyHour)
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
