// Package configs loads server configuration from the environment, with an
// optional .env file for local development.
package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	envPort        = "PORT"
	envDatabaseURL = "DATABASE_URL"
	envLogLevel    = "LOG_LEVEL"

	defaultPort     = "3003"
	defaultLogLevel = "info"
)

// Pool tuning for the lending workload: short row-locked transactions,
// many concurrent borrowers.
const (
	poolMaxConns          = 50
	poolMinConns          = 10
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 5 * time.Minute
	poolHealthCheckPeriod = time.Minute
	poolConnectTimeout    = 5 * time.Second
)

// Config holds everything the server needs to start.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        envOrDefault(envPort, defaultPort),
		DatabaseURL: os.Getenv(envDatabaseURL),
		LogLevel:    envOrDefault(envLogLevel, defaultLogLevel),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%s must be set", envDatabaseURL)
	}

	return cfg, nil
}

// PGXPoolConfig parses the database URL into a tuned pgxpool configuration.
func (c Config) PGXPoolConfig() (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", envDatabaseURL, err)
	}

	poolCfg.MaxConns = poolMaxConns
	poolCfg.MinConns = poolMinConns
	poolCfg.MaxConnLifetime = poolMaxConnLifetime
	poolCfg.MaxConnIdleTime = poolMaxConnIdleTime
	poolCfg.HealthCheckPeriod = poolHealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = poolConnectTimeout

	return poolCfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}
