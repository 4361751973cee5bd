// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir        string // base directory for the database (always absolute)
	StatementsDir  string // directory scanned for statement files
	DatabasePath   string // portfolio.db location, derived from DataDir
	Port           int
	LogLevel       string
	DevMode        bool
	RescanSchedule string // cron spec for the statement-directory rescan
	RatesSchedule  string // cron spec for the exchange-rate refresh
}

// Load reads configuration from environment variables, with a .env file
// loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	statementsDir := getEnv("FOLIO_STATEMENTS_DIR", filepath.Join(absDataDir, "statements"))
	absStatementsDir, err := filepath.Abs(statementsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve statements directory path: %w", err)
	}
	if err := os.MkdirAll(absStatementsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create statements directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		StatementsDir:  absStatementsDir,
		DatabasePath:   filepath.Join(absDataDir, "portfolio.db"),
		Port:           getEnvAsInt("FOLIO_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		RescanSchedule: getEnv("FOLIO_RESCAN_SCHEDULE", "0 */6 * * *"),
		RatesSchedule:  getEnv("FOLIO_RATES_SCHEDULE", "15 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Helper functions
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
