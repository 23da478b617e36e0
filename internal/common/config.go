// Package common provides shared utilities for trackfolio
package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Rhymond/go-money"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for trackfolio
type Config struct {
	Environment   string        `toml:"environment"`
	PortfolioName string        `toml:"portfolio_name"`
	Engine        EngineConfig  `toml:"engine"`
	Storage       StorageConfig `toml:"storage"`
	Data          DataConfig    `toml:"data"`
	Logging       LoggingConfig `toml:"logging"`
}

// EngineConfig holds computation parameters.
type EngineConfig struct {
	ReportingCurrency string  `toml:"reporting_currency"` // ISO code all totals are expressed in (default "EUR")
	Workers           int     `toml:"workers"`            // max concurrent ticker pipelines per currency bucket
	DividendLookback  int     `toml:"dividend_lookback"`  // trailing window in days for dividend yield
	RiskFreeRate      float64 `toml:"risk_free_rate"`     // annual rate used by Sharpe/Sortino
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// DataConfig points at the materialized input files consumed by the
// file-backed providers (transactions, prices, FX rates).
type DataConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:   "development",
		PortfolioName: "My Portfolio",
		Engine: EngineConfig{
			ReportingCurrency: "EUR",
			Workers:           4,
			DividendLookback:  365,
			RiskFreeRate:      0.025,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Namespace: "trackfolio",
			Database:  "trackfolio",
			Username:  "root",
			Password:  "root",
		},
		Data: DataConfig{
			Path: "data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRACKFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if name := os.Getenv("TRACKFOLIO_PORTFOLIO"); name != "" {
		config.PortfolioName = name
	}

	if currency := os.Getenv("TRACKFOLIO_CURRENCY"); currency != "" {
		config.Engine.ReportingCurrency = currency
	}

	if workers := os.Getenv("TRACKFOLIO_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Engine.Workers = w
		}
	}

	if level := os.Getenv("TRACKFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("TRACKFOLIO_DB_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if user := os.Getenv("TRACKFOLIO_DB_USERNAME"); user != "" {
		config.Storage.Username = user
	}

	if pass := os.Getenv("TRACKFOLIO_DB_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	if path := os.Getenv("TRACKFOLIO_DATA_PATH"); path != "" {
		config.Data.Path = path
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if money.GetCurrency(c.Engine.ReportingCurrency) == nil {
		return fmt.Errorf("unknown reporting currency %q", c.Engine.ReportingCurrency)
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.DividendLookback <= 0 {
		return fmt.Errorf("dividend lookback must be positive, got %d", c.Engine.DividendLookback)
	}
	return nil
}
