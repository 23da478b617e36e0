// Package app wires configuration, storage, providers and services into a
// runnable application core shared by the command-line entrypoints.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcheron/trackfolio/internal/common"
	"github.com/mcheron/trackfolio/internal/interfaces"
	"github.com/mcheron/trackfolio/internal/services/aggregator"
	"github.com/mcheron/trackfolio/internal/services/engine"
	"github.com/mcheron/trackfolio/internal/services/fxrate"
	"github.com/mcheron/trackfolio/internal/services/ledger"
	"github.com/mcheron/trackfolio/internal/storage/file"
	"github.com/mcheron/trackfolio/internal/storage/surrealdb"
)

// App holds all initialized services and storage.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Aggregator  interfaces.AggregatorService
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, providers and services. configPath may be
// empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, TRACKFOLIO_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("TRACKFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "trackfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/trackfolio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data path to binary directory
	if config.Data.Path != "" && !filepath.IsAbs(config.Data.Path) {
		if _, statErr := os.Stat(config.Data.Path); os.IsNotExist(statErr) {
			config.Data.Path = filepath.Join(binDir, config.Data.Path)
		}
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	dataset, err := file.Load(logger, config.Data.Path)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	ledgerService := ledger.NewService(dataset.Transactions, dataset.Prices, logger)
	engineService := engine.NewService(dataset.Prices, logger)
	fxService := fxrate.NewService(dataset.Rates, logger)
	aggregatorService := aggregator.NewService(
		ledgerService, engineService, fxService, dataset.Transactions, config, logger)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Aggregator:  aggregatorService,
		StartupTime: startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases storage resources.
func (a *App) Close() error {
	return a.Storage.Close()
}
