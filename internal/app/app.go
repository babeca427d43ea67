// Package app wires finscan's configuration, storage, clients, and services
// into one initialized core shared by the server entrypoint.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/finscan/internal/clients/stockdata"
	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/interfaces"
	"github.com/bobmcallan/finscan/internal/services/growth"
	"github.com/bobmcallan/finscan/internal/services/pipeline"
	"github.com/bobmcallan/finscan/internal/storage"
)

// App holds all initialized services, clients, and storage.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Storage       interfaces.StorageManager
	SourceClient  interfaces.FinancialSourceClient
	Pipeline      *pipeline.Service
	GrowthService interfaces.GrowthService
	Scheduler     *pipeline.Scheduler
	StartupTime   time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the source client, and all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Config resolution: explicit path, FINSCAN_CONFIG, binary dir, then
	// the development fallback.
	if configPath == "" {
		configPath = os.Getenv("FINSCAN_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "finscan.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/finscan.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	sourceClient := stockdata.NewClient(
		stockdata.WithBaseURL(config.Source.BaseURL),
		stockdata.WithLogger(logger),
		stockdata.WithRateLimit(config.Source.RateLimit),
		stockdata.WithTimeout(config.Source.GetTimeout()),
	)

	pipelineService := pipeline.NewService(sourceClient, storageManager, logger, config.Pipeline)
	growthService := growth.NewService(storageManager, logger)
	scheduler := pipeline.NewScheduler(pipelineService, logger, config.Pipeline.Schedule)

	a := &App{
		Config:        config,
		Logger:        logger,
		Storage:       storageManager,
		SourceClient:  sourceClient,
		Pipeline:      pipelineService,
		GrowthService: growthService,
		Scheduler:     scheduler,
		StartupTime:   startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartScheduler begins scheduled pipeline runs when a schedule is configured.
func (a *App) StartScheduler() error {
	return a.Scheduler.Start()
}

// Close releases all resources. Shutdown order: scheduler, pipeline, storage.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Pipeline != nil {
		a.Pipeline.Shutdown()
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
