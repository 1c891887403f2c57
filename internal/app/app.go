// Package app wires configuration, storage, clients, and the pipeline
// into a runnable application core.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/clients/factsapi"
	"github.com/shaharAka/Shaharstocks-sub005/internal/clients/webhook"
	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/notify"
	"github.com/shaharAka/Shaharstocks-sub005/internal/orchestrator"
	"github.com/shaharAka/Shaharstocks-sub005/internal/storage"
)

// App holds all initialized clients, storage, and the pipeline manager.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Storage      interfaces.StorageManager
	FactsClient  interfaces.FactSource
	Notifier     *notify.Policy
	Orchestrator *orchestrator.Manager
	StartupTime  time.Time

	scheduler *scheduler
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, and the pipeline orchestrator.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	// Get binary directory for self-contained operation
	binDir := getBinaryDir()

	// Resolve config: explicit path, STOCKS_CONFIG, binary dir, dev fallback
	if configPath == "" {
		configPath = os.Getenv("STOCKS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "signal.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/signal.toml"
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

	logger := common.NewLogger(config.Logging.Level, config.Logging.Format)

	storageManager, err := storage.NewStorageManager(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.Facts.BaseURL == "" {
		storageManager.Close()
		return nil, fmt.Errorf("clients.facts.base_url is required")
	}
	factsClient := factsapi.NewClient(config.Clients.Facts.BaseURL, config.Clients.Facts.APIKey,
		factsapi.WithLogger(logger),
		factsapi.WithRateLimit(config.Clients.Facts.RateLimit),
		factsapi.WithTimeout(config.Clients.Facts.GetTimeout()),
	)

	if config.Clients.Webhook.URL == "" {
		logger.Warn().Msg("Webhook URL not configured - notifications will not be delivered")
	}
	sender := webhook.NewClient(config.Clients.Webhook.URL,
		webhook.WithLogger(logger),
		webhook.WithTimeout(config.Clients.Webhook.GetTimeout()),
	)

	notifier := notify.NewPolicy(storageManager.Notifications(), sender, logger,
		config.Scoring.GetNotifyThreshold(), config.Scoring.GetStrongThreshold())

	manager := orchestrator.NewManager(storageManager, factsClient, notifier, logger, config)

	a := &App{
		Config:       config,
		Logger:       logger,
		Storage:      storageManager,
		FactsClient:  factsClient,
		Notifier:     notifier,
		Orchestrator: manager,
		StartupTime:  startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// Start launches the pipeline workers and the maintenance scheduler.
func (a *App) Start() error {
	a.Orchestrator.Start()

	sched, err := newScheduler(a.Storage, a.Orchestrator, a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.scheduler = sched
	return nil
}

// Close stops background work and releases resources.
// Shutdown order: scheduler, pipeline workers, storage.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.stop()
		a.scheduler = nil
	}
	if a.Orchestrator != nil {
		a.Orchestrator.Stop()
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
