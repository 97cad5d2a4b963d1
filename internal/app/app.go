package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/metior/internal/analysis"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/connectors/github"
	"github.com/ternarybob/metior/internal/handlers"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/services/llm"
	"github.com/ternarybob/metior/internal/services/scheduler"
	badgerstore "github.com/ternarybob/metior/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	LLMProvider  interfaces.LLMProvider
	Orchestrator *analysis.Orchestrator
	Scheduler    *scheduler.Service

	// HTTP handlers
	AnalysisHandler *handlers.AnalysisHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler
}

// New wires storage, the LLM provider, the pipeline orchestrator, the
// retention scheduler, and the HTTP handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	storageManager, err := badgerstore.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := llm.NewProvider(config, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	repoFactory := func(token string) interfaces.RepoProvider {
		if token == "" {
			token = config.GitHub.Token
		}
		return github.NewConnector(token, &config.GitHub, logger)
	}

	orchestrator := analysis.NewOrchestrator(
		config,
		storageManager,
		provider,
		repoFactory,
		github.ParseRepoURL,
		logger,
	)

	sched := scheduler.NewService(
		&config.Retention,
		storageManager.JobStorage(),
		storageManager.MetricStorage(),
		logger,
	)

	a := &App{
		Config:         config,
		Logger:         logger,
		StorageManager: storageManager,
		LLMProvider:    provider,
		Orchestrator:   orchestrator,
		Scheduler:      sched,

		AnalysisHandler: handlers.NewAnalysisHandler(orchestrator, storageManager.JobStorage(), storageManager.MetricStorage(), logger),
		StatusHandler:   handlers.NewStatusHandler(config, provider, logger),
		WSHandler:       handlers.NewWebSocketHandler(storageManager.JobStorage(), logger),
	}

	if err := sched.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	return a, nil
}

// Close stops background work and releases resources. In-flight analysis
// runs are waited on so their final state reaches storage.
func (a *App) Close() error {
	a.Scheduler.Stop()
	a.Orchestrator.Wait()

	if err := a.LLMProvider.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close LLM provider")
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}
	return nil
}
