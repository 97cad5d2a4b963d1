package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/metior/internal/analysis"
	"github.com/ternarybob/metior/internal/common"
	"github.com/ternarybob/metior/internal/connectors/github"
	"github.com/ternarybob/metior/internal/interfaces"
	"github.com/ternarybob/metior/internal/services/llm"
	badgerstore "github.com/ternarybob/metior/internal/storage/badger"
)

func main() {
	configPath := os.Getenv("METIOR_CONFIG")
	if configPath == "" {
		configPath = "metior.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Console-only logger at warn to keep MCP stdio clean
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	storageManager, err := badgerstore.NewManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	provider, err := llm.NewProvider(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize LLM provider")
	}
	defer provider.Close()

	repoFactory := func(token string) interfaces.RepoProvider {
		if token == "" {
			token = config.GitHub.Token
		}
		return github.NewConnector(token, &config.GitHub, logger)
	}
	orchestrator := analysis.NewOrchestrator(config, storageManager, provider, repoFactory, github.ParseRepoURL, logger)

	mcpServer := server.NewMCPServer(
		"metior",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createSubmitAnalysisTool(), handleSubmitAnalysis(orchestrator, logger))
	mcpServer.AddTool(createGetJobStatusTool(), handleGetJobStatus(storageManager.JobStorage(), logger))
	mcpServer.AddTool(createGetJobMetricsTool(), handleGetJobMetrics(storageManager.JobStorage(), storageManager.MetricStorage(), logger))
	mcpServer.AddTool(createListJobsTool(), handleListJobs(storageManager.JobStorage(), logger))

	// Blocks on stdio until the client disconnects
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}

	// Let any submission accepted over this session reach a terminal state
	orchestrator.Wait()
}
