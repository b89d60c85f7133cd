package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/parrisma/gofr-iq/internal/common"
	"github.com/parrisma/gofr-iq/internal/interfaces"
	"github.com/parrisma/gofr-iq/internal/services/alias"
	"github.com/parrisma/gofr-iq/internal/services/audit"
	"github.com/parrisma/gofr-iq/internal/services/clients"
	"github.com/parrisma/gofr-iq/internal/services/dedup"
	"github.com/parrisma/gofr-iq/internal/services/extraction"
	"github.com/parrisma/gofr-iq/internal/services/feed"
	"github.com/parrisma/gofr-iq/internal/services/groups"
	"github.com/parrisma/gofr-iq/internal/services/ingest"
	"github.com/parrisma/gofr-iq/internal/services/language"
	"github.com/parrisma/gofr-iq/internal/services/llm"
	"github.com/parrisma/gofr-iq/internal/services/query"
	"github.com/parrisma/gofr-iq/internal/storage/documents"
	"github.com/parrisma/gofr-iq/internal/storage/graph"
	"github.com/parrisma/gofr-iq/internal/storage/sources"
	"github.com/parrisma/gofr-iq/internal/storage/vector"
)

// services bundles everything the tool handlers need
type services struct {
	ingest  *ingest.Service
	query   *query.Service
	feed    *feed.Service
	clients *clients.Service
	groups  *groups.Service
	audit   *audit.Service
	store   interfaces.DocumentStore
	sources interfaces.SourceRegistry
	graph   interfaces.GraphIndex
	vector  interfaces.VectorIndex
	llm     interfaces.LLMService
	logger  arbor.ILogger
}

func main() {
	configPath := os.Getenv("GOFR_IQ_CONFIG")
	if configPath == "" {
		configPath = "gofr-iq.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Console only at warn level; stdio carries the MCP protocol
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn")

	svcs, cleanup, err := buildServices(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer cleanup()

	mcpServer := server.NewMCPServer(
		config.Server.Name,
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, svcs)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}

func buildServices(config *common.Config, logger arbor.ILogger) (*services, func(), error) {
	graphDB, err := graph.NewDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, nil, fmt.Errorf("graph database: %w", err)
	}
	vectorDB, err := vector.NewDB(logger, &config.Storage.Badger)
	if err != nil {
		graphDB.Close()
		return nil, nil, fmt.Errorf("vector database: %w", err)
	}
	cleanup := func() {
		vectorDB.Close()
		graphDB.Close()
	}

	graphIndex := graph.NewGraph(graphDB, logger)
	if err := graphIndex.InitSchema(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("graph schema: %w", err)
	}

	store, err := documents.NewStore(config.Storage.Dir, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("document store: %w", err)
	}
	registry, err := sources.NewRegistry(config.Storage.Dir, graphIndex, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("source registry: %w", err)
	}
	auditSvc, err := audit.NewService(config.Storage.Dir, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("audit log: %w", err)
	}

	llmService := llm.NewOpenRouterService(&config.LLM, config.LLMTimeout(), logger)
	vectorIndex := vector.NewIndex(vectorDB, llmService, &config.Vector, logger)

	detector := language.NewDetector(logger)
	resolver := alias.NewResolver(graphIndex, logger)
	dedupSvc := dedup.NewService(graphIndex, vectorIndex, config.Vector.SimilarityThreshold, logger)
	extractor := extraction.NewService(llmService, logger)

	groupSvc := groups.NewService(config.Auth.TokenFile, graphIndex, logger)
	if err := groupSvc.Reload(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("token file: %w", err)
	}

	ingestSvc := ingest.NewService(registry, store, vectorIndex, graphIndex,
		detector, dedupSvc, extractor, resolver, auditSvc, logger)
	querySvc := query.NewService(vectorIndex, graphIndex, &config.Query, auditSvc, logger)
	feedSvc := feed.NewService(graphIndex, &config.Feed, auditSvc, logger)
	clientSvc := clients.NewService(graphIndex, llmService, logger)

	return &services{
		ingest:  ingestSvc,
		query:   querySvc,
		feed:    feedSvc,
		clients: clientSvc,
		groups:  groupSvc,
		audit:   auditSvc,
		store:   store,
		sources: registry,
		graph:   graphIndex,
		vector:  vectorIndex,
		llm:     llmService,
		logger:  logger,
	}, cleanup, nil
}
