package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/imyashkale/sitebuilder/internal/config"
	"github.com/imyashkale/sitebuilder/internal/database"
	"github.com/imyashkale/sitebuilder/internal/handlers"
	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/lock"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/middleware"
	"github.com/imyashkale/sitebuilder/internal/poll"
	"github.com/imyashkale/sitebuilder/internal/queue"
	"github.com/imyashkale/sitebuilder/internal/repository"
	"github.com/imyashkale/sitebuilder/internal/router"
	"github.com/imyashkale/sitebuilder/internal/services"
	"github.com/imyashkale/sitebuilder/internal/storage"
)

func main() {

	ctx := context.Background()

	// Load application configuration
	cfg := config.New()
	logger.Init(cfg.GetLogLevel())
	logger.Info("Configuration loaded successfully")

	// Initialize database configuration
	dbConfig := database.NewConfig(cfg)

	logger.WithFields(map[string]interface{}{
		"sites_table":     dbConfig.SitesTable,
		"usage_table":     dbConfig.UsageTable,
		"prospects_table": dbConfig.ProspectsTable,
		"region":          dbConfig.Region,
	}).Info("Initializing DynamoDB client")

	// Create DynamoDB client
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Fatalf("Failed to initialize DynamoDB client: %v", err)
	}

	// Initialize repositories
	siteRepo := repository.NewSiteRepository(database.NewSiteOperations(dbClient, dbConfig.SitesTable))
	usageRepo := repository.NewUsageRepository(database.NewUsageOperations(dbClient, dbConfig.UsageTable))
	prospectRepo := repository.NewProspectRepository(database.NewProspectOperations(dbClient, dbConfig.ProspectsTable))
	logger.Info("Repositories initialized with DynamoDB backend")

	// Initialize file archive
	archive, err := storage.NewS3ArchiveFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize file archive: %v", err)
	}
	logger.WithField("bucket", cfg.ArchiveBucket).Info("File archive initialized")

	// Initialize redeploy lock
	redisClient := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	locker := lock.NewRedisLocker(redisClient, cfg.RedeployLockTTL)
	logger.WithField("addr", cfg.RedisAddr).Info("Redeploy lock initialized")

	// Initialize model client and cost ledger
	rates, err := llm.LoadRates(cfg.ModelRatesFile)
	if err != nil {
		logger.Fatalf("Failed to load model rates: %v", err)
	}
	llmClient := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
	costLedger := services.NewCostLedger(rates, usageRepo)

	// Initialize pipeline components
	extractor := services.NewBrandExtractor(llmClient, cfg.ExtractModel, cfg.ExtractMaxTokens)
	generator := services.NewSiteGenerator(llmClient, cfg.GenerateModel, cfg.GenerateMaxTokens, cfg.ThinkingBudgetTokens)
	editor := services.NewSiteEditor(llmClient, cfg.EditModel, cfg.EditMaxTokens, costLedger)
	deployer := services.NewVercelClient(cfg.VercelAPIURL, cfg.VercelToken, cfg.VercelTeamID, poll.Policy{
		Interval:    cfg.DeployPollInterval,
		MaxAttempts: cfg.DeployPollAttempts,
	})
	namer := services.NewProjectNamer(cfg.ProjectPrefix)

	pipelineService := services.NewPipelineService(extractor, generator, deployer, namer, costLedger, siteRepo, archive)
	logger.Info("Pipeline service initialized")

	// Initialize job queue
	jobQueue := queue.NewJobQueue(cfg.QueueSize)
	logger.Infof("Job queue initialized with buffer size %d", cfg.QueueSize)

	siteService := services.NewSiteService(pipelineService, editor, deployer, namer, siteRepo, prospectRepo, archive, locker, jobQueue, costLedger)

	// Initialize worker pool
	workerPool := queue.NewWorkerPool(jobQueue, cfg.WorkerCount)
	workerPool.Start(func(job *queue.PipelineJob) error {
		return pipelineService.Execute(ctx, job)
	})
	logger.Infof("Pipeline workers started with %d concurrent workers", cfg.WorkerCount)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"dynamodb": dbClient,
		"redis":    locker,
	})
	siteHandler := handlers.NewSiteHandler(siteService)
	auth := middleware.Authenticate(middleware.NewAuth0Config(cfg.GetAuth0Domain(), cfg.GetAuth0Audience()))

	// Setup router
	r := router.Setup(healthHandler, siteHandler, auth, cfg.CORSAllowedOrigins)
	server := &http.Server{
		Addr:    ":" + cfg.GetPort(),
		Handler: r,
	}

	// Setup graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("HTTP server shutdown failed: %v", err)
		}

		// Close job queue to stop accepting new jobs
		jobQueue.Close()
		logger.Info("Job queue closed, waiting for workers to finish...")

		// Wait for workers to finish processing current jobs
		workerPool.Wait()
		logger.Info("All workers stopped")

		if err := redisClient.Close(); err != nil {
			logger.Warnf("Failed to close redis client: %v", err)
		}
		os.Exit(0)
	}()

	// Start server
	logger.Infof("Starting server on :%s", cfg.GetPort())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}
	select {}
}
