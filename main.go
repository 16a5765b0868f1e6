package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/config"
	"github.com/memloop-ai/memloop-engine/pkg/database"
	"github.com/memloop-ai/memloop-engine/pkg/handlers"
	"github.com/memloop-ai/memloop-engine/pkg/llm"
	"github.com/memloop-ai/memloop-engine/pkg/mcp"
	"github.com/memloop-ai/memloop-engine/pkg/middleware"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
	"github.com/memloop-ai/memloop-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("embeddings_model", cfg.Embeddings.Model),
		zap.Bool("embeddings_mock", cfg.Embeddings.Mock))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.Database.ConnectionString(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
		MinConnections: cfg.Database.MinConnections,
		QueryTimeout:   time.Duration(cfg.Database.QueryTimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	projectRepo := repositories.NewProjectRepository(db)
	chunkRepo := repositories.NewChunkRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	solutionRepo := repositories.NewSolutionRepository(db)
	patternRepo := repositories.NewPatternRepository(db)

	defaultWeights := models.RankWeights{
		Vector:        cfg.Ranking.VectorWeight,
		Text:          cfg.Ranking.TextWeight,
		Recency:       cfg.Ranking.RecencyWeight,
		FeedbackBonus: cfg.Ranking.FeedbackBonus,
	}
	memoryService := services.NewMemoryService(chunkRepo, projectRepo, embedder, defaultWeights, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, logger)
	solutionService := services.NewSolutionService(solutionRepo, embedder, logger)
	patternService := services.NewPatternService(patternRepo, cfg.Learning.MinPatternOccurrences, logger)

	refresher := services.NewHelpfulnessRefresher(patternService,
		time.Duration(cfg.Learning.RefreshIntervalMinutes)*time.Minute, logger)
	refresher.Start(ctx)
	defer refresher.Stop()

	mcpServer := mcp.NewServer(cfg.Version, mcp.ToolDeps{
		Memory:   memoryService,
		Feedback: feedbackService,
		Solution: solutionService,
		Pattern:  patternService,
		Logger:   logger,
	})

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting memloop-engine",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) (llm.Embedder, error) {
	if cfg.Embeddings.Mock {
		logger.Warn("Using mock embedder; embeddings are deterministic, not semantic")
		return llm.NewMockEmbedder(cfg.Embeddings.Dimensions), nil
	}
	return llm.NewClient(&llm.Config{
		Endpoint:   cfg.Embeddings.Endpoint,
		Model:      cfg.Embeddings.Model,
		APIKey:     cfg.Embeddings.APIKey,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    time.Duration(cfg.Embeddings.TimeoutSeconds) * time.Second,
	}, logger)
}
