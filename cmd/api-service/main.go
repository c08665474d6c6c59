package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/hr-rag/internal/ai/provider"
	"github.com/cuongbtq/hr-rag/internal/api/handler"
	"github.com/cuongbtq/hr-rag/internal/api/router"
	"github.com/cuongbtq/hr-rag/internal/bootstrap"
	"github.com/cuongbtq/hr-rag/internal/config"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore/pgvector"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := bootstrap.NewPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	rabbitClient, err := bootstrap.NewRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	backends, err := provider.New(context.Background(), cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI backends: %w", err)
	}
	defer backends.Close()

	if err := os.MkdirAll(cfg.Pipeline.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	store := storage.NewStorage(dbClient, appLogger.Logger)
	answerer := rag.NewAnswerer(
		store,
		backends.Embedder,
		backends.Generator,
		pgvector.New(dbClient.GetDB(), cfg.Embedding.Dimension, appLogger.Logger),
		rag.AnswererConfig{
			TopK:        cfg.Pipeline.SearchTopK,
			Temperature: cfg.Generation.AnswerTemperature,
		},
		appLogger.Logger,
	)

	r := initRouter(cfg, &handler.Dependencies{
		Logger:         appLogger.Logger,
		Storage:        store,
		Submitter:      jobs.NewSubmitter(rabbitClient, appLogger.Logger),
		Answerer:       answerer,
		Database:       dbClient,
		Broker:         rabbitClient,
		UploadDir:      cfg.Pipeline.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serveErr:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter sets the Gin mode for the environment and builds the routes
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	return router.SetupRouter(deps)
}
