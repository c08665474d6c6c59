package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/hr-rag/internal/ai/provider"
	"github.com/cuongbtq/hr-rag/internal/bootstrap"
	"github.com/cuongbtq/hr-rag/internal/collab"
	"github.com/cuongbtq/hr-rag/internal/config"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/notify"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore/pgvector"
	"github.com/cuongbtq/hr-rag/internal/worker"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	location, err := time.LoadLocation(cfg.Google.Timezone)
	if err != nil {
		return fmt.Errorf("invalid google timezone %q: %w", cfg.Google.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	backends, err := provider.New(ctx, cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI backends: %w", err)
	}
	defer backends.Close()

	calendar, mailer, err := initCollaborators(ctx, &cfg.Google, appLogger.Logger)
	if err != nil {
		return err
	}

	reporter, err := initReporter(&cfg.Telegram, appLogger.Logger)
	if err != nil {
		return err
	}

	chunker, err := document.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("invalid chunker settings: %w", err)
	}
	extractor := document.NewExtractor(appLogger.Logger)
	store := storage.NewStorage(dbClient, appLogger.Logger)
	vectors := pgvector.New(dbClient.GetDB(), cfg.Embedding.Dimension, appLogger.Logger)

	workerInstance, err := worker.NewWorker(&worker.Config{
		Logger:      appLogger.Logger,
		Broker:      rabbitClient,
		Republisher: jobs.NewSubmitter(rabbitClient, appLogger.Logger),
		Handler: &worker.Handlers{
			Ingestor: rag.NewIngestor(store, extractor, chunker, backends.Embedder, vectors, appLogger.Logger),
			Scorer:   rag.NewScorer(store, extractor, backends.Generator, cfg.Generation.ScoreTemperature, appLogger.Logger),
			Calendar: calendar,
			Mailer:   mailer,
			Location: location,
			Logger:   appLogger.Logger,
		},
		Reporter:      reporter,
		WorkerID:      cfg.RabbitMQ.Consumer.Tag,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:    cfg.Worker.JobTimeout,
		MaxAttempts:   cfg.Worker.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", runErr),
		)
	case amqpErr := <-rabbitClient.NotifyClosed():
		appLogger.Error("RabbitMQ channel closed, shutting down",
			slog.Any("error", amqpErr),
		)
		runErr = fmt.Errorf("rabbitmq channel closed: %v", amqpErr)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit",
			slog.Duration("shutdown_timeout", cfg.Worker.ShutdownTimeout),
		)
	}

	return runErr
}

// initCollaborators builds the Google Calendar and Gmail clients, or stand-ins
// that fail every call when the integration is switched off.
func initCollaborators(ctx context.Context, cfg *config.GoogleConfig, logger *slog.Logger) (collab.Calendar, collab.Mailer, error) {
	if !cfg.Enabled {
		logger.Warn("Google integration disabled, meeting and email jobs will be dead-lettered")
		return collab.Disabled{}, collab.Disabled{}, nil
	}

	calendar, err := collab.NewGoogleCalendar(ctx, cfg.CredentialsFile, cfg.CalendarID, cfg.Timezone, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Google Calendar: %w", err)
	}
	mailer, err := collab.NewGoogleMailer(ctx, cfg.CredentialsFile, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Gmail: %w", err)
	}
	return calendar, mailer, nil
}

// initReporter builds the dead-letter alert sink.
func initReporter(cfg *config.TelegramConfig, logger *slog.Logger) (notify.Reporter, error) {
	if !cfg.Enabled {
		return notify.Nop{}, nil
	}
	reporter, err := notify.NewTelegram(cfg.Token, cfg.ChatID, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram reporter: %w", err)
	}
	return reporter, nil
}
