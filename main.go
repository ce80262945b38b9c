package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"stockForecaster/config"
	"stockForecaster/internal/adapters/httpapi"
	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/bootstrap"
	"stockForecaster/internal/scheduler"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire storage, model pipeline and prediction service
	pipeline, err := bootstrap.New(cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize prediction pipeline")
		log.Fatalf("FATAL: Failed to initialize prediction pipeline: %v", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing prediction log")
		}
	}()
	appLogger.Info(ctx, "Prediction pipeline initialized", map[string]interface{}{
		"data_dir":  cfg.DataDir,
		"model_dir": cfg.ModelDir,
		"shared":    cfg.SharedSeries,
	})

	// 4. Optional scheduled retraining
	if cfg.RetrainCron != "" {
		sched, err := scheduler.New(ctx, cfg.RetrainCron, cfg.RetrainTickers, pipeline.Service, appLogger)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize retrain scheduler")
			log.Fatalf("FATAL: Failed to initialize retrain scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 5. Start the HTTP server; it returns once ctx is cancelled and shutdown completes
	server, err := httpapi.New(httpapi.Config{
		Addr:  cfg.HTTPAddr,
		Debug: cfg.LogLevel == logger.LevelDebug,
	}, pipeline.Service, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}
	if err := server.Start(ctx); err != nil {
		appLogger.Error(context.Background(), err, "HTTP server exited with error")
		os.Exit(1)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
