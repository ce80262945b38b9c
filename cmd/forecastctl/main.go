// Command forecastctl runs forecasts, retraining and backtests from the shell
// against the same data and model directories the server uses.
package main

import (
	"fmt"
	"os"

	"stockForecaster/config"
	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/bootstrap"
)

func openPipeline() (*bootstrap.Pipeline, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	// Logs go to stderr so command output stays clean.
	return bootstrap.New(cfg, logger.NewStdLoggerTo(os.Stderr, cfg.LogLevel))
}

func main() {
	root := newRootCmd(openPipeline)
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
