// Package bootstrap assembles the forecasting pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"stockForecaster/config"
	"stockForecaster/internal/adapters/csvseries"
	"stockForecaster/internal/adapters/modelfile"
	"stockForecaster/internal/adapters/noop"
	"stockForecaster/internal/adapters/sqlite"
	"stockForecaster/internal/app"
	"stockForecaster/internal/forecasting/backtesting"
	"stockForecaster/internal/forecasting/forecaster"
	"stockForecaster/internal/forecasting/lstm"
	"stockForecaster/internal/forecasting/opinion"
	"stockForecaster/internal/forecasting/synth"
	"stockForecaster/internal/forecasting/tradingdays"
	"stockForecaster/internal/forecasting/training"
	"stockForecaster/internal/ports"
)

// predictionLog is a prediction repository that holds a resource.
type predictionLog interface {
	ports.PredictionRepository
	Close() error
}

// Pipeline holds the wired application.
type Pipeline struct {
	Service  *app.PredictionService
	Resolver app.TargetResolver
	log      predictionLog
}

// TrainingConfig maps the configuration onto the network and training settings.
func TrainingConfig(cfg *config.Config) training.Config {
	units := make([]int, cfg.ModelLayers)
	for i := range units {
		units[i] = cfg.ModelUnits
	}
	return training.Config{
		Model: lstm.Config{Window: cfg.ModelWindow, Units: units, Dropout: cfg.ModelDropout},
		Fit: lstm.FitConfig{
			Epochs:       cfg.TrainEpochs,
			BatchSize:    cfg.TrainBatchSize,
			LearningRate: cfg.TrainLearningRate,
			Shuffle:      true,
		},
		Seed: cfg.TrainSeed,
	}
}

// New wires storage, the model pipeline and the service.
func New(cfg *config.Config, logger ports.Logger) (*Pipeline, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for pipeline")
	}

	calendar, err := tradingdays.New(cfg.HolidayCalendar)
	if err != nil {
		return nil, err
	}
	generator, err := synth.New(synth.Config{
		Days:       cfg.SynthDays,
		BasePrice:  cfg.SynthBasePrice,
		Volatility: cfg.SynthVolatility,
		Seed:       cfg.SynthSeed,
	}, calendar)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	trainer, err := training.New(TrainingConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	seriesStore, err := csvseries.New(logger)
	if err != nil {
		return nil, err
	}
	modelStore, err := modelfile.New(logger)
	if err != nil {
		return nil, err
	}

	var log predictionLog = noop.NewPredictionRepository()
	if cfg.PredictionDBPath != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.PredictionDBPath, Logger: logger})
		if err != nil {
			return nil, err
		}
		log = repo
	} else {
		logger.Info(context.Background(), "Prediction log disabled")
	}

	resolver := app.TargetResolver{DataDir: cfg.DataDir, ModelDir: cfg.ModelDir, Shared: cfg.SharedSeries}
	data, err := app.NewDataProvider(seriesStore, generator, logger)
	if err != nil {
		log.Close()
		return nil, err
	}
	models, err := app.NewModelStore(modelStore, trainer, data, logger)
	if err != nil {
		log.Close()
		return nil, err
	}
	fc := forecaster.New(calendar)
	classifier := opinion.New(cfg.OpinionThreshold)
	svc, err := app.NewPredictionService(
		app.Config{MaxHorizon: cfg.MaxHorizon},
		logger, resolver, data, models, trainer, fc, classifier,
		backtesting.New(fc, classifier), log,
	)
	if err != nil {
		log.Close()
		return nil, err
	}

	return &Pipeline{Service: svc, Resolver: resolver, log: log}, nil
}

// Close releases the prediction log.
func (p *Pipeline) Close() error {
	return p.log.Close()
}
