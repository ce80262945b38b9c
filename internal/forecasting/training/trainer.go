// Package training turns a raw closing-price history into a fitted sequence model.
package training

import (
	"context"
	"fmt"
	"time"

	"stockForecaster/internal/forecasting/lstm"
	"stockForecaster/internal/forecasting/scaling"
	"stockForecaster/internal/ports"
)

// Config holds the architecture and the training regimen.
type Config struct {
	Model lstm.Config
	Fit   lstm.FitConfig
	Seed  uint64 // 0 draws a seed from the clock
}

// DefaultConfig returns the standard architecture with 5 epochs of batch 32.
func DefaultConfig() Config {
	return Config{Model: lstm.DefaultConfig(), Fit: lstm.DefaultFitConfig()}
}

// Trainer implements ports.ModelTrainer with an LSTM network.
type Trainer struct {
	cfg    Config
	logger ports.Logger
}

// New creates a Trainer after validating its configuration.
func New(cfg Config, logger ports.Logger) (*Trainer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for trainer")
	}
	if err := cfg.Model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	if err := cfg.Fit.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	return &Trainer{cfg: cfg, logger: logger}, nil
}

// Train scales the closes to [0, 1], builds windowed pairs and fits a fresh network.
func (t *Trainer) Train(ctx context.Context, closes []float64) (ports.SequenceModel, error) {
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: no closing prices to train on", ports.ErrDataUnavailable)
	}
	window := t.cfg.Model.Window

	scaler, err := scaling.Fit(closes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrModelTrainingFailed, err)
	}
	scaled := Tile(scaler.Transform(closes), window)
	X, y := SupervisedPairs(scaled, window)

	net, err := lstm.New(t.cfg.Model, t.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrModelTrainingFailed, err)
	}

	start := time.Now()
	t.logger.Info(ctx, "Training sequence model", map[string]interface{}{
		"samples":   len(X),
		"window":    window,
		"units":     t.cfg.Model.Units,
		"epochs":    t.cfg.Fit.Epochs,
		"batchSize": t.cfg.Fit.BatchSize,
	})
	hist, err := net.Fit(ctx, X, y, t.cfg.Fit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrModelTrainingFailed, err)
	}
	for i, loss := range hist.Loss {
		t.logger.Debug(ctx, "Epoch finished", map[string]interface{}{"epoch": i + 1, "loss": loss})
	}
	t.logger.Info(ctx, "Sequence model trained", map[string]interface{}{
		"finalLoss": hist.Final(),
		"duration":  time.Since(start).String(),
	})
	return net, nil
}

// Tile repeats a series that is not longer than the window until it is, so at
// least one training pair exists. Longer series are returned unchanged.
func Tile(scaled []float64, window int) []float64 {
	if len(scaled) == 0 || len(scaled) > window {
		return scaled
	}
	reps := window/len(scaled) + 1
	out := make([]float64, 0, reps*len(scaled))
	for i := 0; i < reps; i++ {
		out = append(out, scaled...)
	}
	return out
}

// SupervisedPairs builds (series[i-window:i] -> series[i]) for every valid i.
// Inputs are views into series.
func SupervisedPairs(series []float64, window int) ([][]float64, []float64) {
	if len(series) <= window {
		return nil, nil
	}
	n := len(series) - window
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := window; i < len(series); i++ {
		X[i-window] = series[i-window : i : i]
		y[i-window] = series[i]
	}
	return X, y
}
