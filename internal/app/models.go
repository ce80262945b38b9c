package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
)

// SeriesLoader supplies the training history for a target.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, target Target) (*domain.PriceSeries, error)
}

// ModelStore returns a trained model per target, training and persisting one
// when none exists. Concurrent requests for the same model file share a single
// load-or-train.
type ModelStore struct {
	repo    ports.ModelRepository
	trainer ports.ModelTrainer
	data    SeriesLoader
	logger  ports.Logger
	flights singleflight.Group
}

// NewModelStore creates a ModelStore.
func NewModelStore(repo ports.ModelRepository, trainer ports.ModelTrainer, data SeriesLoader, logger ports.Logger) (*ModelStore, error) {
	if repo == nil || trainer == nil || data == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for ModelStore")
	}
	return &ModelStore{repo: repo, trainer: trainer, data: data, logger: logger}, nil
}

// EnsureModel loads the model at target.ModelPath, training it first if the
// file is absent. history, when non-nil, is the series the caller already
// loaded for target and is trained on instead of reading it again.
func (m *ModelStore) EnsureModel(ctx context.Context, target Target, history *domain.PriceSeries) (ports.SequenceModel, error) {
	return m.do(ctx, target.ModelPath, func(ctx context.Context) (ports.SequenceModel, error) {
		model, err := m.repo.Load(ctx, target.ModelPath)
		if err == nil {
			return model, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
		m.logger.Info(ctx, "No saved model found, training a new one", map[string]interface{}{
			"ticker": target.Ticker,
			"path":   target.ModelPath,
		})
		return m.train(ctx, target, history)
	})
}

// Retrain fits a fresh model on the current series and replaces the saved one.
// It shares the flight of any load-or-train already running for the same file.
func (m *ModelStore) Retrain(ctx context.Context, target Target) (ports.SequenceModel, error) {
	return m.do(ctx, target.ModelPath, func(ctx context.Context) (ports.SequenceModel, error) {
		return m.train(ctx, target, nil)
	})
}

// do runs fn once per key among concurrent callers. The shared call outlives
// the first caller's cancellation; waiters still return when their own ctx ends.
func (m *ModelStore) do(ctx context.Context, key string, fn func(context.Context) (ports.SequenceModel, error)) (ports.SequenceModel, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flights.DoChan(key, func() (interface{}, error) {
		return fn(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			m.logger.Debug(ctx, "Joined in-flight model load", map[string]interface{}{"key": key})
		}
		return res.Val.(ports.SequenceModel), nil
	}
}

func (m *ModelStore) train(ctx context.Context, target Target, series *domain.PriceSeries) (ports.SequenceModel, error) {
	if series == nil {
		var err error
		if series, err = m.data.LoadSeries(ctx, target); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	model, err := m.trainer.Train(ctx, series.Closes())
	if err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, target.ModelPath, model); err != nil {
		return nil, fmt.Errorf("%w: persisting model: %w", ports.ErrModelTrainingFailed, err)
	}
	m.logger.Info(ctx, "Model trained and saved", map[string]interface{}{
		"ticker":   target.Ticker,
		"path":     target.ModelPath,
		"bars":     series.Len(),
		"duration": time.Since(start).String(),
	})
	return model, nil
}
