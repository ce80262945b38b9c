// Package noop provides stand-ins used when optional storage is not configured.
package noop

import (
	"context"

	"stockForecaster/internal/domain"
)

// PredictionRepository discards predictions. Used when no prediction database is configured.
type PredictionRepository struct{}

func NewPredictionRepository() *PredictionRepository { return &PredictionRepository{} }

func (n *PredictionRepository) Save(_ context.Context, _ *domain.Prediction) (int64, error) {
	return 0, nil
}

func (n *PredictionRepository) FindByTicker(_ context.Context, _ string, _ int) ([]*domain.Prediction, error) {
	return []*domain.Prediction{}, nil
}

func (n *PredictionRepository) Close() error { return nil }
