package ports

import (
	"context"

	"stockForecaster/internal/domain"
)

// SeriesRepository defines the interface for storing and retrieving price histories.
type SeriesRepository interface {
	// Load reads the series stored at path.
	// Returns an error wrapping ErrNotFound if nothing is stored there.
	Load(ctx context.Context, path string) (*domain.PriceSeries, error)
	// Save writes the series to path, replacing any previous one.
	Save(ctx context.Context, path string, series *domain.PriceSeries) error
}

// PredictionRepository defines the interface for recording served predictions.
type PredictionRepository interface {
	// Save records a prediction and returns its assigned ID.
	Save(ctx context.Context, prediction *domain.Prediction) (int64, error)
	// FindByTicker retrieves the most recent predictions for a ticker, newest first, up to a limit.
	FindByTicker(ctx context.Context, ticker string, limit int) ([]*domain.Prediction, error)
}
