package ports

import "context"

// SequenceModel maps a window of scaled values to the next scaled value.
// Implementations must not mutate state in Predict so one trained model can
// serve concurrent forecasts.
type SequenceModel interface {
	// WindowSize returns the number of steps Predict expects.
	WindowSize() int
	// Predict returns the next-step value for a window of exactly WindowSize values.
	Predict(window []float64) (float64, error)
}

// ModelTrainer builds and fits a fresh model from a raw closing-price history.
type ModelTrainer interface {
	Train(ctx context.Context, closes []float64) (SequenceModel, error)
}

// ModelRepository persists trained models.
type ModelRepository interface {
	// Load reads the model stored at path.
	// Returns an error wrapping ErrNotFound if nothing is stored there.
	Load(ctx context.Context, path string) (SequenceModel, error)
	// Save stores the model at path, replacing any previous one.
	Save(ctx context.Context, path string, model SequenceModel) error
}
