// Package lstm implements a small stacked-LSTM regressor: recurrent layers with
// dropout between them feeding a single-unit dense output, trained with Adam on
// mean squared error via backpropagation through time.
package lstm

import (
	"fmt"
)

// Config describes the network architecture.
type Config struct {
	Window  int     `json:"window"`  // Input steps (univariate)
	Units   []int   `json:"units"`   // Hidden units per stacked LSTM layer
	Dropout float64 `json:"dropout"` // Rate applied after every LSTM layer while training
}

// DefaultConfig returns the 60-step, 2x50-unit, 0.2-dropout architecture.
func DefaultConfig() Config {
	return Config{Window: 60, Units: []int{50, 50}, Dropout: 0.2}
}

// Validate checks that the architecture can be built.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}
	if len(c.Units) == 0 {
		return fmt.Errorf("at least one LSTM layer is required")
	}
	for i, u := range c.Units {
		if u <= 0 {
			return fmt.Errorf("layer %d units must be positive, got %d", i, u)
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	return nil
}

// FitConfig controls a training run.
type FitConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Shuffle      bool
}

// DefaultFitConfig returns 5 epochs of batch 32 at the Adam default rate.
func DefaultFitConfig() FitConfig {
	return FitConfig{Epochs: 5, BatchSize: 32, LearningRate: 0.001, Shuffle: true}
}

// Validate checks the training parameters.
func (c FitConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	return nil
}

// History records the mean training loss of every epoch.
type History struct {
	Loss []float64
}

// Final returns the loss of the last epoch, or 0 if none ran.
func (h History) Final() float64 {
	if len(h.Loss) == 0 {
		return 0
	}
	return h.Loss[len(h.Loss)-1]
}
