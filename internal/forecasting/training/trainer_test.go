package training

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/internal/forecasting/lstm"
	"stockForecaster/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func smallConfig() Config {
	return Config{
		Model: lstm.Config{Window: 5, Units: []int{3, 3}, Dropout: 0.2},
		Fit:   lstm.FitConfig{Epochs: 2, BatchSize: 8, LearningRate: 0.01, Shuffle: true},
		Seed:  17,
	}
}

func TestSupervisedPairs(t *testing.T) {
	series := []float64{0, 1, 2, 3, 4, 5}
	X, y := SupervisedPairs(series, 4)

	require.Len(t, X, 2)
	assert.Equal(t, []float64{0, 1, 2, 3}, X[0])
	assert.Equal(t, []float64{1, 2, 3, 4}, X[1])
	assert.Equal(t, []float64{4, 5}, y)

	X, y = SupervisedPairs(series, 6)
	assert.Empty(t, X)
	assert.Empty(t, y)
}

func TestTile(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		window  int
		wantLen int
	}{
		{name: "ten points, window 60", length: 10, window: 60, wantLen: 70},
		{name: "exactly the window", length: 60, window: 60, wantLen: 120},
		{name: "longer than the window", length: 61, window: 60, wantLen: 61},
		{name: "single point", length: 1, window: 4, wantLen: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]float64, tt.length)
			for i := range series {
				series[i] = float64(i)
			}
			tiled := Tile(series, tt.window)
			assert.Len(t, tiled, tt.wantLen)
			assert.Greater(t, len(tiled), tt.window)
			assert.Equal(t, series[0], tiled[0])
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Fit.BatchSize = 0
	_, err := New(cfg, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(smallConfig(), nil)
	assert.Error(t, err)
}

func TestTrain(t *testing.T) {
	trainer, err := New(smallConfig(), &mockLogger{})
	require.NoError(t, err)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	model, err := trainer.Train(context.Background(), closes)
	require.NoError(t, err)
	assert.Equal(t, 5, model.WindowSize())

	out, err := model.Predict([]float64{0.1, 0.2, 0.3, 0.4, 0.5})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(out))
}

func TestTrain_ShortSeriesIsTiled(t *testing.T) {
	trainer, err := New(smallConfig(), &mockLogger{})
	require.NoError(t, err)

	model, err := trainer.Train(context.Background(), []float64{100, 101, 99})
	require.NoError(t, err)
	assert.Equal(t, 5, model.WindowSize())
}

func TestTrain_Empty(t *testing.T) {
	trainer, err := New(smallConfig(), &mockLogger{})
	require.NoError(t, err)

	_, err = trainer.Train(context.Background(), nil)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}
