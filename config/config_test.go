package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/internal/adapters/logger"
)

var allKeys = []string{
	"CONFIG_FILE", "LOG_LEVEL", "HTTP_ADDR", "DATA_DIR", "MODEL_DIR", "SHARED_SERIES",
	"PREDICTION_DB_PATH", "MAX_HORIZON", "OPINION_THRESHOLD", "HOLIDAY_CALENDAR",
	"MODEL_WINDOW", "MODEL_UNITS", "MODEL_LAYERS", "MODEL_DROPOUT", "TRAIN_EPOCHS",
	"TRAIN_BATCH_SIZE", "TRAIN_LEARNING_RATE", "TRAIN_SEED", "SYNTH_DAYS",
	"SYNTH_BASE_PRICE", "SYNTH_VOLATILITY", "SYNTH_SEED", "RETRAIN_CRON", "RETRAIN_TICKERS",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		if old, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, old) })
		}
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./model", cfg.ModelDir)
	assert.Equal(t, "./data/predictions.db", cfg.PredictionDBPath)
	assert.False(t, cfg.SharedSeries)
	assert.Equal(t, 365, cfg.MaxHorizon)
	assert.Equal(t, 60, cfg.ModelWindow)
	assert.Equal(t, 50, cfg.ModelUnits)
	assert.Equal(t, 2, cfg.ModelLayers)
	assert.Equal(t, 0.2, cfg.ModelDropout)
	assert.Equal(t, 5, cfg.TrainEpochs)
	assert.Equal(t, 32, cfg.TrainBatchSize)
	assert.Equal(t, 0.001, cfg.TrainLearningRate)
	assert.Equal(t, 200, cfg.SynthDays)
	assert.Equal(t, 150.0, cfg.SynthBasePrice)
	assert.Equal(t, 0.01, cfg.SynthVolatility)
	assert.Equal(t, 5.0, cfg.OpinionThreshold)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.RetrainCron)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "forecaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
http_addr: ":8080"
model_units: 16
train_epochs: 2
retrain_cron: "0 0 3 * * *"
retrain_tickers: [AAPL, MSFT]
`), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TRAIN_EPOCHS", "9")
	t.Setenv("PREDICTION_DB_PATH", "")
	t.Setenv("SHARED_SERIES", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr, "from file")
	assert.Equal(t, 16, cfg.ModelUnits, "from file")
	assert.Equal(t, 9, cfg.TrainEpochs, "env beats file")
	assert.Equal(t, 60, cfg.ModelWindow, "default kept")
	assert.Empty(t, cfg.PredictionDBPath, "explicitly disabled")
	assert.True(t, cfg.SharedSeries)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.RetrainTickers)
}

func TestLoadConfig_RetrainTickersFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("RETRAIN_CRON", "0 30 2 * * *")
	t.Setenv("RETRAIN_TICKERS", " aapl, ,msft ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"aapl", "msft"}, cfg.RetrainTickers)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "non-numeric window", env: map[string]string{"MODEL_WINDOW": "sixty"}, wantErr: "invalid MODEL_WINDOW"},
		{name: "zero horizon", env: map[string]string{"MAX_HORIZON": "0"}, wantErr: "MAX_HORIZON must be positive"},
		{name: "dropout out of range", env: map[string]string{"MODEL_DROPOUT": "1.5"}, wantErr: "MODEL_DROPOUT must be in [0, 1)"},
		{name: "negative seed", env: map[string]string{"TRAIN_SEED": "-1"}, wantErr: "invalid TRAIN_SEED"},
		{name: "cron without tickers", env: map[string]string{"RETRAIN_CRON": "0 0 3 * * *"}, wantErr: "RETRAIN_TICKERS must be set"},
		{name: "negative volatility", env: map[string]string{"SYNTH_VOLATILITY": "-0.1"}, wantErr: "SYNTH_VOLATILITY cannot be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	assert.Error(t, err)
}
