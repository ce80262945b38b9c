package main

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/config"
	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/bootstrap"
	"stockForecaster/internal/ports"
)

func testOpener(t *testing.T) opener {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.ModelDir = filepath.Join(dir, "model")
	cfg.PredictionDBPath = filepath.Join(dir, "predictions.db")
	cfg.ModelWindow = 8
	cfg.ModelUnits = 4
	cfg.TrainEpochs = 1
	cfg.SynthDays = 40
	cfg.SynthSeed = 3
	cfg.TrainSeed = 4
	return func() (*bootstrap.Pipeline, error) {
		return bootstrap.New(cfg, logger.NewStdLoggerTo(io.Discard, logger.LevelError))
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPredictThenHistory(t *testing.T) {
	open := testOpener(t)

	out, err := run(t, open, "predict", "AAPL", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Forecast for AAPL (3 days)")
	assert.Contains(t, out, "Opinion: ")

	out, err = run(t, open, "history", "aapl")
	require.NoError(t, err)
	assert.Contains(t, out, "OPINION")
}

func TestHistory_Empty(t *testing.T) {
	out, err := run(t, testOpener(t), "history", "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "No predictions recorded\n", out)
}

func TestTrainAndBacktest(t *testing.T) {
	open := testOpener(t)

	out, err := run(t, open, "train", "IBM")
	require.NoError(t, err)
	assert.Equal(t, "Model retrained for IBM\n", out)

	out, err = run(t, open, "backtest", "IBM", "--horizon", "2", "--step", "10", "--min-history", "20", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Folds")
	assert.Contains(t, out, "CUTOFF")
}

func TestErrors(t *testing.T) {
	open := testOpener(t)

	_, err := run(t, open, "predict", "AAPL", "--days", "0")
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = run(t, open, "predict")
	assert.Error(t, err, "ticker argument is required")

	failing := func() (*bootstrap.Pipeline, error) { return nil, errors.New("no config") }
	_, err = run(t, failing, "train", "AAPL")
	assert.EqualError(t, err, "no config")
}
