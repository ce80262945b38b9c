package modelfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/forecasting/lstm"
	"stockForecaster/internal/ports"
)

// constantModel is a ports.SequenceModel this store cannot persist
type constantModel struct{}

func (constantModel) WindowSize() int                    { return 1 }
func (constantModel) Predict([]float64) (float64, error) { return 0, nil }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(logger.NewStdLoggerTo(os.Stderr, logger.LevelError))
	require.NoError(t, err)
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	net, err := lstm.New(lstm.Config{Window: 6, Units: []int{4, 3}, Dropout: 0.2}, 5)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model", "AAPL.model.json")

	require.NoError(t, store.Save(context.Background(), path, net))
	loaded, err := store.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.WindowSize())

	window := []float64{0.1, 0.3, 0.2, 0.5, 0.4, 0.6}
	want, err := net.Predict(window)
	require.NoError(t, err)
	got, err := loaded.Predict(window)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_Missing(t *testing.T) {
	_, err := newTestStore(t).Load(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "\x00\x01garbage"},
		{name: "truncated", content: `{"format":"lstm-v1","network":{`},
		{name: "wrong format", content: `{"format":"keras-h5","network":{}}`},
		{name: "bad shapes", content: `{"format":"lstm-v1","network":{"config":{"Window":3,"Units":[2],"Dropout":0},"layers":[{"kernel":[1],"recurrent":[],"bias":[]}],"dense":{"kernel":[],"bias":0}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "m.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := newTestStore(t).Load(context.Background(), path)
			assert.ErrorIs(t, err, ports.ErrCorruptArtifact)
		})
	}
}

func TestSave_UnsupportedModel(t *testing.T) {
	err := newTestStore(t).Save(context.Background(), filepath.Join(t.TempDir(), "m.json"), constantModel{})
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}
