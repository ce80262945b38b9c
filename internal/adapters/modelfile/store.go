// Package modelfile persists trained LSTM networks as JSON documents.
package modelfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"stockForecaster/internal/forecasting/lstm"
	"stockForecaster/internal/ports"
	"stockForecaster/internal/utils"
)

// Format tags the document layout so incompatible files are rejected, not misread.
const Format = "lstm-v1"

type document struct {
	Format    string        `json:"format"`
	CreatedAt time.Time     `json:"created_at"`
	Network   lstm.Snapshot `json:"network"`
}

// Store implements ports.ModelRepository for *lstm.Network models.
type Store struct {
	logger ports.Logger
	now    func() time.Time
}

// New creates a model file store.
func New(logger ports.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for model file store")
	}
	return &Store{logger: logger, now: time.Now}, nil
}

// Load reads the model at path. A missing file wraps ports.ErrNotFound; an
// unreadable or incompatible one wraps ports.ErrCorruptArtifact.
func (s *Store) Load(ctx context.Context, path string) (ports.SequenceModel, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("model file '%s': %w", path, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file '%s': %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: model file '%s': %v", ports.ErrCorruptArtifact, path, err)
	}
	if doc.Format != Format {
		return nil, fmt.Errorf("%w: model file '%s' has format %q, want %q", ports.ErrCorruptArtifact, path, doc.Format, Format)
	}
	net, err := lstm.FromSnapshot(doc.Network)
	if err != nil {
		return nil, fmt.Errorf("%w: model file '%s': %v", ports.ErrCorruptArtifact, path, err)
	}
	s.logger.Info(ctx, "Model loaded", map[string]interface{}{
		"path":      path,
		"window":    net.WindowSize(),
		"trainedAt": doc.CreatedAt.Format(time.RFC3339),
	})
	return net, nil
}

// Save writes model to path, replacing any existing file atomically.
func (s *Store) Save(ctx context.Context, path string, model ports.SequenceModel) error {
	net, ok := model.(*lstm.Network)
	if !ok {
		return fmt.Errorf("%w: cannot persist model of type %T", ports.ErrInvalidRequest, model)
	}
	doc := document{Format: Format, CreatedAt: s.now().UTC(), Network: net.Snapshot()}

	err := utils.WriteFileAtomic(path, func(f *os.File) error {
		return json.NewEncoder(f).Encode(doc)
	})
	if err != nil {
		return fmt.Errorf("failed to save model to '%s': %w", path, err)
	}
	s.logger.Info(ctx, "Model saved", map[string]interface{}{"path": path})
	return nil
}
