package ports

import "errors"

// Standard application-level errors.
// Adapters and pipeline stages wrap underlying failures with these so the
// boundary (HTTP, CLI) can classify them with errors.Is.
var (
	// General Errors
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Pipeline Errors
	ErrDataUnavailable     = errors.New("historical price data unavailable")
	ErrModelTrainingFailed = errors.New("model training failed")
	ErrInferenceFailed     = errors.New("model inference failed")

	// Storage Errors
	ErrCorruptArtifact = errors.New("persisted file is unreadable; delete it to regenerate")
	ErrQueryFailed     = errors.New("database query failed")
)
