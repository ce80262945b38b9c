package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stockForecaster/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevelName string          `yaml:"log_level"`
	LogLevel     logger.LogLevel `yaml:"-"`

	// HTTP
	HTTPAddr string `yaml:"http_addr"`

	// Storage
	DataDir          string `yaml:"data_dir"`
	ModelDir         string `yaml:"model_dir"`
	SharedSeries     bool   `yaml:"shared_series"`      // One series and model for every ticker
	PredictionDBPath string `yaml:"prediction_db_path"` // Empty disables the prediction log

	// Requests
	MaxHorizon       int     `yaml:"max_horizon"`
	OpinionThreshold float64 `yaml:"opinion_threshold"`
	HolidayCalendar  string  `yaml:"holiday_calendar"` // Exchange MIC, e.g. "xnys"; empty counts weekdays

	// Model architecture
	ModelWindow  int     `yaml:"model_window"`
	ModelUnits   int     `yaml:"model_units"`
	ModelLayers  int     `yaml:"model_layers"`
	ModelDropout float64 `yaml:"model_dropout"`

	// Training
	TrainEpochs       int     `yaml:"train_epochs"`
	TrainBatchSize    int     `yaml:"train_batch_size"`
	TrainLearningRate float64 `yaml:"train_learning_rate"`
	TrainSeed         uint64  `yaml:"train_seed"` // 0 = random

	// Sample data
	SynthDays       int     `yaml:"synth_days"`
	SynthBasePrice  float64 `yaml:"synth_base_price"`
	SynthVolatility float64 `yaml:"synth_volatility"`
	SynthSeed       uint64  `yaml:"synth_seed"` // 0 = random

	// Scheduled retraining
	RetrainCron    string   `yaml:"retrain_cron"` // Six fields with seconds; empty disables
	RetrainTickers []string `yaml:"retrain_tickers"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevelName:      "INFO",
		HTTPAddr:          ":5000",
		DataDir:           "./data",
		ModelDir:          "./model",
		PredictionDBPath:  "./data/predictions.db",
		MaxHorizon:        365,
		OpinionThreshold:  5.0,
		ModelWindow:       60,
		ModelUnits:        50,
		ModelLayers:       2,
		ModelDropout:      0.2,
		TrainEpochs:       5,
		TrainBatchSize:    32,
		TrainLearningRate: 0.001,
		SynthDays:         200,
		SynthBasePrice:    150.0,
		SynthVolatility:   0.01,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by CONFIG_FILE, and environment variables (a .env file is loaded
// first), in increasing order of precedence.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	var errs []string // Collect validation errors
	var err error

	cfg.LogLevelName = getEnv("LOG_LEVEL", cfg.LogLevelName)
	cfg.LogLevel = logger.ParseLevel(cfg.LogLevelName)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	if cfg.HTTPAddr == "" {
		errs = append(errs, "HTTP_ADDR must be set")
	}

	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	if cfg.DataDir == "" {
		errs = append(errs, "DATA_DIR must be set")
	}
	cfg.ModelDir = getEnv("MODEL_DIR", cfg.ModelDir)
	if cfg.ModelDir == "" {
		errs = append(errs, "MODEL_DIR must be set")
	}
	cfg.SharedSeries = getEnvAsBool("SHARED_SERIES", cfg.SharedSeries)
	if v, ok := os.LookupEnv("PREDICTION_DB_PATH"); ok {
		cfg.PredictionDBPath = v // May be set empty to disable
	}

	cfg.MaxHorizon, err = getEnvAsIntRequired("MAX_HORIZON", cfg.MaxHorizon)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_HORIZON: %v", err))
	} else if cfg.MaxHorizon <= 0 {
		errs = append(errs, "MAX_HORIZON must be positive")
	}

	cfg.OpinionThreshold, err = getEnvAsFloatRequired("OPINION_THRESHOLD", cfg.OpinionThreshold)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid OPINION_THRESHOLD: %v", err))
	} else if cfg.OpinionThreshold <= 0 {
		errs = append(errs, "OPINION_THRESHOLD must be positive")
	}
	cfg.HolidayCalendar = getEnv("HOLIDAY_CALENDAR", cfg.HolidayCalendar)

	// Model architecture
	cfg.ModelWindow, err = getEnvAsIntRequired("MODEL_WINDOW", cfg.ModelWindow)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MODEL_WINDOW: %v", err))
	} else if cfg.ModelWindow <= 0 {
		errs = append(errs, "MODEL_WINDOW must be positive")
	}
	cfg.ModelUnits, err = getEnvAsIntRequired("MODEL_UNITS", cfg.ModelUnits)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MODEL_UNITS: %v", err))
	} else if cfg.ModelUnits <= 0 {
		errs = append(errs, "MODEL_UNITS must be positive")
	}
	cfg.ModelLayers, err = getEnvAsIntRequired("MODEL_LAYERS", cfg.ModelLayers)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MODEL_LAYERS: %v", err))
	} else if cfg.ModelLayers <= 0 {
		errs = append(errs, "MODEL_LAYERS must be positive")
	}
	cfg.ModelDropout, err = getEnvAsFloatRequired("MODEL_DROPOUT", cfg.ModelDropout)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MODEL_DROPOUT: %v", err))
	} else if cfg.ModelDropout < 0 || cfg.ModelDropout >= 1 {
		errs = append(errs, "MODEL_DROPOUT must be in [0, 1)")
	}

	// Training
	cfg.TrainEpochs, err = getEnvAsIntRequired("TRAIN_EPOCHS", cfg.TrainEpochs)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRAIN_EPOCHS: %v", err))
	} else if cfg.TrainEpochs <= 0 {
		errs = append(errs, "TRAIN_EPOCHS must be positive")
	}
	cfg.TrainBatchSize, err = getEnvAsIntRequired("TRAIN_BATCH_SIZE", cfg.TrainBatchSize)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRAIN_BATCH_SIZE: %v", err))
	} else if cfg.TrainBatchSize <= 0 {
		errs = append(errs, "TRAIN_BATCH_SIZE must be positive")
	}
	cfg.TrainLearningRate, err = getEnvAsFloatRequired("TRAIN_LEARNING_RATE", cfg.TrainLearningRate)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRAIN_LEARNING_RATE: %v", err))
	} else if cfg.TrainLearningRate <= 0 {
		errs = append(errs, "TRAIN_LEARNING_RATE must be positive")
	}
	cfg.TrainSeed, err = getEnvAsUintRequired("TRAIN_SEED", cfg.TrainSeed)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRAIN_SEED: %v", err))
	}

	// Sample data
	cfg.SynthDays, err = getEnvAsIntRequired("SYNTH_DAYS", cfg.SynthDays)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SYNTH_DAYS: %v", err))
	} else if cfg.SynthDays <= 0 {
		errs = append(errs, "SYNTH_DAYS must be positive")
	}
	cfg.SynthBasePrice, err = getEnvAsFloatRequired("SYNTH_BASE_PRICE", cfg.SynthBasePrice)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SYNTH_BASE_PRICE: %v", err))
	} else if cfg.SynthBasePrice <= 0 {
		errs = append(errs, "SYNTH_BASE_PRICE must be positive")
	}
	cfg.SynthVolatility, err = getEnvAsFloatRequired("SYNTH_VOLATILITY", cfg.SynthVolatility)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SYNTH_VOLATILITY: %v", err))
	} else if cfg.SynthVolatility < 0 {
		errs = append(errs, "SYNTH_VOLATILITY cannot be negative")
	}
	cfg.SynthSeed, err = getEnvAsUintRequired("SYNTH_SEED", cfg.SynthSeed)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SYNTH_SEED: %v", err))
	}

	// Scheduled retraining
	cfg.RetrainCron = getEnv("RETRAIN_CRON", cfg.RetrainCron)
	cfg.RetrainTickers = getEnvAsList("RETRAIN_TICKERS", cfg.RetrainTickers)
	if cfg.RetrainCron != "" && len(cfg.RetrainTickers) == 0 {
		errs = append(errs, "RETRAIN_TICKERS must be set when RETRAIN_CRON is set")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// loadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsUintRequired(key string, defaultValue uint64) (uint64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
