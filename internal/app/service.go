package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/backtesting"
	"stockForecaster/internal/ports"
)

const (
	defaultMaxHorizon   = 365
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Forecaster extends a series with model predictions.
type Forecaster interface {
	Forecast(ctx context.Context, model ports.SequenceModel, series *domain.PriceSeries, horizon int) ([]domain.ForecastPoint, error)
}

// Classifier turns a forecast into an opinion.
type Classifier interface {
	Classify(points []domain.ForecastPoint) (domain.Opinion, error)
}

// Config holds the request limits enforced by the service.
type Config struct {
	MaxHorizon int // Largest accepted days value
}

// PredictionService orchestrates a forecast request: data, model, forecast, opinion.
type PredictionService struct {
	cfg         Config
	logger      ports.Logger
	resolver    TargetResolver
	data        SeriesLoader
	models      *ModelStore
	trainer     ports.ModelTrainer
	forecaster  Forecaster
	classifier  Classifier
	backtester  *backtesting.Backtester
	predictions ports.PredictionRepository
	now         func() time.Time
}

// NewPredictionService creates a new application service instance.
func NewPredictionService(
	cfg Config,
	logger ports.Logger,
	resolver TargetResolver,
	data SeriesLoader,
	models *ModelStore,
	trainer ports.ModelTrainer,
	forecaster Forecaster,
	classifier Classifier,
	backtester *backtesting.Backtester,
	predictions ports.PredictionRepository,
) (*PredictionService, error) {
	if logger == nil || data == nil || models == nil || trainer == nil || forecaster == nil ||
		classifier == nil || backtester == nil || predictions == nil {
		return nil, fmt.Errorf("missing required dependencies for PredictionService")
	}
	if cfg.MaxHorizon <= 0 {
		cfg.MaxHorizon = defaultMaxHorizon
	}
	return &PredictionService{
		cfg:         cfg,
		logger:      logger,
		resolver:    resolver,
		data:        data,
		models:      models,
		trainer:     trainer,
		forecaster:  forecaster,
		classifier:  classifier,
		backtester:  backtester,
		predictions: predictions,
		now:         time.Now,
	}, nil
}

// Predict forecasts days business days of closes for ticker and classifies the trend.
func (s *PredictionService) Predict(ctx context.Context, ticker string, days int) (*domain.Prediction, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if days < 1 || days > s.cfg.MaxHorizon {
		return nil, fmt.Errorf("%w: days must be between 1 and %d, got %d", ports.ErrInvalidRequest, s.cfg.MaxHorizon, days)
	}

	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = logger.WithRequestID(ctx, requestID)
	}
	target := s.resolver.Resolve(ticker)
	start := time.Now()
	s.logger.Info(ctx, "Prediction requested", map[string]interface{}{"ticker": ticker, "days": days})

	var series *domain.PriceSeries
	if err := s.stage(ctx, "data", ticker, func() (err error) {
		series, err = s.data.LoadSeries(ctx, target)
		return err
	}); err != nil {
		return nil, err
	}

	var model ports.SequenceModel
	if err := s.stage(ctx, "model", ticker, func() (err error) {
		model, err = s.models.EnsureModel(ctx, target, series)
		return err
	}); err != nil {
		return nil, err
	}

	var points []domain.ForecastPoint
	if err := s.stage(ctx, "forecast", ticker, func() (err error) {
		points, err = s.forecaster.Forecast(ctx, model, series, days)
		return err
	}); err != nil {
		return nil, err
	}

	var opinion domain.Opinion
	if err := s.stage(ctx, "opinion", ticker, func() (err error) {
		opinion, err = s.classifier.Classify(points)
		return err
	}); err != nil {
		return nil, err
	}

	prediction := &domain.Prediction{
		RequestID: requestID,
		Ticker:    ticker,
		Horizon:   days,
		Forecast:  points,
		Opinion:   opinion,
		CreatedAt: s.now(),
	}
	if id, err := s.predictions.Save(ctx, prediction); err != nil {
		s.logger.Warn(ctx, "Failed to record prediction", map[string]interface{}{"ticker": ticker, "error": err.Error()})
	} else {
		prediction.ID = id
	}

	s.logger.Info(ctx, "Prediction completed", map[string]interface{}{
		"ticker":         ticker,
		"days":           days,
		"recommendation": string(opinion.Recommendation),
		"trend":          opinion.Trend,
		"duration":       time.Since(start).String(),
	})
	return prediction, nil
}

// stage runs one pipeline step and logs its outcome and duration.
func (s *PredictionService) stage(ctx context.Context, name, ticker string, fn func() error) error {
	start := time.Now()
	err := fn()
	fields := map[string]interface{}{"stage": name, "ticker": ticker, "duration": time.Since(start).String()}
	if err != nil {
		s.logger.Error(ctx, err, "Pipeline stage failed", fields)
		return err
	}
	s.logger.Debug(ctx, "Pipeline stage finished", fields)
	return nil
}

// History returns the most recent recorded predictions for ticker.
func (s *PredictionService) History(ctx context.Context, ticker string, limit int) ([]*domain.Prediction, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.predictions.FindByTicker(ctx, ticker, limit)
}

// Retrain replaces the saved model for ticker with a freshly trained one.
func (s *PredictionService) Retrain(ctx context.Context, ticker string) error {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	_, err = s.models.Retrain(ctx, s.resolver.Resolve(ticker))
	return err
}

// Backtest evaluates the model for ticker over its own history. With holdout
// in (0, 1) a fresh model is trained on the leading 1-holdout share of the bars
// and only cutoffs inside the remaining share are scored; the saved model is
// left untouched.
func (s *PredictionService) Backtest(ctx context.Context, ticker string, cfg backtesting.BacktestConfig, holdout float64) (*backtesting.BacktestResult, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if holdout < 0 || holdout >= 1 {
		return nil, fmt.Errorf("%w: holdout must be in [0, 1), got %g", ports.ErrInvalidRequest, holdout)
	}
	target := s.resolver.Resolve(ticker)
	series, err := s.data.LoadSeries(ctx, target)
	if err != nil {
		return nil, err
	}

	var model ports.SequenceModel
	if holdout > 0 {
		split := int(float64(series.Len()) * (1 - holdout))
		if split < 1 {
			return nil, fmt.Errorf("%w: holdout %g leaves no training bars", ports.ErrInvalidRequest, holdout)
		}
		if model, err = s.trainer.Train(ctx, series.Head(split).Closes()); err != nil {
			return nil, err
		}
		if cfg.MinHistory < split {
			cfg.MinHistory = split
		}
	} else if model, err = s.models.EnsureModel(ctx, target, series); err != nil {
		return nil, err
	}

	result, err := s.backtester.Backtest(ctx, model, series, cfg)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Backtest completed", map[string]interface{}{
		"ticker":  ticker,
		"folds":   result.Folds,
		"mae":     result.MAE,
		"rmse":    result.RMSE,
		"skill":   result.Skill(),
		"holdout": holdout,
	})
	return result, nil
}
