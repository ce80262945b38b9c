// Package backtesting replays a forecast model over history and scores it
// against what actually happened.
package backtesting

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/opinion"
	"stockForecaster/internal/ports"
)

// Forecaster is the forecast step being evaluated.
type Forecaster interface {
	Forecast(ctx context.Context, model ports.SequenceModel, series *domain.PriceSeries, horizon int) ([]domain.ForecastPoint, error)
}

// BacktestConfig holds configuration for a walk-forward backtest
type BacktestConfig struct {
	Horizon    int // Points forecast at each cutoff
	Step       int // Bars between consecutive cutoffs
	MinHistory int // Bars available at the first cutoff
}

// DefaultConfig forecasts 5 days every 5 bars starting after 60 bars.
func DefaultConfig() BacktestConfig {
	return BacktestConfig{Horizon: 5, Step: 5, MinHistory: 60}
}

func (c BacktestConfig) validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1, got %d", c.Horizon)
	}
	if c.Step < 1 {
		return fmt.Errorf("step must be at least 1, got %d", c.Step)
	}
	if c.MinHistory < 1 {
		return fmt.Errorf("min history must be at least 1, got %d", c.MinHistory)
	}
	return nil
}

// Fold is one forecast made at a cutoff, next to the realised closes.
type Fold struct {
	Cutoff    time.Time // Date of the last bar the model saw
	LastClose float64
	Predicted []float64
	Actual    []float64
	Opinion   domain.Recommendation // From the forecast
	Realised  domain.Recommendation // From the actual path
}

// BacktestResult holds the results of a backtest
type BacktestResult struct {
	Folds               int
	MAE                 float64 // Mean absolute error over every forecast point
	RMSE                float64
	MAPE                float64 // Percent; points with a zero actual are skipped
	NaiveMAE            float64 // MAE of repeating the last known close
	DirectionalAccuracy float64 // Share of folds whose end-of-horizon direction was right
	OpinionAgreement    float64 // Share of folds where forecast and realised opinions match
	Records             []Fold
}

// Skill returns 1 - MAE/NaiveMAE: positive when the model beats carrying the last close forward.
func (r *BacktestResult) Skill() float64 {
	if r.NaiveMAE == 0 {
		return 0
	}
	return 1 - r.MAE/r.NaiveMAE
}

// Backtester runs walk-forward evaluations.
type Backtester struct {
	forecaster Forecaster
	classifier opinion.Classifier
}

// New creates a Backtester.
func New(f Forecaster, c opinion.Classifier) *Backtester {
	return &Backtester{forecaster: f, classifier: c}
}

// Backtest forecasts from every cutoff MinHistory, MinHistory+Step, ... that
// leaves Horizon realised bars, using only the bars up to the cutoff.
func (b *Backtester) Backtest(ctx context.Context, model ports.SequenceModel, series *domain.PriceSeries, config BacktestConfig) (*BacktestResult, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}
	if series == nil || series.Len() < config.MinHistory+config.Horizon {
		n := 0
		if series != nil {
			n = series.Len()
		}
		return nil, fmt.Errorf("%w: need %d bars for a backtest, have %d",
			ports.ErrDataUnavailable, config.MinHistory+config.Horizon, n)
	}

	closes := series.Closes()
	result := &BacktestResult{}
	var absErrs, sqErrs, pctErrs, naiveErrs []float64
	var directionHits, opinionHits int

	for cutoff := config.MinHistory; cutoff+config.Horizon <= len(closes); cutoff += config.Step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points, err := b.forecaster.Forecast(ctx, model, series.Head(cutoff), config.Horizon)
		if err != nil {
			return nil, fmt.Errorf("fold at bar %d: %w", cutoff, err)
		}

		last := closes[cutoff-1]
		actual := closes[cutoff : cutoff+config.Horizon]
		fold := Fold{
			Cutoff:    series.Bars[cutoff-1].Date,
			LastClose: last,
			Predicted: make([]float64, len(points)),
			Actual:    append([]float64(nil), actual...),
		}
		for i, p := range points {
			fold.Predicted[i] = p.Price
			diff := p.Price - actual[i]
			absErrs = append(absErrs, math.Abs(diff))
			sqErrs = append(sqErrs, diff*diff)
			naiveErrs = append(naiveErrs, math.Abs(last-actual[i]))
			if actual[i] != 0 {
				pctErrs = append(pctErrs, math.Abs(diff/actual[i])*100)
			}
		}

		predMove := fold.Predicted[len(fold.Predicted)-1] - last
		realMove := actual[len(actual)-1] - last
		if sign(predMove) == sign(realMove) {
			directionHits++
		}

		fold.Opinion = b.classifier.ClassifyTrend(fold.Predicted[len(fold.Predicted)-1] - fold.Predicted[0]).Recommendation
		fold.Realised = b.classifier.ClassifyTrend(actual[len(actual)-1] - actual[0]).Recommendation
		if fold.Opinion == fold.Realised {
			opinionHits++
		}
		result.Records = append(result.Records, fold)
	}

	result.Folds = len(result.Records)
	result.MAE = stat.Mean(absErrs, nil)
	result.RMSE = math.Sqrt(stat.Mean(sqErrs, nil))
	result.NaiveMAE = stat.Mean(naiveErrs, nil)
	if len(pctErrs) > 0 {
		result.MAPE = stat.Mean(pctErrs, nil)
	}
	result.DirectionalAccuracy = float64(directionHits) / float64(result.Folds)
	result.OpinionAgreement = float64(opinionHits) / float64(result.Folds)
	return result, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
