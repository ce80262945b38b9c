// Package forecaster extends a price history into the future by feeding a
// sequence model its own predictions.
package forecaster

import (
	"context"
	"fmt"
	"math"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/scaling"
	"stockForecaster/internal/forecasting/tradingdays"
	"stockForecaster/internal/ports"
)

// reusablePredictor is implemented by models that can hand out a predict
// function owning its scratch buffers.
type reusablePredictor interface {
	Predictor() func(window []float64) (float64, error)
}

// Forecaster runs the autoregressive forecast loop. It holds no per-request
// state and may be shared.
type Forecaster struct {
	calendar *tradingdays.Calendar
}

// New creates a Forecaster. A nil calendar counts weekdays only.
func New(cal *tradingdays.Calendar) *Forecaster {
	if cal == nil {
		cal = tradingdays.Weekdays()
	}
	return &Forecaster{calendar: cal}
}

// Forecast predicts horizon closes for the business days following the last
// bar of series. Errors compound: every step conditions on earlier predictions.
func (f *Forecaster) Forecast(ctx context.Context, model ports.SequenceModel, series *domain.PriceSeries, horizon int) ([]domain.ForecastPoint, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", ports.ErrInvalidRequest, horizon)
	}
	if series == nil || series.Len() == 0 {
		return nil, fmt.Errorf("%w: empty price history", ports.ErrDataUnavailable)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: no model", ports.ErrInferenceFailed)
	}
	windowSize := model.WindowSize()
	if windowSize < 1 {
		return nil, fmt.Errorf("%w: model window size %d", ports.ErrInferenceFailed, windowSize)
	}

	closes := series.Closes()
	scaler, err := scaling.Fit(closes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrDataUnavailable, err)
	}
	window := newSlidingWindow(InitialWindow(scaler.Transform(closes), windowSize))

	predict := model.Predict
	if rp, ok := model.(reusablePredictor); ok {
		predict = rp.Predictor()
	}

	preds := make([]float64, horizon)
	for i := range preds {
		if i%32 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", ports.ErrInferenceFailed, err)
			}
		}
		p, err := predict(window.values())
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ports.ErrInferenceFailed, i+1, err)
		}
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: step %d produced %v", ports.ErrInferenceFailed, i+1, p)
		}
		preds[i] = p
		window.push(p)
	}
	scaler.InverseTransform(preds)

	dates := f.calendar.Next(series.LastDate(), horizon)
	points := make([]domain.ForecastPoint, horizon)
	for i := range points {
		points[i] = domain.ForecastPoint{Date: dates[i], Price: preds[i]}
	}
	return points, nil
}

// InitialWindow returns the trailing size values of scaled, left-padded with
// the earliest value when there are fewer.
func InitialWindow(scaled []float64, size int) []float64 {
	out := make([]float64, size)
	if len(scaled) >= size {
		copy(out, scaled[len(scaled)-size:])
		return out
	}
	pad := size - len(scaled)
	for i := 0; i < pad; i++ {
		out[i] = scaled[0]
	}
	copy(out[pad:], scaled)
	return out
}
