package backtesting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/forecaster"
	"stockForecaster/internal/forecasting/opinion"
	"stockForecaster/internal/ports"
)

// lastValueModel implements ports.SequenceModel by repeating the newest value
type lastValueModel struct{ size int }

func (m lastValueModel) WindowSize() int { return m.size }
func (m lastValueModel) Predict(w []float64) (float64, error) {
	return w[len(w)-1], nil
}

// oracle implements Forecaster by reading the future out of the full series
type oracle struct {
	full *domain.PriceSeries
	err  error
}

func (o oracle) Forecast(ctx context.Context, model ports.SequenceModel, series *domain.PriceSeries, horizon int) ([]domain.ForecastPoint, error) {
	if o.err != nil {
		return nil, o.err
	}
	n := series.Len()
	out := make([]domain.ForecastPoint, horizon)
	for i := range out {
		b := o.full.Bars[n+i]
		out[i] = domain.ForecastPoint{Date: b.Date, Price: b.Close}
	}
	return out, nil
}

func risingSeries(n int) *domain.PriceSeries {
	s := &domain.PriceSeries{Ticker: "UP"}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		s.Bars = append(s.Bars, domain.PriceBar{Date: start.AddDate(0, 0, i), Close: 100 + float64(i)})
	}
	return s
}

func TestBacktest_NaiveModel(t *testing.T) {
	series := risingSeries(30)
	bt := New(forecaster.New(nil), opinion.New(opinion.DefaultThreshold))

	result, err := bt.Backtest(context.Background(), lastValueModel{size: 4}, series,
		BacktestConfig{Horizon: 5, Step: 5, MinHistory: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Folds)
	require.Len(t, result.Records, 4)
	assert.InDelta(t, 3.0, result.MAE, 1e-6)
	assert.InDelta(t, 3.0, result.NaiveMAE, 1e-9)
	assert.InDelta(t, math.Sqrt(11), result.RMSE, 1e-6)
	assert.InDelta(t, 0.0, result.Skill(), 1e-6)
	assert.Greater(t, result.MAPE, 0.0)
	assert.Equal(t, 0.0, result.DirectionalAccuracy, "flat forecast never matches a rising path")
	assert.Equal(t, 1.0, result.OpinionAgreement, "both paths move less than the threshold")

	first := result.Records[0]
	assert.Equal(t, series.Bars[9].Date, first.Cutoff)
	assert.Equal(t, 109.0, first.LastClose)
	assert.Equal(t, []float64{110, 111, 112, 113, 114}, first.Actual)
}

func TestBacktest_PerfectForecast(t *testing.T) {
	series := risingSeries(40)
	bt := New(oracle{full: series}, opinion.New(2))

	result, err := bt.Backtest(context.Background(), nil, series, BacktestConfig{Horizon: 5, Step: 3, MinHistory: 20})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Folds) // cutoffs 20, 23, 26, 29, 32, 35
	assert.Equal(t, 0.0, result.MAE)
	assert.Equal(t, 0.0, result.RMSE)
	assert.Equal(t, 1.0, result.Skill())
	assert.Equal(t, 1.0, result.DirectionalAccuracy)
	assert.Equal(t, 1.0, result.OpinionAgreement)
	for _, f := range result.Records {
		assert.Equal(t, domain.RecommendationBuy, f.Opinion)
	}
}

func TestBacktest_Errors(t *testing.T) {
	series := risingSeries(20)
	boom := errors.New("boom")

	tests := []struct {
		name   string
		fc     Forecaster
		series *domain.PriceSeries
		config BacktestConfig
		want   error
	}{
		{name: "zero horizon", fc: oracle{full: series}, series: series, config: BacktestConfig{Horizon: 0, Step: 1, MinHistory: 5}, want: ports.ErrInvalidRequest},
		{name: "zero step", fc: oracle{full: series}, series: series, config: BacktestConfig{Horizon: 1, Step: 0, MinHistory: 5}, want: ports.ErrInvalidRequest},
		{name: "no history", fc: oracle{full: series}, series: series, config: BacktestConfig{Horizon: 1, Step: 1, MinHistory: 0}, want: ports.ErrInvalidRequest},
		{name: "too short", fc: oracle{full: series}, series: series, config: BacktestConfig{Horizon: 5, Step: 1, MinHistory: 16}, want: ports.ErrDataUnavailable},
		{name: "nil series", fc: oracle{full: series}, series: nil, config: DefaultConfig(), want: ports.ErrDataUnavailable},
		{name: "forecast failure", fc: oracle{err: boom}, series: series, config: BacktestConfig{Horizon: 2, Step: 2, MinHistory: 5}, want: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fc, opinion.New(0)).Backtest(context.Background(), nil, tt.series, tt.config)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBacktest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	series := risingSeries(20)
	_, err := New(oracle{full: series}, opinion.New(0)).Backtest(ctx, nil, series, BacktestConfig{Horizon: 2, Step: 2, MinHistory: 5})
	assert.ErrorIs(t, err, context.Canceled)
}
