package opinion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
)

func points(prices ...float64) []domain.ForecastPoint {
	out := make([]domain.ForecastPoint, len(prices))
	for i, p := range prices {
		out[i] = domain.ForecastPoint{Price: p}
	}
	return out
}

func TestClassify(t *testing.T) {
	c := New(DefaultThreshold)

	tests := []struct {
		name   string
		prices []float64
		want   domain.Recommendation
		split  [3]int
	}{
		{name: "strong rise", prices: []float64{100, 103, 110}, want: domain.RecommendationBuy, split: [3]int{70, 20, 10}},
		{name: "strong fall", prices: []float64{100, 97, 90}, want: domain.RecommendationSell, split: [3]int{10, 20, 70}},
		{name: "flat", prices: []float64{100, 100, 100}, want: domain.RecommendationHold, split: [3]int{25, 50, 25}},
		{name: "exactly plus threshold", prices: []float64{100, 105}, want: domain.RecommendationHold, split: [3]int{25, 50, 25}},
		{name: "exactly minus threshold", prices: []float64{100, 95}, want: domain.RecommendationHold, split: [3]int{25, 50, 25}},
		{name: "just above threshold", prices: []float64{100, 105.01}, want: domain.RecommendationBuy, split: [3]int{70, 20, 10}},
		{name: "just below minus threshold", prices: []float64{100, 94.99}, want: domain.RecommendationSell, split: [3]int{10, 20, 70}},
		{name: "only endpoints matter", prices: []float64{100, 200, 1, 101}, want: domain.RecommendationHold, split: [3]int{25, 50, 25}},
		{name: "single point", prices: []float64{42}, want: domain.RecommendationHold, split: [3]int{25, 50, 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := c.Classify(points(tt.prices...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.Recommendation)
			assert.Equal(t, tt.split, [3]int{o.Buy, o.Hold, o.Sell})
			assert.Equal(t, 100, o.Buy+o.Hold+o.Sell)
			assert.InDelta(t, tt.prices[len(tt.prices)-1]-tt.prices[0], o.Trend, 1e-9)
		})
	}
}

func TestClassify_Empty(t *testing.T) {
	_, err := New(DefaultThreshold).Classify(nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestClassifyTrend_Monotonic(t *testing.T) {
	c := New(DefaultThreshold)
	prevBuy, prevSell := -1, 101
	for trend := -20.0; trend <= 20.0; trend += 0.5 {
		o := c.ClassifyTrend(trend)
		assert.GreaterOrEqual(t, o.Buy, prevBuy, "buy share never falls as trend rises")
		assert.LessOrEqual(t, o.Sell, prevSell, "sell share never rises as trend rises")
		prevBuy, prevSell = o.Buy, o.Sell
	}
}

func TestNew_DefaultsThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, New(0).Threshold)
	assert.Equal(t, 2.5, New(2.5).Threshold)
}
