// Package opinion turns a forecast trend into a buy/hold/sell split.
package opinion

import (
	"fmt"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
)

// DefaultThreshold is the trend, in currency units, beyond which an opinion leaves Hold.
const DefaultThreshold = 5.0

var (
	buy  = domain.Opinion{Buy: 70, Hold: 20, Sell: 10, Recommendation: domain.RecommendationBuy}
	hold = domain.Opinion{Buy: 25, Hold: 50, Sell: 25, Recommendation: domain.RecommendationHold}
	sell = domain.Opinion{Buy: 10, Hold: 20, Sell: 70, Recommendation: domain.RecommendationSell}
)

// Classifier compares the absolute price change across a forecast with a threshold.
// The threshold does not scale with the price level.
type Classifier struct {
	Threshold float64
}

// New returns a classifier. A non-positive threshold falls back to DefaultThreshold.
func New(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{Threshold: threshold}
}

// Classify derives the opinion from last minus first predicted price.
// Trends exactly at the threshold are Hold.
func (c Classifier) Classify(points []domain.ForecastPoint) (domain.Opinion, error) {
	if len(points) == 0 {
		return domain.Opinion{}, fmt.Errorf("%w: cannot classify an empty forecast", ports.ErrInvalidRequest)
	}
	trend := points[len(points)-1].Price - points[0].Price
	return c.ClassifyTrend(trend), nil
}

// ClassifyTrend maps a price change to an opinion.
func (c Classifier) ClassifyTrend(trend float64) domain.Opinion {
	var o domain.Opinion
	switch {
	case trend > c.Threshold:
		o = buy
	case trend < -c.Threshold:
		o = sell
	default:
		o = hold
	}
	o.Trend = trend
	return o
}
