package domain

import "time"

// ForecastPoint is one predicted close on a future business day.
type ForecastPoint struct {
	Date  time.Time
	Price float64
}

// Recommendation is the categorical outcome of an opinion.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "Buy"
	RecommendationHold Recommendation = "Hold"
	RecommendationSell Recommendation = "Sell"
)

// Opinion is the buy/hold/sell split derived from a forecast trend.
// Buy, Hold and Sell are percentages and always sum to 100.
type Opinion struct {
	Buy            int
	Hold           int
	Sell           int
	Recommendation Recommendation
	Trend          float64 // Last minus first predicted price
}

// Prediction is the result of one forecast request.
type Prediction struct {
	ID        int64  // Assigned by the prediction log (0 if not recorded)
	RequestID string // Correlates with request logs
	Ticker    string
	Horizon   int
	Forecast  []ForecastPoint
	Opinion   Opinion
	CreatedAt time.Time
}
