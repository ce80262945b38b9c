package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"stockForecaster/internal/domain"
)

// Prices are rounded to this many decimal places on the wire.
const pricePlaces = 4

type forecastPointBody struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predicted_price"`
}

type opinionBody struct {
	Buy            int     `json:"buy"`
	Hold           int     `json:"hold"`
	Sell           int     `json:"sell"`
	Recommendation string  `json:"recommendation"`
	Trend          float64 `json:"trend"`
}

type predictionBody struct {
	ID        int64               `json:"id,omitempty"`
	Ticker    string              `json:"ticker"`
	RequestID string              `json:"request_id"`
	Days      int                 `json:"days"`
	CreatedAt string              `json:"created_at"`
	Forecast  []forecastPointBody `json:"forecast"`
	Opinion   opinionBody         `json:"opinion"`
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(pricePlaces).InexactFloat64()
}

func newPredictionBody(p *domain.Prediction) predictionBody {
	body := predictionBody{
		ID:        p.ID,
		Ticker:    p.Ticker,
		RequestID: p.RequestID,
		Days:      p.Horizon,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		Forecast:  make([]forecastPointBody, len(p.Forecast)),
		Opinion: opinionBody{
			Buy:            p.Opinion.Buy,
			Hold:           p.Opinion.Hold,
			Sell:           p.Opinion.Sell,
			Recommendation: string(p.Opinion.Recommendation),
			Trend:          round(p.Opinion.Trend),
		},
	}
	for i, pt := range p.Forecast {
		body.Forecast[i] = forecastPointBody{Date: pt.Date.Format(domain.DateLayout), PredictedPrice: round(pt.Price)}
	}
	return body
}
