// Package synth generates a plausible daily price history when no real data exists.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/forecasting/tradingdays"
)

const (
	minVolume = 50_000_000
	maxVolume = 150_000_000
	// Open, High and Low deviate from Close by at most this fraction.
	maxIntradaySpread = 0.01
)

// Config holds the random-walk parameters.
type Config struct {
	Days       int     // Number of business days to generate
	BasePrice  float64 // Price before the first step
	Volatility float64 // Standard deviation of the daily return
	Seed       uint64  // 0 draws a seed from the clock
}

// DefaultConfig returns 200 days from 150.0 with 1% daily volatility.
func DefaultConfig() Config {
	return Config{Days: 200, BasePrice: 150.0, Volatility: 0.01}
}

// Generator produces random-walk series ending on the most recent business day.
type Generator struct {
	cfg      Config
	calendar *tradingdays.Calendar
	now      func() time.Time
}

// New creates a Generator. A nil calendar counts weekdays only.
func New(cfg Config, cal *tradingdays.Calendar) (*Generator, error) {
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("synthetic days must be positive, got %d", cfg.Days)
	}
	if cfg.BasePrice <= 0 {
		return nil, fmt.Errorf("synthetic base price must be positive, got %g", cfg.BasePrice)
	}
	if cfg.Volatility < 0 {
		return nil, fmt.Errorf("synthetic volatility cannot be negative, got %g", cfg.Volatility)
	}
	if cal == nil {
		cal = tradingdays.Weekdays()
	}
	return &Generator{cfg: cfg, calendar: cal, now: time.Now}, nil
}

// Generate simulates a price path. Each close is the previous one times
// (1 + N(0, Volatility)); Open/High/Low are small uniform perturbations of it.
func (g *Generator) Generate(ticker string) *domain.PriceSeries {
	seed := g.cfg.Seed
	if seed == 0 {
		seed = uint64(g.now().UnixNano())
	}
	src := rand.NewPCG(seed, seed>>1|1)
	noise := distuv.Normal{Mu: 0, Sigma: g.cfg.Volatility, Src: src}
	spread := distuv.Uniform{Min: 0, Max: maxIntradaySpread, Src: src}
	volume := distuv.Uniform{Min: minVolume, Max: maxVolume, Src: src}

	dates := g.calendar.Last(g.now(), g.cfg.Days)
	bars := make([]domain.PriceBar, len(dates))
	price := g.cfg.BasePrice
	for i, d := range dates {
		price *= 1 + noise.Rand()
		bars[i] = domain.PriceBar{
			Date:   d,
			Open:   price * (1 - spread.Rand()),
			High:   price * (1 + spread.Rand()),
			Low:    price * (1 - spread.Rand()),
			Close:  price,
			Volume: int64(math.Floor(volume.Rand())),
		}
	}
	return &domain.PriceSeries{Ticker: ticker, Bars: bars}
}
