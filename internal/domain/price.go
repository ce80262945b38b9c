package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used in series files and API payloads.
const DateLayout = "2006-01-02"

// PriceBar represents a single daily OHLCV record.
type PriceBar struct {
	Date   time.Time // Trading date (midnight UTC)
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume int64     // Traded volume
}

// PriceSeries is an ordered daily price history for one instrument.
// Bars are strictly increasing by Date with no duplicates.
type PriceSeries struct {
	Ticker string
	Bars   []PriceBar
}

// Len returns the number of bars in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the closing prices in date order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// LastDate returns the date of the most recent bar, or the zero time for an empty series.
func (s *PriceSeries) LastDate() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// Head returns a series holding the first n bars. The bars are shared, not copied.
func (s *PriceSeries) Head(n int) *PriceSeries {
	if n > s.Len() {
		n = s.Len()
	}
	if n < 0 {
		n = 0
	}
	return &PriceSeries{Ticker: s.Ticker, Bars: s.Bars[:n:n]}
}

// Validate checks the ordering invariant.
func (s *PriceSeries) Validate() error {
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Bars[i-1].Date, s.Bars[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("bar %d (%s) is not after bar %d (%s)", i, cur.Format(DateLayout), i-1, prev.Format(DateLayout))
		}
	}
	return nil
}
