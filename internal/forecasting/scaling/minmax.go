// Package scaling provides the min-max normalisation shared by training and forecasting.
package scaling

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MinMaxScaler linearly maps the fitted range [Min, Max] onto [0, 1].
// A constant series (Max == Min) maps every value to 0 and inverse-transforms
// by adding Min back, so it never divides by zero.
type MinMaxScaler struct {
	Min float64
	Max float64
}

// Fit returns a scaler fitted to values.
func Fit(values []float64) (MinMaxScaler, error) {
	if len(values) == 0 {
		return MinMaxScaler{}, fmt.Errorf("cannot fit scaler on empty series")
	}
	return MinMaxScaler{Min: floats.Min(values), Max: floats.Max(values)}, nil
}

func (s MinMaxScaler) span() float64 {
	r := s.Max - s.Min
	if r == 0 {
		return 1
	}
	return r
}

// Transform scales values into a new slice.
func (s MinMaxScaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	span := s.span()
	for i, v := range values {
		out[i] = (v - s.Min) / span
	}
	return out
}

// InverseTransform maps scaled values back to the original units, in place.
func (s MinMaxScaler) InverseTransform(scaled []float64) []float64 {
	span := s.span()
	for i, v := range scaled {
		scaled[i] = v*span + s.Min
	}
	return scaled
}
