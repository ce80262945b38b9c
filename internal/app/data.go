package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"
)

// SeriesGenerator synthesises a price history for a ticker.
type SeriesGenerator interface {
	Generate(ticker string) *domain.PriceSeries
}

// DataProvider loads a ticker's price history, creating sample data on first use.
// Concurrent first requests for the same file share one generated series.
type DataProvider struct {
	repo      ports.SeriesRepository
	generator SeriesGenerator
	logger    ports.Logger
	flights   singleflight.Group
}

// NewDataProvider creates a DataProvider.
func NewDataProvider(repo ports.SeriesRepository, generator SeriesGenerator, logger ports.Logger) (*DataProvider, error) {
	if repo == nil || generator == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for DataProvider")
	}
	return &DataProvider{repo: repo, generator: generator, logger: logger}, nil
}

// LoadSeries returns the series stored at target.DataPath. When no file exists
// a synthetic series is generated and persisted first. Every failure wraps
// ports.ErrDataUnavailable.
func (d *DataProvider) LoadSeries(ctx context.Context, target Target) (*domain.PriceSeries, error) {
	series, err := d.repo.Load(ctx, target.DataPath)
	switch {
	case err == nil:
		if err := checkSeries(series, target.DataPath); err != nil {
			return nil, err
		}
		series.Ticker = target.Ticker
		return series, nil
	case errors.Is(err, ports.ErrNotFound):
		return d.bootstrap(ctx, target)
	default:
		return nil, fmt.Errorf("%w: %w", ports.ErrDataUnavailable, err)
	}
}

// bootstrap creates the missing series once per data file. The series is
// shared between callers, so each gets a copy labelled with its own ticker.
func (d *DataProvider) bootstrap(ctx context.Context, target Target) (*domain.PriceSeries, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := d.flights.DoChan(target.DataPath, func() (interface{}, error) {
		return d.loadOrGenerate(flightCtx, target)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		series := *res.Val.(*domain.PriceSeries)
		series.Ticker = target.Ticker
		return &series, nil
	}
}

func (d *DataProvider) loadOrGenerate(ctx context.Context, target Target) (*domain.PriceSeries, error) {
	// An earlier flight may have saved the file since the caller looked.
	series, err := d.repo.Load(ctx, target.DataPath)
	if err == nil {
		if err := checkSeries(series, target.DataPath); err != nil {
			return nil, err
		}
		return series, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ports.ErrDataUnavailable, err)
	}

	start := time.Now()
	series = d.generator.Generate(target.Ticker)
	d.logger.Info(ctx, "No price data found, generated sample series", map[string]interface{}{
		"ticker":   target.Ticker,
		"path":     target.DataPath,
		"bars":     series.Len(),
		"lastDate": series.LastDate().Format(domain.DateLayout),
		"duration": time.Since(start).String(),
	})
	if err := d.repo.Save(ctx, target.DataPath, series); err != nil {
		return nil, fmt.Errorf("%w: persisting sample series: %w", ports.ErrDataUnavailable, err)
	}
	return series, nil
}

func checkSeries(series *domain.PriceSeries, path string) error {
	if series.Len() == 0 {
		return fmt.Errorf("%w: '%s' holds no bars", ports.ErrDataUnavailable, path)
	}
	if err := series.Validate(); err != nil {
		return fmt.Errorf("%w: '%s': %v", ports.ErrDataUnavailable, path, err)
	}
	return nil
}
