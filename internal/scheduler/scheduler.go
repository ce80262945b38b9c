// Package scheduler retrains models on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"stockForecaster/internal/adapters/logger"
	"stockForecaster/internal/ports"
)

// Retrainer replaces the saved model for a ticker.
type Retrainer interface {
	Retrain(ctx context.Context, ticker string) error
}

// Scheduler periodically retrains a fixed list of tickers.
type Scheduler struct {
	cron    *cron.Cron
	tickers []string
	svc     Retrainer
	logger  ports.Logger
	ctx     context.Context
}

// New registers a retrain job for spec, a six-field cron expression with seconds.
func New(ctx context.Context, spec string, tickers []string, svc Retrainer, logger ports.Logger) (*Scheduler, error) {
	if svc == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for scheduler")
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: scheduled retraining needs at least one ticker", ports.ErrConfigurationError)
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		tickers: tickers,
		svc:     svc,
		logger:  logger,
		ctx:     ctx,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return nil, fmt.Errorf("%w: retrain schedule %q: %v", ports.ErrConfigurationError, spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "Retrain scheduler started", map[string]interface{}{"tickers": s.tickers})
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info(s.ctx, "Retrain scheduler stopped")
}

// RunOnce retrains every ticker in turn and returns how many failed.
// A failure is logged and does not stop the remaining tickers.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ctx = logger.WithRequestID(ctx, "retrain-"+uuid.NewString())
	failed := 0
	for _, ticker := range s.tickers {
		if ctx.Err() != nil {
			return failed
		}
		start := time.Now()
		if err := s.svc.Retrain(ctx, ticker); err != nil {
			failed++
			s.logger.Error(ctx, err, "Scheduled retrain failed", map[string]interface{}{"ticker": ticker})
			continue
		}
		s.logger.Info(ctx, "Scheduled retrain finished", map[string]interface{}{
			"ticker":   ticker,
			"duration": time.Since(start).String(),
		})
	}
	return failed
}
