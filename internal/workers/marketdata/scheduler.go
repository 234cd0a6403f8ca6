package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/papertrade-service/papertrade_service/pkg/logger"
)

// Ticker advances the synthetic market one step
type Ticker interface {
	Tick(ctx context.Context) error
}

// Scheduler drives the market price feed on a fixed interval
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewScheduler creates a price tick scheduler
func NewScheduler(ticker Ticker, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		ticker:   ticker,
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
		logger:   log,
	}
}

// Start begins ticking until Stop is called. Overlapping runs are skipped
// so a slow tick never stacks up behind itself.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(s.run)))
	if err != nil {
		return fmt.Errorf("failed to schedule price ticks: %w", err)
	}

	s.cron.Start()
	s.logger.Infow("Market data scheduler started", "interval", s.interval)
	return nil
}

// Stop halts the schedule and waits for a running tick to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Infow("Market data scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if err := s.ticker.Tick(ctx); err != nil {
		s.logger.Warnw("Market tick completed with errors", "error", err)
	}
}
