package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-rest-api/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const expiryRunTimeout = 5 * time.Minute

// ExpiryScheduler periodically moves listings past their expiry date out of
// the active set.
type ExpiryScheduler struct {
	listings repository.ListingRepository
	schedule string
	logger   *zap.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewExpiryScheduler validates schedule and returns a stopped scheduler.
// An empty schedule disables timed sweeps; RunNow still works.
func NewExpiryScheduler(listings repository.ListingRepository, schedule string, logger *zap.Logger) (*ExpiryScheduler, error) {
	s := &ExpiryScheduler{
		listings: listings,
		schedule: schedule,
		logger:   logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
	}

	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running on the schedule. Calling Start twice, or on a
// scheduler without a schedule, is a no-op.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.schedule == "" {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("expiry scheduler started", zap.String("schedule", s.schedule))
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("expiry scheduler stopped")
}

func (s *ExpiryScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), expiryRunTimeout)
	defer cancel()

	expired, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Error("listing expiry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("listing expiry sweep finished", zap.Int64("expired", expired))
}

// RunNow performs one sweep immediately.
func (s *ExpiryScheduler) RunNow(ctx context.Context) (int64, error) {
	return s.listings.ExpireListings(ctx)
}
