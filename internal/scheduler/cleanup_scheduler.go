package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"shortly/internal/errors"
	"shortly/internal/logger"
)

// DefaultInterval is used when the configured interval is not positive
const DefaultInterval = time.Hour

// Sweeper removes expired links and reports how many it removed
type Sweeper interface {
	CleanupExpiredLinks() int
}

// CleanupScheduler runs the expiry sweep on a fixed interval in a background
// goroutine. The first sweep happens one full interval after Start.
type CleanupScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // closed when the current loop exits
}

// New creates a scheduler that is not yet running
func New(sweeper Sweeper, interval time.Duration, log *zap.SugaredLogger) *CleanupScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Named("scheduler")
	}
	return &CleanupScheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   log,
	}
}

// Interval returns the sweep period
func (s *CleanupScheduler) Interval() time.Duration {
	return s.interval
}

// Start begins the sweep loop. Calling it while running does nothing.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(ctx, done)
	s.logger.Infow("Cleanup scheduler started", logger.FieldInterval, s.interval)
}

// Stop cancels the loop and waits for an in-flight sweep to finish. It is safe
// to call repeatedly or before Start.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Infow("Cleanup scheduler stopped")
}

// Running reports whether the loop is active
func (s *CleanupScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *CleanupScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var ticks int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks++
			if err := s.tick(); err != nil {
				s.logger.Warnw("Cleanup tick error", logger.FieldError, err, "tick", ticks)
			}
		}
	}
}

// tick runs one sweep and turns a panic into an error so the loop survives
func (s *CleanupScheduler) tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("sweep panicked: %v", r)
		}
	}()

	if removed := s.sweeper.CleanupExpiredLinks(); removed > 0 {
		s.logger.Infow("Removed expired links", logger.FieldCount, removed)
	}
	return nil
}
