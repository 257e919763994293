// Package scheduler runs the periodic booking status check.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/room-booking/internal/booking"
)

// statusChecker is the slice of the lifecycle manager the scheduler
// needs; the narrow interface keeps tests free of a real store.
type statusChecker interface {
	PerformStatusCheck(ctx context.Context) (booking.Summary, error)
}

// Scheduler triggers the status check at a fixed interval so bookings
// converge even when no request traffic forces a check.
type Scheduler struct {
	checker  statusChecker
	interval time.Duration
}

// New constructs a Scheduler.  Intervals below one second are raised to
// one second to keep a misconfigured deployment from hammering the
// database.
func New(checker statusChecker, interval time.Duration) *Scheduler {
	if checker == nil {
		panic("nil checker passed to scheduler.New")
	}
	if interval < time.Second {
		interval = time.Second
	}
	return &Scheduler{checker: checker, interval: interval}
}

// Start runs one immediate check and then one per interval until ctx is
// cancelled.  It blocks; run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("scheduler: started, interval=%s", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	sum, err := s.checker.PerformStatusCheck(ctx)
	if err != nil {
		log.Printf("scheduler: status check failed: %v", err)
		return
	}
	if sum.Touched > 0 || sum.Failed > 0 {
		log.Printf("scheduler: status check approved=%d expired=%d failed=%d", sum.Approved, sum.Expired, sum.Failed)
	}
}
