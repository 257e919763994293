package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/room-booking/internal/booking"
)

type countingChecker struct {
	calls int64
	err   error
}

func (c *countingChecker) PerformStatusCheck(ctx context.Context) (booking.Summary, error) {
	atomic.AddInt64(&c.calls, 1)
	return booking.Summary{}, c.err
}

func (c *countingChecker) count() int64 { return atomic.LoadInt64(&c.calls) }

func TestSchedulerRunsImmediatelyAndPeriodically(t *testing.T) {
	checker := &countingChecker{}
	s := New(checker, time.Second)
	s.interval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(110 * time.Millisecond)
	cancel()
	<-done

	// One immediate run plus roughly five ticks; exact counts depend on
	// scheduling, so only assert the floor.
	assert.GreaterOrEqual(t, checker.count(), int64(3))
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	checker := &countingChecker{}
	s := New(checker, time.Second)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	after := checker.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, checker.count(), "no further runs after stop")
}

func TestSchedulerKeepsRunningAfterCheckError(t *testing.T) {
	checker := &countingChecker{err: context.DeadlineExceeded}
	s := New(checker, time.Second)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.GreaterOrEqual(t, checker.count(), int64(2), "errors must not stop the loop")
}

func TestNewClampsTinyInterval(t *testing.T) {
	s := New(&countingChecker{}, 5*time.Millisecond)
	assert.Equal(t, time.Second, s.interval)
}
