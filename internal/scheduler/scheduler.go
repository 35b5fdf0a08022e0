// Package scheduler runs the stock check cycle on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MinInterval is the shortest accepted polling interval.
const MinInterval = time.Second

// ErrInterval is returned for intervals below MinInterval.
var ErrInterval = errors.New("polling interval is too short")

// CycleFunc runs one cycle. It is usually checker.Checker.RunOnce adapted to drop the result.
type CycleFunc func(ctx context.Context) error

// Scheduler waits an interval, runs a cycle, and repeats until stopped.
type Scheduler struct {
	log *slog.Logger
	run CycleFunc
	min time.Duration

	mu       sync.Mutex
	running  bool
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New creates a stopped Scheduler.
func New(log *slog.Logger, run CycleFunc) *Scheduler {
	return &Scheduler{log: log, run: run, min: MinInterval}
}

// ValidateInterval reports whether interval is usable.
func ValidateInterval(interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("%w: %s, minimum is %s", ErrInterval, interval, MinInterval)
	}

	return nil
}

// Start launches the loop. It returns false if the loop is already running or
// the interval is invalid.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) bool {
	const opn = "scheduler.Start"

	if interval < s.min {
		s.log.WarnContext(ctx, "Refusing to start monitoring", "op", opn,
			"error", ErrInterval, "interval", interval.String())
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	s.running = true
	s.interval = interval
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(ctx, interval, s.stop, s.done)

	s.log.InfoContext(ctx, "Monitoring started", "op", opn, "interval", interval.String())

	return true
}

// Stop ends the loop. A cycle that is already running completes; no new cycle starts.
// Stop does not wait for the loop to exit, use Wait for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stop)

	s.log.Info("Monitoring stopped", "op", "scheduler.Stop")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Interval returns the interval of the current or last loop.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.interval
}

// Wait blocks until the most recently started loop has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer s.markStopped(stop)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Stop may race with the timer; honour it before starting a cycle.
		select {
		case <-stop:
			return
		default:
		}

		s.runCycle(ctx)
		timer.Reset(interval)
	}
}

// markStopped clears the running flag when the loop exits on its own (context canceled).
func (s *Scheduler) markStopped(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == stop {
		s.running = false
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	const opn = "scheduler.runCycle"

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "Cycle panicked, monitoring continues", "op", opn, "panic", fmt.Sprint(r))
		}
	}()

	if err := s.run(ctx); err != nil {
		s.log.ErrorContext(ctx, "Cycle failed, monitoring continues", "op", opn, "error", err)
	}
}
