// Package scheduler runs jobs at a wall-clock time of day or on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Job func(ctx context.Context) error

type entry struct {
	name string
	job  Job
	// next returns the first run strictly after now.
	next func(now time.Time) time.Time
}

type Scheduler struct {
	loc     *time.Location
	now     func() time.Time
	entries []entry

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, now: time.Now}
}

// AddDaily runs job every day at "HH:MM" in the scheduler's location.
func (s *Scheduler) AddDaily(name, at string, job Job) error {
	hour, minute, err := ParseClock(at)
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.entries = append(s.entries, entry{
		name: name,
		job:  job,
		next: func(now time.Time) time.Time { return NextDaily(now.In(s.loc), hour, minute) },
	})
	return nil
}

func (s *Scheduler) AddInterval(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	s.entries = append(s.entries, entry{
		name: name,
		job:  job,
		next: func(now time.Time) time.Time { return now.Add(every) },
	})
	return nil
}

// Start launches one goroutine per job. Jobs stop when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
	logrus.Infof("scheduler started with %d jobs", len(s.entries))
}

// Stop cancels all jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	logrus.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()

	for {
		wait := e.next(s.now()).Sub(s.now())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			start := s.now()
			if err := e.job(ctx); err != nil {
				logrus.WithField("job", e.name).WithError(err).Error("scheduled job failed")
				continue
			}
			logrus.WithField("job", e.name).Debugf("scheduled job finished in %v", s.now().Sub(start))
		}
	}
}

// ParseClock parses "HH:MM" in 24h form.
func ParseClock(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q, want HH:MM", at)
	}
	return t.Hour(), t.Minute(), nil
}

// NextDaily returns the first hour:minute strictly after now, in now's location.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}
