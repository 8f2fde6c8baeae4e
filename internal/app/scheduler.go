package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TaskFunc is one periodic unit of work. A returned error is logged; the
// task keeps its schedule.
type TaskFunc func(ctx context.Context) error

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	now      bool
}

// Scheduler runs named periodic tasks, each on its own ticker.
type Scheduler struct {
	logger zerolog.Logger
	tasks  []task
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers fn to run every interval, first after one interval.
func (s *Scheduler) Add(name string, interval time.Duration, fn TaskFunc) {
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn})
}

// AddNow is Add with one extra run as soon as the scheduler starts.
func (s *Scheduler) AddNow(name string, interval time.Duration, fn TaskFunc) {
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn, now: true})
}

// Run blocks until ctx is done. Ticks that overrun are dropped, never
// queued. Cancellation is a clean stop and returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, t := range s.tasks {
		if t.interval <= 0 {
			return errors.Errorf("task %s: non-positive interval %v", t.name, t.interval)
		}
	}

	errg, ctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		t := t
		errg.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	return errg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t task) {
	log := s.logger.With().Str("task", t.name).Logger()
	log.Debug().Dur("interval", t.interval).Msg("task started")

	if t.now {
		s.run(ctx, log, t)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("task stopped")
			return
		case <-ticker.C:
			s.run(ctx, log, t)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, log zerolog.Logger, t task) {
	if err := t.fn(ctx); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("task failed")
	}
}
