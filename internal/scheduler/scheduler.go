package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Refresher re-issues the dashboard reads.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler periodically refreshes the dashboard.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	log       logrus.FieldLogger
}

// New creates a new Scheduler. An interval of zero or less disables it.
func New(interval time.Duration, target Refresher, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens one interval from now; the session start already
// loaded every view.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Debug("scheduler: refresh interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		s.log.Debug("scheduler: refreshing dashboard")
		s.target.Refresh(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
