package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"schoolhub/internal/config"
	"schoolhub/internal/metrics"
	"schoolhub/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 10 * time.Minute

// OverdueProcessor flips past-due fees and sends reminders.
type OverdueProcessor interface {
	ProcessOverdue(ctx context.Context) (*services.OverdueRun, error)
}

// WhitelistPurger removes expired, unused whitelist entries.
type WhitelistPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic maintenance jobs of the service.
type Scheduler struct {
	scheduler gocron.Scheduler
	fees      OverdueProcessor
	whitelist WhitelistPurger
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewScheduler registers the overdue fee job daily at cfg.OverdueFeesAt and
// the whitelist purge every cfg.WhitelistPurge.
func NewScheduler(cfg config.JobsConfig, fees OverdueProcessor, whitelist WhitelistPurger, m *metrics.Metrics, log logrus.FieldLogger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{
		scheduler: scheduler,
		fees:      fees,
		whitelist: whitelist,
		metrics:   m,
		log:       log.WithField("component", "jobs"),
		jobs:      make(map[string]gocron.Job),
	}

	if err := s.register("overdue-fees",
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(cfg.OverdueFeesAt), 0, 0))),
		s.RunOverdueFees,
	); err != nil {
		return nil, err
	}
	if err := s.register("whitelist-purge", gocron.DurationJob(cfg.WhitelistPurge), s.PurgeWhitelist); err != nil {
		return nil, err
	}

	s.log.WithField("jobs", len(s.jobs)).Info("registered background jobs")
	return s, nil
}

func (s *Scheduler) register(name string, def gocron.JobDefinition, run func(context.Context) error) error {
	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := run(ctx); err != nil {
				s.log.WithError(err).WithField("job", name).Error("job failed")
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[name] = job
	s.mu.Unlock()
	return nil
}

// Start starts the job scheduler
func (s *Scheduler) Start() {
	s.log.Info("starting background job scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	s.log.Info("stopping background job scheduler")
	return s.scheduler.Shutdown()
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// RunOverdueFees marks past-due fees overdue and emails the parents.
func (s *Scheduler) RunOverdueFees(ctx context.Context) error {
	run, err := s.fees.ProcessOverdue(ctx)
	if err != nil {
		return fmt.Errorf("process overdue fees: %w", err)
	}

	if s.metrics != nil {
		s.metrics.OverdueFeesMarkedTotal.Add(float64(run.Marked))
		s.metrics.FeeRemindersSentTotal.WithLabelValues("sent").Add(float64(run.RemindersSent))
		s.metrics.FeeRemindersSentTotal.WithLabelValues("failed").Add(float64(run.Failed))
	}
	s.log.WithFields(logrus.Fields{
		"marked":         run.Marked,
		"reminders_sent": run.RemindersSent,
		"failed":         run.Failed,
	}).Info("overdue fee run complete")
	return nil
}

func (s *Scheduler) PurgeWhitelist(ctx context.Context) error {
	n, err := s.whitelist.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge whitelist: %w", err)
	}
	if n > 0 {
		s.log.WithField("removed", n).Info("purged expired whitelist entries")
	}
	return nil
}
