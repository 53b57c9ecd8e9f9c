package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/app"
)

// ReminderJob is the batch the scheduler triggers.
type ReminderJob interface {
	Run(ctx context.Context) (app.RunReport, error)
}

type ReminderScheduler struct {
	cronEngine *cron.Cron
	job        ReminderJob
	logger     logrus.FieldLogger
	cronSpec   string // e.g. "0 18 * * *" (18:00 daily)
	timeout    time.Duration
}

func NewReminderScheduler(
	job ReminderJob,
	logger logrus.FieldLogger,
	cronSpec string,
	timeout time.Duration,
	loc *time.Location,
) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		job:        job,
		logger:     logger,
		cronSpec:   cronSpec,
		timeout:    timeout,
	}
}

// Start registers the reminder job and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting reminder scheduler...")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runOnce); err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.Info("Reminder scheduler started.")
	return nil
}

func (s *ReminderScheduler) runOnce() {
	s.logger.Info("Cron job triggered for calorie reminders.")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.job.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Calorie reminder run failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"sent":   report.Sent,
		"failed": report.Failed,
	}).Info("Calorie reminder run finished.")
}

// Stop stops scheduling new runs and waits for a running one to finish.
func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
