// Package retention prunes aged request logs on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Config controls the purge job.
type Config struct {
	Schedule       string
	RequestLogDays int
}

// Job periodically deletes request logs older than the retention
// window.
type Job struct {
	store storage.SettingsStore
	cfg   Config
	log   *logger.Logger
	cron  *cron.Cron
	now   func() time.Time
}

// New constructs the retention job. It does not start it.
func New(store storage.SettingsStore, cfg Config, log *logger.Logger) *Job {
	if log == nil {
		log = logger.NewDefault("retention")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	return &Job{store: store, cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Start schedules the purge. Returns an error for an invalid cron
// expression.
func (j *Job) Start() error {
	if j.cfg.RequestLogDays <= 0 {
		return fmt.Errorf("retention window must be positive, got %d days", j.cfg.RequestLogDays)
	}
	c := cron.New()
	if _, err := c.AddFunc(j.cfg.Schedule, func() {
		if err := j.RunOnce(context.Background()); err != nil {
			j.log.WithError(err).Error("request log purge failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", j.cfg.Schedule, err)
	}
	c.Start()
	j.cron = c
	j.log.WithField("schedule", j.cfg.Schedule).
		WithField("request_log_days", j.cfg.RequestLogDays).
		Info("retention job started")
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *Job) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// RunOnce purges immediately. Exposed so operators can trigger a purge
// outside the schedule.
func (j *Job) RunOnce(ctx context.Context) error {
	cutoff := j.now().AddDate(0, 0, -j.cfg.RequestLogDays)
	removed, err := j.store.PurgeRequestLogs(ctx, cutoff)
	if err != nil {
		return err
	}
	j.log.WithField("removed", removed).WithField("cutoff", cutoff.Format(time.RFC3339)).Info("request logs purged")
	return nil
}
