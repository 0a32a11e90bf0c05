// Package scheduler runs the periodic background jobs: topping up
// open-ended payment plans as the horizon moves and notifying about
// activities that expired the previous day.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/nordkom/caseflow/internal/clock"
	notificationdomain "github.com/nordkom/caseflow/internal/notification/domain"
	obsmetrics "github.com/nordkom/caseflow/internal/observability/metrics"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Activities    activitydomain.Service
	Notifications notificationdomain.Service
	Config        Config `optional:"true"`
}

type Scheduler struct {
	db            *gorm.DB
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	activities    activitydomain.Service
	notifications notificationdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Activities == nil || p.Notifications == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:            p.DB,
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		clock:         p.Clock,
		activities:    p.Activities,
		notifications: p.Notifications,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)
	s.log.Debug("job started", zap.String("job", name))

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err != nil {
		schedMetrics.IncJobError(name)
		s.log.Warn("job failed", zap.String("job", name), zap.Error(err))
		return err
	}
	s.log.Debug("job finished",
		zap.String("job", name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"payments_resync", s.PaymentsResyncJob},
		{"expired_notifications", s.ExpiredNotificationsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PaymentsResyncJob reconciles every activity-bound payment plan against its
// activity's current span. Open-ended plans gain payments as the end of next
// calendar year moves forward.
func (s *Scheduler) PaymentsResyncJob(ctx context.Context) error {
	var jobErr error
	var lastID snowflake.ID

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		var schedules []paymentdomain.PaymentSchedule
		err := s.db.WithContext(ctx).
			Where("activity_id IS NOT NULL AND id > ?", lastID).
			Order("id").
			Limit(s.cfg.BatchSize).
			Find(&schedules).Error
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(schedules) == 0 {
			return jobErr
		}

		for _, schedule := range schedules {
			lastID = schedule.ID
			if err := s.activities.ResyncPayments(ctx, *schedule.ActivityID); err != nil {
				jobErr = errors.Join(jobErr, err)
				s.log.Warn("payment resync failed",
					zap.String("schedule_id", schedule.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// ExpiredNotificationsJob notifies about activities whose end date was
// yesterday.
func (s *Scheduler) ExpiredNotificationsJob(ctx context.Context) error {
	sent, err := s.notifications.NotifyExpired(ctx)
	if err != nil {
		return err
	}
	if sent > 0 {
		s.log.Info("expiry notifications sent", zap.Int("count", sent))
	}
	return nil
}
