package service

import (
	"context"
	"fmt"

	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/nordkom/caseflow/internal/clock"
	"github.com/nordkom/caseflow/internal/notification/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Activities activitydomain.Service
	Sender     domain.Sender
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	activities activitydomain.Service
	sender     domain.Sender
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		log:        p.Log.Named("notification.service"),
		clock:      p.Clock,
		activities: p.Activities,
		sender:     p.Sender,
	}
}

func (s *Service) NotifyExpired(ctx context.Context) (int, error) {
	yesterday := recurrence.DateOf(s.clock.Now()).AddDate(0, 0, -1)
	expired, err := s.activities.ExpiringOn(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("notify expired: %w", err)
	}

	sent := 0
	for _, activity := range expired {
		notice := domain.ExpiryNotice{
			ActivityID:      activity.ID,
			AppropriationID: activity.AppropriationID,
			EndDate:         *activity.EndDate,
		}
		if err := s.sender.Send(ctx, notice); err != nil {
			return sent, fmt.Errorf("notify expired: %w", err)
		}
		sent++
	}

	if sent > 0 {
		s.log.Info("sent expiry notices",
			zap.String("end_date", yesterday.Format("2006-01-02")),
			zap.Int("count", sent),
		)
	}
	return sent, nil
}

// LogSender is the default Sender; it records the notice in the log and
// leaves delivery to external systems.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) domain.Sender {
	return &LogSender{log: log.Named("notification.sender")}
}

func (l *LogSender) Send(_ context.Context, notice domain.ExpiryNotice) error {
	l.log.Info("activity expired",
		zap.String("activity_id", notice.ActivityID.String()),
		zap.String("appropriation_id", notice.AppropriationID.String()),
		zap.String("end_date", notice.EndDate.Format("2006-01-02")),
	)
	return nil
}
