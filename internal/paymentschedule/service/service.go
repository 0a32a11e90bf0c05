package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/clock"
	obsmetrics "github.com/nordkom/caseflow/internal/observability/metrics"
	"github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/nordkom/caseflow/pkg/db"
	"github.com/nordkom/caseflow/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	schedulerepo repository.Repository[domain.PaymentSchedule]
	paymentrepo  repository.Repository[domain.Payment]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("paymentschedule.service"),
		genID: p.GenID,
		clock: p.Clock,

		schedulerepo: repository.ProvideStore[domain.PaymentSchedule](p.DB),
		paymentrepo:  repository.ProvideStore[domain.Payment](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateScheduleRequest) (*domain.PaymentSchedule, error) {
	schedule := &domain.PaymentSchedule{
		ID:               s.genID.Generate(),
		ActivityID:       req.ActivityID,
		PaymentType:      req.PaymentType,
		PaymentFrequency: recurrence.Frequency(req.PaymentFrequency),
		PaymentAmount:    req.PaymentAmount,
		PaymentUnits:     req.PaymentUnits,
		PaymentDate:      req.PaymentDate,
		RecipientType:    req.RecipientType,
		RecipientID:      req.RecipientID,
		RecipientName:    req.RecipientName,
		PaymentMethod:    req.PaymentMethod,
	}
	if schedule.RecipientType == "" {
		schedule.RecipientType = domain.RecipientTypePerson
	}
	if schedule.PaymentMethod == "" {
		schedule.PaymentMethod = domain.PaymentMethodCash
	}

	if err := s.schedulerepo.Create(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.PaymentSchedule, error) {
	schedule, err := s.schedulerepo.FindOne(ctx, &domain.PaymentSchedule{ID: id})
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return schedule, nil
}

func (s *Service) GetByActivityID(ctx context.Context, activityID snowflake.ID) (*domain.PaymentSchedule, error) {
	schedule, err := s.schedulerepo.FindOne(ctx, &domain.PaymentSchedule{ActivityID: &activityID})
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return schedule, nil
}

// horizonEnd bounds open-ended spans: 31 December of the year after "today".
func (s *Service) horizonEnd() time.Time {
	today := recurrence.DateOf(s.clock.Now())
	return recurrence.Date(today.Year()+1, time.December, 31)
}

func (s *Service) effectiveEnd(span domain.Span) time.Time {
	if span.End == nil {
		return s.horizonEnd()
	}
	return recurrence.DateOf(*span.End)
}

func (s *Service) GeneratePayments(ctx context.Context, scheduleID snowflake.ID, span domain.Span, vatFactor decimal.Decimal) error {
	syncMetrics := obsmetrics.Synchronizer()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.lockSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		dates, err := schedule.Occurrences(recurrence.DateOf(span.Start), s.effectiveEnd(span))
		if err != nil {
			return err
		}
		amount, err := schedule.PerPaymentAmount(vatFactor)
		if err != nil {
			return err
		}

		payments := make([]*domain.Payment, 0, len(dates))
		for _, date := range dates {
			payments = append(payments, &domain.Payment{
				ID:                s.genID.Generate(),
				PaymentScheduleID: schedule.ID,
				Date:              date,
				Amount:            amount,
			})
		}
		if err := s.paymentrepo.WithTrx(tx).BatchCreate(ctx, payments); err != nil {
			return err
		}

		syncMetrics.AddPaymentsCreated(len(payments))
		s.log.Debug("generated payments",
			zap.String("schedule_id", schedule.ID.String()),
			zap.Int("count", len(payments)),
		)
		return nil
	})
	if err != nil {
		syncMetrics.IncSyncError()
		return fmt.Errorf("generate payments: %w", err)
	}
	return nil
}

func (s *Service) SynchronizePayments(ctx context.Context, scheduleID snowflake.ID, span domain.Span, vatFactor decimal.Decimal) error {
	syncMetrics := obsmetrics.Synchronizer()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.lockSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}

		var existing []domain.Payment
		if err := tx.WithContext(ctx).
			Where("payment_schedule_id = ?", schedule.ID).
			Order("date").
			Find(&existing).Error; err != nil {
			return err
		}
		// Initial creation goes through GeneratePayments; synchronizing an
		// empty set is a no-op.
		if len(existing) == 0 {
			return nil
		}

		// Validate the configuration before touching anything so an invalid
		// frequency leaves the payment set untouched.
		dates, err := schedule.Occurrences(recurrence.DateOf(span.Start), s.effectiveEnd(span))
		if err != nil {
			return err
		}
		amount, err := schedule.PerPaymentAmount(vatFactor)
		if err != nil {
			return err
		}

		required := make(map[string]bool, len(dates))
		for _, date := range dates {
			required[dayKey(date)] = true
		}

		covered := make(map[string]bool, len(existing))
		var removeIDs []snowflake.ID
		for _, payment := range existing {
			key := dayKey(payment.Date)
			covered[key] = true
			if !payment.Paid && !required[key] {
				removeIDs = append(removeIDs, payment.ID)
			}
		}

		var toAdd []*domain.Payment
		for _, date := range dates {
			if covered[dayKey(date)] {
				continue
			}
			toAdd = append(toAdd, &domain.Payment{
				ID:                s.genID.Generate(),
				PaymentScheduleID: schedule.ID,
				Date:              date,
				Amount:            amount,
			})
		}

		if len(removeIDs) > 0 {
			if err := tx.WithContext(ctx).
				Where("id IN ?", removeIDs).
				Delete(&domain.Payment{}).Error; err != nil {
				return err
			}
		}
		if err := s.paymentrepo.WithTrx(tx).BatchCreate(ctx, toAdd); err != nil {
			return err
		}

		syncMetrics.AddPaymentsCreated(len(toAdd))
		syncMetrics.AddPaymentsDeleted(len(removeIDs))
		if len(toAdd) > 0 || len(removeIDs) > 0 {
			s.log.Info("synchronized payments",
				zap.String("schedule_id", schedule.ID.String()),
				zap.Int("added", len(toAdd)),
				zap.Int("removed", len(removeIDs)),
			)
		}
		return nil
	})
	if err != nil {
		syncMetrics.IncSyncError()
		return fmt.Errorf("synchronize payments: %w", err)
	}
	return nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) error {
	paidDate := recurrence.DateOf(req.PaidDate)
	result := s.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", req.PaymentID).
		Updates(map[string]any{
			"paid":        true,
			"paid_date":   paidDate,
			"paid_amount": req.PaidAmount,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) lockSchedule(ctx context.Context, tx *gorm.DB, scheduleID snowflake.ID) (*domain.PaymentSchedule, error) {
	var schedule domain.PaymentSchedule
	err := db.LockForUpdate(tx.WithContext(ctx)).
		Where("id = ?", scheduleID).
		First(&schedule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
