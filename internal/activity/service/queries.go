package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/activity/domain"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/shopspring/decimal"
)

func (s *Service) TotalCost(ctx context.Context, id snowflake.ID) (decimal.Decimal, error) {
	schedule, err := s.scheduleFor(ctx, id)
	if err != nil || schedule == nil {
		return decimal.Zero, err
	}
	return s.schedules.AmountSum(ctx, schedule.ID)
}

func (s *Service) TotalCostThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error) {
	return s.TotalCostInYear(ctx, id, s.clock.Now().Year())
}

func (s *Service) TotalCostInYear(ctx context.Context, id snowflake.ID, year int) (decimal.Decimal, error) {
	schedule, err := s.scheduleFor(ctx, id)
	if err != nil || schedule == nil {
		return decimal.Zero, err
	}
	return s.schedules.AmountSumInYear(ctx, schedule.ID, year)
}

func (s *Service) MonthlyPaymentPlan(ctx context.Context, id snowflake.ID) ([]paymentdomain.MonthlyAmount, error) {
	schedule, err := s.scheduleFor(ctx, id)
	if err != nil || schedule == nil {
		return nil, err
	}
	return s.schedules.MonthlyAmounts(ctx, schedule.ID)
}

// scheduleFor resolves the activity's payment plan. Activities without one
// cost nothing.
func (s *Service) scheduleFor(ctx context.Context, id snowflake.ID) (*paymentdomain.PaymentSchedule, error) {
	schedule, err := s.schedules.GetByActivityID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrScheduleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return schedule, nil
}

func (s *Service) LatestRevisions(ctx context.Context, appropriationID snowflake.ID) ([]domain.Activity, error) {
	sub := s.db.Model(&domain.Activity{}).
		Select("chain_id, MAX(revision) AS revision").
		Where("appropriation_id = ?", appropriationID).
		Group("chain_id")

	var rows []domain.Activity
	err := s.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Joins("JOIN (?) latest ON activities.chain_id = latest.chain_id AND activities.revision = latest.revision", sub).
		Where("activities.appropriation_id = ?", appropriationID).
		Order("activities.chain_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) LatestRevisionsByStatus(ctx context.Context, appropriationID snowflake.ID, status domain.ActivityStatus) ([]domain.Activity, error) {
	sub := s.db.Model(&domain.Activity{}).
		Select("chain_id, MAX(revision) AS revision").
		Where("appropriation_id = ? AND status = ?", appropriationID, status).
		Group("chain_id")

	var rows []domain.Activity
	err := s.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Joins("JOIN (?) latest ON activities.chain_id = latest.chain_id AND activities.revision = latest.revision", sub).
		Where("activities.appropriation_id = ? AND activities.status = ?", appropriationID, status).
		Order("activities.chain_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) ExpiringOn(ctx context.Context, date time.Time) ([]domain.Activity, error) {
	day := recurrence.DateOf(date)
	sub := s.db.Model(&domain.Activity{}).
		Select("chain_id, MAX(revision) AS revision").
		Where("status = ?", domain.StatusGranted).
		Group("chain_id")

	var rows []domain.Activity
	err := s.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Joins("JOIN (?) latest ON activities.chain_id = latest.chain_id AND activities.revision = latest.revision", sub).
		Where("activities.status = ? AND activities.end_date = ?", domain.StatusGranted, day).
		Order("activities.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
