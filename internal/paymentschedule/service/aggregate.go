package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/nordkom/caseflow/pkg/db/option"
	"github.com/shopspring/decimal"
)

func (s *Service) Payments(ctx context.Context, scheduleID snowflake.ID) ([]domain.Payment, error) {
	rows, err := s.paymentrepo.Find(ctx,
		&domain.Payment{PaymentScheduleID: scheduleID},
		option.OrderBy("date"),
	)
	if err != nil {
		return nil, err
	}
	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, *row)
	}
	return payments, nil
}

func (s *Service) AmountSum(ctx context.Context, scheduleID snowflake.ID) (decimal.Decimal, error) {
	payments, err := s.Payments(ctx, scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.AmountSum(payments), nil
}

func (s *Service) StrictAmountSum(ctx context.Context, scheduleID snowflake.ID) (decimal.Decimal, error) {
	payments, err := s.Payments(ctx, scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.StrictAmountSum(payments), nil
}

func (s *Service) AmountSumInYear(ctx context.Context, scheduleID snowflake.ID, year int) (decimal.Decimal, error) {
	payments, err := s.Payments(ctx, scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.AmountSum(domain.InYear(payments, year)), nil
}

func (s *Service) MonthlyAmounts(ctx context.Context, scheduleID snowflake.ID) ([]domain.MonthlyAmount, error) {
	payments, err := s.Payments(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return domain.GroupByMonthlyAmounts(payments), nil
}
