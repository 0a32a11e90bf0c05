package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Span is the date range a schedule's payments must cover. A nil End means
// open-ended; the synchronizer bounds it to the end of next calendar year.
type Span struct {
	Start time.Time
	End   *time.Time
}

type CreateScheduleRequest struct {
	ActivityID       *snowflake.ID
	PaymentType      PaymentType
	PaymentFrequency string
	PaymentAmount    decimal.Decimal
	PaymentUnits     int64
	PaymentDate      *time.Time
	RecipientType    RecipientType
	RecipientID      string
	RecipientName    string
	PaymentMethod    PaymentMethod
}

type MarkPaidRequest struct {
	PaymentID  snowflake.ID
	PaidDate   time.Time
	PaidAmount decimal.Decimal
}

type Service interface {
	Create(ctx context.Context, req CreateScheduleRequest) (*PaymentSchedule, error)
	GetByID(ctx context.Context, id snowflake.ID) (*PaymentSchedule, error)
	GetByActivityID(ctx context.Context, activityID snowflake.ID) (*PaymentSchedule, error)

	// GeneratePayments creates the initial payment set for the span.
	GeneratePayments(ctx context.Context, scheduleID snowflake.ID, span Span, vatFactor decimal.Decimal) error
	// SynchronizePayments reconciles the persisted payment set against the
	// span, preserving paid payments. A schedule with no payments yet is
	// left untouched.
	SynchronizePayments(ctx context.Context, scheduleID snowflake.ID, span Span, vatFactor decimal.Decimal) error

	MarkPaid(ctx context.Context, req MarkPaidRequest) error

	Payments(ctx context.Context, scheduleID snowflake.ID) ([]Payment, error)
	AmountSum(ctx context.Context, scheduleID snowflake.ID) (decimal.Decimal, error)
	StrictAmountSum(ctx context.Context, scheduleID snowflake.ID) (decimal.Decimal, error)
	AmountSumInYear(ctx context.Context, scheduleID snowflake.ID, year int) (decimal.Decimal, error)
	MonthlyAmounts(ctx context.Context, scheduleID snowflake.ID) ([]MonthlyAmount, error)
}
