// Package domain contains persistence models for payment schedules.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/shopspring/decimal"
)

// PaymentType determines how a schedule's per-payment amount is derived.
type PaymentType string

const (
	PaymentTypeOneTime PaymentType = "ONE_TIME_PAYMENT"
	PaymentTypeRunning PaymentType = "RUNNING_PAYMENT"
	PaymentTypePerHour PaymentType = "PER_HOUR_PAYMENT"
	PaymentTypePerKM   PaymentType = "PER_KM_PAYMENT"
)

// PaymentMethod is how the money leaves the municipality.
type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "CASH"
	PaymentMethodInvoice PaymentMethod = "INVOICE"
)

// RecipientType classifies who receives the payments.
type RecipientType string

const (
	RecipientTypePerson   RecipientType = "PERSON"
	RecipientTypeCompany  RecipientType = "COMPANY"
	RecipientTypeInternal RecipientType = "INTERNAL"
)

var (
	ErrInvalidPaymentType = errors.New("invalid_payment_type")
	ErrScheduleNotFound   = errors.New("payment_schedule_not_found")
)

var hundred = decimal.NewFromInt(100)

// PaymentSchedule is the configuration for a recurring or one-time payment
// obligation. It exclusively owns its Payment rows.
type PaymentSchedule struct {
	ID               snowflake.ID         `gorm:"primaryKey"`
	ActivityID       *snowflake.ID        `gorm:"uniqueIndex"`
	PaymentType      PaymentType          `gorm:"type:text;not null"`
	PaymentFrequency recurrence.Frequency `gorm:"type:text"`
	PaymentAmount    decimal.Decimal      `gorm:"type:numeric;not null"`
	PaymentUnits     int64                `gorm:"not null;default:0"`
	PaymentDate      *time.Time           `gorm:"type:date"`
	RecipientType    RecipientType        `gorm:"type:text;not null;default:'PERSON'"`
	RecipientID      string               `gorm:"type:text"`
	RecipientName    string               `gorm:"type:text"`
	PaymentMethod    PaymentMethod        `gorm:"type:text;not null;default:'CASH'"`
	CreatedAt        time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Payments []Payment `gorm:"foreignKey:PaymentScheduleID"`
}

// TableName sets the database table name.
func (PaymentSchedule) TableName() string { return "payment_schedules" }

// RequiresRecurrence reports whether the schedule needs a valid frequency.
func (s PaymentSchedule) RequiresRecurrence() bool {
	return s.PaymentType != PaymentTypeOneTime
}

// PerPaymentAmount computes the amount of a single payment for the
// schedule's current configuration. vatFactor is a percentage; 100 means no
// adjustment.
func (s PaymentSchedule) PerPaymentAmount(vatFactor decimal.Decimal) (decimal.Decimal, error) {
	switch s.PaymentType {
	case PaymentTypeOneTime, PaymentTypeRunning:
		return s.PaymentAmount.Mul(vatFactor).Div(hundred), nil
	case PaymentTypePerHour, PaymentTypePerKM:
		units := decimal.NewFromInt(s.PaymentUnits)
		return s.PaymentAmount.Mul(units).Mul(vatFactor).Div(hundred), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPaymentType, string(s.PaymentType))
	}
}

// Occurrences returns the required payment dates for the span. One-time
// schedules yield a single occurrence on their fixed payment date (falling
// back to start) no matter what the frequency field holds.
func (s PaymentSchedule) Occurrences(start, end time.Time) ([]time.Time, error) {
	if s.PaymentType == PaymentTypeOneTime {
		d := start
		if s.PaymentDate != nil {
			d = *s.PaymentDate
		}
		return []time.Time{recurrence.DateOf(d)}, nil
	}
	return recurrence.Between(s.PaymentFrequency, start, end)
}

// Payment is one concrete scheduled obligation instance. Once marked paid it
// is frozen: synchronization never re-dates, re-prices or deletes it.
type Payment struct {
	ID                snowflake.ID     `gorm:"primaryKey"`
	PaymentScheduleID snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_payment_schedule_date,priority:1"`
	Date              time.Time        `gorm:"type:date;not null;uniqueIndex:ux_payment_schedule_date,priority:2"`
	Amount            decimal.Decimal  `gorm:"type:numeric;not null"`
	Paid              bool             `gorm:"not null;default:false"`
	PaidDate          *time.Time       `gorm:"type:date"`
	PaidAmount        *decimal.Decimal `gorm:"type:numeric"`
	Note              string           `gorm:"type:text"`
	CreatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

func (p Payment) String() string {
	return fmt.Sprintf("%s - %s", p.Date.Format("2006-01-02"), p.Amount)
}

// EffectiveDate is the paid date when the payment is paid, else the
// scheduled date.
func (p Payment) EffectiveDate() time.Time {
	if p.Paid && p.PaidDate != nil {
		return *p.PaidDate
	}
	return p.Date
}

// EffectiveAmount is the paid amount when the payment is paid, else the
// scheduled amount.
func (p Payment) EffectiveAmount() decimal.Decimal {
	if p.Paid && p.PaidAmount != nil {
		return *p.PaidAmount
	}
	return p.Amount
}
