package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrProviderNotFound   = errors.New("service_provider_not_found")
	ErrMainActivityExists = errors.New("main_activity_exists")
)

// CreateActivityRequest creates a new activity. When ModifiesChainID is set
// the activity becomes the next revision of that chain instead of starting
// a new one.
type CreateActivityRequest struct {
	AppropriationID   snowflake.ID
	DetailsID         *snowflake.ID
	ServiceProviderID *snowflake.ID
	ActivityType      ActivityType
	Status            ActivityStatus
	StartDate         *time.Time
	EndDate           *time.Time
	ApprovalNote      string
	ModifiesChainID   *snowflake.ID
	PaymentPlan       *paymentdomain.CreateScheduleRequest
}

// UpdateSpanRequest replaces an activity's start and end dates. Nil clears
// the date; a cleared end date makes the activity open-ended.
type UpdateSpanRequest struct {
	ActivityID snowflake.ID
	StartDate  *time.Time
	EndDate    *time.Time
}

type GrantRequest struct {
	ActivityID      snowflake.ID
	ApprovalLevelID *snowflake.ID
	ApprovalNote    string
}

type Service interface {
	Create(ctx context.Context, req CreateActivityRequest) (*Activity, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Activity, error)

	// UpdateSpan changes the activity's dates and reconciles its payment
	// plan against the new span.
	UpdateSpan(ctx context.Context, req UpdateSpanRequest) (*Activity, error)
	// ResyncPayments reconciles the activity's payment plan against its
	// current dates without changing them. Used by the scheduler to keep
	// open-ended plans topped up as the horizon moves.
	ResyncPayments(ctx context.Context, id snowflake.ID) error
	// Grant marks the activity granted and stamps the appropriation date
	// with the current date.
	Grant(ctx context.Context, req GrantRequest) (*Activity, error)

	TotalCost(ctx context.Context, id snowflake.ID) (decimal.Decimal, error)
	TotalCostThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error)
	TotalCostInYear(ctx context.Context, id snowflake.ID, year int) (decimal.Decimal, error)
	MonthlyPaymentPlan(ctx context.Context, id snowflake.ID) ([]paymentdomain.MonthlyAmount, error)

	// LatestRevisions returns the newest revision of every chain under the
	// appropriation, optionally restricted to a status.
	LatestRevisions(ctx context.Context, appropriationID snowflake.ID) ([]Activity, error)
	LatestRevisionsByStatus(ctx context.Context, appropriationID snowflake.ID, status ActivityStatus) ([]Activity, error)
	// ExpiringOn returns granted latest revisions whose end date equals the
	// given date.
	ExpiringOn(ctx context.Context, date time.Time) ([]Activity, error)

	SaveServiceProvider(ctx context.Context, provider *ServiceProvider) error
	SaveDetails(ctx context.Context, details *ActivityDetails) error
}
