package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/shopspring/decimal"
)

type CreateAppropriationRequest struct {
	SbsysID   string
	CaseID    snowflake.ID
	SectionID *snowflake.ID
	Note      string
}

// GrantRequest approves a set of the appropriation's activities. The main
// activity must be among them or already granted.
type GrantRequest struct {
	AppropriationID snowflake.ID
	ActivityIDs     []snowflake.ID
	ApprovalLevelID *snowflake.ID
	ApprovalNote    string
}

type Service interface {
	Create(ctx context.Context, req CreateAppropriationRequest) (*Appropriation, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Appropriation, error)
	GetBySbsysID(ctx context.Context, sbsysID string) (*Appropriation, error)
	ListByCase(ctx context.Context, caseID snowflake.ID) ([]Appropriation, error)

	// Grant approves the listed activities. Granting a revision truncates
	// the chain's previously granted revision to the day before the new
	// revision starts and reconciles its payments.
	Grant(ctx context.Context, req GrantRequest) error

	// TotalGrantedThisYear sums this year's cost of the newest granted
	// revision of every chain.
	TotalGrantedThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error)
	// TotalExpectedThisYear sums this year's cost of the newest granted or
	// expected revision of every chain; an expected revision overrides the
	// granted one it modifies.
	TotalExpectedThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error)

	// MainActivity returns the newest revision of the appropriation's main
	// activity chain, or nil when none exists.
	MainActivity(ctx context.Context, id snowflake.ID) (*activitydomain.Activity, error)
	// Expired reports whether the appropriation's granted main activity has
	// ended.
	Expired(ctx context.Context, id snowflake.ID) (bool, error)
	ListExpired(ctx context.Context) ([]Appropriation, error)
	ListOngoing(ctx context.Context) ([]Appropriation, error)

	SaveSection(ctx context.Context, section *Section) error
	SaveApprovalLevel(ctx context.Context, level *ApprovalLevel) error
}
