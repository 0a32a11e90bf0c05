// Package domain contains persistence models for service activities.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ActivityType separates the single main activity of an appropriation from
// its supplementary ones.
type ActivityType string

const (
	ActivityTypeMain          ActivityType = "MAIN_ACTIVITY"
	ActivityTypeSupplementary ActivityType = "SUPPL_ACTIVITY"
)

// ActivityStatus is the granting state of an activity revision.
type ActivityStatus string

const (
	StatusDraft    ActivityStatus = "DRAFT"
	StatusExpected ActivityStatus = "EXPECTED"
	StatusGranted  ActivityStatus = "GRANTED"
)

var ErrActivityNotFound = errors.New("activity_not_found")

// Activity is a granted/expected/draft unit of service delivery. Revisions
// of the same grant share a ChainID; the highest Revision is the current
// state of the chain.
type Activity struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	AppropriationID   snowflake.ID   `gorm:"not null;index"`
	DetailsID         *snowflake.ID  `gorm:"index"`
	ServiceProviderID *snowflake.ID  `gorm:"index"`
	ActivityType      ActivityType   `gorm:"type:text;not null"`
	Status            ActivityStatus `gorm:"type:text;not null;default:'DRAFT'"`
	StartDate         *time.Time     `gorm:"type:date"`
	EndDate           *time.Time     `gorm:"type:date"`
	AppropriationDate *time.Time     `gorm:"type:date"`
	ApprovalLevelID   *snowflake.ID  `gorm:""`
	ApprovalNote      string         `gorm:"type:text"`
	ChainID           snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_activity_chain_revision,priority:1"`
	Revision          int            `gorm:"not null;default:1;uniqueIndex:ux_activity_chain_revision,priority:2"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }

// Expired reports whether the activity's end date has passed. Open-ended
// and future-dated activities are ongoing.
func (a Activity) Expired(today time.Time) bool {
	return a.EndDate != nil && a.EndDate.Before(today)
}

// ServiceProvider is an external provider whose VAT factor scales payment
// amounts.
type ServiceProvider struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	CVRNumber string          `gorm:"type:text"`
	Name      string          `gorm:"type:text;not null"`
	VATFactor decimal.Decimal `gorm:"type:numeric;not null;default:100"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ServiceProvider) TableName() string { return "service_providers" }

// ActivityDetails is catalogue data for a kind of activity.
type ActivityDetails struct {
	ID                    snowflake.ID    `gorm:"primaryKey"`
	ActivityCode          string          `gorm:"type:text;not null;index"`
	Name                  string          `gorm:"type:text;not null"`
	MaxToleranceInDKK     decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	MaxToleranceInPercent int             `gorm:"not null;default:0"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ActivityDetails) TableName() string { return "activity_details" }
