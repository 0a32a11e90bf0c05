// Package domain contains persistence models for appropriations and the
// legal sections they are granted under.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrAppropriationNotFound      = errors.New("appropriation_not_found")
	ErrActivityNotInAppropriation = errors.New("activity_not_in_appropriation")
	ErrMainActivityNotGranted     = errors.New("main_activity_not_granted")
	ErrSbsysIDConflict            = errors.New("sbsys_id_conflict")
)

// Appropriation ties a case to a section of the law and carries the
// activities granted under it.
type Appropriation struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	SbsysID   string        `gorm:"type:text;not null;uniqueIndex"`
	CaseID    snowflake.ID  `gorm:"not null;index"`
	SectionID *snowflake.ID `gorm:"index"`
	Note      string        `gorm:"type:text"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Appropriation) TableName() string { return "appropriations" }

// Section is a paragraph of the law appropriations can be granted under.
type Section struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Paragraph       string       `gorm:"type:text;not null;index"`
	KLENumber       string       `gorm:"type:text"`
	SBSYSTemplateID string       `gorm:"type:text"`
	Text            string       `gorm:"type:text"`
	LawTextName     string       `gorm:"type:text"`
	DSTCode         string       `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Section) TableName() string { return "sections" }

// ApprovalLevel is the organisational level an activity was approved at.
type ApprovalLevel struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null;uniqueIndex"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ApprovalLevel) TableName() string { return "approval_levels" }
