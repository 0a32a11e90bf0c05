// Package domain contains persistence models for cases and their
// organisational entities.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrCaseNotFound    = errors.New("case_not_found")
	ErrSbsysIDConflict = errors.New("sbsys_id_conflict")
)

// Case is a citizen's case. Appropriations are granted under a case.
type Case struct {
	ID                      snowflake.ID      `gorm:"primaryKey"`
	SbsysID                 string            `gorm:"type:text;not null;uniqueIndex"`
	CprNumber               string            `gorm:"type:text;not null;index"`
	Name                    string            `gorm:"type:text;not null"`
	TeamID                  *snowflake.ID     `gorm:"index"`
	SchoolDistrictID        *snowflake.ID     `gorm:"index"`
	PayingMunicipalityID    *snowflake.ID     `gorm:"index"`
	ActingMunicipalityID    *snowflake.ID     `gorm:"index"`
	ResidenceMunicipalityID *snowflake.ID     `gorm:"index"`
	TargetGroup             string            `gorm:"type:text"`
	EffortStep              string            `gorm:"type:text"`
	ScalingStep             int               `gorm:"not null;default:1"`
	Note                    string            `gorm:"type:text"`
	Metadata                datatypes.JSONMap `gorm:"type:json"`
	CreatedAt               time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt               time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Case) TableName() string { return "cases" }

// Municipality can pay for, act on or house a case.
type Municipality struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null;uniqueIndex"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Municipality) TableName() string { return "municipalities" }

type SchoolDistrict struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null;uniqueIndex"`
	Active    bool         `gorm:"not null;default:true"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SchoolDistrict) TableName() string { return "school_districts" }

type Team struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null;uniqueIndex"`
	LeaderID  *snowflake.ID
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }
