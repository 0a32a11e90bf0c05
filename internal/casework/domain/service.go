package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CreateCaseRequest struct {
	SbsysID                 string
	CprNumber               string
	Name                    string
	TeamID                  *snowflake.ID
	SchoolDistrictID        *snowflake.ID
	PayingMunicipalityID    *snowflake.ID
	ActingMunicipalityID    *snowflake.ID
	ResidenceMunicipalityID *snowflake.ID
	TargetGroup             string
	EffortStep              string
	ScalingStep             int
	Note                    string
	Metadata                datatypes.JSONMap
}

type Service interface {
	Create(ctx context.Context, req CreateCaseRequest) (*Case, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Case, error)
	GetBySbsysID(ctx context.Context, sbsysID string) (*Case, error)

	// Expired reports whether the case has appropriations and all of them
	// have ended.
	Expired(ctx context.Context, id snowflake.ID) (bool, error)
	ListExpired(ctx context.Context) ([]Case, error)
	ListOngoing(ctx context.Context) ([]Case, error)
	// ChangedWithin returns cases last updated within [from, to]. A nil to
	// leaves the range open.
	ChangedWithin(ctx context.Context, from time.Time, to *time.Time) ([]Case, error)

	SaveMunicipality(ctx context.Context, municipality *Municipality) error
	SaveSchoolDistrict(ctx context.Context, district *SchoolDistrict) error
	SaveTeam(ctx context.Context, team *Team) error
}
