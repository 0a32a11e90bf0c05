package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	appropriationdomain "github.com/nordkom/caseflow/internal/appropriation/domain"
	"github.com/nordkom/caseflow/internal/casework/domain"
	"github.com/nordkom/caseflow/internal/clock"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/nordkom/caseflow/pkg/db"
	"github.com/nordkom/caseflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Appropriations appropriationdomain.Service
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	appropriations appropriationdomain.Service

	caserepo         repository.Repository[domain.Case]
	municipalityrepo repository.Repository[domain.Municipality]
	districtrepo     repository.Repository[domain.SchoolDistrict]
	teamrepo         repository.Repository[domain.Team]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("casework.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		appropriations: p.Appropriations,

		caserepo:         repository.ProvideStore[domain.Case](p.DB),
		municipalityrepo: repository.ProvideStore[domain.Municipality](p.DB),
		districtrepo:     repository.ProvideStore[domain.SchoolDistrict](p.DB),
		teamrepo:         repository.ProvideStore[domain.Team](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCaseRequest) (*domain.Case, error) {
	kase := &domain.Case{
		ID:                      s.genID.Generate(),
		SbsysID:                 req.SbsysID,
		CprNumber:               req.CprNumber,
		Name:                    req.Name,
		TeamID:                  req.TeamID,
		SchoolDistrictID:        req.SchoolDistrictID,
		PayingMunicipalityID:    req.PayingMunicipalityID,
		ActingMunicipalityID:    req.ActingMunicipalityID,
		ResidenceMunicipalityID: req.ResidenceMunicipalityID,
		TargetGroup:             req.TargetGroup,
		EffortStep:              req.EffortStep,
		ScalingStep:             req.ScalingStep,
		Note:                    req.Note,
		Metadata:                req.Metadata,
	}
	if kase.ScalingStep == 0 {
		kase.ScalingStep = 1
	}
	if err := s.caserepo.Create(ctx, kase); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSbsysIDConflict
		}
		return nil, err
	}
	return kase, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Case, error) {
	kase, err := s.caserepo.FindOne(ctx, &domain.Case{ID: id})
	if err != nil {
		return nil, err
	}
	if kase == nil {
		return nil, domain.ErrCaseNotFound
	}
	return kase, nil
}

func (s *Service) GetBySbsysID(ctx context.Context, sbsysID string) (*domain.Case, error) {
	kase, err := s.caserepo.FindOne(ctx, &domain.Case{SbsysID: sbsysID})
	if err != nil {
		return nil, err
	}
	if kase == nil {
		return nil, domain.ErrCaseNotFound
	}
	return kase, nil
}

func (s *Service) Expired(ctx context.Context, id snowflake.ID) (bool, error) {
	appropriations, err := s.appropriations.ListByCase(ctx, id)
	if err != nil {
		return false, err
	}
	if len(appropriations) == 0 {
		return false, nil
	}
	for _, appropriation := range appropriations {
		expired, err := s.appropriations.Expired(ctx, appropriation.ID)
		if err != nil {
			return false, err
		}
		if !expired {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) ListExpired(ctx context.Context) ([]domain.Case, error) {
	return s.listByExpiry(ctx, true)
}

func (s *Service) ListOngoing(ctx context.Context) ([]domain.Case, error) {
	return s.listByExpiry(ctx, false)
}

func (s *Service) listByExpiry(ctx context.Context, wantExpired bool) ([]domain.Case, error) {
	rows, err := s.caserepo.Find(ctx, &domain.Case{})
	if err != nil {
		return nil, err
	}
	var matched []domain.Case
	for _, row := range rows {
		expired, err := s.Expired(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		if expired == wantExpired {
			matched = append(matched, *row)
		}
	}
	return matched, nil
}

func (s *Service) ChangedWithin(ctx context.Context, from time.Time, to *time.Time) ([]domain.Case, error) {
	query := s.db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("updated_at >= ?", recurrence.DateOf(from))
	if to != nil {
		// Inclusive of the whole end day.
		query = query.Where("updated_at < ?", recurrence.DateOf(*to).AddDate(0, 0, 1))
	}

	var rows []domain.Case
	if err := query.Order("updated_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) SaveMunicipality(ctx context.Context, municipality *domain.Municipality) error {
	if municipality.ID == 0 {
		municipality.ID = s.genID.Generate()
	}
	return s.municipalityrepo.Create(ctx, municipality)
}

func (s *Service) SaveSchoolDistrict(ctx context.Context, district *domain.SchoolDistrict) error {
	if district.ID == 0 {
		district.ID = s.genID.Generate()
	}
	return s.districtrepo.Create(ctx, district)
}

func (s *Service) SaveTeam(ctx context.Context, team *domain.Team) error {
	if team.ID == 0 {
		team.ID = s.genID.Generate()
	}
	return s.teamrepo.Create(ctx, team)
}
