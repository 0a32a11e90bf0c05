package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/nordkom/caseflow/internal/appropriation/domain"
	"github.com/nordkom/caseflow/internal/clock"
	"github.com/nordkom/caseflow/pkg/db"
	"github.com/nordkom/caseflow/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Activities activitydomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	activities activitydomain.Service

	appropriationrepo repository.Repository[domain.Appropriation]
	sectionrepo       repository.Repository[domain.Section]
	levelrepo         repository.Repository[domain.ApprovalLevel]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("appropriation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		activities: p.Activities,

		appropriationrepo: repository.ProvideStore[domain.Appropriation](p.DB),
		sectionrepo:       repository.ProvideStore[domain.Section](p.DB),
		levelrepo:         repository.ProvideStore[domain.ApprovalLevel](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAppropriationRequest) (*domain.Appropriation, error) {
	appropriation := &domain.Appropriation{
		ID:        s.genID.Generate(),
		SbsysID:   req.SbsysID,
		CaseID:    req.CaseID,
		SectionID: req.SectionID,
		Note:      req.Note,
	}
	if err := s.appropriationrepo.Create(ctx, appropriation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSbsysIDConflict
		}
		return nil, err
	}
	return appropriation, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Appropriation, error) {
	appropriation, err := s.appropriationrepo.FindOne(ctx, &domain.Appropriation{ID: id})
	if err != nil {
		return nil, err
	}
	if appropriation == nil {
		return nil, domain.ErrAppropriationNotFound
	}
	return appropriation, nil
}

func (s *Service) GetBySbsysID(ctx context.Context, sbsysID string) (*domain.Appropriation, error) {
	appropriation, err := s.appropriationrepo.FindOne(ctx, &domain.Appropriation{SbsysID: sbsysID})
	if err != nil {
		return nil, err
	}
	if appropriation == nil {
		return nil, domain.ErrAppropriationNotFound
	}
	return appropriation, nil
}

func (s *Service) ListByCase(ctx context.Context, caseID snowflake.ID) ([]domain.Appropriation, error) {
	rows, err := s.appropriationrepo.Find(ctx, &domain.Appropriation{CaseID: caseID})
	if err != nil {
		return nil, err
	}
	appropriations := make([]domain.Appropriation, 0, len(rows))
	for _, row := range rows {
		appropriations = append(appropriations, *row)
	}
	return appropriations, nil
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) error {
	if _, err := s.GetByID(ctx, req.AppropriationID); err != nil {
		return err
	}

	toGrant := make([]*activitydomain.Activity, 0, len(req.ActivityIDs))
	grantedChains := make(map[snowflake.ID]bool, len(req.ActivityIDs))
	for _, id := range req.ActivityIDs {
		activity, err := s.activities.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if activity.AppropriationID != req.AppropriationID {
			return domain.ErrActivityNotInAppropriation
		}
		toGrant = append(toGrant, activity)
		grantedChains[activity.ChainID] = true
	}

	if err := s.requireMainGranted(ctx, req.AppropriationID, grantedChains); err != nil {
		return err
	}

	for _, activity := range toGrant {
		if activity.Revision > 1 {
			if err := s.truncatePriorRevision(ctx, activity); err != nil {
				return err
			}
		}
		if _, err := s.activities.Grant(ctx, activitydomain.GrantRequest{
			ActivityID:      activity.ID,
			ApprovalLevelID: req.ApprovalLevelID,
			ApprovalNote:    req.ApprovalNote,
		}); err != nil {
			return err
		}
	}

	s.log.Info("granted activities",
		zap.String("appropriation_id", req.AppropriationID.String()),
		zap.Int("count", len(toGrant)),
	)
	return nil
}

// requireMainGranted enforces that supplementary activities are only granted
// under an appropriation whose main activity is granted or being granted now.
func (s *Service) requireMainGranted(ctx context.Context, appropriationID snowflake.ID, grantedChains map[snowflake.ID]bool) error {
	main, err := s.MainActivity(ctx, appropriationID)
	if err != nil {
		return err
	}
	if main == nil {
		return domain.ErrMainActivityNotGranted
	}
	if grantedChains[main.ChainID] {
		return nil
	}
	granted, err := s.activities.LatestRevisionsByStatus(ctx, appropriationID, activitydomain.StatusGranted)
	if err != nil {
		return err
	}
	for _, activity := range granted {
		if activity.ChainID == main.ChainID {
			return nil
		}
	}
	return domain.ErrMainActivityNotGranted
}

// truncatePriorRevision ends the chain's previously granted revision the day
// before the new revision starts and reconciles its payment plan.
func (s *Service) truncatePriorRevision(ctx context.Context, activity *activitydomain.Activity) error {
	if activity.StartDate == nil {
		return nil
	}
	var prior activitydomain.Activity
	err := s.db.WithContext(ctx).
		Where("chain_id = ? AND revision < ? AND status = ?",
			activity.ChainID, activity.Revision, activitydomain.StatusGranted).
		Order("revision DESC").
		First(&prior).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	end := activity.StartDate.AddDate(0, 0, -1)
	if _, err := s.activities.UpdateSpan(ctx, activitydomain.UpdateSpanRequest{
		ActivityID: prior.ID,
		StartDate:  prior.StartDate,
		EndDate:    &end,
	}); err != nil {
		return fmt.Errorf("truncate prior revision: %w", err)
	}
	return nil
}

func (s *Service) SaveSection(ctx context.Context, section *domain.Section) error {
	if section.ID == 0 {
		section.ID = s.genID.Generate()
	}
	return s.sectionrepo.Create(ctx, section)
}

func (s *Service) SaveApprovalLevel(ctx context.Context, level *domain.ApprovalLevel) error {
	if level.ID == 0 {
		level.ID = s.genID.Generate()
	}
	return s.levelrepo.Create(ctx, level)
}
