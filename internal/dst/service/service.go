package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	appropriationdomain "github.com/nordkom/caseflow/internal/appropriation/domain"
	caseworkdomain "github.com/nordkom/caseflow/internal/casework/domain"
	"github.com/nordkom/caseflow/internal/clock"
	"github.com/nordkom/caseflow/internal/config"
	"github.com/nordkom/caseflow/internal/dst/domain"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Holder     *config.DSTConfigHolder
	Activities activitydomain.Service
	Cases      caseworkdomain.Service
	Schedules  paymentdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	holder     *config.DSTConfigHolder
	activities activitydomain.Service
	cases      caseworkdomain.Service
	schedules  paymentdomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dst.service"),
		clock:      p.Clock,
		holder:     p.Holder,
		activities: p.Activities,
		cases:      p.Cases,
		schedules:  p.Schedules,
	}
}

func (s *Service) BuildPayload(ctx context.Context, from, to *time.Time) (*domain.Payload, error) {
	cfg := s.holder.Get()
	payload := &domain.Payload{
		BatchID:         uuid.New(),
		GeneratedAt:     s.clock.Now(),
		MunicipalityCPR: cfg.MunicipalityCPR,
		MunicipalityID:  cfg.MunicipalityID,
		TestMode:        cfg.TestMode,
		Rows:            []domain.Row{},
	}

	var appropriations []appropriationdomain.Appropriation
	if err := s.db.WithContext(ctx).Order("id").Find(&appropriations).Error; err != nil {
		return nil, fmt.Errorf("build payload: %w", err)
	}

	for _, appropriation := range appropriations {
		row, err := s.rowFor(ctx, appropriation, from, to)
		if err != nil {
			return nil, err
		}
		if row != nil {
			payload.Rows = append(payload.Rows, *row)
		}
	}

	s.log.Info("built statistics payload",
		zap.String("batch_id", payload.BatchID.String()),
		zap.Int("rows", len(payload.Rows)),
		zap.Bool("test_mode", payload.TestMode),
	)
	return payload, nil
}

// rowFor returns the appropriation's export row, or nil when its granted
// main activity falls outside the window.
func (s *Service) rowFor(ctx context.Context, appropriation appropriationdomain.Appropriation, from, to *time.Time) (*domain.Row, error) {
	main, err := s.grantedMainActivity(ctx, appropriation.ID)
	if err != nil || main == nil {
		return nil, err
	}

	selector, err := s.selectorDate(ctx, main)
	if err != nil || selector == nil {
		return nil, err
	}
	if from != nil && selector.Before(recurrence.DateOf(*from)) {
		return nil, nil
	}
	if to != nil && selector.After(recurrence.DateOf(*to)) {
		return nil, nil
	}

	kase, err := s.cases.GetByID(ctx, appropriation.CaseID)
	if err != nil {
		return nil, err
	}
	reportType, err := s.reportTypeFor(ctx, main.ChainID)
	if err != nil {
		return nil, err
	}

	row := &domain.Row{
		CaseSbsysID:          kase.SbsysID,
		CprNumber:            kase.CprNumber,
		AppropriationSbsysID: appropriation.SbsysID,
		StartDate:            *selector,
		EndDate:              main.EndDate,
		ReportType:           reportType,
	}
	if appropriation.SectionID != nil {
		var section appropriationdomain.Section
		err := s.db.WithContext(ctx).First(&section, "id = ?", *appropriation.SectionID).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		if err == nil {
			row.SectionParagraph = section.Paragraph
			row.DSTCode = section.DSTCode
		}
	}
	return row, nil
}

func (s *Service) grantedMainActivity(ctx context.Context, appropriationID snowflake.ID) (*activitydomain.Activity, error) {
	granted, err := s.activities.LatestRevisionsByStatus(ctx, appropriationID, activitydomain.StatusGranted)
	if err != nil {
		return nil, err
	}
	for _, activity := range granted {
		if activity.ActivityType == activitydomain.ActivityTypeMain {
			return &activity, nil
		}
	}
	return nil, nil
}

// selectorDate is the activity's start date; one-time plans without a start
// date fall back to the payment date.
func (s *Service) selectorDate(ctx context.Context, main *activitydomain.Activity) (*time.Time, error) {
	if main.StartDate != nil {
		day := recurrence.DateOf(*main.StartDate)
		return &day, nil
	}
	schedule, err := s.schedules.GetByActivityID(ctx, main.ID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrScheduleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if schedule.PaymentType == paymentdomain.PaymentTypeOneTime && schedule.PaymentDate != nil {
		day := recurrence.DateOf(*schedule.PaymentDate)
		return &day, nil
	}
	return nil, nil
}

func (s *Service) reportTypeFor(ctx context.Context, chainID snowflake.ID) (domain.ReportType, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&activitydomain.Activity{}).
		Where("chain_id = ? AND status = ? AND revision > 1", chainID, activitydomain.StatusGranted).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	if count > 0 {
		return domain.ReportTypeChanged, nil
	}
	return domain.ReportTypeNew, nil
}
