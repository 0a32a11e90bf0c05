package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/nordkom/caseflow/internal/clock"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/nordkom/caseflow/pkg/db"
	"github.com/nordkom/caseflow/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Schedules paymentdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	schedules paymentdomain.Service

	activityrepo repository.Repository[domain.Activity]
	providerrepo repository.Repository[domain.ServiceProvider]
	detailsrepo  repository.Repository[domain.ActivityDetails]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("activity.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		schedules: p.Schedules,

		activityrepo: repository.ProvideStore[domain.Activity](p.DB),
		providerrepo: repository.ProvideStore[domain.ServiceProvider](p.DB),
		detailsrepo:  repository.ProvideStore[domain.ActivityDetails](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateActivityRequest) (*domain.Activity, error) {
	activity := &domain.Activity{
		ID:                s.genID.Generate(),
		AppropriationID:   req.AppropriationID,
		DetailsID:         req.DetailsID,
		ServiceProviderID: req.ServiceProviderID,
		ActivityType:      req.ActivityType,
		Status:            req.Status,
		StartDate:         dateOf(req.StartDate),
		EndDate:           dateOf(req.EndDate),
		ApprovalNote:      req.ApprovalNote,
	}
	if activity.Status == "" {
		activity.Status = domain.StatusDraft
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ModifiesChainID != nil {
			latest, err := s.latestRevisionOfChain(ctx, tx, *req.ModifiesChainID)
			if err != nil {
				return err
			}
			activity.ChainID = latest.ChainID
			activity.Revision = latest.Revision + 1
			// A revision keeps its predecessor's type.
			activity.ActivityType = latest.ActivityType
			return s.activityrepo.WithTrx(tx).Create(ctx, activity)
		}

		if activity.ActivityType == domain.ActivityTypeMain {
			var count int64
			if err := tx.WithContext(ctx).
				Model(&domain.Activity{}).
				Where("appropriation_id = ? AND activity_type = ?", activity.AppropriationID, domain.ActivityTypeMain).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return domain.ErrMainActivityExists
			}
		}
		activity.ChainID = activity.ID
		activity.Revision = 1
		return s.activityrepo.WithTrx(tx).Create(ctx, activity)
	})
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	if req.PaymentPlan != nil {
		plan := *req.PaymentPlan
		plan.ActivityID = &activity.ID
		schedule, err := s.schedules.Create(ctx, plan)
		if err != nil {
			return nil, fmt.Errorf("create payment plan: %w", err)
		}
		vat, err := s.vatFactor(ctx, activity.ServiceProviderID)
		if err != nil {
			return nil, err
		}
		span := s.spanFor(activity, schedule)
		if err := s.schedules.GeneratePayments(ctx, schedule.ID, span, vat); err != nil {
			return nil, err
		}
	}
	return activity, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Activity, error) {
	activity, err := s.activityrepo.FindOne(ctx, &domain.Activity{ID: id})
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, domain.ErrActivityNotFound
	}
	return activity, nil
}

func (s *Service) UpdateSpan(ctx context.Context, req domain.UpdateSpanRequest) (*domain.Activity, error) {
	result := s.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Where("id = ?", req.ActivityID).
		Updates(map[string]any{
			"start_date": dateOf(req.StartDate),
			"end_date":   dateOf(req.EndDate),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrActivityNotFound
	}

	activity, err := s.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if err := s.resyncPayments(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *Service) ResyncPayments(ctx context.Context, id snowflake.ID) error {
	activity, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.resyncPayments(ctx, activity)
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (*domain.Activity, error) {
	today := recurrence.DateOf(s.clock.Now())
	result := s.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Where("id = ?", req.ActivityID).
		Updates(map[string]any{
			"status":             domain.StatusGranted,
			"appropriation_date": today,
			"approval_level_id":  req.ApprovalLevelID,
			"approval_note":      req.ApprovalNote,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrActivityNotFound
	}

	s.log.Info("granted activity", zap.String("activity_id", req.ActivityID.String()))
	return s.GetByID(ctx, req.ActivityID)
}

// resyncPayments reconciles the activity's payment plan against its current
// dates. Activities without a plan are left alone.
func (s *Service) resyncPayments(ctx context.Context, activity *domain.Activity) error {
	schedule, err := s.schedules.GetByActivityID(ctx, activity.ID)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrScheduleNotFound) {
			return nil
		}
		return err
	}
	vat, err := s.vatFactor(ctx, activity.ServiceProviderID)
	if err != nil {
		return err
	}
	return s.schedules.SynchronizePayments(ctx, schedule.ID, s.spanFor(activity, schedule), vat)
}

func (s *Service) spanFor(activity *domain.Activity, schedule *paymentdomain.PaymentSchedule) paymentdomain.Span {
	span := paymentdomain.Span{End: activity.EndDate}
	switch {
	case activity.StartDate != nil:
		span.Start = *activity.StartDate
	case schedule.PaymentDate != nil:
		span.Start = *schedule.PaymentDate
	default:
		span.Start = recurrence.DateOf(s.clock.Now())
	}
	return span
}

func (s *Service) vatFactor(ctx context.Context, providerID *snowflake.ID) (decimal.Decimal, error) {
	if providerID == nil {
		return decimal.NewFromInt(100), nil
	}
	provider, err := s.providerrepo.FindOne(ctx, &domain.ServiceProvider{ID: *providerID})
	if err != nil {
		return decimal.Zero, err
	}
	if provider == nil {
		return decimal.Zero, domain.ErrProviderNotFound
	}
	return provider.VATFactor, nil
}

func (s *Service) latestRevisionOfChain(ctx context.Context, tx *gorm.DB, chainID snowflake.ID) (*domain.Activity, error) {
	var latest domain.Activity
	err := db.LockForUpdate(tx.WithContext(ctx)).
		Where("chain_id = ?", chainID).
		Order("revision DESC").
		First(&latest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}
	return &latest, nil
}

func (s *Service) SaveServiceProvider(ctx context.Context, provider *domain.ServiceProvider) error {
	if provider.ID == 0 {
		provider.ID = s.genID.Generate()
	}
	if provider.VATFactor.IsZero() {
		provider.VATFactor = decimal.NewFromInt(100)
	}
	return s.providerrepo.Create(ctx, provider)
}

func (s *Service) SaveDetails(ctx context.Context, details *domain.ActivityDetails) error {
	if details.ID == 0 {
		details.ID = s.genID.Generate()
	}
	return s.detailsrepo.Create(ctx, details)
}

func dateOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := recurrence.DateOf(*t)
	return &day
}
