package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	"github.com/nordkom/caseflow/internal/appropriation/domain"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/shopspring/decimal"
)

func (s *Service) TotalGrantedThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error) {
	granted, err := s.activities.LatestRevisionsByStatus(ctx, id, activitydomain.StatusGranted)
	if err != nil {
		return decimal.Zero, err
	}
	return s.sumCostsThisYear(ctx, granted)
}

func (s *Service) TotalExpectedThisYear(ctx context.Context, id snowflake.ID) (decimal.Decimal, error) {
	latest, err := s.activities.LatestRevisions(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	granted, err := s.activities.LatestRevisionsByStatus(ctx, id, activitydomain.StatusGranted)
	if err != nil {
		return decimal.Zero, err
	}
	grantedByChain := make(map[snowflake.ID]activitydomain.Activity, len(granted))
	for _, activity := range granted {
		grantedByChain[activity.ChainID] = activity
	}

	// The newest expected or granted revision counts; drafts fall back to
	// the chain's granted revision.
	var counted []activitydomain.Activity
	for _, activity := range latest {
		if activity.Status == activitydomain.StatusDraft {
			if fallback, ok := grantedByChain[activity.ChainID]; ok {
				counted = append(counted, fallback)
			}
			continue
		}
		counted = append(counted, activity)
	}
	return s.sumCostsThisYear(ctx, counted)
}

func (s *Service) sumCostsThisYear(ctx context.Context, activities []activitydomain.Activity) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, activity := range activities {
		cost, err := s.activities.TotalCostThisYear(ctx, activity.ID)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(cost)
	}
	return sum, nil
}

func (s *Service) MainActivity(ctx context.Context, id snowflake.ID) (*activitydomain.Activity, error) {
	latest, err := s.activities.LatestRevisions(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, activity := range latest {
		if activity.ActivityType == activitydomain.ActivityTypeMain {
			return &activity, nil
		}
	}
	return nil, nil
}

func (s *Service) Expired(ctx context.Context, id snowflake.ID) (bool, error) {
	granted, err := s.activities.LatestRevisionsByStatus(ctx, id, activitydomain.StatusGranted)
	if err != nil {
		return false, err
	}
	today := recurrence.DateOf(s.clock.Now())
	for _, activity := range granted {
		if activity.ActivityType == activitydomain.ActivityTypeMain {
			return activity.Expired(today), nil
		}
	}
	// Nothing granted yet: not expired.
	return false, nil
}

func (s *Service) ListExpired(ctx context.Context) ([]domain.Appropriation, error) {
	return s.listByExpiry(ctx, true)
}

func (s *Service) ListOngoing(ctx context.Context) ([]domain.Appropriation, error) {
	return s.listByExpiry(ctx, false)
}

func (s *Service) listByExpiry(ctx context.Context, wantExpired bool) ([]domain.Appropriation, error) {
	rows, err := s.appropriationrepo.Find(ctx, &domain.Appropriation{})
	if err != nil {
		return nil, err
	}
	var matched []domain.Appropriation
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
