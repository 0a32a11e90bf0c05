package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	activityservice "github.com/nordkom/caseflow/internal/activity/service"
	"github.com/nordkom/caseflow/internal/appropriation/domain"
	"github.com/nordkom/caseflow/internal/clock"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	paymentservice "github.com/nordkom/caseflow/internal/paymentschedule/service"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc        *Service
	activities activitydomain.Service
	db         *gorm.DB
}

func newFixture(t *testing.T, fake *clock.FakeClock) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Appropriation{},
		&domain.Section{},
		&domain.ApprovalLevel{},
		&activitydomain.Activity{},
		&activitydomain.ServiceProvider{},
		&activitydomain.ActivityDetails{},
		&paymentdomain.PaymentSchedule{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	schedules := paymentservice.NewService(paymentservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})
	activities := activityservice.NewService(activityservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, Schedules: schedules,
	})
	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, Activities: activities,
	})
	return &fixture{svc: svc.(*Service), activities: activities, db: db}
}

func (f *fixture) createAppropriation(t *testing.T, sbsysID string) *domain.Appropriation {
	t.Helper()
	appropriation, err := f.svc.Create(context.Background(), domain.CreateAppropriationRequest{
		SbsysID: sbsysID,
		CaseID:  1,
	})
	require.NoError(t, err)
	return appropriation
}

func dailyPlan(amount int64) *paymentdomain.CreateScheduleRequest {
	return &paymentdomain.CreateScheduleRequest{
		PaymentType:      paymentdomain.PaymentTypeRunning,
		PaymentFrequency: string(recurrence.FrequencyDaily),
		PaymentAmount:    decimal.NewFromInt(amount),
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreate_DuplicateSbsysID(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 3, 1))
	f := newFixture(t, fake)

	f.createAppropriation(t, "27.24.00-G01-1-19")

	_, err := f.svc.Create(context.Background(), domain.CreateAppropriationRequest{
		SbsysID: "27.24.00-G01-1-19",
		CaseID:  2,
	})
	assert.ErrorIs(t, err, domain.ErrSbsysIDConflict)
}

func TestGrant_StampsActivities(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 3, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	appropriation := f.createAppropriation(t, "27.24.00-G01-1-19")
	main, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusDraft,
		StartDate:       ptr(recurrence.Date(2019, 3, 1)),
		EndDate:         ptr(recurrence.Date(2019, 3, 10)),
		PaymentPlan:     dailyPlan(500),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Grant(ctx, domain.GrantRequest{
		AppropriationID: appropriation.ID,
		ActivityIDs:     []snowflake.ID{main.ID},
		ApprovalNote:    "bevilget",
	}))

	granted, err := f.activities.GetByID(ctx, main.ID)
	require.NoError(t, err)
	assert.Equal(t, activitydomain.StatusGranted, granted.Status)
	require.NotNil(t, granted.AppropriationDate)
	assert.Equal(t, "2019-03-01", granted.AppropriationDate.Format("2006-01-02"))
}

func TestGrant_SupplementaryRequiresGrantedMain(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 3, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	appropriation := f.createAppropriation(t, "27.24.00-G01-2-19")
	_, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusDraft,
	})
	require.NoError(t, err)
	suppl, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeSupplementary,
		Status:          activitydomain.StatusDraft,
	})
	require.NoError(t, err)

	err = f.svc.Grant(ctx, domain.GrantRequest{
		AppropriationID: appropriation.ID,
		ActivityIDs:     []snowflake.ID{suppl.ID},
	})
	assert.True(t, errors.Is(err, domain.ErrMainActivityNotGranted))
}

func TestGrant_ActivityFromOtherAppropriationRejected(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 3, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	first := f.createAppropriation(t, "27.24.00-G01-3-19")
	second := f.createAppropriation(t, "27.24.00-G01-4-19")
	stranger, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: second.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
	})
	require.NoError(t, err)

	err = f.svc.Grant(ctx, domain.GrantRequest{
		AppropriationID: first.ID,
		ActivityIDs:     []snowflake.ID{stranger.ID},
	})
	assert.True(t, errors.Is(err, domain.ErrActivityNotInAppropriation))
}

func TestGrant_RevisionTruncatesPriorRevision(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 1, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	appropriation := f.createAppropriation(t, "27.24.00-G01-5-19")
	main, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusDraft,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         ptr(recurrence.Date(2019, 1, 31)),
		PaymentPlan:     dailyPlan(500),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Grant(ctx, domain.GrantRequest{
		AppropriationID: appropriation.ID,
		ActivityIDs:     []snowflake.ID{main.ID},
	}))

	// A revision takes over from 15 January.
	revision, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		Status:          activitydomain.StatusExpected,
		StartDate:       ptr(recurrence.Date(2019, 1, 15)),
		EndDate:         ptr(recurrence.Date(2019, 1, 31)),
		ModifiesChainID: &main.ChainID,
		PaymentPlan:     dailyPlan(600),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Grant(ctx, domain.GrantRequest{
		AppropriationID: appropriation.ID,
		ActivityIDs:     []snowflake.ID{revision.ID},
	}))

	prior, err := f.activities.GetByID(ctx, main.ID)
	require.NoError(t, err)
	require.NotNil(t, prior.EndDate)
	assert.Equal(t, "2019-01-14", prior.EndDate.Format("2006-01-02"))

	// The prior revision's payment plan shrank to the truncated span.
	priorCost, err := f.activities.TotalCost(ctx, main.ID)
	require.NoError(t, err)
	assert.True(t, priorCost.Equal(decimal.NewFromInt(7000)), "got %s", priorCost)
}

func TestTotalGrantedAndExpectedThisYear(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 1, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	appropriation := f.createAppropriation(t, "27.24.00-G01-6-19")

	// Granted main: 10 days of 500 = 5000.
	main, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         ptr(recurrence.Date(2019, 1, 10)),
		PaymentPlan:     dailyPlan(500),
	})
	require.NoError(t, err)

	// Granted supplementary: another 5000.
	_, err = f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeSupplementary,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 2, 1)),
		EndDate:         ptr(recurrence.Date(2019, 2, 10)),
		PaymentPlan:     dailyPlan(500),
	})
	require.NoError(t, err)

	grantedSum, err := f.svc.TotalGrantedThisYear(ctx, appropriation.ID)
	require.NoError(t, err)
	assert.True(t, grantedSum.Equal(decimal.NewFromInt(10000)), "got %s", grantedSum)

	// An expected revision of the main chain: 14 days of 500 = 7000. It
	// overrides the granted 5000 in the expected total only.
	_, err = f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		Status:          activitydomain.StatusExpected,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         ptr(recurrence.Date(2019, 1, 14)),
		ModifiesChainID: &main.ChainID,
		PaymentPlan:     dailyPlan(500),
	})
	require.NoError(t, err)

	grantedSum, err = f.svc.TotalGrantedThisYear(ctx, appropriation.ID)
	require.NoError(t, err)
	assert.True(t, grantedSum.Equal(decimal.NewFromInt(10000)), "got %s", grantedSum)

	expectedSum, err := f.svc.TotalExpectedThisYear(ctx, appropriation.ID)
	require.NoError(t, err)
	assert.True(t, expectedSum.Equal(decimal.NewFromInt(12000)), "got %s", expectedSum)
}

func TestExpiredAndOngoing(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 6, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	ended := f.createAppropriation(t, "27.24.00-G01-7-19")
	_, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: ended.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         ptr(recurrence.Date(2019, 5, 31)),
	})
	require.NoError(t, err)

	running := f.createAppropriation(t, "27.24.00-G01-8-19")
	_, err = f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: running.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
	})
	require.NoError(t, err)

	expired, err := f.svc.Expired(ctx, ended.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = f.svc.Expired(ctx, running.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	expiredList, err := f.svc.ListExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expiredList, 1)
	assert.Equal(t, ended.ID, expiredList[0].ID)

	ongoingList, err := f.svc.ListOngoing(ctx)
	require.NoError(t, err)
	require.Len(t, ongoingList, 1)
	assert.Equal(t, running.ID, ongoingList[0].ID)
}
