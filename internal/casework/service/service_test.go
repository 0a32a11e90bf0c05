package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	activityservice "github.com/nordkom/caseflow/internal/activity/service"
	appropriationdomain "github.com/nordkom/caseflow/internal/appropriation/domain"
	appropriationservice "github.com/nordkom/caseflow/internal/appropriation/service"
	"github.com/nordkom/caseflow/internal/casework/domain"
	"github.com/nordkom/caseflow/internal/clock"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	paymentservice "github.com/nordkom/caseflow/internal/paymentschedule/service"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc            *Service
	appropriations appropriationdomain.Service
	activities     activitydomain.Service
	db             *gorm.DB
}

func newFixture(t *testing.T, fake *clock.FakeClock) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Case{},
		&domain.Municipality{},
		&domain.SchoolDistrict{},
		&domain.Team{},
		&appropriationdomain.Appropriation{},
		&appropriationdomain.Section{},
		&appropriationdomain.ApprovalLevel{},
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
	appropriations := appropriationservice.NewService(appropriationservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, Activities: activities,
	})
	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake, Appropriations: appropriations,
	})
	return &fixture{
		svc:            svc.(*Service),
		appropriations: appropriations,
		activities:     activities,
		db:             db,
	}
}

func (f *fixture) createCase(t *testing.T, sbsysID string) *domain.Case {
	t.Helper()
	kase, err := f.svc.Create(context.Background(), domain.CreateCaseRequest{
		SbsysID:   sbsysID,
		CprNumber: "0205891234",
		Name:      "Jens Jensen",
	})
	require.NoError(t, err)
	return kase
}

// addMainActivity attaches an appropriation with a granted main activity
// ending on the given date; nil means open-ended.
func (f *fixture) addMainActivity(t *testing.T, caseID snowflake.ID, sbsysID string, end *time.Time) {
	t.Helper()
	ctx := context.Background()
	appropriation, err := f.appropriations.Create(ctx, appropriationdomain.CreateAppropriationRequest{
		SbsysID: sbsysID,
		CaseID:  caseID,
	})
	require.NoError(t, err)

	_, err = f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: appropriation.ID,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         end,
	})
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestCreateAndLookup(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 1, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateCaseRequest{
		SbsysID:     "27.24.00-G01-1-19",
		CprNumber:   "0205891234",
		Name:        "Jens Jensen",
		TargetGroup: "FAMILY_DEPT",
		Metadata:    datatypes.JSONMap{"sbsys_case_type": "bevilling"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ScalingStep)

	found, err := f.svc.GetBySbsysID(ctx, "27.24.00-G01-1-19")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "bevilling", found.Metadata["sbsys_case_type"])

	_, err = f.svc.GetBySbsysID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestCreate_DuplicateSbsysID(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 1, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	f.createCase(t, "27.24.00-G01-1-19")

	_, err := f.svc.Create(ctx, domain.CreateCaseRequest{
		SbsysID:   "27.24.00-G01-1-19",
		CprNumber: "1212121212",
		Name:      "Hans Hansen",
	})
	assert.ErrorIs(t, err, domain.ErrSbsysIDConflict)
}

func TestExpiredRollup(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 6, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	// One ongoing appropriation keeps the case ongoing even when another
	// has expired.
	mixed := f.createCase(t, "case-mixed")
	f.addMainActivity(t, mixed.ID, "appr-mixed-1", ptr(recurrence.Date(2019, 5, 31)))
	f.addMainActivity(t, mixed.ID, "appr-mixed-2", nil)

	ended := f.createCase(t, "case-ended")
	f.addMainActivity(t, ended.ID, "appr-ended-1", ptr(recurrence.Date(2019, 5, 31)))

	empty := f.createCase(t, "case-empty")

	expired, err := f.svc.Expired(ctx, mixed.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	expired, err = f.svc.Expired(ctx, ended.ID)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = f.svc.Expired(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, expired)

	expiredList, err := f.svc.ListExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expiredList, 1)
	assert.Equal(t, ended.ID, expiredList[0].ID)

	ongoingList, err := f.svc.ListOngoing(ctx)
	require.NoError(t, err)
	assert.Len(t, ongoingList, 2)
}

func TestChangedWithin(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 6, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	early := f.createCase(t, "case-early")
	late := f.createCase(t, "case-late")

	require.NoError(t, f.db.Model(&domain.Case{}).
		Where("id = ?", early.ID).
		Update("updated_at", recurrence.Date(2019, 1, 15)).Error)
	require.NoError(t, f.db.Model(&domain.Case{}).
		Where("id = ?", late.ID).
		Update("updated_at", recurrence.Date(2019, 3, 15)).Error)

	both, err := f.svc.ChangedWithin(ctx, recurrence.Date(2019, 1, 1), nil)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	januaryOnly, err := f.svc.ChangedWithin(ctx, recurrence.Date(2019, 1, 1), ptr(recurrence.Date(2019, 1, 31)))
	require.NoError(t, err)
	require.Len(t, januaryOnly, 1)
	assert.Equal(t, early.ID, januaryOnly[0].ID)

	none, err := f.svc.ChangedWithin(ctx, recurrence.Date(2019, 4, 1), ptr(recurrence.Date(2019, 4, 30)))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveOrganisationalEntities(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 1, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	municipality := &domain.Municipality{Name: "Ballerup Kommune", Active: true}
	require.NoError(t, f.svc.SaveMunicipality(ctx, municipality))
	assert.NotZero(t, municipality.ID)

	district := &domain.SchoolDistrict{Name: "Skovlunde Skole", Active: true}
	require.NoError(t, f.svc.SaveSchoolDistrict(ctx, district))
	assert.NotZero(t, district.ID)

	team := &domain.Team{Name: "Familieteam"}
	require.NoError(t, f.svc.SaveTeam(ctx, team))
	assert.NotZero(t, team.ID)
}
