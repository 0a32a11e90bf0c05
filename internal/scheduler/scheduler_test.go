package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/nordkom/caseflow/internal/activity/domain"
	activityservice "github.com/nordkom/caseflow/internal/activity/service"
	"github.com/nordkom/caseflow/internal/clock"
	notificationdomain "github.com/nordkom/caseflow/internal/notification/domain"
	notificationservice "github.com/nordkom/caseflow/internal/notification/service"
	paymentdomain "github.com/nordkom/caseflow/internal/paymentschedule/domain"
	paymentservice "github.com/nordkom/caseflow/internal/paymentschedule/service"
	"github.com/nordkom/caseflow/internal/recurrence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingSender struct {
	notices []notificationdomain.ExpiryNotice
}

func (r *recordingSender) Send(_ context.Context, notice notificationdomain.ExpiryNotice) error {
	r.notices = append(r.notices, notice)
	return nil
}

type fixture struct {
	sched      *Scheduler
	activities activitydomain.Service
	sender     *recordingSender
	db         *gorm.DB
}

func newFixture(t *testing.T, fake *clock.FakeClock) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	sender := &recordingSender{}
	notifications := notificationservice.NewService(notificationservice.ServiceParam{
		Log: log, Clock: fake, Activities: activities, Sender: sender,
	})

	sched, err := New(Params{
		DB:            db,
		Log:           log,
		Clock:         fake,
		Activities:    activities,
		Notifications: notifications,
	})
	require.NoError(t, err)

	return &fixture{sched: sched, activities: activities, sender: sender, db: db}
}

func countPayments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	return count
}

func ptr[T any](v T) *T { return &v }

func TestRunOnce_TopsUpOpenEndedPlans(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 3, 15))
	f := newFixture(t, fake)
	ctx := context.Background()

	// Open-ended monthly plan from 2019-01-01: horizon ends 2020-12-31.
	_, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: 1,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		PaymentPlan: &paymentdomain.CreateScheduleRequest{
			PaymentType:      paymentdomain.PaymentTypeRunning,
			PaymentFrequency: string(recurrence.FrequencyMonthly),
			PaymentAmount:    decimal.NewFromInt(100),
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, 24, countPayments(t, f.db))

	// Same horizon: nothing changes.
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.EqualValues(t, 24, countPayments(t, f.db))

	// A year later the horizon reaches 2021-12-31.
	fake.Set(recurrence.Date(2020, 7, 1))
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.EqualValues(t, 36, countPayments(t, f.db))
}

func TestRunOnce_SendsExpiryNotifications(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 6, 1))
	f := newFixture(t, fake)
	ctx := context.Background()

	activity, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: 1,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		StartDate:       ptr(recurrence.Date(2019, 1, 1)),
		EndDate:         ptr(recurrence.Date(2019, 5, 31)),
	})
	require.NoError(t, err)

	require.NoError(t, f.sched.RunOnce(ctx))
	require.Len(t, f.sender.notices, 1)
	assert.Equal(t, activity.ID, f.sender.notices[0].ActivityID)
}

func TestRunOnce_RespectsEnabledJobs(t *testing.T) {
	fake := clock.NewFakeClock(recurrence.Date(2019, 6, 1))
	f := newFixture(t, fake)
	f.sched.cfg.EnabledJobs = []string{"payments_resync"}
	ctx := context.Background()

	_, err := f.activities.Create(ctx, activitydomain.CreateActivityRequest{
		AppropriationID: 1,
		ActivityType:    activitydomain.ActivityTypeMain,
		Status:          activitydomain.StatusGranted,
		EndDate:         ptr(recurrence.Date(2019, 5, 31)),
	})
	require.NoError(t, err)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Empty(t, f.sender.notices)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig().RunInterval, cfg.RunInterval)
	assert.Equal(t, DefaultConfig().BatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultConfig().JobTimeout, cfg.JobTimeout)

	custom := Config{BatchSize: 7}.withDefaults()
	assert.Equal(t, 7, custom.BatchSize)
}
