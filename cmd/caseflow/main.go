package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/nordkom/caseflow/internal/activity"
	"github.com/nordkom/caseflow/internal/appropriation"
	"github.com/nordkom/caseflow/internal/casework"
	"github.com/nordkom/caseflow/internal/clock"
	"github.com/nordkom/caseflow/internal/config"
	"github.com/nordkom/caseflow/internal/dst"
	"github.com/nordkom/caseflow/internal/logger"
	"github.com/nordkom/caseflow/internal/migration"
	"github.com/nordkom/caseflow/internal/notification"
	"github.com/nordkom/caseflow/internal/observability"
	"github.com/nordkom/caseflow/internal/paymentschedule"
	"github.com/nordkom/caseflow/internal/scheduler"
	"github.com/nordkom/caseflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		observability.Module,

		// Functional domains
		paymentschedule.Module,
		activity.Module,
		appropriation.Module,
		casework.Module,
		dst.Module,
		notification.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
