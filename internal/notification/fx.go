package notification

import (
	"github.com/nordkom/caseflow/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(service.NewLogSender),
	fx.Provide(service.NewService),
)
