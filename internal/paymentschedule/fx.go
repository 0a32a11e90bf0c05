package paymentschedule

import (
	"github.com/nordkom/caseflow/internal/paymentschedule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentschedule.service",
	fx.Provide(service.NewService),
)
