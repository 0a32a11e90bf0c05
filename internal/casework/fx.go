package casework

import (
	"github.com/nordkom/caseflow/internal/casework/service"
	"go.uber.org/fx"
)

var Module = fx.Module("casework.service",
	fx.Provide(service.NewService),
)
