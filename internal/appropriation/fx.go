package appropriation

import (
	"github.com/nordkom/caseflow/internal/appropriation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("appropriation.service",
	fx.Provide(service.NewService),
)
