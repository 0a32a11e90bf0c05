package dst

import (
	"github.com/nordkom/caseflow/internal/dst/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dst.service",
	fx.Provide(service.NewService),
)
