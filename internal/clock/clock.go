// Package clock provides an injectable source of "today" so that
// horizon-dependent payment generation stays testable.
package clock

import (
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

// Module wires the system clock for the application.
var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
