// Package domain defines the expiry notification sent when a granted
// activity ends.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ExpiryNotice tells a caseworker that an activity ended.
type ExpiryNotice struct {
	ActivityID      snowflake.ID
	AppropriationID snowflake.ID
	EndDate         time.Time
}

// Sender delivers notices. The default implementation only logs; actual
// delivery is wired in by the caller.
type Sender interface {
	Send(ctx context.Context, notice ExpiryNotice) error
}

type Service interface {
	// NotifyExpired sends a notice for every granted activity whose end
	// date was yesterday.
	NotifyExpired(ctx context.Context) (int, error)
}
