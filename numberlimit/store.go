package numberlimit

import (
	"context"

	"github.com/xraph/reseller/id"
)

// Store persists number limits, one row per reseller. UpsertLimit keeps the
// existing row ID and creation time when a row is already present.
type Store interface {
	UpsertLimit(ctx context.Context, l *Limit) error
	GetLimit(ctx context.Context, resellerID id.ResellerID) (*Limit, error)
}
