package validity

import (
	"context"
	"time"

	"github.com/xraph/reseller/id"
)

// Store persists validity records and their history.
//
// SaveWindow upserts rec and appends hist as one atomic unit. The write is
// applied only when the stored record's version equals expectedVersion
// (0 means no record may exist yet); otherwise it returns
// reseller.ErrVersionConflict and nothing is written.
type Store interface {
	GetValidity(ctx context.Context, resellerID id.ResellerID) (*Record, error)
	SaveWindow(ctx context.Context, rec *Record, hist *History, expectedVersion int64) error
	ListHistory(ctx context.Context, resellerID id.ResellerID, opts ListOpts) ([]*History, error)
	CountHistory(ctx context.Context, resellerID id.ResellerID) (int64, error)
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*Record, error)
}

// ListOpts paginates a history listing. Results are newest first.
type ListOpts struct {
	Action Action
	Limit  int
	Offset int
}
