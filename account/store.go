package account

import (
	"context"

	"github.com/xraph/reseller/id"
)

// Store persists resellers. UpdateReseller applies only when the stored
// version equals expectedVersion and returns reseller.ErrVersionConflict
// otherwise; the caller sets the new version on r.
type Store interface {
	CreateReseller(ctx context.Context, r *Reseller) error
	GetReseller(ctx context.Context, resellerID id.ResellerID) (*Reseller, error)
	ListResellers(ctx context.Context, opts ListOpts) ([]*Reseller, error)
	UpdateReseller(ctx context.Context, r *Reseller, expectedVersion int64) error
}

// ListOpts filters a reseller listing. Backends translate State into the
// stored columns that imply it.
type ListOpts struct {
	State  State
	Limit  int
	Offset int
}
