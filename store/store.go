// Package store defines the aggregate persistence contract for the reseller
// back office. Backends live in the subpackages.
package store

import (
	"context"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Store is the unified storage interface for all reseller entities.
type Store interface {
	account.Store
	wallet.Store
	validity.Store
	numberlimit.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
