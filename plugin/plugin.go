// Package plugin provides an extensible plugin system for the reseller engine.
// Plugins hook into lifecycle, wallet and validity events to extend
// functionality without touching the core.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Engine lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *reseller.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Reseller lifecycle hooks
// ──────────────────────────────────────────────────

// OnResellerRegistered is called after a pending reseller is created.
type OnResellerRegistered interface {
	Plugin
	OnResellerRegistered(ctx context.Context, r *account.Reseller) error
}

// OnResellerApproved is called after the approval write commits, before
// any secondary step runs.
type OnResellerApproved interface {
	Plugin
	OnResellerApproved(ctx context.Context, r *account.Reseller) error
}

// OnResellerRejected is called after a rejection commits.
type OnResellerRejected interface {
	Plugin
	OnResellerRejected(ctx context.Context, r *account.Reseller, reason string) error
}

// OnResellerSuspended is called after a suspension commits.
type OnResellerSuspended interface {
	Plugin
	OnResellerSuspended(ctx context.Context, r *account.Reseller) error
}

// OnResellerReactivated is called after a reactivation commits.
type OnResellerReactivated interface {
	Plugin
	OnResellerReactivated(ctx context.Context, r *account.Reseller) error
}

// OnStatusChanged is called when the plain active flag is toggled.
type OnStatusChanged interface {
	Plugin
	OnStatusChanged(ctx context.Context, r *account.Reseller, active bool) error
}

// OnApprovalPartial is called when an approval committed but one or more
// secondary steps failed.
type OnApprovalPartial interface {
	Plugin
	OnApprovalPartial(ctx context.Context, r *account.Reseller, warnings []error) error
}

// ──────────────────────────────────────────────────
// Wallet hooks
// ──────────────────────────────────────────────────

// OnWalletCredited is called after a credit is posted.
type OnWalletCredited interface {
	Plugin
	OnWalletCredited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) error
}

// OnWalletDebited is called after a debit is posted.
type OnWalletDebited interface {
	Plugin
	OnWalletDebited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) error
}

// OnInsufficientFunds is called when a debit is refused.
type OnInsufficientFunds interface {
	Plugin
	OnInsufficientFunds(ctx context.Context, resellerID id.ResellerID, requested, available types.Money) error
}

// ──────────────────────────────────────────────────
// Validity hooks
// ──────────────────────────────────────────────────

// OnValidityChanged is called after a window change and its history entry commit.
type OnValidityChanged interface {
	Plugin
	OnValidityChanged(ctx context.Context, rec *validity.Record, hist *validity.History) error
}

// OnValidityExpired is called when the sweeper expires a window.
type OnValidityExpired interface {
	Plugin
	OnValidityExpired(ctx context.Context, rec *validity.Record) error
}

// OnSweepCompleted is called after each expiry sweep pass.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, expired int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Number limit hooks
// ──────────────────────────────────────────────────

// OnNumberLimitChanged is called after a number limit is upserted.
type OnNumberLimitChanged interface {
	Plugin
	OnNumberLimitChanged(ctx context.Context, l *numberlimit.Limit) error
}
