// Package observability provides a metrics extension for the reseller engine
// that records lifecycle, wallet and validity event counts through a
// MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnResellerRegistered  = (*MetricsExtension)(nil)
	_ plugin.OnResellerApproved    = (*MetricsExtension)(nil)
	_ plugin.OnResellerRejected    = (*MetricsExtension)(nil)
	_ plugin.OnResellerSuspended   = (*MetricsExtension)(nil)
	_ plugin.OnResellerReactivated = (*MetricsExtension)(nil)
	_ plugin.OnApprovalPartial     = (*MetricsExtension)(nil)
	_ plugin.OnWalletCredited      = (*MetricsExtension)(nil)
	_ plugin.OnWalletDebited       = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientFunds   = (*MetricsExtension)(nil)
	_ plugin.OnValidityChanged     = (*MetricsExtension)(nil)
	_ plugin.OnValidityExpired     = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted      = (*MetricsExtension)(nil)
	_ plugin.OnNumberLimitChanged  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide reseller metrics.
// Register it as an engine plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Lifecycle metrics
	ResellerRegistered  Counter
	ResellerApproved    Counter
	ResellerRejected    Counter
	ResellerSuspended   Counter
	ResellerReactivated Counter
	ApprovalPartial     Counter

	// Wallet metrics
	WalletCredits      Counter
	WalletDebits       Counter
	WalletCreditAmount Histogram
	WalletDebitAmount  Histogram
	InsufficientFunds  Counter

	// Validity metrics
	ValidityChanged Counter
	ValidityExpired Counter
	ValidityDays    Histogram
	SweepLatency    Histogram

	// Number limit metrics
	NumberLimitChanged Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ResellerRegistered:  factory.Counter("reseller.registered"),
		ResellerApproved:    factory.Counter("reseller.approved"),
		ResellerRejected:    factory.Counter("reseller.rejected"),
		ResellerSuspended:   factory.Counter("reseller.suspended"),
		ResellerReactivated: factory.Counter("reseller.reactivated"),
		ApprovalPartial:     factory.Counter("reseller.approval.partial"),

		WalletCredits:      factory.Counter("reseller.wallet.credits"),
		WalletDebits:       factory.Counter("reseller.wallet.debits"),
		WalletCreditAmount: factory.Histogram("reseller.wallet.credit.amount"),
		WalletDebitAmount:  factory.Histogram("reseller.wallet.debit.amount"),
		InsufficientFunds:  factory.Counter("reseller.wallet.insufficient_funds"),

		ValidityChanged: factory.Counter("reseller.validity.changed"),
		ValidityExpired: factory.Counter("reseller.validity.expired"),
		ValidityDays:    factory.Histogram("reseller.validity.days"),
		SweepLatency:    factory.Histogram("reseller.validity.sweep.latency_ms"),

		NumberLimitChanged: factory.Counter("reseller.number_limit.changed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnResellerRegistered implements plugin.OnResellerRegistered.
func (m *MetricsExtension) OnResellerRegistered(_ context.Context, _ *account.Reseller) error {
	m.ResellerRegistered.Inc()
	return nil
}

// OnResellerApproved implements plugin.OnResellerApproved.
func (m *MetricsExtension) OnResellerApproved(_ context.Context, _ *account.Reseller) error {
	m.ResellerApproved.Inc()
	return nil
}

// OnResellerRejected implements plugin.OnResellerRejected.
func (m *MetricsExtension) OnResellerRejected(_ context.Context, _ *account.Reseller, _ string) error {
	m.ResellerRejected.Inc()
	return nil
}

// OnResellerSuspended implements plugin.OnResellerSuspended.
func (m *MetricsExtension) OnResellerSuspended(_ context.Context, _ *account.Reseller) error {
	m.ResellerSuspended.Inc()
	return nil
}

// OnResellerReactivated implements plugin.OnResellerReactivated.
func (m *MetricsExtension) OnResellerReactivated(_ context.Context, _ *account.Reseller) error {
	m.ResellerReactivated.Inc()
	return nil
}

// OnApprovalPartial implements plugin.OnApprovalPartial.
func (m *MetricsExtension) OnApprovalPartial(_ context.Context, _ *account.Reseller, _ []error) error {
	m.ApprovalPartial.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Wallet hooks
// ──────────────────────────────────────────────────

// OnWalletCredited implements plugin.OnWalletCredited.
func (m *MetricsExtension) OnWalletCredited(_ context.Context, _ *wallet.Wallet, txn *wallet.Transaction) error {
	m.WalletCredits.Inc()
	m.WalletCreditAmount.Observe(txn.Amount.Amount.InexactFloat64())
	return nil
}

// OnWalletDebited implements plugin.OnWalletDebited.
func (m *MetricsExtension) OnWalletDebited(_ context.Context, _ *wallet.Wallet, txn *wallet.Transaction) error {
	m.WalletDebits.Inc()
	m.WalletDebitAmount.Observe(txn.Amount.Amount.InexactFloat64())
	return nil
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (m *MetricsExtension) OnInsufficientFunds(_ context.Context, _ id.ResellerID, _, _ types.Money) error {
	m.InsufficientFunds.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Validity hooks
// ──────────────────────────────────────────────────

// OnValidityChanged implements plugin.OnValidityChanged.
func (m *MetricsExtension) OnValidityChanged(_ context.Context, rec *validity.Record, _ *validity.History) error {
	m.ValidityChanged.Inc()
	m.ValidityDays.Observe(float64(rec.Days))
	return nil
}

// OnValidityExpired implements plugin.OnValidityExpired.
func (m *MetricsExtension) OnValidityExpired(_ context.Context, _ *validity.Record) error {
	m.ValidityExpired.Inc()
	return nil
}

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, _ int, elapsed time.Duration) error {
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Number limit hooks
// ──────────────────────────────────────────────────

// OnNumberLimitChanged implements plugin.OnNumberLimitChanged.
func (m *MetricsExtension) OnNumberLimitChanged(_ context.Context, _ *numberlimit.Limit) error {
	m.NumberLimitChanged.Inc()
	return nil
}
