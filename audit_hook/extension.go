// Package audithook bridges reseller lifecycle, wallet and validity events
// to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnResellerRegistered  = (*Extension)(nil)
	_ plugin.OnResellerApproved    = (*Extension)(nil)
	_ plugin.OnResellerRejected    = (*Extension)(nil)
	_ plugin.OnResellerSuspended   = (*Extension)(nil)
	_ plugin.OnResellerReactivated = (*Extension)(nil)
	_ plugin.OnStatusChanged       = (*Extension)(nil)
	_ plugin.OnApprovalPartial     = (*Extension)(nil)
	_ plugin.OnWalletCredited      = (*Extension)(nil)
	_ plugin.OnWalletDebited       = (*Extension)(nil)
	_ plugin.OnInsufficientFunds   = (*Extension)(nil)
	_ plugin.OnValidityChanged     = (*Extension)(nil)
	_ plugin.OnValidityExpired     = (*Extension)(nil)
	_ plugin.OnNumberLimitChanged  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges reseller events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Reseller lifecycle hooks
// ──────────────────────────────────────────────────

// OnResellerRegistered implements plugin.OnResellerRegistered.
func (e *Extension) OnResellerRegistered(ctx context.Context, r *account.Reseller) error {
	return e.record(ctx, ActionResellerRegistered, SeverityInfo, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryLifecycle, nil,
		"name", r.Name,
		"email", r.Email,
	)
}

// OnResellerApproved implements plugin.OnResellerApproved.
func (e *Extension) OnResellerApproved(ctx context.Context, r *account.Reseller) error {
	return e.record(ctx, ActionResellerApproved, SeverityInfo, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryLifecycle, nil,
		"approved_by", r.ApprovedBy.String(),
		"grace_period_days", r.GracePeriodDays,
	)
}

// OnResellerRejected implements plugin.OnResellerRejected.
func (e *Extension) OnResellerRejected(ctx context.Context, r *account.Reseller, reason string) error {
	return e.record(ctx, ActionResellerRejected, SeverityWarning, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryLifecycle, nil,
		"reason", reason,
	)
}

// OnResellerSuspended implements plugin.OnResellerSuspended.
func (e *Extension) OnResellerSuspended(ctx context.Context, r *account.Reseller) error {
	return e.record(ctx, ActionResellerSuspended, SeverityWarning, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryAccess, nil,
		"suspended_by", r.SuspendedBy.String(),
		"reason", r.SuspendedReason,
	)
}

// OnResellerReactivated implements plugin.OnResellerReactivated.
func (e *Extension) OnResellerReactivated(ctx context.Context, r *account.Reseller) error {
	return e.record(ctx, ActionResellerReactivated, SeverityInfo, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryAccess, nil,
		"reseller_id", r.ID.String(),
	)
}

// OnStatusChanged implements plugin.OnStatusChanged.
func (e *Extension) OnStatusChanged(ctx context.Context, r *account.Reseller, active bool) error {
	action := ActionResellerDeactivated
	if active {
		action = ActionResellerActivated
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceReseller, r.ID.String(), CategoryAccess, nil,
		"active", active,
	)
}

// OnApprovalPartial implements plugin.OnApprovalPartial.
func (e *Extension) OnApprovalPartial(ctx context.Context, r *account.Reseller, warnings []error) error {
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Error()
	}
	return e.record(ctx, ActionApprovalPartial, SeverityWarning, OutcomePartial,
		ResourceReseller, r.ID.String(), CategoryLifecycle, nil,
		"warnings", msgs,
	)
}

// ──────────────────────────────────────────────────
// Wallet hooks
// ──────────────────────────────────────────────────

// OnWalletCredited implements plugin.OnWalletCredited.
func (e *Extension) OnWalletCredited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) error {
	return e.record(ctx, ActionWalletCredited, SeverityInfo, OutcomeSuccess,
		ResourceWallet, w.ID.String(), CategoryBilling, nil,
		"reseller_id", w.ResellerID.String(),
		"transaction_id", txn.ID.String(),
		"amount", txn.Amount.String(),
		"balance_after", txn.BalanceAfter.String(),
		"reference", txn.Reference,
	)
}

// OnWalletDebited implements plugin.OnWalletDebited.
func (e *Extension) OnWalletDebited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) error {
	return e.record(ctx, ActionWalletDebited, SeverityInfo, OutcomeSuccess,
		ResourceWallet, w.ID.String(), CategoryBilling, nil,
		"reseller_id", w.ResellerID.String(),
		"transaction_id", txn.ID.String(),
		"amount", txn.Amount.String(),
		"balance_after", txn.BalanceAfter.String(),
		"reference", txn.Reference,
	)
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (e *Extension) OnInsufficientFunds(ctx context.Context, resellerID id.ResellerID, requested, available types.Money) error {
	return e.record(ctx, ActionInsufficientFunds, SeverityWarning, OutcomeFailure,
		ResourceWallet, resellerID.String(), CategoryBilling, nil,
		"requested", requested.String(),
		"available", available.String(),
	)
}

// ──────────────────────────────────────────────────
// Validity hooks
// ──────────────────────────────────────────────────

// OnValidityChanged implements plugin.OnValidityChanged.
func (e *Extension) OnValidityChanged(ctx context.Context, rec *validity.Record, hist *validity.History) error {
	return e.record(ctx, ActionValidityChanged, SeverityInfo, OutcomeSuccess,
		ResourceValidity, rec.ID.String(), CategoryAccess, nil,
		"reseller_id", rec.ResellerID.String(),
		"action", string(hist.Action),
		"end_date", rec.EndDate,
		"days", rec.Days,
		"status", string(rec.Status),
	)
}

// OnValidityExpired implements plugin.OnValidityExpired.
func (e *Extension) OnValidityExpired(ctx context.Context, rec *validity.Record) error {
	return e.record(ctx, ActionValidityExpired, SeverityWarning, OutcomeSuccess,
		ResourceValidity, rec.ID.String(), CategoryAccess, nil,
		"reseller_id", rec.ResellerID.String(),
		"end_date", rec.EndDate,
	)
}

// ──────────────────────────────────────────────────
// Number limit hooks
// ──────────────────────────────────────────────────

// OnNumberLimitChanged implements plugin.OnNumberLimitChanged.
func (e *Extension) OnNumberLimitChanged(ctx context.Context, l *numberlimit.Limit) error {
	return e.record(ctx, ActionNumberLimitChanged, SeverityInfo, OutcomeSuccess,
		ResourceNumberLimit, l.ID.String(), CategoryAccess, nil,
		"reseller_id", l.ResellerID.String(),
		"max_virtual_numbers", l.MaxVirtualNumbers,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
