package reseller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// RegisterInput describes a new reseller.
type RegisterInput struct {
	Name  string
	Email string
	Phone string
}

// ApproveInput carries the optional side effects of an approval.
type ApproveInput struct {
	// WalletBalance, when positive, is credited to the wallet.
	WalletBalance   types.Money
	GracePeriodDays int
	// NumberLimit, when set, is written to the number limit register.
	NumberLimit *int
	// ValidityDate sets an explicit window end. Without it a credited
	// approval resets the window to the default length.
	ValidityDate *time.Time
}

// ApprovalResult is the outcome of Approve. The approval itself has always
// committed when a result is returned; Warnings lists secondary steps that
// did not apply.
type ApprovalResult struct {
	Reseller    *account.Reseller   `json:"reseller"`
	Wallet      *wallet.Wallet      `json:"wallet,omitempty"`
	Transaction *wallet.Transaction `json:"transaction,omitempty"`
	Validity    *validity.Record    `json:"validity,omitempty"`
	NumberLimit *numberlimit.Limit  `json:"number_limit,omitempty"`
	Warnings    []error             `json:"-"`
}

// TransitionResult is the outcome of Suspend and Reactivate.
type TransitionResult struct {
	Reseller *account.Reseller `json:"reseller"`
	Validity *validity.Record  `json:"validity,omitempty"`
	Warnings []error           `json:"-"`
}

// Warning folds the warnings of a result into one error, or nil.
func Warning(warnings []error) error {
	if len(warnings) == 0 {
		return nil
	}
	return MultiError{Errors: warnings}
}

// Register creates a pending reseller.
func (e *Engine) Register(ctx context.Context, actor Actor, in RegisterInput) (*account.Reseller, error) {
	if err := actor.authorize(RoleAdmin, RoleSystem); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "must be an email address")
	}

	r := &account.Reseller{
		Entity:  types.NewEntity(e.clock()),
		ID:      id.NewResellerID(),
		Name:    name,
		Email:   strings.ToLower(email),
		Phone:   strings.TrimSpace(in.Phone),
		Version: 1,
	}
	if err := e.store.CreateReseller(ctx, r); err != nil {
		return nil, persistence("create reseller", err)
	}

	e.logger.Info("reseller registered", "reseller_id", r.ID.String())
	e.plugins.EmitResellerRegistered(ctx, r)
	return r, nil
}

// Approve moves a pending or rejected reseller to approved. The approval
// write is authoritative: once it commits, failures of the wallet credit,
// the validity window and the number limit are returned as warnings and
// never undo it.
func (e *Engine) Approve(ctx context.Context, actor Actor, resellerID id.ResellerID, in ApproveInput) (*ApprovalResult, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	if in.GracePeriodDays < 0 {
		return nil, invalid("grace_period_days", "must not be negative")
	}
	if in.NumberLimit != nil && *in.NumberLimit < 0 {
		return nil, invalid("number_limit", "must not be negative")
	}
	credit := !in.WalletBalance.IsZero()
	if credit {
		if _, err := e.ledger.checkAmount("wallet_balance", in.WalletBalance); err != nil {
			return nil, err
		}
	}
	if err := e.validity.check(ctx, resellerID, in.ValidityDate); err != nil {
		return nil, err
	}

	r, err := e.transition(ctx, resellerID, func(r *account.Reseller, now time.Time) error {
		switch r.State() {
		case account.StateApproved, account.StateSuspended:
			return ErrAlreadyApproved
		}
		r.Status = true
		r.ApprovalDate = &now
		r.ApprovedBy = actor.ID
		r.RejectionReason = ""
		r.GracePeriodDays = in.GracePeriodDays
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reseller approved",
		"reseller_id", r.ID.String(),
		"approved_by", actor.ID.String(),
	)
	e.plugins.EmitResellerApproved(ctx, r)

	res := &ApprovalResult{Reseller: r}

	// Secondary steps. Each failure is logged and reported, never returned.
	var posting *Posting
	if credit {
		posting, err = e.ledger.credit(ctx, resellerID, in.WalletBalance, "Initial balance on approval", "")
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("wallet credit: %w", err))
		} else {
			res.Wallet, res.Transaction = posting.Wallet, posting.Transaction
		}
	}

	if posting != nil || (!credit && in.ValidityDate != nil) {
		ch := windowChange{resellerID: resellerID, until: in.ValidityDate, action: validity.ActionApproval}
		if posting != nil {
			ch.walletID = posting.Wallet.ID
			ch.recharge = &posting.Transaction.Amount
		}
		rec, err := e.validity.apply(ctx, ch)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("validity window: %w", err))
		} else {
			res.Validity = rec
		}
	}

	if in.NumberLimit != nil {
		l, err := e.upsertNumberLimit(ctx, resellerID, *in.NumberLimit)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("number limit: %w", err))
		} else {
			res.NumberLimit = l
		}
	}

	if len(res.Warnings) > 0 {
		e.reportPartial(r.ID, "approve", res.Warnings)
		e.plugins.EmitApprovalPartial(ctx, r, res.Warnings)
	}
	return res, nil
}

// Reject records a rejection reason on a pending reseller.
func (e *Engine) Reject(ctx context.Context, actor Actor, resellerID id.ResellerID, reason string) (*account.Reseller, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	reason, err := checkReason(reason)
	if err != nil {
		return nil, err
	}

	r, err := e.transition(ctx, resellerID, func(r *account.Reseller, _ time.Time) error {
		if r.State() != account.StatePending {
			return fmt.Errorf("%w (state %s)", ErrNotPending, r.State())
		}
		r.Status = false
		r.RejectionReason = reason
		r.ApprovalDate = nil
		r.ApprovedBy = id.Nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reseller rejected",
		"reseller_id", r.ID.String(),
		"rejected_by", actor.ID.String(),
	)
	e.plugins.EmitResellerRejected(ctx, r, reason)
	return r, nil
}

// Suspend suspends an approved reseller. Marking the validity window
// suspended is best-effort.
func (e *Engine) Suspend(ctx context.Context, actor Actor, resellerID id.ResellerID, reason string) (*TransitionResult, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	reason, err := checkReason(reason)
	if err != nil {
		return nil, err
	}

	r, err := e.transition(ctx, resellerID, func(r *account.Reseller, now time.Time) error {
		switch r.State() {
		case account.StateSuspended:
			return ErrAlreadySuspended
		case account.StateApproved:
		default:
			return fmt.Errorf("%w (state %s)", ErrNotApproved, r.State())
		}
		r.Status = false
		r.SuspendedAt = &now
		r.SuspendedBy = actor.ID
		r.SuspendedReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reseller suspended",
		"reseller_id", r.ID.String(),
		"suspended_by", actor.ID.String(),
	)
	e.plugins.EmitResellerSuspended(ctx, r)

	res := &TransitionResult{Reseller: r}
	if rec, err := e.validity.suspend(ctx, resellerID); err != nil {
		res.Warnings = append(res.Warnings, fmt.Errorf("validity window: %w", err))
	} else {
		res.Validity = rec
	}
	e.reportPartial(r.ID, "suspend", res.Warnings)
	return res, nil
}

// Reactivate lifts a suspension. Restoring the validity window status is
// best-effort.
func (e *Engine) Reactivate(ctx context.Context, actor Actor, resellerID id.ResellerID) (*TransitionResult, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}

	r, err := e.transition(ctx, resellerID, func(r *account.Reseller, _ time.Time) error {
		if !r.IsSuspended() {
			return fmt.Errorf("%w (state %s)", ErrNotSuspended, r.State())
		}
		r.Status = true
		r.SuspendedAt = nil
		r.SuspendedBy = id.Nil
		r.SuspendedReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("reseller reactivated",
		"reseller_id", r.ID.String(),
		"reactivated_by", actor.ID.String(),
	)
	e.plugins.EmitResellerReactivated(ctx, r)

	res := &TransitionResult{Reseller: r}
	if rec, err := e.validity.reactivate(ctx, resellerID); err != nil {
		res.Warnings = append(res.Warnings, fmt.Errorf("validity window: %w", err))
	} else {
		res.Validity = rec
	}
	e.reportPartial(r.ID, "reactivate", res.Warnings)
	return res, nil
}

// SetActive toggles the plain active flag of an approved reseller. A
// suspended reseller must be reactivated instead.
func (e *Engine) SetActive(ctx context.Context, actor Actor, resellerID id.ResellerID, active bool) (*account.Reseller, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}

	r, err := e.transition(ctx, resellerID, func(r *account.Reseller, _ time.Time) error {
		if r.IsSuspended() {
			return ErrSuspendedToggle
		}
		if !r.HasBeenApproved() {
			return fmt.Errorf("%w (state %s)", ErrNotApproved, r.State())
		}
		r.Status = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.plugins.EmitStatusChanged(ctx, r, active)
	return r, nil
}

// GetReseller returns a reseller by ID.
func (e *Engine) GetReseller(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	return e.loadReseller(ctx, resellerID)
}

// ListResellers lists resellers, optionally filtered by lifecycle state.
func (e *Engine) ListResellers(ctx context.Context, opts account.ListOpts) ([]*account.Reseller, error) {
	rs, err := e.store.ListResellers(ctx, opts)
	return rs, persistence("list resellers", err)
}

func (e *Engine) loadReseller(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	r, err := e.store.GetReseller(ctx, resellerID)
	if IsNotFound(err) {
		return nil, ErrResellerNotFound
	}
	if err != nil {
		return nil, persistence("get reseller", err)
	}
	return r, nil
}

// transition loads a reseller, applies mutate to a copy and writes it back
// conditional on the loaded version. On a version conflict the reseller is
// reloaded and mutate re-evaluated, so a lost race surfaces as the state
// conflict the fresh state implies.
func (e *Engine) transition(ctx context.Context, resellerID id.ResellerID, mutate func(r *account.Reseller, now time.Time) error) (*account.Reseller, error) {
	for attempt := 1; attempt <= e.maxWriteRetries; attempt++ {
		current, err := e.loadReseller(ctx, resellerID)
		if err != nil {
			return nil, err
		}

		now := e.clock()
		next := current.Clone()
		if err := mutate(next, now); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		next.Touch(now)

		err = e.store.UpdateReseller(ctx, next, current.Version)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, ErrVersionConflict):
			e.logger.Debug("reseller write conflict, retrying",
				"reseller_id", resellerID.String(),
				"attempt", attempt,
			)
			continue
		case IsNotFound(err):
			return nil, ErrResellerNotFound
		default:
			return nil, persistence("update reseller", err)
		}
	}

	return nil, fmt.Errorf("%w: reseller %s", ErrTransactionFailed, resellerID)
}

func (e *Engine) reportPartial(resellerID id.ResellerID, op string, warnings []error) {
	if len(warnings) == 0 {
		return
	}
	e.logger.Warn("secondary steps incomplete",
		"op", op,
		"reseller_id", resellerID.String(),
		"warnings", Warning(warnings).Error(),
	)
}

// checkReason trims reason and enforces the minimum length.
func checkReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < MinReasonLength {
		return "", invalid("reason", "must be at least %d characters", MinReasonLength)
	}
	return reason, nil
}
