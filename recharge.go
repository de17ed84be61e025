package reseller

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// RechargeInput describes a wallet top-up.
type RechargeInput struct {
	Amount      types.Money
	Description string
	// Reference makes the recharge idempotent per wallet.
	Reference string
	// ValidityDate sets an explicit window end. Without it the window is
	// reset to the default length from now.
	ValidityDate *time.Time
}

// DebitInput describes a wallet charge.
type DebitInput struct {
	Amount      types.Money
	Description string
	Reference   string
}

// RechargeResult is the outcome of Recharge. The credit has always posted
// when a result is returned.
type RechargeResult struct {
	Posting
	Validity *validity.Record `json:"validity,omitempty"`
	Warnings []error          `json:"-"`
}

// Recharge credits the wallet of an approved or suspended reseller and then
// moves its validity window. The credit is authoritative; a failed window
// update is reported as a warning. A replayed reference does not touch the
// window again.
func (e *Engine) Recharge(ctx context.Context, actor Actor, resellerID id.ResellerID, in RechargeInput) (*RechargeResult, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	amount, err := e.ledger.checkAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	if err := e.validity.check(ctx, resellerID, in.ValidityDate); err != nil {
		return nil, err
	}
	r, err := e.requireApproved(ctx, resellerID)
	if err != nil {
		return nil, err
	}

	description := in.Description
	if description == "" {
		description = "Wallet recharge"
	}
	posting, err := e.ledger.credit(ctx, resellerID, amount, description, in.Reference)
	if err != nil {
		return nil, err
	}

	res := &RechargeResult{Posting: *posting}
	if posting.Replayed {
		return res, nil
	}

	action := validity.ActionRechargeReset
	if in.ValidityDate != nil {
		action = validity.ActionRecharge
	}
	rec, err := e.validity.apply(ctx, windowChange{
		resellerID: resellerID,
		walletID:   posting.Wallet.ID,
		recharge:   &posting.Transaction.Amount,
		until:      in.ValidityDate,
		action:     action,
		suspended:  r.IsSuspended(),
	})
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Errorf("validity window: %w", err))
		e.reportPartial(resellerID, "recharge", res.Warnings)
	} else {
		res.Validity = rec
	}
	return res, nil
}

// Debit charges the wallet of a reseller. Provisioning callers hold
// RoleSystem; operators hold RoleAdmin.
func (e *Engine) Debit(ctx context.Context, actor Actor, resellerID id.ResellerID, in DebitInput) (*Posting, error) {
	if err := actor.authorize(RoleAdmin, RoleSystem); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	amount, err := e.ledger.checkAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	if _, err := e.loadReseller(ctx, resellerID); err != nil {
		return nil, err
	}

	description := in.Description
	if description == "" {
		description = "Wallet debit"
	}
	return e.ledger.debit(ctx, resellerID, amount, description, in.Reference)
}

// UpdateValidity sets an explicit end date on the window of an approved or
// suspended reseller.
func (e *Engine) UpdateValidity(ctx context.Context, actor Actor, resellerID id.ResellerID, endDate time.Time) (*validity.Record, error) {
	if err := actor.authorize(RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	if endDate.IsZero() {
		return nil, invalid("validity_date", "is required")
	}
	if err := e.validity.check(ctx, resellerID, &endDate); err != nil {
		return nil, err
	}
	r, err := e.requireApproved(ctx, resellerID)
	if err != nil {
		return nil, err
	}

	return e.validity.apply(ctx, windowChange{
		resellerID: resellerID,
		until:      &endDate,
		action:     validity.ActionAdminUpdate,
		suspended:  r.IsSuspended(),
	})
}

// GetWallet returns the wallet of a reseller.
func (e *Engine) GetWallet(ctx context.Context, resellerID id.ResellerID) (*wallet.Wallet, error) {
	return e.ledger.getWallet(ctx, resellerID)
}

// ListTransactions lists the transactions of a wallet, newest first.
func (e *Engine) ListTransactions(ctx context.Context, walletID id.WalletID, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	return e.ledger.transactions(ctx, walletID, opts)
}

// GetValidity returns the current validity window of a reseller.
func (e *Engine) GetValidity(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	rec, err := e.validity.get(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrValidityNotFound
	}
	return rec, nil
}

// ListValidityHistory lists the window history of a reseller, newest first.
func (e *Engine) ListValidityHistory(ctx context.Context, resellerID id.ResellerID, opts validity.ListOpts) ([]*validity.History, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	return e.validity.history(ctx, resellerID, opts)
}

// requireApproved loads the reseller and fails unless it has been approved.
func (e *Engine) requireApproved(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	r, err := e.loadReseller(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if !r.HasBeenApproved() {
		return nil, fmt.Errorf("%w (state %s)", ErrNotApproved, r.State())
	}
	return r, nil
}
