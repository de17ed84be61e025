package reseller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
)

// windowChange describes one validity-affecting operation.
type windowChange struct {
	resellerID id.ResellerID
	walletID   id.WalletID
	recharge   *types.Money
	// until is an operator-supplied end date. Nil resets the window to
	// now plus the default length.
	until  *time.Time
	action validity.Action
	// suspended keeps the window SUSPENDED while the reseller is.
	suspended bool
}

// validityTracker owns the validity window of each reseller and its
// history. The record upsert and the history append always commit together.
type validityTracker struct {
	store       validity.Store
	plugins     *plugin.Registry
	logger      *slog.Logger
	now         func() time.Time
	location    *time.Location
	defaultDays int
	retries     int
}

// get returns the current record, or nil when the reseller has none.
func (v *validityTracker) get(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	rec, err := v.store.GetValidity(ctx, resellerID)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistence("get validity", err)
	}
	return rec, nil
}

// window computes the new start, end and day count for ch against current.
// An explicit date keeps the current start and ends at the close of that
// day; otherwise the window restarts now for the default length.
func (v *validityTracker) window(current *validity.Record, ch windowChange, now time.Time) (time.Time, time.Time, int, error) {
	if ch.until == nil {
		end := now.Add(time.Duration(v.defaultDays) * validity.Day)
		return now, end, v.defaultDays, nil
	}

	start := now
	if current != nil {
		start = current.StartDate
	}
	end := validity.EndOfDay(*ch.until, v.location).UTC()
	days := validity.DaysBetween(start, end)
	if days <= 0 {
		return start, end, days, invalid("validity_date", "must end after the window start %s", start.Format(time.DateOnly))
	}
	return start, end, days, nil
}

// check validates an explicit end date without writing.
func (v *validityTracker) check(ctx context.Context, resellerID id.ResellerID, until *time.Time) error {
	if until == nil {
		return nil
	}
	current, err := v.get(ctx, resellerID)
	if err != nil {
		return err
	}
	_, _, _, err = v.window(current, windowChange{until: until}, v.now())
	return err
}

// apply writes a new window and its history entry.
func (v *validityTracker) apply(ctx context.Context, ch windowChange) (*validity.Record, error) {
	return v.save(ctx, ch.resellerID, ch.action, ch.walletID, ch.recharge, func(current *validity.Record, now time.Time) (*validity.Record, error) {
		start, end, days, err := v.window(current, ch, now)
		if err != nil {
			return nil, err
		}

		rec := &validity.Record{
			Entity:     types.NewEntity(now),
			ID:         id.NewValidityID(),
			ResellerID: ch.resellerID,
			StartDate:  start,
			EndDate:    end,
			Days:       days,
			Status:     validity.StatusActive,
		}
		if ch.suspended {
			rec.Status = validity.StatusSuspended
		}
		if current != nil {
			rec.ID = current.ID
			rec.CreatedAt = current.CreatedAt
			rec.LastWalletID = current.LastWalletID
			rec.LastRechargeAmount = current.LastRechargeAmount
		}
		if !ch.walletID.IsNil() {
			rec.LastWalletID = ch.walletID
		}
		if ch.recharge != nil {
			rec.LastRechargeAmount = ch.recharge
		}
		return rec, nil
	})
}

// setStatus changes only the status of an existing window. It returns nil
// without writing when the reseller has no record or the status is unchanged.
func (v *validityTracker) setStatus(ctx context.Context, resellerID id.ResellerID, status func(*validity.Record, time.Time) validity.Status, action validity.Action) (*validity.Record, error) {
	return v.save(ctx, resellerID, action, id.Nil, nil, func(current *validity.Record, now time.Time) (*validity.Record, error) {
		if current == nil {
			return nil, nil
		}
		next := status(current, now)
		if next == current.Status {
			return nil, nil
		}
		rec := *current
		rec.Status = next
		return &rec, nil
	})
}

func (v *validityTracker) suspend(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	return v.setStatus(ctx, resellerID, func(*validity.Record, time.Time) validity.Status {
		return validity.StatusSuspended
	}, validity.ActionSuspended)
}

func (v *validityTracker) reactivate(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	return v.setStatus(ctx, resellerID, func(rec *validity.Record, now time.Time) validity.Status {
		if rec.IsExpiredAt(now) {
			return validity.StatusExpired
		}
		return validity.StatusActive
	}, validity.ActionReactivated)
}

// expire marks an ended ACTIVE window EXPIRED. Records changed since they
// were listed are left alone.
func (v *validityTracker) expire(ctx context.Context, listed *validity.Record) (*validity.Record, error) {
	rec, err := v.setStatus(ctx, listed.ResellerID, func(rec *validity.Record, now time.Time) validity.Status {
		if rec.Status == validity.StatusActive && rec.IsExpiredAt(now) {
			return validity.StatusExpired
		}
		return rec.Status
	}, validity.ActionExpired)
	if err != nil || rec == nil {
		return rec, err
	}
	v.plugins.EmitValidityExpired(ctx, rec)
	return rec, nil
}

// save runs the optimistic read-compute-write loop shared by every
// validity operation. build returns the next record, or nil for no change.
func (v *validityTracker) save(
	ctx context.Context,
	resellerID id.ResellerID,
	action validity.Action,
	walletID id.WalletID,
	recharge *types.Money,
	build func(current *validity.Record, now time.Time) (*validity.Record, error),
) (*validity.Record, error) {
	for attempt := 1; attempt <= v.retries; attempt++ {
		current, err := v.get(ctx, resellerID)
		if err != nil {
			return nil, err
		}

		now := v.now()
		rec, err := build(current, now)
		if err != nil || rec == nil {
			return nil, err
		}

		var expected int64
		hist := &validity.History{
			ID:             id.NewHistoryID(),
			RecordID:       rec.ID,
			ResellerID:     resellerID,
			WalletID:       walletID,
			RechargeAmount: recharge,
			NewStart:       rec.StartDate,
			NewEnd:         rec.EndDate,
			Days:           rec.Days,
			Status:         rec.Status,
			Action:         action,
			CreatedAt:      now,
		}
		if current != nil {
			expected = current.Version
			prevStart, prevEnd := current.StartDate, current.EndDate
			hist.PreviousStart = &prevStart
			hist.PreviousEnd = &prevEnd
		}
		rec.Version = expected + 1
		rec.UpdatedAt = now

		err = v.store.SaveWindow(ctx, rec, hist, expected)
		switch {
		case err == nil:
			v.logger.Debug("validity window saved",
				"reseller_id", resellerID.String(),
				"action", string(action),
				"end_date", rec.EndDate,
				"days", rec.Days,
				"status", string(rec.Status),
			)
			v.plugins.EmitValidityChanged(ctx, rec, hist)
			return rec, nil
		case errors.Is(err, ErrVersionConflict):
			v.logger.Debug("validity write conflict, retrying",
				"reseller_id", resellerID.String(),
				"attempt", attempt,
			)
			continue
		default:
			return nil, persistence("save validity", err)
		}
	}

	return nil, fmt.Errorf("%w: validity of %s", ErrTransactionFailed, resellerID)
}

func (v *validityTracker) history(ctx context.Context, resellerID id.ResellerID, opts validity.ListOpts) ([]*validity.History, error) {
	hist, err := v.store.ListHistory(ctx, resellerID, opts)
	return hist, persistence("list validity history", err)
}
