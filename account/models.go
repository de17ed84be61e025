// Package account defines the reseller entity and its derived lifecycle state.
package account

import (
	"time"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
)

// State is the lifecycle position of a reseller, derived from its fields.
type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateRejected  State = "rejected"
	StateSuspended State = "suspended"
)

// Reseller holds the lifecycle-relevant fields of a reseller account.
type Reseller struct {
	types.Entity
	ID              id.ResellerID `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone,omitempty"`
	Status          bool          `json:"status"`
	ApprovalDate    *time.Time    `json:"approval_date,omitempty"`
	ApprovedBy      id.UserID     `json:"approved_by,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	SuspendedAt     *time.Time    `json:"suspended_at,omitempty"`
	SuspendedBy     id.UserID     `json:"suspended_by,omitempty"`
	SuspendedReason string        `json:"suspended_reason,omitempty"`
	GracePeriodDays int           `json:"grace_period_days"`
	Version         int64         `json:"version"`
}

// State derives the lifecycle state. Suspension wins over everything,
// then rejection, then approval.
func (r *Reseller) State() State {
	switch {
	case r.SuspendedAt != nil:
		return StateSuspended
	case r.RejectionReason != "":
		return StateRejected
	case r.ApprovalDate != nil:
		return StateApproved
	default:
		return StatePending
	}
}

// IsSuspended reports whether the reseller is currently suspended.
func (r *Reseller) IsSuspended() bool { return r.SuspendedAt != nil }

// HasBeenApproved reports whether the reseller is approved, possibly suspended.
func (r *Reseller) HasBeenApproved() bool {
	s := r.State()
	return s == StateApproved || s == StateSuspended
}

// Clone returns a shallow copy safe to mutate.
func (r *Reseller) Clone() *Reseller {
	c := *r
	return &c
}
