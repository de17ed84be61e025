// Package validity defines the reseller validity window and its audit history.
package validity

import (
	"math"
	"time"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
)

// Status is the state of a validity window.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusSuspended Status = "SUSPENDED"
)

// Action tags the cause of a history entry.
type Action string

const (
	ActionApproval      Action = "RESELLER_APPROVAL"
	ActionRecharge      Action = "WALLET_RECHARGE"
	ActionRechargeReset Action = "WALLET_RECHARGE_RESET"
	ActionAdminUpdate   Action = "ADMIN_UPDATE"
	ActionSuspended     Action = "RESELLER_SUSPENDED"
	ActionReactivated   Action = "RESELLER_REACTIVATED"
	ActionExpired       Action = "VALIDITY_EXPIRED"
)

// Day is the unit window lengths are counted in.
const Day = 24 * time.Hour

// Record is the single current validity window of a reseller.
type Record struct {
	types.Entity
	ID                 id.ValidityID `json:"id"`
	ResellerID         id.ResellerID `json:"reseller_id"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	Days               int           `json:"days"`
	LastWalletID       id.WalletID   `json:"last_wallet_id,omitempty"`
	LastRechargeAmount *types.Money  `json:"last_recharge_amount,omitempty"`
	Status             Status        `json:"status"`
	Version            int64         `json:"version"`
}

// History is an append-only record of one window change.
type History struct {
	ID             id.HistoryID  `json:"id"`
	RecordID       id.ValidityID `json:"record_id"`
	ResellerID     id.ResellerID `json:"reseller_id"`
	WalletID       id.WalletID   `json:"wallet_id,omitempty"`
	RechargeAmount *types.Money  `json:"recharge_amount,omitempty"`
	PreviousStart  *time.Time    `json:"previous_start,omitempty"`
	PreviousEnd    *time.Time    `json:"previous_end,omitempty"`
	NewStart       time.Time     `json:"new_start"`
	NewEnd         time.Time     `json:"new_end"`
	Days           int           `json:"days"`
	Status         Status        `json:"status"`
	Action         Action        `json:"action"`
	CreatedAt      time.Time     `json:"created_at"`
}

// DaysBetween returns the window length in whole days, rounded up.
func DaysBetween(start, end time.Time) int {
	return int(math.Ceil(float64(end.Sub(start)) / float64(Day)))
}

// EndOfDay returns the last representable instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Millisecond), loc)
}

// IsExpiredAt reports whether the window has ended at now.
func (r *Record) IsExpiredAt(now time.Time) bool {
	return !r.EndDate.After(now)
}
