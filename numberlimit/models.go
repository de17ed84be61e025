// Package numberlimit defines the per-reseller virtual number cap.
package numberlimit

import (
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
)

// Limit caps how many virtual numbers a reseller may hold. It is read by
// provisioning collaborators and never enforced here.
type Limit struct {
	types.Entity
	ID                id.NumberLimitID `json:"id"`
	ResellerID        id.ResellerID    `json:"reseller_id"`
	MaxVirtualNumbers int              `json:"max_virtual_numbers"`
}
