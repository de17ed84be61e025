package admin

import "time"

// RegisterRequest is the body of a reseller registration.
type RegisterRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// ApproveRequest is the body of an approval. Every field is optional.
type ApproveRequest struct {
	WalletBalance   string     `json:"wallet_balance" validate:"omitempty,numeric"`
	GracePeriodDays int        `json:"grace_period_days" validate:"gte=0"`
	NumberLimit     *int       `json:"number_limit" validate:"omitempty,gte=0"`
	ValidityDate    *time.Time `json:"validity_date"`
}

// ReasonRequest carries the reason of a rejection or suspension.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

// StatusRequest toggles the administrative active flag.
type StatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// RechargeRequest is the body of a wallet top-up.
type RechargeRequest struct {
	Amount       string     `json:"amount" validate:"required,numeric"`
	Description  string     `json:"description" validate:"max=500"`
	Reference    string     `json:"reference" validate:"max=128"`
	ValidityDate *time.Time `json:"validity_date"`
}

// DebitRequest is the body of a wallet charge.
type DebitRequest struct {
	Amount      string `json:"amount" validate:"required,numeric"`
	Description string `json:"description" validate:"max=500"`
	Reference   string `json:"reference" validate:"max=128"`
}

// ValidityRequest sets an explicit validity end date.
type ValidityRequest struct {
	EndDate time.Time `json:"end_date" validate:"required"`
}

// NumberLimitRequest sets the virtual number cap.
type NumberLimitRequest struct {
	MaxVirtualNumbers *int `json:"max_virtual_numbers" validate:"required,gte=0"`
}

// ListResellersRequest filters a reseller listing.
type ListResellersRequest struct {
	State  string `json:"state" validate:"omitempty,oneof=pending approved rejected suspended"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}

// ListTransactionsRequest filters a wallet statement.
type ListTransactionsRequest struct {
	Type   string `json:"type" validate:"omitempty,oneof=CREDIT DEBIT"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}

// ListHistoryRequest filters a validity history listing.
type ListHistoryRequest struct {
	Action string `json:"action" validate:"omitempty,max=64"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}
