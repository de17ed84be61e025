package audithook

// Action constants for audit events.
const (
	// Reseller lifecycle actions
	ActionResellerRegistered  = "reseller.registered"
	ActionResellerApproved    = "reseller.approved"
	ActionResellerRejected    = "reseller.rejected"
	ActionResellerSuspended   = "reseller.suspended"
	ActionResellerReactivated = "reseller.reactivated"
	ActionResellerActivated   = "reseller.activated"
	ActionResellerDeactivated = "reseller.deactivated"
	ActionApprovalPartial     = "reseller.approval_partial"

	// Wallet actions
	ActionWalletCredited    = "wallet.credited"
	ActionWalletDebited     = "wallet.debited"
	ActionInsufficientFunds = "wallet.insufficient_funds"

	// Validity actions
	ActionValidityChanged = "validity.changed"
	ActionValidityExpired = "validity.expired"

	// Number limit actions
	ActionNumberLimitChanged = "number_limit.changed"
)

// Resource constants for audit events.
const (
	ResourceReseller    = "reseller"
	ResourceWallet      = "wallet"
	ResourceValidity    = "validity"
	ResourceNumberLimit = "number_limit"
)

// Category constants for audit events.
const (
	CategoryLifecycle = "lifecycle"
	CategoryBilling   = "billing"
	CategoryAccess    = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
