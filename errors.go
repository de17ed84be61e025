package reseller

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("reseller: not found")
	ErrAlreadyExists = errors.New("reseller: already exists")
	ErrInvalidInput  = errors.New("reseller: invalid input")
	ErrForbidden     = errors.New("reseller: forbidden")

	// Entity lookups
	ErrResellerNotFound    = fmt.Errorf("%w: reseller", ErrNotFound)
	ErrWalletNotFound      = fmt.Errorf("%w: wallet", ErrNotFound)
	ErrValidityNotFound    = fmt.Errorf("%w: validity record", ErrNotFound)
	ErrNumberLimitNotFound = fmt.Errorf("%w: number limit", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", ErrNotFound)

	// Ledger errors
	ErrInsufficientFunds  = errors.New("reseller: insufficient funds")
	ErrDuplicateReference = errors.New("reseller: duplicate transaction reference")
	ErrCurrencyMismatch   = errors.New("reseller: currency mismatch")

	// Lifecycle errors
	ErrStateConflict    = errors.New("reseller: state conflict")
	ErrAlreadyApproved  = fmt.Errorf("%w: reseller is already approved", ErrStateConflict)
	ErrNotPending       = fmt.Errorf("%w: reseller is not pending", ErrStateConflict)
	ErrAlreadySuspended = fmt.Errorf("%w: reseller is already suspended", ErrStateConflict)
	ErrNotApproved      = fmt.Errorf("%w: reseller is not approved", ErrStateConflict)
	ErrNotSuspended     = fmt.Errorf("%w: reseller is not suspended", ErrStateConflict)
	ErrSuspendedToggle  = fmt.Errorf("%w: reseller is suspended, reactivate first", ErrStateConflict)

	// Store errors
	ErrPersistence       = errors.New("reseller: persistence failure")
	ErrVersionConflict   = errors.New("reseller: version conflict")
	ErrTransactionFailed = fmt.Errorf("%w: transaction failed after retries", ErrPersistence)
	ErrMigrationFailed   = fmt.Errorf("%w: migration failed", ErrPersistence)
	ErrStoreClosed       = fmt.Errorf("%w: store is closed", ErrPersistence)
)

// Kind classifies an error for callers that map failures to responses.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindStateConflict     Kind = "state_conflict"
	KindPersistence       Kind = "persistence"
	KindForbidden         Kind = "forbidden"
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("reseller: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match every validation failure.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "reseller: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("reseller: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	var ve ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve), errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrStateConflict):
		return KindStateConflict
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrVersionConflict):
		return KindPersistence
	default:
		return KindUnknown
	}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrTransactionFailed)
}

// persistence wraps a store failure so it classifies as KindPersistence.
// Not-found and conflict sentinels pass through untouched.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrDuplicateReference) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
