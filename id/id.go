// Package id defines TypeID-based identity types for all reseller back-office entities.
//
// Every entity uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all reseller back-office entity types.
const (
	PrefixReseller    Prefix = "rsl"  // Reseller account
	PrefixUser        Prefix = "usr"  // Operator acting on a reseller
	PrefixWallet      Prefix = "wlt"  // Prepaid wallet
	PrefixTransaction Prefix = "wtx"  // Wallet ledger transaction
	PrefixValidity    Prefix = "vld"  // Validity window record
	PrefixHistory     Prefix = "vhst" // Validity history entry
	PrefixNumberLimit Prefix = "nlim" // Virtual number cap
)

// ID is the primary identifier type for all entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "rsl_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// ResellerID is a type-safe identifier for resellers (prefix: "rsl").
type ResellerID = ID

// UserID is a type-safe identifier for operators (prefix: "usr").
type UserID = ID

// WalletID is a type-safe identifier for wallets (prefix: "wlt").
type WalletID = ID

// TransactionID is a type-safe identifier for wallet transactions (prefix: "wtx").
type TransactionID = ID

// ValidityID is a type-safe identifier for validity records (prefix: "vld").
type ValidityID = ID

// HistoryID is a type-safe identifier for validity history entries (prefix: "vhst").
type HistoryID = ID

// NumberLimitID is a type-safe identifier for number limits (prefix: "nlim").
type NumberLimitID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewResellerID generates a new unique reseller ID.
func NewResellerID() ID { return New(PrefixReseller) }

// NewUserID generates a new unique operator ID.
func NewUserID() ID { return New(PrefixUser) }

// NewWalletID generates a new unique wallet ID.
func NewWalletID() ID { return New(PrefixWallet) }

// NewTransactionID generates a new unique transaction ID.
func NewTransactionID() ID { return New(PrefixTransaction) }

// NewValidityID generates a new unique validity record ID.
func NewValidityID() ID { return New(PrefixValidity) }

// NewHistoryID generates a new unique validity history ID.
func NewHistoryID() ID { return New(PrefixHistory) }

// NewNumberLimitID generates a new unique number limit ID.
func NewNumberLimitID() ID { return New(PrefixNumberLimit) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseResellerID parses a string and validates the "rsl" prefix.
func ParseResellerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixReseller) }

// ParseUserID parses a string and validates the "usr" prefix.
func ParseUserID(s string) (ID, error) { return ParseWithPrefix(s, PrefixUser) }

// ParseWalletID parses a string and validates the "wlt" prefix.
func ParseWalletID(s string) (ID, error) { return ParseWithPrefix(s, PrefixWallet) }

// ParseTransactionID parses a string and validates the "wtx" prefix.
func ParseTransactionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransaction) }

// ParseValidityID parses a string and validates the "vld" prefix.
func ParseValidityID(s string) (ID, error) { return ParseWithPrefix(s, PrefixValidity) }

// ParseHistoryID parses a string and validates the "vhst" prefix.
func ParseHistoryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixHistory) }

// ParseNumberLimitID parses a string and validates the "nlim" prefix.
func ParseNumberLimitID(s string) (ID, error) { return ParseWithPrefix(s, PrefixNumberLimit) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// HasPrefix reports whether this ID is non-nil and carries the given prefix.
func (i ID) HasPrefix(p Prefix) bool {
	return i.valid && i.Prefix() == p
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
